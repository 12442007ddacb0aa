package database

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpMigrations_Ordered(t *testing.T) {
	files, err := upMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, files)

	prev := 0
	for _, f := range files {
		assert.True(t, strings.HasSuffix(f, ".up.sql"))
		v := extractVersion(f)
		assert.Greater(t, v, prev, "versions must be strictly increasing: %s", f)
		prev = v
	}
}

func TestWeekdaySeedMigration_MatchesDomain(t *testing.T) {
	content, err := migrationsFS.ReadFile("migrations/0002_weekdays.up.sql")
	require.NoError(t, err)

	for _, code := range []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"} {
		assert.Contains(t, string(content), "'"+code+"'")
	}
}

func dsnFromEnv() string {
	get := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		get("DB_USER", "kanso_user"), get("DB_PASSWORD", "secret"),
		get("DB_HOST", "localhost"), get("DB_PORT", "5432"), get("DB_NAME", "kanso_db"))
}

func TestMigrate_Integration(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, dsnFromEnv())
	if err != nil {
		t.Skipf("Skipping integration tests: database connection failed: %v", err)
	}
	defer db.Close()

	_, err = Migrate(ctx, db.DB, zerolog.Nop())
	require.NoError(t, err)

	again, err := Migrate(ctx, db.DB, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, again, "second run must not apply anything")

	inserted, err := SeedWeekDays(ctx, db.DB)
	require.NoError(t, err)
	assert.Zero(t, inserted, "migration already seeded the weekdays")

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM weekdays").Scan(&count))
	assert.Equal(t, 7, count)
}
