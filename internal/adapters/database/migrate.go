package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies every pending migration, each in its own transaction.
// It returns the versions that were applied.
func Migrate(ctx context.Context, db *sql.DB, log zerolog.Logger) ([]int, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}

	files, err := upMigrations()
	if err != nil {
		return nil, err
	}

	var applied []int
	for _, filename := range files {
		version := extractVersion(filename)

		var exists int
		err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = $1", version).Scan(&exists)
		if err != nil {
			return applied, fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + filename)
		if err != nil {
			return applied, fmt.Errorf("reading migration %s: %w", filename, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return applied, fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("executing migration %s: %w", filename, err)
		}

		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("committing migration %d: %w", version, err)
		}

		log.Info().Int("version", version).Str("file", filename).Msg("applied migration")
		applied = append(applied, version)
	}

	return applied, nil
}

func upMigrations() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func extractVersion(filename string) int {
	var version int
	fmt.Sscanf(filename, "%d_", &version)
	return version
}

// SeedWeekDays makes sure the weekday reference table holds the seven
// canonical days. It is safe to run repeatedly and returns how many rows
// were inserted.
func SeedWeekDays(ctx context.Context, db *sql.DB) (int, error) {
	inserted := 0
	for _, d := range domain.WeekDays() {
		res, err := db.ExecContext(ctx,
			"INSERT INTO weekdays (id, code) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING",
			d.ID, d.Code,
		)
		if err != nil {
			return inserted, fmt.Errorf("seeding weekday %s: %w", d.Code, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, err
		}
		inserted += int(n)
	}
	return inserted, nil
}
