package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-reminders/internal/adapters/database"
	"github.com/comitanigiacomo/kanso-reminders/internal/config"
	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
)

type habitResponse struct {
	ID       string `json:"id"`
	Schedule string `json:"schedule"`
}

func testConfig(storage string) *config.Config {
	return &config.Config{
		Port:    "0",
		Storage: storage,
		DB: config.DBConfig{
			User:     getEnv("DB_USER", "kanso_user"),
			Password: getEnv("DB_PASSWORD", "secret"),
			Name:     getEnv("DB_NAME", "kanso_db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
		},
		JWT: config.JWTConfig{
			Secret:     "e2e-secret",
			Issuer:     "kanso-e2e",
			AccessTTL:  time.Minute,
			RefreshTTL: time.Hour,
		},
		Scheduler: config.SchedulerConfig{Timezone: "UTC"},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func call(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestEndToEnd_Memory(t *testing.T) {
	gin.SetMode(gin.TestMode)

	a, err := newApp(context.Background(), testConfig(config.StorageMemory), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	runHabitLifecycle(t, a)
}

func TestEndToEnd_Postgres(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_ = godotenv.Load("../../.env")

	cfg := testConfig(config.StoragePostgres)
	db, err := database.Open(context.Background(), cfg.DB.DSN())
	if err != nil {
		t.Skipf("Skipping integration test (DB down): %v", err)
	}
	db.Close()

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	runHabitLifecycle(t, a)
}

func runHabitLifecycle(t *testing.T, a *app) {
	ctx := context.Background()
	router := a.router
	email := "e2e-" + uuid.NewString()[:8] + "@kanso.app"

	var access, habitID string

	t.Run("1. Register and Login", func(t *testing.T) {
		w := call(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
			"email":      email,
			"password":   "PasswordValidissima!",
			"tg_chat_id": "424242",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		w = call(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email":    email,
			"password": "PasswordValidissima!",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var pair struct {
			Access string `json:"access"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
		access = pair.Access
		require.NotEmpty(t, access)
	})

	t.Run("2. Create Habit", func(t *testing.T) {
		require.NotEmpty(t, access)

		w := call(t, router, http.MethodPost, "/api/v1/habits", access, map[string]any{
			"place":       "Park",
			"action":      "Run",
			"time":        "2025-03-30T15:30:00Z",
			"frequency":   "m h * * *",
			"reward":      "Eat a chocolate",
			"time_needed": 90,
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var h habitResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
		assert.Equal(t, "30 15 * * *", h.Schedule)
		habitID = h.ID
	})

	t.Run("3. Worker picks up the job", func(t *testing.T) {
		require.NotEmpty(t, habitID)
		require.NoError(t, a.worker.Sync(ctx))

		assert.Equal(t, "30 15 * * *", a.worker.Scheduled()[domain.ReminderJobName(habitID)])
		assert.NoError(t, a.reminders.Dispatch(ctx, habitID))
	})

	t.Run("4. Update replaces the job", func(t *testing.T) {
		w := call(t, router, http.MethodPatch, "/api/v1/habits/"+habitID, access, map[string]any{
			"time": "2025-03-30T16:30:00Z",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		require.NoError(t, a.worker.Sync(ctx))
		assert.Equal(t, "30 16 * * *", a.worker.Scheduled()[domain.ReminderJobName(habitID)])
	})

	t.Run("5. Delete Habit", func(t *testing.T) {
		w := call(t, router, http.MethodDelete, "/api/v1/habits/"+habitID, access, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		require.NoError(t, a.worker.Sync(ctx))
		assert.NotContains(t, a.worker.Scheduled(), domain.ReminderJobName(habitID))
		assert.ErrorIs(t, a.reminders.Dispatch(ctx, habitID), domain.ErrReminderStale)
	})

	t.Run("6. Validation Error", func(t *testing.T) {
		w := call(t, router, http.MethodPost, "/api/v1/habits", access, map[string]any{
			"place":       "Park",
			"action":      "Run",
			"time_needed": 121,
			"is_pleasant": true,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("7. Auth Error", func(t *testing.T) {
		w := call(t, router, http.MethodGet, "/api/v1/habits", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
