package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type DBConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type TelegramConfig struct {
	Token      string
	RatePerSec float64
}

type SchedulerConfig struct {
	Timezone string
	Resync   time.Duration
}

type LogConfig struct {
	Level   string
	Console bool
}

type Config struct {
	Port      string
	Storage   string
	RateLimit int
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Telegram  TelegramConfig
	Scheduler SchedulerConfig
	Log       LogConfig
}

// Load reads the configuration from the environment. A .env file in the
// working directory, if present, fills in variables that are not set.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)

	var errs []error
	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		Storage: strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		// requests per minute and client IP, 0 disables the limiter
		RateLimit: getInt("RATE_LIMIT_PER_MIN", 100, &errs),
		DB: DBConfig{
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
		},
		Redis: RedisConfig{
			Host:     os.Getenv("REDIS_HOST"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0, &errs),
		},
		JWT: JWTConfig{
			Secret:     os.Getenv("JWT_SECRET"),
			Issuer:     getEnv("JWT_ISSUER", "kanso-reminders"),
			AccessTTL:  getDuration("ACCESS_TOKEN_TTL", 15*time.Minute, &errs),
			RefreshTTL: getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour, &errs),
		},
		Telegram: TelegramConfig{
			Token:      os.Getenv("TELEGRAM_BOT_TOKEN"),
			RatePerSec: getFloat("TELEGRAM_RATE_PER_SEC", 25, &errs),
		},
		Scheduler: SchedulerConfig{
			Timezone: getEnv("SCHEDULER_TIMEZONE", "UTC"),
			Resync:   getDuration("SCHEDULER_RESYNC", time.Minute, &errs),
		},
		Log: LogConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Console: getBool("LOG_CONSOLE", false, &errs),
		},
	}
	cfg.Redis.Enabled = cfg.Redis.Host != ""

	if cfg.Storage != StoragePostgres && cfg.Storage != StorageMemory {
		errs = append(errs, fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, cfg.Storage))
	}
	if cfg.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("SCHEDULER_TIMEZONE: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Location is the zone the reminder runtime evaluates cron expressions in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func getBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
