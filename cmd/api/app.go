package main

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/comitanigiacomo/kanso-reminders/internal/adapters/cache"
	"github.com/comitanigiacomo/kanso-reminders/internal/adapters/database"
	adapterHTTP "github.com/comitanigiacomo/kanso-reminders/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-reminders/internal/adapters/metrics"
	"github.com/comitanigiacomo/kanso-reminders/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-reminders/internal/adapters/telegram"
	"github.com/comitanigiacomo/kanso-reminders/internal/config"
	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
	"github.com/comitanigiacomo/kanso-reminders/internal/core/services"
	"github.com/comitanigiacomo/kanso-reminders/internal/core/workers"
)

type app struct {
	router    *gin.Engine
	worker    *workers.ReminderWorker
	reminders *services.ReminderService
	closers   []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{}

	var (
		store domain.Store
		db    *sqlx.DB
	)
	switch cfg.Storage {
	case config.StorageMemory:
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		store = repository.NewInMemoryStore()
	default:
		var err error
		db, err = database.Open(ctx, cfg.DB.DSN())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)

		applied, err := database.Migrate(ctx, db.DB, log)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		log.Info().Ints("applied", applied).Msg("database ready")
		store = repository.NewPostgresStore(db)
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		client, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running without cache and rate limiter")
		} else {
			rdb = client
			a.closers = append(a.closers, rdb.Close)
		}
	}

	var messenger services.Messenger
	if cfg.Telegram.Token != "" {
		tg, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token, RatePerSec: cfg.Telegram.RatePerSec}, log)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		messenger = tg
	} else {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, reminders are only logged")
		messenger = telegram.NewLogMessenger(log)
	}

	scheduler := services.NewReminderScheduler(log)
	tokenService := services.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL, store.Users())
	authService := services.NewAuthService(store.Users(), tokenService)
	habitService := services.NewHabitService(store, scheduler, log).WithLocation(cfg.Location())
	a.reminders = services.NewReminderService(store, scheduler, messenger, log)

	if rdb != nil {
		cached := repository.NewCachedHabitRepository(store.Habits(), rdb, log)
		habitService.WithCache(cached, cached)
	}

	a.worker = workers.NewReminderWorker(store.Schedules(), a.reminders, log,
		workers.WithLocation(cfg.Location()),
		workers.WithResyncInterval(cfg.Scheduler.Resync),
		workers.WithRecorder(metrics.ReminderRecorder{}),
	)
	habitService.WithWatcher(a.worker)
	a.reminders.WithWatcher(a.worker)

	a.router = adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:   adapterHTTP.NewAuthHandler(authService, tokenService),
		HabitHandler:  adapterHTTP.NewHabitHandler(habitService),
		PublicHandler: adapterHTTP.NewPublicHandler(habitService),
		TokenService:  tokenService,
		DB:            db,
		Redis:         rdb,
		Log:           log,
		StartTime:     time.Now(),
		RateLimit:     cfg.RateLimit,
	})

	return a, nil
}
