package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-streaks/internal/adapters/cache"
	adapterHTTP "github.com/comitanigiacomo/kanso-streaks/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-streaks/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-streaks/internal/config"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/domain"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/services"
	"github.com/comitanigiacomo/kanso-streaks/internal/core/workers"
)

type storage struct {
	habits  domain.HabitRepository
	entries domain.HabitEntryRepository
	users   domain.UserRepository
	checks  map[string]adapterHTTP.HealthCheck
	closers []func() error
}

type app struct {
	router  *gin.Engine
	worker  *workers.StreakWorker
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("Close error: %v", err)
		}
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	st := &storage{checks: map[string]adapterHTTP.HealthCheck{}}

	switch cfg.Storage {
	case config.StorageMemory:
		log.Println("Using in-memory storage, data is lost on restart.")
		st.habits = repository.NewInMemoryHabitRepository()
		st.entries = repository.NewInMemoryEntryRepository()
		st.users = repository.NewInMemoryUserRepository()

	default:
		log.Println("Connecting to database...")
		db, err := repository.Connect(ctx, cfg.DB.DSN(), cfg.DB.Attempts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		st.closers = append(st.closers, db.Close)

		if err := repository.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Println("Database connected successfully.")

		st.habits = repository.NewPostgresHabitRepository(db)
		st.entries = repository.NewPostgresEntryRepository(db)
		st.users = repository.NewPostgresUserRepository(db.DB)
		st.checks["database"] = pingDB(db)
	}

	return st, nil
}

func pingDB(db *sqlx.DB) adapterHTTP.HealthCheck {
	return func(ctx context.Context) error { return db.PingContext(ctx) }
}

func pingRedis(rdb *redis.Client) adapterHTTP.HealthCheck {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}

// newApp wires storage, services, the streak worker and the HTTP router.
// Redis is optional: without it the habit list is not cached and requests
// are not rate limited.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{closers: st.closers}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Printf("[CACHE] Redis unavailable, continuing without cache: %v", err)
			rdb = nil
		} else {
			a.closers = append(a.closers, rdb.Close)
			st.habits = repository.NewCachedHabitRepository(st.habits, rdb)
			st.checks["redis"] = pingRedis(rdb)
		}
	}

	a.worker = workers.NewStreakWorker(st.habits, st.entries, workers.WithQueueSize(cfg.WorkerQueueSize))

	tokenService := services.NewTokenService(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, st.users)
	authService := services.NewAuthService(st.users, cfg.DefaultTimezone)
	habitService := services.NewHabitService(st.habits, cfg.DefaultTimezone).WithStreakQueue(a.worker)
	entryService := services.NewEntryService(st.entries, st.habits, a.worker)
	statsService := services.NewStatsService(st.habits, st.entries)

	a.router = adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler:    adapterHTTP.NewAuthHandler(authService, tokenService),
		HabitHandler:   adapterHTTP.NewHabitHandler(habitService),
		EntryHandler:   adapterHTTP.NewEntryHandler(entryService),
		StatsHandler:   adapterHTTP.NewStatsHandler(statsService),
		Tokens:         tokenService,
		Redis:          rdb,
		RateLimit:      cfg.RateLimit,
		RateWindow:     cfg.RateWindow,
		AllowedOrigins: cfg.AllowedOrigins,
		HealthChecks:   st.checks,
		StartTime:      time.Now(),
	})

	return a, nil
}
