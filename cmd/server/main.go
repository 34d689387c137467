// Package main is the entry point for the ledger server. It wires the
// store, cache, event publisher and background jobs, then serves /api.
package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stase/internal/config"
	"stase/internal/events"
	"stase/internal/events/kafka"
	"stase/internal/handlers"
	"stase/internal/jobs"
	"stase/internal/logger"
	"stase/internal/repositories"
	"stase/internal/repositories/cache"
	"stase/internal/repositories/memory"
	"stase/internal/routes"
	"stase/internal/services/exchange"
	"stase/internal/services/transaction"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if cfg.IdentitySecret == "" {
		log.Warn("IDENTITY_JWT_SECRET not set, bearer credentials are trusted as external ids")
	}

	rates, err := rateTable(cfg.ExchangeRates)
	if err != nil {
		log.WithError(err).Fatal("invalid EXCHANGE_RATES")
	}
	maxDeposit, err := decimal.NewFromString(cfg.MaxDeposit)
	if err != nil || !maxDeposit.IsPositive() {
		log.WithField("value", cfg.MaxDeposit).Fatal("invalid MAX_DEPOSIT_AMOUNT")
	}

	// Store
	var (
		store   repositories.Store
		dbStats func() sql.DBStats
	)
	checks := map[string]handlers.Pinger{}
	switch strings.ToLower(cfg.StoreDriver) {
	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		store = memory.NewStore()
	default:
		db, err := repositories.InitDB(cfg, log)
		if err != nil {
			log.WithError(err).Fatal("database initialization failed")
		}
		store = repositories.NewGormStore(db)
		if sqlDB, err := db.DB(); err == nil {
			dbStats = sqlDB.Stats
		}
	}
	checks["database"] = store.Ping
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("failed to close store")
		}
	}()

	// User cache
	users := store.Users()
	var redisStats func() *redis.PoolStats
	if cfg.RedisHost != "" {
		client := cache.NewRedisClient(&cache.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		cacheService := cache.NewCacheService(client, cfg.RedisTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := cacheService.HealthCheck(ctx); err != nil {
			log.WithError(err).Warn("redis unavailable, user lookups will not be cached")
			_ = cacheService.Close()
		} else {
			users = repositories.NewCachedUserRepository(users, cacheService, log)
			checks["cache"] = cacheService.HealthCheck
			redisStats = cacheService.GetStats
			defer cacheService.Close()
			log.WithField("addr", cfg.RedisHost+":"+cfg.RedisPort).Info("redis user cache enabled")
		}
		cancel()
	}

	// Events
	var publisher transaction.EventPublisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		publisher = kp
		defer func() {
			if err := kp.Close(); err != nil {
				log.WithError(err).Warn("failed to close kafka writer")
			}
		}()
		log.WithField("topic", cfg.KafkaTopic).Info("publishing transaction events to kafka")
	}

	// Background jobs
	scheduler := jobs.NewScheduler(log, 30*time.Second)
	if err := scheduler.Add(cfg.AuditSchedule, jobs.NewBalanceAudit(store.Accounts(), log)); err != nil {
		log.WithError(err).Fatal("failed to schedule balance audit")
	}
	if err := scheduler.Add(cfg.StatsSchedule, jobs.NewPoolStats(dbStats, redisStats, log)); err != nil {
		log.WithError(err).Fatal("failed to schedule pool stats")
	}
	scheduler.Start()

	app := fiber.New(fiber.Config{
		AppName:      "stase",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,HEAD,OPTIONS",
		AllowCredentials: true,
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		Output: log.Writer(),
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		Store:   store,
		Users:   users,
		Rates:   rates,
		Events:  publisher,
		Metrics: &transaction.NoopMetricsCollector{},
		Engine: transaction.Config{
			MaxDeposit:     maxDeposit,
			MaxRetries:     cfg.MaxRetries,
			RetryBackoff:   transaction.DefaultRetryBackoff,
			PublishTimeout: cfg.PublishTimeout,
		},
		PinCost:        cfg.PinCost,
		IdentitySecret: cfg.IdentitySecret,
		PinRateMax:     cfg.RateLimitMax,
		PinRateWindow:  cfg.RateLimitWindow,
		HealthChecks:   checks,
		Log:            log,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Fatal("server stopped")
		}
	}()
	log.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Env}).Info("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
	scheduler.Stop(ctx)
}

// rateTable builds the static table with EXCHANGE_RATES overrides such
// as "CAD=1.37,EUR=0.86" applied.
func rateTable(raw string) (*exchange.Table, error) {
	rates, err := exchange.ParseRates(raw)
	if err != nil {
		return nil, err
	}
	return exchange.NewTable(rates)
}
