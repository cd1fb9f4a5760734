package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/rangovai/internal/config"
	"github.com/iliyamo/rangovai/internal/database"
	"github.com/iliyamo/rangovai/internal/handler"
	"github.com/iliyamo/rangovai/internal/logging"
	"github.com/iliyamo/rangovai/internal/middleware"
	"github.com/iliyamo/rangovai/internal/queue"
	"github.com/iliyamo/rangovai/internal/repository"
	"github.com/iliyamo/rangovai/internal/repository/memory"
	"github.com/iliyamo/rangovai/internal/router"
	"github.com/iliyamo/rangovai/internal/service"
)

// store is what both storage backends provide.
type store interface {
	service.CatalogStore
	service.LedgerStore
	service.StatisticsStore
}

func main() {
	cfg := config.Load()
	log := logging.Must(cfg.Env)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Storage ────────────────────────────────────────────────────────
	var (
		st     store
		health = &handler.HealthHandler{}
	)
	switch cfg.Storage {
	case config.DriverMemory:
		log.Warn("using in-memory storage; data is lost on restart")
		st = memory.New()
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatal("could not connect to database", zap.Error(err))
		}
		defer db.Close()
		if cfg.DBMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				log.Fatal("schema migration failed", zap.Error(err))
			}
		}
		health.DB = db
		st = repository.NewStore(db)
		log.Info("connected to mysql", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
	}

	// ── 2. Redis-backed cache and rate limiter ────────────────────────────
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable; response cache and rate limiting disabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		defer rdb.Close()
	}
	cache := middleware.NewResponseCache(cfg.Cache, rdb)

	// ── 3. Broker ─────────────────────────────────────────────────────────
	var pub service.Publisher = service.NopPublisher
	if cfg.BrokerEnabled {
		pub = queue.NewPublisher(cfg.BrokerURL, log.Named("publisher"))
		consumer := &queue.Consumer{URL: cfg.BrokerURL, LogDir: cfg.ConsumerLogDir, Log: log.Named("consumer")}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("application consumer stopped", zap.Error(err))
			}
		}()
	}

	// ── 4. Services and routes ────────────────────────────────────────────
	seats := service.NewSeatAccountant(st, cache, log.Named("seats"))
	catalog := service.NewCatalog(st, cache, log.Named("catalog"))
	ledger := service.NewLedger(st, seats, pub, cache, log.Named("ledger"))
	stats := service.NewStatistics(st, log.Named("statistics"))

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log.Named("http")))
	e.Use(echomw.Recover())
	e.Use(middleware.Timeout(cfg.RequestTimeout))

	router.RegisterAll(e, router.Handlers{
		Health:       health,
		Events:       handler.NewEventHandler(catalog),
		Applications: handler.NewApplicationHandler(ledger),
		Statistics:   &handler.StatisticsHandler{Statistics: stats},
		Cache:        cache,
		ApplyLimiter: middleware.NewTokenBucket(cfg.RateLimit, rdb),
	}, cfg.JWTSecret)

	// ── 5. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("storage", cfg.Storage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}
