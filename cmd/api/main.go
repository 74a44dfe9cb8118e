package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"wardrobeapi/config"
	"wardrobeapi/controllers"
	"wardrobeapi/dbhelper"
	"wardrobeapi/generation"
	"wardrobeapi/services"
	"wardrobeapi/tasks"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %s", err)
	}
	logger, err := config.InitLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %s", err)
	}
	defer logger.Sync()
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET environment variable is not set!")
	}

	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Env,
		Release:          cfg.Sentry.Release,
		Debug:            false,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		logger.Fatal("sentry.Init", zap.Error(err))
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	ctx := context.Background()
	db := dbhelper.SetupDB(cfg.DB)

	store, err := services.NewObjectStore(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize object store", zap.Error(err))
	}
	urlCache, err := services.NewURLCacheService(store, cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to initialize URL cache service", zap.Error(err))
	}
	assets, err := services.NewAssetFetcher(nil, cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to initialize asset fetcher", zap.Error(err))
	}
	persister := services.NewPersister(store, assets)

	deps := controllers.Deps{
		Store:     store,
		URLCache:  urlCache,
		Persister: persister,
	}
	generator, err := generation.NewGenerator(cfg.Generation, generation.Dependencies{
		Persister: persister,
		Metrics:   generation.NewMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		// the rest of the API stays usable, generation answers 503
		logger.Warn("generation disabled", zap.Error(err))
	} else {
		deps.Generator = generator
		logger.Info("generation provider selected", zap.String("provider", string(generator.Kind())))
	}
	asynqClient := tasks.NewClient(cfg.AsyncBrokerAddress)
	defer asynqClient.Close()
	deps.Enqueuer = asynqClient

	e := controllers.SetupServer(db, deps, cfg.JWTSecret)
	e.Debug = cfg.Env != "prod"
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(3)))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))

	if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
