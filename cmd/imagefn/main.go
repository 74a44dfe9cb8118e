package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"wardrobeapi/config"
	"wardrobeapi/controllers"
	"wardrobeapi/services"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// The generate-image function: holds the Gemini key so the API and the
// clients never see it.
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
	if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Env, Release: cfg.Sentry.Release}); err != nil {
		logger.Fatal("sentry.Init", zap.Error(err))
	}
	defer sentry.Flush(2 * time.Second)

	assets, err := services.NewAssetFetcher(nil, cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to initialize asset fetcher", zap.Error(err))
	}
	var generator controllers.ImageGenerator
	gemini, err := services.NewGeminiImageGenerator(context.Background(), cfg.Gemini)
	if err != nil {
		// requests are answered with the error until the key is set
		logger.Error("image model unavailable", zap.Error(err))
	} else {
		generator = gemini
	}

	e := controllers.SetupImageFunctionServer(generator, assets)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))

	if err := e.Start(":" + cfg.ImageFunctionPort); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
