package main

import (
	"context"
	"log"
	"net/http"

	"wardrobeapi/config"
	"wardrobeapi/dbhelper"
	"wardrobeapi/generation"
	"wardrobeapi/services"
	"wardrobeapi/tasks"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func runScheduler(brokerAddress string, logger *zap.Logger) {
	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: brokerAddress}, &asynq.SchedulerOpts{
		LogLevel: asynq.InfoLevel,
	})

	entries := []struct {
		cron string
		task *asynq.Task
		desc string
	}{
		{
			cron: "*/15 * * * *",
			task: tasks.NewExpireStaleGenerationsTask(),
			desc: "Expire stale generations",
		},
	}

	for _, t := range entries {
		entryID, err := scheduler.Register(t.cron, t.task, asynq.Queue(tasks.GenerateQueue))
		if err != nil {
			logger.Fatal("Failed to register task", zap.String("task", t.desc), zap.Error(err))
		}
		logger.Info("Registered task", zap.String("task", t.desc), zap.String("id", entryID), zap.String("cron", t.cron))
	}

	logger.Info("Starting scheduler...")
	if err := scheduler.Run(); err != nil {
		logger.Fatal("Scheduler failed", zap.Error(err))
	}
}

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

	ctx := context.Background()
	db := dbhelper.SetupDB(cfg.DB)
	store, err := services.NewObjectStore(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("[Queue] Failed to initialize object store", zap.Error(err))
	}
	urlCache, err := services.NewURLCacheService(store, cfg.Cache)
	if err != nil {
		logger.Fatal("[Queue] Failed to initialize URL cache service", zap.Error(err))
	}
	assets, err := services.NewAssetFetcher(nil, cfg.Cache)
	if err != nil {
		logger.Fatal("[Queue] Failed to initialize asset fetcher", zap.Error(err))
	}
	generator, err := generation.NewGenerator(cfg.Generation, generation.Dependencies{
		Persister: services.NewPersister(store, assets),
		Metrics:   generation.NewMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logger.Fatal("[Queue] Generation is not configured", zap.Error(err))
	}

	notifier := &services.FirebaseNotifier{DB: db}
	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		logger.Warn("push notifications disabled", zap.Error(err))
	} else {
		notifier.App = app
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.AsyncBrokerAddress},
		asynq.Config{Concurrency: 10, Queues: map[string]int{
			tasks.GenerateQueue: 7,
		}},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeGenerateOutfit, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleOutfitGenerationTask(ctx, t, db, generator, urlCache, notifier)
	})
	mux.HandleFunc(tasks.TypeExpireStaleGenerations, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleExpireStaleGenerationsTask(ctx, t, db)
	})

	go func() {
		metrics := http.NewServeMux()
		metrics.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":"+cfg.WorkerMetricsPort, metrics); err != nil {
			logger.Warn("metrics endpoint stopped", zap.Error(err))
		}
	}()
	go runScheduler(cfg.AsyncBrokerAddress, logger)

	if err := srv.Run(mux); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}
