package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/reelforge/reelforge-backend/api/routes"
	"github.com/reelforge/reelforge-backend/internal/artifacts"
	"github.com/reelforge/reelforge-backend/internal/images"
	"github.com/reelforge/reelforge-backend/internal/projects"
	"github.com/reelforge/reelforge-backend/internal/scenes"
	"github.com/reelforge/reelforge-backend/internal/scripts"
	"github.com/reelforge/reelforge-backend/internal/settings"
	"github.com/reelforge/reelforge-backend/internal/tasks"
	"github.com/reelforge/reelforge-backend/pkg/anthropic"
	"github.com/reelforge/reelforge-backend/pkg/config"
	"github.com/reelforge/reelforge-backend/pkg/db"
	"github.com/reelforge/reelforge-backend/pkg/logger"
	"github.com/reelforge/reelforge-backend/pkg/metrics"
	"github.com/reelforge/reelforge-backend/pkg/migrate"
	"github.com/reelforge/reelforge-backend/pkg/nanobanana"
	"github.com/reelforge/reelforge-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	artifactStore, err := artifacts.NewStore(cfg.Storage)
	if err != nil {
		logg.Error(context.Background(), "failed to prepare artifact storage", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	generationMetrics := metrics.NewGenerationMetrics(registry)

	projectRepo := projects.NewRepository(dbClient.DB())
	sceneRepo := scenes.NewRepository(dbClient.DB())
	settingsRepo := settings.NewRepository(dbClient.DB())

	anthropicOpts := func() []anthropic.Option {
		opts := []anthropic.Option{
			anthropic.WithModel(cfg.Anthropic.Model),
			anthropic.WithMaxTokens(cfg.Anthropic.MaxTokens),
		}
		if cfg.Anthropic.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.Anthropic.BaseURL))
		}
		return opts
	}()
	nanobananaOpts := func() []nanobanana.Option {
		var opts []nanobanana.Option
		if cfg.NanoBanana.BaseURL != "" {
			opts = append(opts, nanobanana.WithBaseURL(cfg.NanoBanana.BaseURL))
		}
		return opts
	}()

	settingsSvc, err := settings.NewService(settingsRepo, cfg.Anthropic, cfg.NanoBanana,
		func(apiKey string) (settings.KeyProber, error) {
			return anthropic.NewClient(apiKey, anthropicOpts...)
		},
		func(apiKey string) (settings.KeyProber, error) {
			return nanobanana.NewClient(apiKey, nanobananaOpts...)
		},
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	projectsSvc, err := projects.NewService(projectRepo, dbClient, artifactStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create projects service", err)
		os.Exit(1)
	}

	scenesSvc, err := scenes.NewService(sceneRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create scenes service", err)
		os.Exit(1)
	}

	scriptsSvc, err := scripts.NewService(projectRepo, sceneRepo, dbClient, artifactStore, settingsSvc,
		func(apiKey string) (scripts.ScriptGenerator, error) {
			return anthropic.NewClient(apiKey, anthropicOpts...)
		},
		generationMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create scripts service", err)
		os.Exit(1)
	}

	taskClient, err := tasks.NewClient(cfg.Redis, cfg.Generation, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create task client", err)
		os.Exit(1)
	}
	defer func() {
		if err := taskClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing task client", err)
		}
	}()

	locker, err := images.NewRedisProjectLocker(redisClient, cfg.Generation.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create project locker", err)
		os.Exit(1)
	}

	imagesSvc, err := images.NewService(projectRepo, sceneRepo, artifactStore, settingsSvc,
		func(apiKey string) (images.ImageClient, error) {
			return nanobanana.NewClient(apiKey, nanobananaOpts...)
		},
		taskClient, locker, cfg.Generation, generationMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create images service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Registry: registry,
			Projects: projectsSvc,
			Scripts:  scriptsSvc,
			Scenes:   scenesSvc,
			Images:   imagesSvc,
			Settings: settingsSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
