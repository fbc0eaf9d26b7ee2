package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/hyunseo/mediascan/internal/ai"
	"github.com/hyunseo/mediascan/internal/api"
	"github.com/hyunseo/mediascan/internal/config"
	"github.com/hyunseo/mediascan/internal/intake"
	"github.com/hyunseo/mediascan/internal/ocr"
	"github.com/hyunseo/mediascan/internal/repository"
	"github.com/hyunseo/mediascan/internal/storage"
	"github.com/hyunseo/mediascan/internal/store"
	"github.com/hyunseo/mediascan/internal/watch"
	"github.com/hyunseo/mediascan/internal/worker"
	"github.com/hyunseo/mediascan/pkg/database"
	"github.com/hyunseo/mediascan/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// Local .env overrides for development; absence is fine.
	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting media analysis service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("ai_enabled", cfg.AI.APIKey != ""))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Export.OutputDir, 0755); err != nil {
		logger.Fatal("Failed to create export directory", zap.Error(err))
	}

	// Repositories
	settingsRepo := repository.NewSettingsRepository(db.DB, logger)
	usageRepo := repository.NewUsageRepository(db.DB, logger)
	templateRepo := repository.NewTemplateRepository(db.DB, logger)

	if err := usageRepo.Prune(90); err != nil {
		logger.Warn("Failed to prune usage counters", zap.Error(err))
	}

	// AI client, metered by the daily usage counter
	aiClient := ai.NewClient(ai.Config{
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		TopP:        cfg.AI.TopP,
		MaxTokens:   cfg.AI.MaxTokens,
		Language:    cfg.AI.Language,
	}, usageRepo, logger)
	if !aiClient.Enabled() {
		logger.Warn("No API key configured; analysis runs local OCR only")
	}

	// Local OCR engines
	tesseract := ocr.NewTesseractEngine(cfg.OCR.Languages, logger)
	defer tesseract.Close()
	paddle := ocr.NewPaddleClient(cfg.OCR.PaddleURL, cfg.OCR.Timeout, logger)

	// Core state
	st := store.New(logger)
	in, err := intake.New(cfg.Export.PreviewDir, st, logger)
	if err != nil {
		logger.Fatal("Failed to initialize intake", zap.Error(err))
	}

	exports := storage.NewLocalExportStorage(cfg.Export.OutputDir, cfg.Export.CustomDir, logger)

	settingsService := api.NewSettingsService(settingsRepo, cfg)
	analyzer := worker.NewAnalyzer(aiClient, tesseract, paddle, exports, cfg.Studio.TaskDelay, logger)
	orchestrator := worker.NewOrchestrator(st, analyzer, settingsService, exports, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional drop-directory intake
	if cfg.Watch.Enabled {
		if err := os.MkdirAll(cfg.Watch.Dir, 0755); err != nil {
			logger.Fatal("Failed to create watch directory", zap.Error(err))
		}
		watcher, err := watch.New(cfg.Watch.Dir, in, logger)
		if err != nil {
			logger.Fatal("Failed to initialize watcher", zap.Error(err))
		}
		defer watcher.Close()
		go watcher.Run(ctx)
	}

	kvLogger := utils.NewKVLogger(logger)
	handlers := api.NewHandlers(st, in, orchestrator, aiClient, settingsService,
		usageRepo, templateRepo, cfg.AI.DailyQuotaLimit, kvLogger)

	server := api.NewServer(api.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, kvLogger)

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
