// Command analyze runs a one-shot batch over files or directories given
// on the command line and writes the results as CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/hyunseo/mediascan/internal/ai"
	"github.com/hyunseo/mediascan/internal/api"
	"github.com/hyunseo/mediascan/internal/config"
	"github.com/hyunseo/mediascan/internal/export"
	"github.com/hyunseo/mediascan/internal/intake"
	"github.com/hyunseo/mediascan/internal/models"
	"github.com/hyunseo/mediascan/internal/ocr"
	"github.com/hyunseo/mediascan/internal/repository"
	"github.com/hyunseo/mediascan/internal/storage"
	"github.com/hyunseo/mediascan/internal/store"
	"github.com/hyunseo/mediascan/internal/worker"
	"github.com/hyunseo/mediascan/pkg/database"
	"github.com/hyunseo/mediascan/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	outPath := flag.String("out", "", "CSV output path (default: <export dir>/analysis_<date>.csv)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: analyze [-config path] [-out path] <file|dir>...")
		os.Exit(2)
	}

	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     "console",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

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

	if err := database.NewMigrator(db, logger).RunMigrations(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	settingsRepo := repository.NewSettingsRepository(db.DB, logger)
	usageRepo := repository.NewUsageRepository(db.DB, logger)

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

	tesseract := ocr.NewTesseractEngine(cfg.OCR.Languages, logger)
	defer tesseract.Close()
	paddle := ocr.NewPaddleClient(cfg.OCR.PaddleURL, cfg.OCR.Timeout, logger)

	st := store.New(logger)
	in, err := intake.New(cfg.Export.PreviewDir, st, logger)
	if err != nil {
		logger.Fatal("Failed to initialize intake", zap.Error(err))
	}

	staged := 0
	for _, arg := range flag.Args() {
		staged += stagePath(in, arg, logger)
	}
	if staged == 0 {
		logger.Fatal("No supported media files found in the given paths")
	}
	logger.Info("Staged files", zap.Int("count", staged))

	exports := storage.NewLocalExportStorage(cfg.Export.OutputDir, cfg.Export.CustomDir, logger)
	settingsService := api.NewSettingsService(settingsRepo, cfg)
	analyzer := worker.NewAnalyzer(aiClient, tesseract, paddle, exports, cfg.Studio.TaskDelay, logger)
	orchestrator := worker.NewOrchestrator(st, analyzer, settingsService, exports, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := orchestrator.Start(ctx); err != nil {
		logger.Fatal("Failed to start batch", zap.Error(err))
	}

	for orchestrator.Running() {
		select {
		case <-ctx.Done():
			orchestrator.Stop()
		case <-time.After(500 * time.Millisecond):
		}
		p := orchestrator.Progress()
		fmt.Fprintf(os.Stderr, "\r%d/%d (%d%%) %s", p.Current, p.Total, p.Percentage, p.Elapsed)
	}
	fmt.Fprintln(os.Stderr)

	out := *outPath
	if out == "" {
		dir, err := exports.Resolve(models.SaveLocationDefault)
		if err != nil {
			logger.Fatal("Failed to resolve export directory", zap.Error(err))
		}
		out = filepath.Join(dir,
			fmt.Sprintf("analysis_%s.csv", time.Now().Format("2006-01-02")))
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		logger.Fatal("Failed to create output directory", zap.Error(err))
	}
	if err := os.WriteFile(out, export.StoreCSV(st.List()), 0644); err != nil {
		logger.Fatal("Failed to write CSV", zap.Error(err))
	}
	logger.Info("Results written", zap.String("path", out))

	for _, rec := range st.ListByStatus(models.StatusError) {
		logger.Warn("File failed",
			zap.String("file", rec.FileName),
			zap.String("error", rec.ErrorMsg))
	}
}

// stagePath stages one file, or every file under a directory, returning
// the number of records added.
func stagePath(in *intake.Intake, path string, logger *zap.Logger) int {
	info, err := os.Stat(path)
	if err != nil {
		logger.Warn("Skipping unreadable path", zap.String("path", path), zap.Error(err))
		return 0
	}

	if !info.IsDir() {
		if _, err := in.AddPath(path); err != nil {
			logger.Warn("Skipping file", zap.String("path", path), zap.Error(err))
			return 0
		}
		return 1
	}

	count := 0
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if _, err := in.AddPath(p); err == nil {
			count++
		}
		return nil
	})
	if err != nil {
		logger.Warn("Directory walk failed", zap.String("path", path), zap.Error(err))
	}
	return count
}
