package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyunseo/mediascan/internal/models"
)

// ExportStorage defines the interface for writing export artifacts.
type ExportStorage interface {
	// Resolve validates the directory for a save location and returns
	// it ready for writing.
	Resolve(location string) (string, error)

	// Save writes content into dir and returns the full path it ended
	// up at.
	Save(dir, name string, content []byte) (string, error)
}

// LocalExportStorage writes exports to the local filesystem. The save
// location selects between the default output directory and the
// configured custom directory.
type LocalExportStorage struct {
	defaultDir string
	customDir  string
	logger     *zap.Logger
}

// NewLocalExportStorage creates storage rooted at defaultDir; customDir
// may be empty when no custom location is configured.
func NewLocalExportStorage(defaultDir, customDir string, logger *zap.Logger) *LocalExportStorage {
	return &LocalExportStorage{
		defaultDir: defaultDir,
		customDir:  customDir,
		logger:     logger,
	}
}

// Resolve maps a save location to its directory and ensures it exists.
// The custom location fails when no custom directory is configured or
// the directory cannot be created; callers abort rather than silently
// writing somewhere else.
func (s *LocalExportStorage) Resolve(location string) (string, error) {
	dir := s.defaultDir
	if location == models.SaveLocationCustom {
		if s.customDir == "" {
			return "", fmt.Errorf("custom save location selected but no custom directory configured")
		}
		dir = s.customDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.logger.Error("Export directory unavailable",
			zap.String("location", location),
			zap.String("dir", dir),
			zap.Error(err))
		return "", fmt.Errorf("export directory unavailable: %w", err)
	}
	return dir, nil
}

// Save writes content under the given directory.
func (s *LocalExportStorage) Save(dir, name string, content []byte) (string, error) {
	fullPath := filepath.Join(dir, name)

	if err := s.validatePath(fullPath, dir); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create export directory",
			zap.String("path", filepath.Dir(fullPath)),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write export file",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("Export saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))
	return fullPath, nil
}

// validatePath checks that the path stays within the base directory.
func (s *LocalExportStorage) validatePath(fullPath, baseDir string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes export directory: %s", fullPath)
	}
	return nil
}
