package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyunseo/mediascan/internal/models"
	"go.uber.org/zap"
)

// Well-known settings keys.
const (
	keyInstructions       = "system_instructions"
	keyAutoConfig         = "auto_config"
	keyTheme              = "theme"
	keyOCREngine          = "ocr_engine"
	keyImageOCREnabled    = "image_ocr_enabled"
	keyLegacyInstructions = "system_instruction" // pre-split single string
)

// SettingsRepository persists user settings as a key/value table with
// JSON-encoded values for the structured entries.
type SettingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sql.DB, logger *zap.Logger) *SettingsRepository {
	return &SettingsRepository{
		db:     db,
		logger: logger,
	}
}

func (r *SettingsRepository) get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		r.logger.Error("Failed to read setting", zap.String("key", key), zap.Error(err))
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, true, nil
}

func (r *SettingsRepository) set(key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.Exec(query, key, value); err != nil {
		r.logger.Error("Failed to write setting", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// GetInstructions loads the saved system instructions, falling back to
// the given defaults for anything unset. A legacy single-string
// instruction, when present, seeds every category once and is removed.
func (r *SettingsRepository) GetInstructions(defaults models.SystemInstructions) (models.SystemInstructions, error) {
	raw, ok, err := r.get(keyInstructions)
	if err != nil {
		return defaults, err
	}
	if ok {
		var instr models.SystemInstructions
		if err := json.Unmarshal([]byte(raw), &instr); err != nil {
			return defaults, fmt.Errorf("corrupt instructions setting: %w", err)
		}
		fillInstructionDefaults(&instr, defaults)
		return instr, nil
	}

	legacy, ok, err := r.get(keyLegacyInstructions)
	if err != nil {
		return defaults, err
	}
	if ok && legacy != "" {
		migrated := models.SystemInstructions{
			OCR:   legacy,
			Image: legacy,
			Audio: legacy,
			Video: legacy,
		}
		if err := r.SaveInstructions(migrated); err != nil {
			return defaults, err
		}
		if _, err := r.db.Exec("DELETE FROM settings WHERE key = ?", keyLegacyInstructions); err != nil {
			r.logger.Warn("Failed to remove legacy instruction key", zap.Error(err))
		}
		r.logger.Info("Migrated legacy single-string instruction to per-category set")
		return migrated, nil
	}

	return defaults, nil
}

func fillInstructionDefaults(instr *models.SystemInstructions, defaults models.SystemInstructions) {
	if instr.OCR == "" {
		instr.OCR = defaults.OCR
	}
	if instr.Image == "" {
		instr.Image = defaults.Image
	}
	if instr.Audio == "" {
		instr.Audio = defaults.Audio
	}
	if instr.Video == "" {
		instr.Video = defaults.Video
	}
}

// SaveInstructions persists the full instruction set.
func (r *SettingsRepository) SaveInstructions(instr models.SystemInstructions) error {
	data, err := json.Marshal(instr)
	if err != nil {
		return fmt.Errorf("failed to encode instructions: %w", err)
	}
	return r.set(keyInstructions, string(data))
}

// GetAutoConfig loads the auto-generate/auto-export toggles.
func (r *SettingsRepository) GetAutoConfig(defaults models.AutoConfig) (models.AutoConfig, error) {
	raw, ok, err := r.get(keyAutoConfig)
	if err != nil || !ok {
		return defaults, err
	}
	var cfg models.AutoConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return defaults, fmt.Errorf("corrupt auto config setting: %w", err)
	}
	return cfg, nil
}

// SaveAutoConfig persists the auto-generate/auto-export toggles.
func (r *SettingsRepository) SaveAutoConfig(cfg models.AutoConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode auto config: %w", err)
	}
	return r.set(keyAutoConfig, string(data))
}

// GetTheme returns the saved UI theme name, or the default when unset.
func (r *SettingsRepository) GetTheme(defaultTheme string) (string, error) {
	raw, ok, err := r.get(keyTheme)
	if err != nil || !ok {
		return defaultTheme, err
	}
	return raw, nil
}

// SaveTheme persists the UI theme name.
func (r *SettingsRepository) SaveTheme(theme string) error {
	return r.set(keyTheme, theme)
}

// GetOCREngine returns the saved local OCR engine choice.
func (r *SettingsRepository) GetOCREngine(defaultEngine models.OCREngine) (models.OCREngine, error) {
	raw, ok, err := r.get(keyOCREngine)
	if err != nil || !ok {
		return defaultEngine, err
	}
	engine := models.OCREngine(raw)
	if engine != models.OCREngineTesseract && engine != models.OCREnginePaddle {
		r.logger.Warn("Unknown OCR engine in settings, using default", zap.String("engine", raw))
		return defaultEngine, nil
	}
	return engine, nil
}

// SaveOCREngine persists the local OCR engine choice.
func (r *SettingsRepository) SaveOCREngine(engine models.OCREngine) error {
	return r.set(keyOCREngine, string(engine))
}

// GetImageOCREnabled returns whether local OCR runs for images.
func (r *SettingsRepository) GetImageOCREnabled(defaultValue bool) (bool, error) {
	raw, ok, err := r.get(keyImageOCREnabled)
	if err != nil || !ok {
		return defaultValue, err
	}
	return raw == "true", nil
}

// SaveImageOCREnabled persists the image OCR toggle.
func (r *SettingsRepository) SaveImageOCREnabled(enabled bool) error {
	if enabled {
		return r.set(keyImageOCREnabled, "true")
	}
	return r.set(keyImageOCREnabled, "false")
}
