package api

import (
	"fmt"

	"github.com/hyunseo/mediascan/internal/config"
	"github.com/hyunseo/mediascan/internal/models"
	"github.com/hyunseo/mediascan/internal/repository"
	"github.com/hyunseo/mediascan/internal/worker"
)

// SettingsPayload is the full user-editable settings document.
type SettingsPayload struct {
	Instructions    models.SystemInstructions `json:"instructions"`
	Auto            models.AutoConfig         `json:"auto"`
	Theme           string                    `json:"theme"`
	OCREngine       models.OCREngine          `json:"ocr_engine"`
	ImageOCREnabled bool                      `json:"image_ocr_enabled"`
}

// SettingsService merges persisted settings over the configured
// defaults. It also resolves the snapshot each batch run operates under.
type SettingsService struct {
	repo *repository.SettingsRepository
	cfg  *config.Config
}

// NewSettingsService creates a settings service.
func NewSettingsService(repo *repository.SettingsRepository, cfg *config.Config) *SettingsService {
	return &SettingsService{repo: repo, cfg: cfg}
}

// Current returns the effective settings: saved values where present,
// configured defaults otherwise.
func (s *SettingsService) Current() (SettingsPayload, error) {
	instr, err := s.repo.GetInstructions(s.cfg.InstructionSet())
	if err != nil {
		return SettingsPayload{}, err
	}
	auto, err := s.repo.GetAutoConfig(s.cfg.Auto)
	if err != nil {
		return SettingsPayload{}, err
	}
	theme, err := s.repo.GetTheme(s.cfg.Theme)
	if err != nil {
		return SettingsPayload{}, err
	}
	engine, err := s.repo.GetOCREngine(s.cfg.OCR.Engine)
	if err != nil {
		return SettingsPayload{}, err
	}
	imageOCR, err := s.repo.GetImageOCREnabled(s.cfg.OCR.ImageOCREnabled)
	if err != nil {
		return SettingsPayload{}, err
	}

	return SettingsPayload{
		Instructions:    instr,
		Auto:            auto,
		Theme:           theme,
		OCREngine:       engine,
		ImageOCREnabled: imageOCR,
	}, nil
}

// Save persists the full settings document.
func (s *SettingsService) Save(p SettingsPayload) error {
	if p.OCREngine != models.OCREngineTesseract && p.OCREngine != models.OCREnginePaddle {
		return fmt.Errorf("unknown OCR engine: %s", p.OCREngine)
	}
	if err := s.repo.SaveInstructions(p.Instructions); err != nil {
		return err
	}
	if err := s.repo.SaveAutoConfig(p.Auto); err != nil {
		return err
	}
	if err := s.repo.SaveTheme(p.Theme); err != nil {
		return err
	}
	if err := s.repo.SaveOCREngine(p.OCREngine); err != nil {
		return err
	}
	return s.repo.SaveImageOCREnabled(p.ImageOCREnabled)
}

// RunSettings resolves the snapshot a batch run uses.
func (s *SettingsService) RunSettings() (worker.RunSettings, error) {
	current, err := s.Current()
	if err != nil {
		return worker.RunSettings{}, err
	}
	return worker.RunSettings{
		Instructions:    current.Instructions,
		Auto:            current.Auto,
		Engine:          current.OCREngine,
		ImageOCREnabled: current.ImageOCREnabled,
	}, nil
}
