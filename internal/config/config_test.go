package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyunseo/mediascan/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("minimal file picks up defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, "gpt-4o", cfg.AI.Model)
		assert.Equal(t, 1500, cfg.AI.DailyQuotaLimit)
		assert.Equal(t, "한국어(Korean)", cfg.AI.Language)
		assert.Equal(t, models.OCREngineTesseract, cfg.OCR.Engine)
		assert.Equal(t, "kor+eng", cfg.OCR.Languages)
		assert.True(t, cfg.OCR.ImageOCREnabled)
		assert.Equal(t, "exports", cfg.Export.OutputDir)
		assert.Equal(t, 500*time.Millisecond, cfg.Studio.TaskDelay)
		assert.False(t, cfg.Watch.Enabled)
		assert.Equal(t, "default", cfg.Theme)
		assert.Equal(t, DefaultOCRInstruction, cfg.Instructions.OCR)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `
ai:
  model: gpt-4o-mini
  daily_quota_limit: 10
ocr:
  engine: paddle
  paddle_url: http://paddle:8000/ocr
auto:
  sns: true
  csv: true
`))
		require.NoError(t, err)

		assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
		assert.Equal(t, 10, cfg.AI.DailyQuotaLimit)
		assert.Equal(t, models.OCREnginePaddle, cfg.OCR.Engine)
		assert.True(t, cfg.Auto.SNS)
		assert.True(t, cfg.Auto.CSV)
		assert.False(t, cfg.Auto.Word)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("api key comes from the environment", func(t *testing.T) {
		t.Setenv("MEDIASCAN_API_KEY", "sk-test")

		cfg, err := Load(writeConfig(t, "theme: dark\n"))
		require.NoError(t, err)
		assert.Equal(t, "sk-test", cfg.AI.APIKey)
		assert.Equal(t, "dark", cfg.Theme)
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AI:       AIConfig{Model: "gpt-4o"},
			Database: DatabaseConfig{Path: "data/app.db"},
			OCR:      OCRConfig{Engine: models.OCREngineTesseract},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing api key is allowed", func(t *testing.T) {
		cfg := valid()
		cfg.AI.APIKey = ""
		assert.NoError(t, cfg.Validate())
	})

	t.Run("model required", func(t *testing.T) {
		cfg := valid()
		cfg.AI.Model = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("database path required", func(t *testing.T) {
		cfg := valid()
		cfg.Database.Path = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown ocr engine rejected", func(t *testing.T) {
		cfg := valid()
		cfg.OCR.Engine = "easyocr"
		assert.Error(t, cfg.Validate())
	})

	t.Run("paddle engine needs a url", func(t *testing.T) {
		cfg := valid()
		cfg.OCR.Engine = models.OCREnginePaddle
		assert.Error(t, cfg.Validate())

		cfg.OCR.PaddleURL = "http://localhost:8000/ocr"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("custom save location needs a custom dir", func(t *testing.T) {
		cfg := valid()
		cfg.Auto.SaveLocation = "custom"
		assert.Error(t, cfg.Validate())

		cfg.Export.CustomDir = "/tmp/exports"
		assert.NoError(t, cfg.Validate())
	})
}

func TestInstructionSet(t *testing.T) {
	cfg := &Config{Instructions: InstructionsConfig{
		OCR: "a", Image: "b", Audio: "c", Video: "d",
	}}
	assert.Equal(t, models.SystemInstructions{OCR: "a", Image: "b", Audio: "c", Video: "d"}, cfg.InstructionSet())
}
