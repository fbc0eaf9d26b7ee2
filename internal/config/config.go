package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/hyunseo/mediascan/internal/models"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Database DatabaseConfig    `mapstructure:"database"`
	AI       AIConfig          `mapstructure:"ai"`
	OCR      OCRConfig         `mapstructure:"ocr"`
	Export   ExportConfig      `mapstructure:"export"`
	Watch    WatchConfig       `mapstructure:"watch"`
	Auto     models.AutoConfig `mapstructure:"auto"`
	Studio   StudioConfig      `mapstructure:"studio"`
	Theme    string            `mapstructure:"theme"`
	Logger   LoggerConfig      `mapstructure:"logger"`

	Instructions InstructionsConfig `mapstructure:"instructions"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AIConfig holds the multimodal analysis service configuration
type AIConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Model           string        `mapstructure:"model"`
	Temperature     float32       `mapstructure:"temperature"`
	TopP            float32       `mapstructure:"top_p"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
	DailyQuotaLimit int           `mapstructure:"daily_quota_limit"`
	Language        string        `mapstructure:"language"`
}

// OCRConfig holds local OCR configuration
type OCRConfig struct {
	Engine          models.OCREngine `mapstructure:"engine"`
	PaddleURL       string           `mapstructure:"paddle_url"`
	ImageOCREnabled bool             `mapstructure:"image_ocr_enabled"`
	Languages       string           `mapstructure:"languages"`
	Timeout         time.Duration    `mapstructure:"timeout"`
}

// ExportConfig holds export and preview directory configuration
type ExportConfig struct {
	OutputDir  string `mapstructure:"output_dir"`  // default save location
	CustomDir  string `mapstructure:"custom_dir"`  // used when auto.save_location is "custom"
	PreviewDir string `mapstructure:"preview_dir"` // materialized previews, released on delete
}

// WatchConfig holds drop-directory intake configuration
type WatchConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// StudioConfig holds secondary generation tuning
type StudioConfig struct {
	TaskDelay time.Duration `mapstructure:"task_delay"`
}

// InstructionsConfig holds the default per-category instruction text.
// Runtime edits are persisted through the settings repository; these are
// the values used before the user saves anything.
type InstructionsConfig struct {
	OCR   string `mapstructure:"ocr"`
	Image string `mapstructure:"image"`
	Audio string `mapstructure:"audio"`
	Video string `mapstructure:"video"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Default instruction text, seeded per category until the user saves their own.
const (
	DefaultOCRInstruction   = "이 문서는 텍스트 추출이 주 목적입니다. 원본의 내용을 훼손하지 말고 보이는 그대로 정확하게 추출하세요. 오타나 깨진 글자는 문맥을 파악해 보정하세요."
	DefaultImageInstruction = "이 이미지의 시각적 요소, 분위기, 색감, 배치 등을 상세하게 묘사하세요. 시각장애인을 위한 대체 텍스트 수준으로 구체적이어야 합니다."
	DefaultAudioInstruction = "오디오의 내용을 빠짐없이 기록(STT)하고, 화자를 구분하여 대화 내용을 정리하세요. 핵심 요약과 키워드를 포함하세요."
	DefaultVideoInstruction = "영상의 흐름, 주요 장면, 자막 내용을 시간 순서대로 정리하세요. 유튜브 업로드용 제목과 설명도 제안하세요."
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/mediascan.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// AI defaults
	viper.SetDefault("ai.model", "gpt-4o")
	viper.SetDefault("ai.temperature", 0.1)
	viper.SetDefault("ai.top_p", 0.95)
	viper.SetDefault("ai.max_tokens", 4096)
	viper.SetDefault("ai.timeout", 120*time.Second)
	viper.SetDefault("ai.daily_quota_limit", 1500)
	viper.SetDefault("ai.language", "한국어(Korean)")

	// OCR defaults
	viper.SetDefault("ocr.engine", string(models.OCREngineTesseract))
	viper.SetDefault("ocr.paddle_url", "http://localhost:8000/ocr")
	viper.SetDefault("ocr.image_ocr_enabled", true)
	viper.SetDefault("ocr.languages", "kor+eng")
	viper.SetDefault("ocr.timeout", 60*time.Second)

	// Export defaults
	viper.SetDefault("export.output_dir", "exports")
	viper.SetDefault("export.preview_dir", "previews")

	// Watch defaults
	viper.SetDefault("watch.enabled", false)
	viper.SetDefault("watch.dir", "inbox")

	// Studio defaults
	viper.SetDefault("studio.task_delay", 500*time.Millisecond)

	// Auto defaults: everything off, default save location
	viper.SetDefault("auto.save_location", "default")

	viper.SetDefault("theme", "default")

	// Instruction defaults
	viper.SetDefault("instructions.ocr", DefaultOCRInstruction)
	viper.SetDefault("instructions.image", DefaultImageInstruction)
	viper.SetDefault("instructions.audio", DefaultAudioInstruction)
	viper.SetDefault("instructions.video", DefaultVideoInstruction)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("ai.api_key", "MEDIASCAN_API_KEY")
	viper.BindEnv("ai.base_url", "MEDIASCAN_API_BASE_URL")
	viper.BindEnv("ai.model", "MEDIASCAN_MODEL")
	viper.BindEnv("ocr.paddle_url", "MEDIASCAN_PADDLE_URL")
}

// Validate validates the configuration. The API key is deliberately not
// required: without one the pipeline still runs the local OCR path and
// records a placeholder analysis.
func (c *Config) Validate() error {
	if c.AI.Model == "" {
		return fmt.Errorf("ai.model is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.OCR.Engine != models.OCREngineTesseract && c.OCR.Engine != models.OCREnginePaddle {
		return fmt.Errorf("ocr.engine must be %q or %q", models.OCREngineTesseract, models.OCREnginePaddle)
	}
	if c.OCR.Engine == models.OCREnginePaddle && c.OCR.PaddleURL == "" {
		return fmt.Errorf("ocr.paddle_url is required when ocr.engine is paddle")
	}
	if c.Auto.SaveLocation == models.SaveLocationCustom && c.Export.CustomDir == "" {
		return fmt.Errorf("export.custom_dir is required when auto.save_location is custom")
	}
	return nil
}

// InstructionSet returns the configured per-category instruction set.
func (c *Config) InstructionSet() models.SystemInstructions {
	return models.SystemInstructions{
		OCR:   c.Instructions.OCR,
		Image: c.Instructions.Image,
		Audio: c.Instructions.Audio,
		Video: c.Instructions.Video,
	}
}
