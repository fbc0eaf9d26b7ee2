package models

// OCREngine selects the local OCR path.
type OCREngine string

const (
	OCREngineTesseract OCREngine = "tesseract"
	OCREnginePaddle    OCREngine = "paddle"
)

// SaveLocation selects where auto-exports land.
const (
	SaveLocationDefault = "default"
	SaveLocationCustom  = "custom"
)

// AutoConfig holds the per-category auto-generate and auto-export toggles.
type AutoConfig struct {
	SNS      bool `json:"sns"`
	Alt      bool `json:"alt"`
	JSON     bool `json:"json"`
	YouTube  bool `json:"youtube"`
	Timeline bool `json:"timeline"`
	Meeting  bool `json:"meeting"`
	Todo     bool `json:"todo"`

	Word     bool `json:"word"`
	Markdown bool `json:"markdown"`
	CSV      bool `json:"csv"`

	SaveLocation string `json:"save_location,omitempty"` // "default" or "custom"
}

// ExportEnabled reports whether any auto-export format is on.
func (c AutoConfig) ExportEnabled() bool {
	return c.Word || c.Markdown || c.CSV
}

// SystemInstructions holds the user-editable instruction text per category.
type SystemInstructions struct {
	OCR   string `json:"ocr"`
	Image string `json:"image"`
	Audio string `json:"audio"`
	Video string `json:"video"`
}

// PromptTemplate is a saved user prompt, keyed by instruction category.
type PromptTemplate struct {
	ID        string `json:"id"`
	Category  string `json:"category"` // ocr, image, audio, video
	Label     string `json:"label"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
}
