package models

import "time"

// MediaType classifies an uploaded file by its MIME prefix.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
)

// ProcessStatus is the lifecycle state of a record.
type ProcessStatus string

const (
	StatusIdle       ProcessStatus = "idle"
	StatusProcessing ProcessStatus = "processing"
	StatusDone       ProcessStatus = "done"
	StatusError      ProcessStatus = "error"
)

// AnalysisMode selects what the analysis should focus on.
type AnalysisMode string

const (
	ModeAll       AnalysisMode = "all"
	ModeTextOnly  AnalysisMode = "text"
	ModeImageOnly AnalysisMode = "image"
)

// BoundingBox holds normalized text coordinates on a 0-1000 scale.
type BoundingBox struct {
	Y0 int `json:"y0"`
	X0 int `json:"x0"`
	Y1 int `json:"y1"`
	X1 int `json:"x1"`
}

// OCRBlock is one positioned line of recognized text.
type OCRBlock struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence,omitempty"`
	BBox       BoundingBox `json:"bbox"`
}

// ChatMessage is one turn of the per-record chat transcript.
type ChatMessage struct {
	Role      string    `json:"role"` // "user" or "model"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	ChatRoleUser  = "user"
	ChatRoleModel = "model"
)

// FileRecord is the unit of work: one uploaded media file plus everything
// the analysis pipeline has produced for it so far.
type FileRecord struct {
	ID          string        `json:"id"`
	FileName    string        `json:"file_name"`
	FilePath    string        `json:"file_path"`
	RelPath     string        `json:"rel_path,omitempty"`
	PreviewPath string        `json:"preview_path,omitempty"`
	MimeType    string        `json:"mime_type"`
	MediaType   MediaType     `json:"media_type"`
	FileSize    int64         `json:"file_size"`
	Status      ProcessStatus `json:"status"`
	Mode        AnalysisMode  `json:"analysis_mode"`

	ExtractedText string `json:"extracted_text"`
	CorrectedText string `json:"corrected_text"`
	LocalOCRText  string `json:"local_ocr_text"`
	FontStyle     string `json:"font_style,omitempty"`

	OCRBlocks []OCRBlock   `json:"ocr_blocks,omitempty"`
	Summary   string       `json:"summary"`
	Keywords  []string     `json:"keywords"`
	Metadata  FileMetadata `json:"metadata"`

	ChatHistory   []ChatMessage     `json:"chat_history,omitempty"`
	StudioResults map[string]string `json:"studio_results,omitempty"`

	ErrorMsg  string    `json:"error_msg,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AnalysisUpdate is the partial record an analysis run produces. The store
// merges it into the matching FileRecord; identity fields never change.
type AnalysisUpdate struct {
	Status        ProcessStatus
	ExtractedText string
	CorrectedText string
	LocalOCRText  string
	FontStyle     string
	OCRBlocks     []OCRBlock
	Summary       string
	Keywords      []string
	Metadata      FileMetadata
	StudioResults map[string]string
	ErrorMsg      string
}
