package ai

import (
	"strings"

	"github.com/hyunseo/mediascan/internal/models"
)

// TextAnnotation is one positioned text line in the analysis response.
// box_2d is [y_min, x_min, y_max, x_max] on a 0-1000 scale.
type TextAnnotation struct {
	Text  string    `json:"text"`
	Box2D []float64 `json:"box_2d"`
}

// AnalysisPayload is the decoded analysis response. Fields the service
// omitted are defaulted so downstream consumers can assume presence.
type AnalysisPayload struct {
	ExtractedText   string              `json:"extractedText"`
	CorrectedText   string              `json:"correctedText"`
	FontStyle       string              `json:"fontStyle"`
	Summary         string              `json:"summary"`
	Keywords        []string            `json:"keywords"`
	Metadata        models.FileMetadata `json:"metadata"`
	TextAnnotations []TextAnnotation    `json:"text_annotations"`

	// Alternate shape returned for images when OCR is disabled.
	Labels         []string `json:"labels"`
	VisualAnalysis string   `json:"visual_analysis"`
}

// ParseAnalysis decodes a raw response leniently. When even the repaired
// text is not JSON, the whole response becomes the extracted/corrected
// text with an explicit parsing-failed marker in metadata; this function
// never fails.
func ParseAnalysis(raw string) *AnalysisPayload {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}

	var p AnalysisPayload
	if err := DecodeLenient(raw, &p); err != nil {
		p = AnalysisPayload{
			ExtractedText: raw,
			CorrectedText: raw,
			Summary:       "데이터 형식 변환에 실패했습니다. (전체 텍스트 참조)",
			Metadata: models.FileMetadata{
				Accuracy:    "JSON Parsing Error",
				Description: "분석 결과를 파싱할 수 없습니다.",
			},
		}
	}

	if p.Summary == "" {
		p.Summary = "요약 정보가 없습니다."
	}
	if p.Keywords == nil {
		p.Keywords = []string{}
	}
	return &p
}

// PrimaryText resolves the main extracted-text slot. With image OCR off
// the service returns labels plus a visual analysis instead; the labels
// fold into the keywords and the visual analysis takes the text slot.
func (p *AnalysisPayload) PrimaryText(mediaType models.MediaType, imageOCREnabled bool) string {
	if !imageOCREnabled && mediaType == models.MediaTypeImage {
		if len(p.Labels) > 0 {
			p.Keywords = append(p.Keywords, p.Labels...)
		}
		return p.VisualAnalysis
	}
	return p.ExtractedText
}

// Blocks converts text annotations into positioned blocks. Entries with
// empty text or a malformed box are dropped; every coordinate is clamped
// into [0,1000].
func (p *AnalysisPayload) Blocks() []models.OCRBlock {
	var blocks []models.OCRBlock
	for _, anno := range p.TextAnnotations {
		if strings.TrimSpace(anno.Text) == "" || len(anno.Box2D) != 4 {
			continue
		}
		blocks = append(blocks, models.OCRBlock{
			Text:       anno.Text,
			Confidence: 100,
			BBox: models.BoundingBox{
				Y0: clampCoord(anno.Box2D[0]),
				X0: clampCoord(anno.Box2D[1]),
				Y1: clampCoord(anno.Box2D[2]),
				X1: clampCoord(anno.Box2D[3]),
			},
		})
	}
	return blocks
}

func clampCoord(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return int(v)
}
