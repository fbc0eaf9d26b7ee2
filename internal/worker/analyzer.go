package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/hyunseo/mediascan/internal/ai"
	"github.com/hyunseo/mediascan/internal/export"
	"github.com/hyunseo/mediascan/internal/models"
	"github.com/hyunseo/mediascan/internal/ocr"
)

// AnalysisClient is the AI surface the analyzer consumes.
type AnalysisClient interface {
	Enabled() bool
	Analyze(ctx context.Context, rec models.FileRecord, data []byte, instr models.SystemInstructions, imageOCREnabled bool) (string, error)
	Generate(ctx context.Context, rec models.FileRecord, data []byte, systemInstruction, prompt string, jsonOnly bool) (string, error)
}

// Recognizer is the local OCR surface the analyzer consumes.
type Recognizer interface {
	Recognize(ctx context.Context, imageData []byte) (string, error)
}

// ExportStorage writes auto-export artifacts into a resolved directory.
type ExportStorage interface {
	Save(dir, name string, content []byte) (string, error)
}

// RunSettings is the settings snapshot a batch run operates under. It is
// resolved once at batch start so mid-run edits apply from the next run.
// ExportDir is filled by the orchestrator when auto-export is enabled;
// it already reflects the configured save location.
type RunSettings struct {
	Instructions    models.SystemInstructions
	Auto            models.AutoConfig
	Engine          models.OCREngine
	ImageOCREnabled bool
	ExportDir       string
}

// Analyzer processes one record end to end: local OCR, AI analysis,
// studio generation, auto-export.
type Analyzer struct {
	ai        AnalysisClient
	tesseract Recognizer
	paddle    Recognizer
	exports   ExportStorage
	taskDelay time.Duration
	logger    *zap.Logger
}

// NewAnalyzer creates an analyzer. exports may be nil when auto-export
// is never used.
func NewAnalyzer(client AnalysisClient, tesseract, paddle Recognizer, exports ExportStorage, taskDelay time.Duration, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		ai:        client,
		tesseract: tesseract,
		paddle:    paddle,
		exports:   exports,
		taskDelay: taskDelay,
		logger:    logger,
	}
}

// Process analyzes a single record and returns the update to merge. It
// never panics past this boundary; any failure becomes an error update
// so the batch loop can continue with the next record.
func (a *Analyzer) Process(ctx context.Context, rec models.FileRecord, set RunSettings) (upd models.AnalysisUpdate) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Analysis panicked",
				zap.String("id", rec.ID),
				zap.String("file", rec.FileName),
				zap.Any("panic", r))
			upd = models.AnalysisUpdate{
				Status:   models.StatusError,
				ErrorMsg: fmt.Sprintf("분석 중 내부 오류: %v", r),
			}
		}
	}()

	data, err := os.ReadFile(rec.FilePath)
	if err != nil {
		a.logger.Error("Failed to read media file",
			zap.String("id", rec.ID),
			zap.String("path", rec.FilePath),
			zap.Error(err))
		return models.AnalysisUpdate{
			Status:   models.StatusError,
			ErrorMsg: fmt.Sprintf("파일을 읽을 수 없습니다: %v", err),
		}
	}

	raw := a.runAnalysis(ctx, rec, data, set)
	localOCR := a.runLocalOCR(ctx, rec, data, set)

	payload := ai.ParseAnalysis(raw)
	primary := payload.PrimaryText(rec.MediaType, set.ImageOCREnabled)

	fontStyle := payload.FontStyle
	if fontStyle == "" {
		fontStyle = "sans-serif"
	}

	upd = models.AnalysisUpdate{
		Status:        models.StatusDone,
		ExtractedText: primary,
		CorrectedText: payload.CorrectedText,
		LocalOCRText:  localOCR,
		FontStyle:     fontStyle,
		OCRBlocks:     payload.Blocks(),
		Summary:       payload.Summary,
		Keywords:      payload.Keywords,
		Metadata:      payload.Metadata,
		StudioResults: a.runStudioTasks(ctx, rec, data, set),
	}

	if set.Auto.ExportEnabled() {
		a.autoExport(rec, upd, set)
	}
	return upd
}

// runAnalysis calls the AI service and always returns a JSON document:
// real output, or a synthesized one carrying the skip or failure reason.
func (a *Analyzer) runAnalysis(ctx context.Context, rec models.FileRecord, data []byte, set RunSettings) string {
	if !a.ai.Enabled() {
		return placeholderJSON(
			"API 키가 설정되지 않아 AI 분석을 건너뛰었습니다.",
			"AI 분석 비활성화 상태")
	}

	raw, err := a.ai.Analyze(ctx, rec, data, set.Instructions, set.ImageOCREnabled)
	if err != nil {
		a.logger.Warn("Analysis call failed",
			zap.String("id", rec.ID),
			zap.String("file", rec.FileName),
			zap.Error(err))
		if ai.IsQuotaError(err) {
			return placeholderJSON("API 할당량 초과로 AI 분석 실패", "")
		}
		return placeholderJSON("AI 분석 오류: "+err.Error(), "")
	}
	return raw
}

func placeholderJSON(summary, extracted string) string {
	doc := map[string]interface{}{
		"summary":  summary,
		"keywords": []string{},
		"metadata": map[string]interface{}{},
	}
	if extracted != "" {
		doc["extractedText"] = extracted
	}
	b, _ := json.Marshal(doc)
	return string(b)
}

// runLocalOCR runs the configured local engine for images when enabled
// and the mode asks for text. Engine failures become inline text so a
// broken OCR setup never fails the record.
func (a *Analyzer) runLocalOCR(ctx context.Context, rec models.FileRecord, data []byte, set RunSettings) string {
	if rec.MediaType != models.MediaTypeImage || !set.ImageOCREnabled {
		return ""
	}
	if rec.Mode != models.ModeTextOnly && rec.Mode != models.ModeAll {
		return ""
	}

	switch set.Engine {
	case models.OCREngineTesseract:
		if a.tesseract == nil {
			return ""
		}
		processed, err := ocr.Preprocess(data)
		if err != nil {
			a.logger.Warn("Image preprocessing failed", zap.String("id", rec.ID), zap.Error(err))
			return "Tesseract 오류: " + err.Error()
		}
		text, err := a.tesseract.Recognize(ctx, processed)
		if err != nil {
			a.logger.Warn("Tesseract recognition failed", zap.String("id", rec.ID), zap.Error(err))
			return "Tesseract 오류: " + err.Error()
		}
		return text

	case models.OCREnginePaddle:
		if a.paddle == nil {
			return ""
		}
		text, err := a.paddle.Recognize(ctx, data)
		if err != nil {
			a.logger.Warn("PaddleOCR recognition failed", zap.String("id", rec.ID), zap.Error(err))
			return fmt.Sprintf("PaddleOCR 연결 실패:\n%s\n(설정에서 API URL을 확인하세요)", err.Error())
		}
		return text
	}
	return ""
}

// runStudioTasks generates the enabled secondary outputs for the record's
// media category, sequentially with a pacing delay between calls.
func (a *Analyzer) runStudioTasks(ctx context.Context, rec models.FileRecord, data []byte, set RunSettings) map[string]string {
	tasks := ai.StudioTasksFor(rec.MediaType, set.Auto)
	if len(tasks) == 0 {
		return map[string]string{}
	}

	results := make(map[string]string, len(tasks))
	for _, taskID := range tasks {
		if !a.ai.Enabled() {
			results[taskID] = "API 키가 필요합니다."
			continue
		}
		select {
		case <-ctx.Done():
			results[taskID] = "자동 생성 실패"
			continue
		case <-time.After(a.taskDelay):
		}

		instr := ai.BuildStudioInstruction(rec.MediaType, taskID)
		prompt := ai.StudioPrompts[taskID]
		if taskID == "json" {
			prompt += " (JSON only)"
		}
		text, err := a.ai.Generate(ctx, rec, data, instr, prompt, taskID == "json")
		if err != nil {
			a.logger.Warn("Studio task failed",
				zap.String("id", rec.ID),
				zap.String("task", taskID),
				zap.Error(err))
			results[taskID] = "자동 생성 실패"
			continue
		}
		results[taskID] = text
	}
	return results
}

// autoExport writes the enabled export formats for a finished record.
// Failures are logged and never affect the record's status.
func (a *Analyzer) autoExport(rec models.FileRecord, upd models.AnalysisUpdate, set RunSettings) {
	if a.exports == nil || set.ExportDir == "" {
		return
	}
	auto := set.Auto

	merged := rec
	merged.ExtractedText = upd.ExtractedText
	merged.CorrectedText = upd.CorrectedText
	merged.LocalOCRText = upd.LocalOCRText
	merged.FontStyle = upd.FontStyle
	merged.OCRBlocks = upd.OCRBlocks
	merged.Summary = upd.Summary
	merged.Keywords = upd.Keywords
	merged.Metadata = upd.Metadata
	merged.StudioResults = upd.StudioResults

	now := time.Now()
	save := func(ext string, content []byte) {
		name := export.TimestampedName(rec.FileName, ext, now)
		if _, err := a.exports.Save(set.ExportDir, name, content); err != nil {
			a.logger.Warn("Auto-export failed",
				zap.String("id", rec.ID),
				zap.String("name", name),
				zap.Error(err))
		}
	}

	if auto.Word {
		save("doc", export.RecordWord(merged))
	}
	if auto.Markdown {
		save("md", export.RecordMarkdown(merged))
	}
	if auto.CSV {
		save("csv", export.RecordCSV(merged))
	}
}
