package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hyunseo/mediascan/internal/ai"
	"github.com/hyunseo/mediascan/internal/export"
	"github.com/hyunseo/mediascan/internal/intake"
	"github.com/hyunseo/mediascan/internal/models"
	"github.com/hyunseo/mediascan/internal/repository"
	"github.com/hyunseo/mediascan/internal/store"
	"github.com/hyunseo/mediascan/internal/worker"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	store        *store.Store
	intake       *intake.Intake
	orchestrator *worker.Orchestrator
	aiClient     *ai.Client
	settings     *SettingsService
	usage        *repository.UsageRepository
	templates    *repository.TemplateRepository
	quotaLimit   int
	logger       Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	st *store.Store,
	in *intake.Intake,
	orchestrator *worker.Orchestrator,
	aiClient *ai.Client,
	settings *SettingsService,
	usage *repository.UsageRepository,
	templates *repository.TemplateRepository,
	quotaLimit int,
	logger Logger,
) *Handlers {
	return &Handlers{
		store:        st,
		intake:       in,
		orchestrator: orchestrator,
		aiClient:     aiClient,
		settings:     settings,
		usage:        usage,
		templates:    templates,
		quotaLimit:   quotaLimit,
		logger:       logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// UploadFiles handles POST /api/files (multipart, field "files")
func (h *Handlers) UploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid multipart form"})
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "no files in request"})
		return
	}

	candidates := make([]intake.Candidate, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.logger.Error("Failed to open uploaded file", "name", fh.Filename, "error", err)
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			h.logger.Error("Failed to read uploaded file", "name", fh.Filename, "error", err)
			continue
		}

		// Folder uploads carry the path in the filename.
		relPath := ""
		name := fh.Filename
		if strings.ContainsAny(name, "/\\") {
			relPath = name
			name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
		}

		candidates = append(candidates, intake.Candidate{
			Name:        name,
			RelPath:     relPath,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	records, err := h.intake.AddFiles(candidates)
	if err != nil {
		if errors.Is(err, intake.ErrNoSupportedFiles) {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
			return
		}
		h.logger.Error("Failed to stage files", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to stage files"})
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: records})
}

// ListFiles handles GET /api/files
func (h *Handlers) ListFiles(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"files":       h.store.List(),
			"selected_id": h.store.SelectedID(),
		},
	})
}

// GetFile handles GET /api/files/:id
func (h *Handlers) GetFile(c *gin.Context) {
	rec, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "file not found"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: rec})
}

// DeleteFile handles DELETE /api/files/:id
func (h *Handlers) DeleteFile(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.store.Get(id); !ok {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "file not found"})
		return
	}
	h.store.Delete(id)
	c.JSON(http.StatusOK, Response{Success: true})
}

// ClearFiles handles DELETE /api/files
func (h *Handlers) ClearFiles(c *gin.Context) {
	h.store.Clear()
	c.JSON(http.StatusOK, Response{Success: true})
}

// SelectFile handles POST /api/files/:id/select
func (h *Handlers) SelectFile(c *gin.Context) {
	if err := h.store.Select(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "file not found"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// SetModeRequest is the body of PUT /api/files/:id/mode
type SetModeRequest struct {
	Mode models.AnalysisMode `json:"mode" binding:"required"`
}

// SetMode handles PUT /api/files/:id/mode
func (h *Handlers) SetMode(c *gin.Context) {
	var req SetModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	switch req.Mode {
	case models.ModeAll, models.ModeTextOnly, models.ModeImageOnly:
	default:
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "unknown analysis mode"})
		return
	}
	if err := h.store.SetMode(c.Param("id"), req.Mode); err != nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "file not found"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// StartBatch handles POST /api/batch/start. The run outlives the
// request, so it is not bound to the request context.
func (h *Handlers) StartBatch(c *gin.Context) {
	if err := h.orchestrator.Start(context.Background()); err != nil {
		if errors.Is(err, worker.ErrBatchRunning) {
			c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
			return
		}
		h.logger.Error("Failed to start batch", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to start batch"})
		return
	}
	c.JSON(http.StatusAccepted, Response{Success: true, Data: h.orchestrator.Progress()})
}

// StopBatch handles POST /api/batch/stop
func (h *Handlers) StopBatch(c *gin.Context) {
	h.orchestrator.Stop()
	c.JSON(http.StatusOK, Response{Success: true})
}

// BatchProgress handles GET /api/batch/progress
func (h *Handlers) BatchProgress(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: h.orchestrator.Progress()})
}

// ChatRequest is the body of POST /api/files/:id/chat
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// Chat handles POST /api/files/:id/chat: one user turn against the
// record's media, transcript updated with both sides. A failed
// generation still lands in the transcript as the model turn.
func (h *Handlers) Chat(c *gin.Context) {
	rec, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "file not found"})
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	if !h.aiClient.Enabled() {
		c.JSON(http.StatusConflict, Response{Success: false, Error: "API 키가 필요합니다."})
		return
	}
	if h.quotaExceeded(c) {
		return
	}

	data, err := os.ReadFile(rec.FilePath)
	if err != nil {
		h.logger.Error("Failed to read media file", "id", rec.ID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to read media file"})
		return
	}

	_ = h.store.AppendChat(rec.ID, models.ChatRoleUser, req.Message)

	reply, err := h.aiClient.Generate(c.Request.Context(), rec, data,
		ai.BuildChatInstruction(rec), req.Message, false)
	if err != nil {
		h.logger.Error("Chat generation failed", "id", rec.ID, "error", err)
		reply = fmt.Sprintf("오류가 발생했습니다: %s", err.Error())
	}
	_ = h.store.AppendChat(rec.ID, models.ChatRoleModel, reply)

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"reply": reply}})
}

// RunStudioTask handles POST /api/files/:id/studio/:task
func (h *Handlers) RunStudioTask(c *gin.Context) {
	rec, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "file not found"})
		return
	}

	taskID := c.Param("task")
	prompt, ok := ai.StudioPrompts[taskID]
	if !ok {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "unknown studio task"})
		return
	}

	if !h.aiClient.Enabled() {
		c.JSON(http.StatusConflict, Response{Success: false, Error: "API 키가 필요합니다."})
		return
	}
	if h.quotaExceeded(c) {
		return
	}

	data, err := os.ReadFile(rec.FilePath)
	if err != nil {
		h.logger.Error("Failed to read media file", "id", rec.ID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to read media file"})
		return
	}

	if taskID == "json" {
		prompt += " (JSON only)"
	}
	text, err := h.aiClient.Generate(c.Request.Context(), rec, data,
		ai.BuildStudioInstruction(rec.MediaType, taskID), prompt, taskID == "json")
	if err != nil {
		h.logger.Error("Studio task failed", "id", rec.ID, "task", taskID, "error", err)
		text = fmt.Sprintf("오류가 발생했습니다: %s", err.Error())
	}
	_ = h.store.SetStudioResult(rec.ID, taskID, text)

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"task": taskID, "result": text}})
}

// quotaExceeded enforces the daily call budget; it writes the error
// response itself and reports whether the caller should bail.
func (h *Handlers) quotaExceeded(c *gin.Context) bool {
	if h.quotaLimit <= 0 {
		return false
	}
	count, err := h.usage.Today()
	if err != nil {
		h.logger.Error("Failed to read usage counter", "error", err)
		return false
	}
	if count >= h.quotaLimit {
		c.JSON(http.StatusTooManyRequests, Response{Success: false, Error: "API 할당량 초과"})
		return true
	}
	return false
}

// ExportFile handles GET /api/files/:id/export/:format for md, doc and
// csv. Only finished records can be exported.
func (h *Handlers) ExportFile(c *gin.Context) {
	rec, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "file not found"})
		return
	}
	if rec.Status != models.StatusDone {
		c.JSON(http.StatusConflict, Response{Success: false, Error: "완료된 항목을 선택해주세요."})
		return
	}

	base := export.Sanitize(export.BaseName(rec.FileName))
	switch c.Param("format") {
	case "md":
		h.sendAttachment(c, base+".md", "text/markdown; charset=utf-8", export.RecordMarkdown(rec))
	case "doc":
		h.sendAttachment(c, base+".doc", "application/vnd.ms-word; charset=utf-8", export.RecordWord(rec))
	case "csv":
		h.sendAttachment(c, base+".csv", "text/csv; charset=utf-8", export.RecordCSV(rec))
	default:
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "unknown export format"})
	}
}

// ExportAllCSV handles GET /api/export/csv
func (h *Handlers) ExportAllCSV(c *gin.Context) {
	name := fmt.Sprintf("analysis_%s.csv", time.Now().Format("2006-01-02"))
	h.sendAttachment(c, name, "text/csv; charset=utf-8", export.StoreCSV(h.store.List()))
}

// ExportAllXLSX handles GET /api/export/xlsx
func (h *Handlers) ExportAllXLSX(c *gin.Context) {
	content, err := export.StoreXLSX(h.store.List())
	if err != nil {
		h.logger.Error("Failed to build workbook", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to build workbook"})
		return
	}
	name := fmt.Sprintf("analysis_%s.xlsx", time.Now().Format("2006-01-02"))
	h.sendAttachment(c, name,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}

func (h *Handlers) sendAttachment(c *gin.Context, name, contentType string, content []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, content)
}

// GetSettings handles GET /api/settings
func (h *Handlers) GetSettings(c *gin.Context) {
	current, err := h.settings.Current()
	if err != nil {
		h.logger.Error("Failed to load settings", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to load settings"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: current})
}

// SaveSettings handles PUT /api/settings
func (h *Handlers) SaveSettings(c *gin.Context) {
	var payload SettingsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	if err := h.settings.Save(payload); err != nil {
		h.logger.Error("Failed to save settings", "error", err)
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// UsageResponse reports the daily quota position.
type UsageResponse struct {
	Count int `json:"count"`
	Limit int `json:"limit"`
}

// GetUsage handles GET /api/usage
func (h *Handlers) GetUsage(c *gin.Context) {
	count, err := h.usage.Today()
	if err != nil {
		h.logger.Error("Failed to read usage counter", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to read usage"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: UsageResponse{Count: count, Limit: h.quotaLimit}})
}

// ListTemplates handles GET /api/templates?category=
func (h *Handlers) ListTemplates(c *gin.Context) {
	var (
		templates []*models.PromptTemplate
		err       error
	)
	if category := c.Query("category"); category != "" {
		templates, err = h.templates.ListByCategory(category)
	} else {
		templates, err = h.templates.List()
	}
	if err != nil {
		h.logger.Error("Failed to list templates", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to list templates"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: templates})
}

// CreateTemplateRequest is the body of POST /api/templates
type CreateTemplateRequest struct {
	Category string `json:"category" binding:"required"`
	Label    string `json:"label" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

// CreateTemplate handles POST /api/templates
func (h *Handlers) CreateTemplate(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	tmpl := &models.PromptTemplate{
		Category: req.Category,
		Label:    req.Label,
		Content:  req.Content,
	}
	if err := h.templates.Create(tmpl); err != nil {
		h.logger.Error("Failed to create template", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to create template"})
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: tmpl})
}

// DeleteTemplate handles DELETE /api/templates/:id
func (h *Handlers) DeleteTemplate(c *gin.Context) {
	if err := h.templates.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}
