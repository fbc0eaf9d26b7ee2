package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyunseo/mediascan/internal/ai"
	"github.com/hyunseo/mediascan/internal/config"
	"github.com/hyunseo/mediascan/internal/intake"
	"github.com/hyunseo/mediascan/internal/models"
	"github.com/hyunseo/mediascan/internal/repository"
	"github.com/hyunseo/mediascan/internal/store"
	"github.com/hyunseo/mediascan/internal/worker"
	"github.com/hyunseo/mediascan/pkg/database"
	"github.com/hyunseo/mediascan/pkg/utils"
)

type env struct {
	server *Server
	store  *store.Store
	usage  *repository.UsageRepository
}

func newTestEnv(t *testing.T, apiKey string, quotaLimit int) *env {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).RunMigrations())

	cfg := &config.Config{
		AI:    config.AIConfig{Model: "gpt-4o"},
		OCR:   config.OCRConfig{Engine: models.OCREngineTesseract, ImageOCREnabled: true},
		Theme: "default",
		Instructions: config.InstructionsConfig{
			OCR: "d-ocr", Image: "d-image", Audio: "d-audio", Video: "d-video",
		},
	}

	st := store.New(logger)
	in, err := intake.New(t.TempDir(), st, logger)
	require.NoError(t, err)

	settingsRepo := repository.NewSettingsRepository(db.DB, logger)
	usage := repository.NewUsageRepository(db.DB, logger)
	templates := repository.NewTemplateRepository(db.DB, logger)

	settings := NewSettingsService(settingsRepo, cfg)
	aiClient := ai.NewClient(ai.Config{APIKey: apiKey, Model: "gpt-4o"}, nil, logger)

	analyzer := worker.NewAnalyzer(aiClient, nil, nil, nil, time.Millisecond, logger)
	orchestrator := worker.NewOrchestrator(st, analyzer, settings, nil, logger)

	kv := utils.NewKVLogger(logger)
	handlers := NewHandlers(st, in, orchestrator, aiClient, settings, usage, templates, quotaLimit, kv)
	server := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, handlers, kv)

	return &env{server: server, store: st, usage: usage}
}

func (e *env) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.server.Router().ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (e *env) addRecord(rec *models.FileRecord) {
	if rec.Status == "" {
		rec.Status = models.StatusIdle
	}
	if rec.Mode == "" {
		rec.Mode = models.ModeAll
	}
	e.store.Add(rec)
}

func TestHealthCheck(t *testing.T) {
	e := newTestEnv(t, "", 0)

	w := e.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestUploadFiles(t *testing.T) {
	e := newTestEnv(t, "", 0)

	multipartRequest := func(t *testing.T, files map[string]string) *httptest.ResponseRecorder {
		t.Helper()
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for name, contentType := range files {
			header := make(textproto.MIMEHeader)
			header.Set("Content-Disposition",
				fmt.Sprintf(`form-data; name="files"; filename=%q`, name))
			header.Set("Content-Type", contentType)
			fw, err := mw.CreatePart(header)
			require.NoError(t, err)
			_, err = fw.Write([]byte("content"))
			require.NoError(t, err)
		}
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/files", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		e.server.Router().ServeHTTP(w, req)
		return w
	}

	t.Run("accepts supported media", func(t *testing.T) {
		w := multipartRequest(t, map[string]string{
			"photo.png": "image/png",
			"clip.mp4":  "video/mp4",
		})
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 2, e.store.Len())
	})

	t.Run("rejects uploads with nothing supported", func(t *testing.T) {
		w := multipartRequest(t, map[string]string{"notes.txt": "text/plain"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects non-multipart bodies", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/files", gin.H{"nope": true})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFileLifecycle(t *testing.T) {
	e := newTestEnv(t, "", 0)
	e.addRecord(&models.FileRecord{ID: "f1", FileName: "a.png", MediaType: models.MediaTypeImage})
	e.addRecord(&models.FileRecord{ID: "f2", FileName: "b.png", MediaType: models.MediaTypeImage})

	t.Run("list returns records and selection", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/files", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				Files      []models.FileRecord `json:"files"`
				SelectedID string              `json:"selected_id"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Data.Files, 2)
		assert.Equal(t, "f1", resp.Data.SelectedID)
	})

	t.Run("get single record", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/files/f2", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = e.do(t, http.MethodGet, "/api/files/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("select moves the selection", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/files/f2/select", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "f2", e.store.SelectedID())

		w = e.do(t, http.MethodPost, "/api/files/nope/select", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("mode change validates the value", func(t *testing.T) {
		w := e.do(t, http.MethodPut, "/api/files/f1/mode", gin.H{"mode": "text_only"})
		require.Equal(t, http.StatusOK, w.Code)

		rec, ok := e.store.Get("f1")
		require.True(t, ok)
		assert.Equal(t, models.ModeTextOnly, rec.Mode)

		w = e.do(t, http.MethodPut, "/api/files/f1/mode", gin.H{"mode": "upside_down"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete removes the record", func(t *testing.T) {
		w := e.do(t, http.MethodDelete, "/api/files/f2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, e.store.Len())

		w = e.do(t, http.MethodDelete, "/api/files/f2", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("clear empties the store", func(t *testing.T) {
		w := e.do(t, http.MethodDelete, "/api/files", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, e.store.Len())
	})
}

func TestChat(t *testing.T) {
	t.Run("without a key the chat is refused", func(t *testing.T) {
		e := newTestEnv(t, "", 0)
		e.addRecord(&models.FileRecord{ID: "f1", FileName: "a.png", MediaType: models.MediaTypeImage})

		w := e.do(t, http.MethodPost, "/api/files/f1/chat", gin.H{"message": "안녕"})
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "API 키가 필요합니다.", decodeResponse(t, w).Error)
	})

	t.Run("unknown record", func(t *testing.T) {
		e := newTestEnv(t, "", 0)
		w := e.do(t, http.MethodPost, "/api/files/nope/chat", gin.H{"message": "hi"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("empty message is rejected", func(t *testing.T) {
		e := newTestEnv(t, "sk-test", 0)
		e.addRecord(&models.FileRecord{ID: "f1", FileName: "a.png", MediaType: models.MediaTypeImage})

		w := e.do(t, http.MethodPost, "/api/files/f1/chat", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestQuotaEnforcement(t *testing.T) {
	e := newTestEnv(t, "sk-test", 2)
	e.addRecord(&models.FileRecord{ID: "f1", FileName: "a.png", MediaType: models.MediaTypeImage})

	for i := 0; i < 2; i++ {
		_, err := e.usage.Increment()
		require.NoError(t, err)
	}

	w := e.do(t, http.MethodPost, "/api/files/f1/studio/sns", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "API 할당량 초과", decodeResponse(t, w).Error)
}

func TestRunStudioTask_Validation(t *testing.T) {
	e := newTestEnv(t, "", 0)
	e.addRecord(&models.FileRecord{ID: "f1", FileName: "a.png", MediaType: models.MediaTypeImage})

	t.Run("unknown task", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/files/f1/studio/haiku", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("known task without a key", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/files/f1/studio/sns", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestBatchEndpoints(t *testing.T) {
	e := newTestEnv(t, "", 0)

	t.Run("progress starts empty", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/batch/progress", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data models.ProgressState `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Data.Running)
		assert.Zero(t, resp.Data.Total)
	})

	t.Run("start with nothing eligible is accepted", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/batch/start", nil)
		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("stop when idle is fine", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/batch/stop", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestExportFile(t *testing.T) {
	e := newTestEnv(t, "", 0)
	e.addRecord(&models.FileRecord{
		ID: "done", FileName: "보고서.png", MediaType: models.MediaTypeImage,
		Status: models.StatusDone, Summary: "요약", CorrectedText: "본문",
	})
	e.addRecord(&models.FileRecord{ID: "idle", FileName: "b.png", MediaType: models.MediaTypeImage})

	t.Run("markdown attachment", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/files/done/export/md", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "보고서.md")
		assert.Contains(t, w.Body.String(), "# 보고서.png")
	})

	t.Run("word attachment", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/files/done/export/doc", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "urn:schemas-microsoft-com:office:word")
	})

	t.Run("csv attachment", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/files/done/export/csv", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "파일명,요약,키워드")
	})

	t.Run("unfinished records cannot be exported", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/files/idle/export/md", nil)
		require.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "완료된 항목을 선택해주세요.", decodeResponse(t, w).Error)
	})

	t.Run("unknown format", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/files/done/export/pdf", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestExportAll(t *testing.T) {
	e := newTestEnv(t, "", 0)
	e.addRecord(&models.FileRecord{ID: "f1", FileName: "a.png", MediaType: models.MediaTypeImage})

	date := time.Now().Format("2006-01-02")

	t.Run("csv", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/export/csv", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), fmt.Sprintf("analysis_%s.csv", date))
	})

	t.Run("xlsx", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/export/xlsx", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), fmt.Sprintf("analysis_%s.xlsx", date))
		// XLSX files are zip archives.
		assert.Equal(t, "PK", w.Body.String()[:2])
	})
}

func TestSettingsEndpoints(t *testing.T) {
	e := newTestEnv(t, "", 0)

	t.Run("defaults come from configuration", func(t *testing.T) {
		w := e.do(t, http.MethodGet, "/api/settings", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data SettingsPayload `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "d-ocr", resp.Data.Instructions.OCR)
		assert.Equal(t, models.OCREngineTesseract, resp.Data.OCREngine)
		assert.True(t, resp.Data.ImageOCREnabled)
	})

	t.Run("saved settings round-trip", func(t *testing.T) {
		payload := SettingsPayload{
			Instructions:    models.SystemInstructions{OCR: "커스텀", Image: "i", Audio: "a", Video: "v"},
			Auto:            models.AutoConfig{SNS: true, CSV: true},
			Theme:           "dark",
			OCREngine:       models.OCREnginePaddle,
			ImageOCREnabled: false,
		}
		w := e.do(t, http.MethodPut, "/api/settings", payload)
		require.Equal(t, http.StatusOK, w.Code)

		w = e.do(t, http.MethodGet, "/api/settings", nil)
		var resp struct {
			Data SettingsPayload `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, payload, resp.Data)
	})

	t.Run("unknown engine is rejected", func(t *testing.T) {
		w := e.do(t, http.MethodPut, "/api/settings", gin.H{"ocr_engine": "easyocr"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUsageEndpoint(t *testing.T) {
	e := newTestEnv(t, "", 42)
	_, err := e.usage.Increment()
	require.NoError(t, err)

	w := e.do(t, http.MethodGet, "/api/usage", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data UsageResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Count)
	assert.Equal(t, 42, resp.Data.Limit)
}

func TestTemplateEndpoints(t *testing.T) {
	e := newTestEnv(t, "", 0)

	t.Run("create", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/templates", gin.H{
			"category": "ocr", "label": "영수증", "content": "영수증 항목을 추출해줘",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/templates", gin.H{"category": "ocr"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list and filter", func(t *testing.T) {
		w := e.do(t, http.MethodPost, "/api/templates", gin.H{
			"category": "image", "label": "묘사", "content": "자세히 묘사해줘",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			Data []models.PromptTemplate `json:"data"`
		}
		w = e.do(t, http.MethodGet, "/api/templates", nil)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Data, 2)

		w = e.do(t, http.MethodGet, "/api/templates?category=ocr", nil)
		resp.Data = nil
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "영수증", resp.Data[0].Label)
	})

	t.Run("delete", func(t *testing.T) {
		var resp struct {
			Data []models.PromptTemplate `json:"data"`
		}
		w := e.do(t, http.MethodGet, "/api/templates", nil)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Data)

		w = e.do(t, http.MethodDelete, "/api/templates/"+resp.Data[0].ID, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = e.do(t, http.MethodDelete, "/api/templates/"+resp.Data[0].ID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
