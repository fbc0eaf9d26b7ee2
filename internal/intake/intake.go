package intake

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyunseo/mediascan/internal/models"
	"github.com/hyunseo/mediascan/internal/store"
)

// ErrNoSupportedFiles is returned when an upload yields zero accepted files.
var ErrNoSupportedFiles = errors.New("no supported files (image, video, audio)")

// Candidate is one file offered for intake.
type Candidate struct {
	Name        string
	RelPath     string // directory hint when uploaded from a folder
	ContentType string // sniffed from the extension when empty
	Data        []byte
	SourcePath  string // set when the file already exists on disk
}

// Intake validates candidate files and appends accepted ones to the store.
type Intake struct {
	previewDir string
	store      *store.Store
	logger     *zap.Logger
}

// New creates an intake bound to a store. previewDir receives a
// materialized copy of every accepted file; the copy is released when the
// record is deleted.
func New(previewDir string, st *store.Store, logger *zap.Logger) (*Intake, error) {
	if err := os.MkdirAll(previewDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create preview directory: %w", err)
	}
	return &Intake{previewDir: previewDir, store: st, logger: logger}, nil
}

// AddFiles accepts candidates whose MIME type begins with image/, video/
// or audio/, appends a FileRecord per accepted file in input order, and
// returns the new records. When nothing is accepted it returns
// ErrNoSupportedFiles and leaves the store unchanged.
func (in *Intake) AddFiles(candidates []Candidate) ([]models.FileRecord, error) {
	var accepted []*models.FileRecord

	for _, c := range candidates {
		contentType := c.ContentType
		if contentType == "" {
			contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(c.Name)))
		}

		mediaType, ok := DetermineMediaType(contentType)
		if !ok {
			in.logger.Debug("Rejected unsupported file",
				zap.String("name", c.Name),
				zap.String("content_type", contentType))
			continue
		}

		rec, err := in.buildRecord(c, contentType, mediaType)
		if err != nil {
			in.logger.Warn("Failed to stage file",
				zap.String("name", c.Name),
				zap.Error(err))
			continue
		}
		accepted = append(accepted, rec)
	}

	if len(accepted) == 0 {
		return nil, ErrNoSupportedFiles
	}

	in.store.Add(accepted...)

	out := make([]models.FileRecord, 0, len(accepted))
	for _, r := range accepted {
		out = append(out, *r)
	}
	in.logger.Info("Files added", zap.Int("count", len(out)))
	return out, nil
}

// AddPath stages a single file that already exists on disk (watch-folder
// and CLI intake).
func (in *Intake) AddPath(path string) (models.FileRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.FileRecord{}, fmt.Errorf("failed to read file: %w", err)
	}
	recs, err := in.AddFiles([]Candidate{{
		Name:       filepath.Base(path),
		Data:       data,
		SourcePath: path,
	}})
	if err != nil {
		return models.FileRecord{}, err
	}
	return recs[0], nil
}

func (in *Intake) buildRecord(c Candidate, contentType string, mediaType models.MediaType) (*models.FileRecord, error) {
	id := uuid.NewString()

	previewPath := filepath.Join(in.previewDir, id+strings.ToLower(filepath.Ext(c.Name)))
	if err := os.WriteFile(previewPath, c.Data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write preview: %w", err)
	}

	filePath := c.SourcePath
	if filePath == "" {
		filePath = previewPath
	}

	return &models.FileRecord{
		ID:          id,
		FileName:    c.Name,
		FilePath:    filePath,
		RelPath:     c.RelPath,
		PreviewPath: previewPath,
		MimeType:    contentType,
		MediaType:   mediaType,
		FileSize:    int64(len(c.Data)),
		Status:      models.StatusIdle,
		Mode:        models.ModeAll,
		Keywords:    []string{},
		CreatedAt:   time.Now(),
	}, nil
}

// DetermineMediaType maps a MIME type to a media category by prefix.
func DetermineMediaType(contentType string) (models.MediaType, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.MediaTypeImage, true
	case strings.HasPrefix(contentType, "video/"):
		return models.MediaTypeVideo, true
	case strings.HasPrefix(contentType, "audio/"):
		return models.MediaTypeAudio, true
	default:
		return "", false
	}
}
