package store

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyunseo/mediascan/internal/models"
)

// Store is the in-memory ordered collection of file records. It is the
// single source of truth the API renders from; intake appends, the batch
// loop merges analysis results, handlers mutate modes and transcripts.
//
// Invariant: the selected ID always references a record present in the
// store, or is empty when the store is empty.
type Store struct {
	mu         sync.RWMutex
	records    []*models.FileRecord
	selectedID string
	logger     *zap.Logger
}

// New creates an empty store.
func New(logger *zap.Logger) *Store {
	return &Store{logger: logger}
}

// Add appends records in order and selects the first one added when
// nothing was selected before.
func (s *Store) Add(records ...*models.FileRecord) {
	if len(records) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, records...)
	if s.selectedID == "" {
		s.selectedID = records[0].ID
	}
}

// Get returns a copy of the record with the given ID.
func (s *Store) Get(id string) (models.FileRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ID == id {
			return *r, true
		}
	}
	return models.FileRecord{}, false
}

// List returns copies of all records in insertion order.
func (s *Store) List() []models.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FileRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, *r)
	}
	return out
}

// ListByStatus returns copies of records matching the given status.
func (s *Store) ListByStatus(status models.ProcessStatus) []models.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.FileRecord
	for _, r := range s.records {
		if r.Status == status {
			out = append(out, *r)
		}
	}
	return out
}

// Eligible returns copies of records a batch run may process: those in
// idle or error status, in insertion order.
func (s *Store) Eligible() []models.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.FileRecord
	for _, r := range s.records {
		if r.Status == models.StatusIdle || r.Status == models.StatusError {
			out = append(out, *r)
		}
	}
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Selected returns the currently selected record, if any.
func (s *Store) Selected() (models.FileRecord, bool) {
	s.mu.RLock()
	id := s.selectedID
	s.mu.RUnlock()
	if id == "" {
		return models.FileRecord{}, false
	}
	return s.Get(id)
}

// SelectedID returns the selected identifier, empty when nothing is selected.
func (s *Store) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedID
}

// Select makes the given record the selected one.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.ID == id {
			s.selectedID = id
			return nil
		}
	}
	return fmt.Errorf("record not found: %s", id)
}

// Delete removes the records with the given IDs, releasing each preview
// file before the record is dropped. When the selected record is deleted,
// selection moves to the nearest surviving neighbour.
func (s *Store) Delete(ids ...string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	oldIndex := -1
	kept := s.records[:0]
	for i, r := range s.records {
		if !drop[r.ID] {
			kept = append(kept, r)
			continue
		}
		if r.ID == s.selectedID {
			oldIndex = i
		}
		s.releasePreview(r)
	}
	s.records = kept

	if oldIndex >= 0 {
		if len(s.records) == 0 {
			s.selectedID = ""
			return
		}
		next := oldIndex
		if next > len(s.records)-1 {
			next = len(s.records) - 1
		}
		s.selectedID = s.records[next].ID
	}
}

// Clear drops every record, releasing all preview files.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		s.releasePreview(r)
	}
	s.records = nil
	s.selectedID = ""
}

func (s *Store) releasePreview(r *models.FileRecord) {
	if r.PreviewPath == "" {
		return
	}
	if err := os.Remove(r.PreviewPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to release preview",
			zap.String("id", r.ID),
			zap.String("path", r.PreviewPath),
			zap.Error(err))
	}
	r.PreviewPath = ""
}

// SetMode changes the analysis mode of a record.
func (s *Store) SetMode(id string, mode models.AnalysisMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.ID == id {
			r.Mode = mode
			return nil
		}
	}
	return fmt.Errorf("record not found: %s", id)
}

// MarkProcessing flips a record into processing status.
func (s *Store) MarkProcessing(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.ID == id {
			r.Status = models.StatusProcessing
			return
		}
	}
}

// ApplyUpdate merges an analysis result into the matching record. If the
// record was deleted while the analysis was in flight the merge finds
// nothing and reports false; the caller treats that as a silent drop.
func (s *Store) ApplyUpdate(id string, upd models.AnalysisUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.ID != id {
			continue
		}
		r.Status = upd.Status
		if upd.Status == models.StatusError {
			r.ErrorMsg = upd.ErrorMsg
			return true
		}
		r.ExtractedText = upd.ExtractedText
		r.CorrectedText = upd.CorrectedText
		r.LocalOCRText = upd.LocalOCRText
		r.FontStyle = upd.FontStyle
		r.OCRBlocks = upd.OCRBlocks
		r.Summary = upd.Summary
		r.Keywords = upd.Keywords
		r.Metadata = upd.Metadata
		r.StudioResults = upd.StudioResults
		r.ErrorMsg = ""
		return true
	}
	return false
}

// AppendChat appends one chat turn to a record's transcript.
func (s *Store) AppendChat(id, role, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.ID == id {
			r.ChatHistory = append(r.ChatHistory, models.ChatMessage{
				Role:      role,
				Text:      text,
				Timestamp: time.Now(),
			})
			return nil
		}
	}
	return fmt.Errorf("record not found: %s", id)
}

// SetStudioResult stores the generated text for one studio task.
func (s *Store) SetStudioResult(id, taskID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.ID == id {
			if r.StudioResults == nil {
				r.StudioResults = make(map[string]string)
			}
			r.StudioResults[taskID] = text
			return nil
		}
	}
	return fmt.Errorf("record not found: %s", id)
}
