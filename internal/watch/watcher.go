package watch

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyunseo/mediascan/internal/models"
)

// Intaker stages a file from disk into the store.
type Intaker interface {
	AddPath(path string) (models.FileRecord, error)
}

// settleDelay lets a file finish being written before it is staged.
// Create events fire when the file appears, not when the copy completes.
const settleDelay = 500 * time.Millisecond

// Watcher stages files dropped into a watched directory.
type Watcher struct {
	dir       string
	intake    Intaker
	fsWatcher *fsnotify.Watcher
	logger    *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher over a single drop directory.
func New(dir string, intake Intaker, logger *zap.Logger) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("error accessing watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	return &Watcher{
		dir:       dir,
		intake:    intake,
		fsWatcher: fsWatcher,
		logger:    logger,
		pending:   make(map[string]*time.Timer),
	}, nil
}

// Run processes events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.logger.Info("Watching drop directory", zap.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
				w.schedule(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", zap.Error(err))
		}
	}
}

// schedule (re)arms the settle timer for a path. Repeated write events
// push staging back until the file goes quiet.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(settleDelay)
		return
	}
	w.pending[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.stage(path)
	})
}

func (w *Watcher) stage(path string) {
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("Failed to stat dropped file", zap.String("path", path), zap.Error(err))
		}
		return
	}
	if info.IsDir() {
		return
	}

	rec, err := w.intake.AddPath(path)
	if err != nil {
		w.logger.Warn("Failed to stage dropped file", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("Staged dropped file",
		zap.String("id", rec.ID),
		zap.String("file", rec.FileName),
		zap.String("media_type", string(rec.MediaType)))
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	return w.fsWatcher.Close()
}
