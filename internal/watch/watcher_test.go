package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyunseo/mediascan/internal/models"
)

type fakeIntaker struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeIntaker) AddPath(path string) (models.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	return models.FileRecord{ID: "rec", FileName: filepath.Base(path)}, nil
}

func (f *fakeIntaker) staged() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func waitForStaged(t *testing.T, in *fakeIntaker, n int) []string {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if paths := in.staged(); len(paths) >= n {
			return paths
		}
		select {
		case <-deadline:
			t.Fatalf("expected %d staged files, got %d", n, len(in.staged()))
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestNew(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	t.Run("missing directory", func(t *testing.T) {
		_, err := New(filepath.Join(t.TempDir(), "nope"), &fakeIntaker{}, logger)
		assert.Error(t, err)
	})

	t.Run("file instead of directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

		_, err := New(path, &fakeIntaker{}, logger)
		assert.Error(t, err)
	})
}

func TestWatcher_StagesDroppedFiles(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	dir := t.TempDir()
	in := &fakeIntaker{}

	w, err := New(dir, in, logger)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)

	dropped := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(dropped, []byte("img"), 0644))

	paths := waitForStaged(t, in, 1)
	assert.Equal(t, []string{dropped}, paths)
}

func TestWatcher_IgnoresDirectories(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	dir := t.TempDir()
	in := &fakeIntaker{}

	w, err := New(dir, in, logger)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0755))
	dropped := filepath.Join(dir, "after.png")
	require.NoError(t, os.WriteFile(dropped, []byte("img"), 0644))

	paths := waitForStaged(t, in, 1)
	assert.Equal(t, []string{dropped}, paths)
}

func TestWatcher_DebouncesRepeatedWrites(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	dir := t.TempDir()
	in := &fakeIntaker{}

	w, err := New(dir, in, logger)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)

	// A slow copy: several writes to the same path within the settle window.
	dropped := filepath.Join(dir, "large.mp4")
	f, err := os.Create(dropped)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = f.Write([]byte("chunk"))
		require.NoError(t, err)
		require.NoError(t, f.Sync())
		time.Sleep(50 * time.Millisecond)
	}
	require.NoError(t, f.Close())

	paths := waitForStaged(t, in, 1)
	assert.Equal(t, []string{dropped}, paths)

	// The settle debounce collapses the write burst into one staging.
	time.Sleep(2 * settleDelay)
	assert.Len(t, in.staged(), 1)
}
