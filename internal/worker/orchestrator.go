package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyunseo/mediascan/internal/models"
	"github.com/hyunseo/mediascan/internal/store"
)

// ErrBatchRunning reports that a batch run is already in progress; only
// one run may be active at a time.
var ErrBatchRunning = errors.New("batch run already in progress")

// SettingsSource resolves the settings snapshot a batch run uses. It is
// consulted once per run, at start.
type SettingsSource interface {
	RunSettings() (RunSettings, error)
}

// Processor analyzes one record and returns the update to merge.
type Processor interface {
	Process(ctx context.Context, rec models.FileRecord, set RunSettings) models.AnalysisUpdate
}

// ExportResolver maps the configured save location to a writable
// directory before a run starts.
type ExportResolver interface {
	Resolve(location string) (string, error)
}

// Orchestrator drives batch runs: it walks the eligible records
// sequentially, delegates each to the analyzer and merges results back
// into the store. A stop request takes effect between records; the
// record in flight always completes.
type Orchestrator struct {
	store    *store.Store
	analyzer Processor
	settings SettingsSource
	exports  ExportResolver
	logger   *zap.Logger

	mu       sync.Mutex
	running  bool
	stop     bool
	progress models.ProgressState
	started  time.Time
}

// NewOrchestrator creates an orchestrator. exports may be nil when
// auto-export is never used.
func NewOrchestrator(st *store.Store, analyzer Processor, settings SettingsSource, exports ExportResolver, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:    st,
		analyzer: analyzer,
		settings: settings,
		exports:  exports,
		logger:   logger,
	}
}

// Start begins a batch run over every idle and errored record. With
// nothing eligible it resets progress and returns without starting a
// run. The run itself proceeds on a background goroutine.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrBatchRunning
	}

	eligible := o.store.Eligible()
	if len(eligible) == 0 {
		o.progress = models.ProgressState{}
		o.mu.Unlock()
		return nil
	}

	set, err := o.settings.RunSettings()
	if err != nil {
		o.mu.Unlock()
		return fmt.Errorf("failed to resolve run settings: %w", err)
	}

	// The save directory is resolved once, before any record is
	// touched; an unusable directory aborts the whole run.
	if set.Auto.ExportEnabled() && o.exports != nil {
		dir, err := o.exports.Resolve(set.Auto.SaveLocation)
		if err != nil {
			o.mu.Unlock()
			return fmt.Errorf("failed to resolve export directory: %w", err)
		}
		set.ExportDir = dir
	}

	o.running = true
	o.stop = false
	o.started = time.Now()
	o.progress = models.ProgressState{
		Total:   len(eligible),
		Elapsed: "00:00",
		Running: true,
	}
	o.mu.Unlock()

	o.logger.Info("Batch run started", zap.Int("total", len(eligible)))

	done := make(chan struct{})
	go o.tickElapsed(done)
	go func() {
		defer close(done)
		o.run(ctx, eligible, set)
	}()
	return nil
}

// Stop requests a cooperative stop. The record currently being analyzed
// finishes; records after it stay untouched.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		o.stop = true
		o.logger.Info("Batch stop requested")
	}
}

// Running reports whether a batch run is active.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Progress returns a snapshot of the current run state.
func (o *Orchestrator) Progress() models.ProgressState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

func (o *Orchestrator) run(ctx context.Context, eligible []models.FileRecord, set RunSettings) {
	completed := 0
	for _, rec := range eligible {
		o.mu.Lock()
		stopped := o.stop
		o.mu.Unlock()
		if stopped || ctx.Err() != nil {
			break
		}

		// Selection follows the record being processed.
		if err := o.store.Select(rec.ID); err != nil {
			// Deleted since the eligible snapshot was taken. It still
			// counts against the total so the run ends at 100%.
			o.logger.Debug("Skipping deleted record", zap.String("id", rec.ID))
			completed++
			o.advance(completed)
			continue
		}
		o.store.MarkProcessing(rec.ID)

		upd := o.analyzer.Process(ctx, rec, set)
		if !o.store.ApplyUpdate(rec.ID, upd) {
			o.logger.Debug("Dropping result for deleted record", zap.String("id", rec.ID))
		}

		completed++
		o.advance(completed)
	}

	o.mu.Lock()
	total := time.Since(o.started)
	o.progress.TotalDuration = formatDuration(total)
	o.progress.Running = false
	o.running = false
	o.stop = false
	o.mu.Unlock()

	o.logger.Info("Batch run finished",
		zap.Int("completed", completed),
		zap.Int("total", len(eligible)),
		zap.Duration("duration", total))
}

// advance moves the progress counters to n disposed records.
func (o *Orchestrator) advance(n int) {
	o.mu.Lock()
	o.progress.Current = n
	o.progress.Percentage = n * 100 / o.progress.Total
	o.mu.Unlock()
}

// tickElapsed updates the elapsed display once per second while the run
// is active.
func (o *Orchestrator) tickElapsed(done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			o.mu.Lock()
			o.progress.Elapsed = formatDuration(time.Since(o.started))
			o.mu.Unlock()
		}
	}
}

// formatDuration renders mm:ss.
func formatDuration(d time.Duration) string {
	sec := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}
