package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// UsageRepository tracks the daily AI request counter. The counter is
// keyed by calendar date, so a new day starts from zero without any
// explicit reset step.
type UsageRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db *sql.DB, logger *zap.Logger) *UsageRepository {
	return &UsageRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func (r *UsageRepository) today() string {
	return r.now().Format("2006-01-02")
}

// Increment bumps today's counter and returns the new value.
func (r *UsageRepository) Increment() (int, error) {
	day := r.today()
	query := `
		INSERT INTO usage_counter (day, count) VALUES (?, 1)
		ON CONFLICT(day) DO UPDATE SET count = count + 1
	`
	if _, err := r.db.Exec(query, day); err != nil {
		r.logger.Error("Failed to increment usage counter", zap.Error(err))
		return 0, fmt.Errorf("failed to increment usage: %w", err)
	}

	var count int
	if err := r.db.QueryRow("SELECT count FROM usage_counter WHERE day = ?", day).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to read usage: %w", err)
	}
	return count, nil
}

// Today returns today's counter without incrementing it.
func (r *UsageRepository) Today() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT count FROM usage_counter WHERE day = ?", r.today()).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read usage: %w", err)
	}
	return count, nil
}

// Prune removes counters older than the retention window.
func (r *UsageRepository) Prune(keepDays int) error {
	cutoff := r.now().AddDate(0, 0, -keepDays).Format("2006-01-02")
	if _, err := r.db.Exec("DELETE FROM usage_counter WHERE day < ?", cutoff); err != nil {
		return fmt.Errorf("failed to prune usage counters: %w", err)
	}
	return nil
}
