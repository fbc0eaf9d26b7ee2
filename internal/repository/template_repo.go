package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hyunseo/mediascan/internal/models"
	"go.uber.org/zap"
)

// TemplateRepository persists saved prompt templates.
type TemplateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *sql.DB, logger *zap.Logger) *TemplateRepository {
	return &TemplateRepository{
		db:     db,
		logger: logger,
	}
}

// Create saves a new template and fills in its generated ID.
func (r *TemplateRepository) Create(tmpl *models.PromptTemplate) error {
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}

	query := `
		INSERT INTO prompt_templates (id, category, label, content)
		VALUES (?, ?, ?, ?)
	`
	if _, err := r.db.Exec(query, tmpl.ID, tmpl.Category, tmpl.Label, tmpl.Content); err != nil {
		r.logger.Error("Failed to create template", zap.Error(err))
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// ListByCategory retrieves templates for one instruction category, newest
// first.
func (r *TemplateRepository) ListByCategory(category string) ([]*models.PromptTemplate, error) {
	query := `
		SELECT id, category, label, content, created_at
		FROM prompt_templates
		WHERE category = ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query, category)
	if err != nil {
		r.logger.Error("Failed to list templates", zap.String("category", category), zap.Error(err))
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	return scanTemplates(rows)
}

// List retrieves every saved template, newest first.
func (r *TemplateRepository) List() ([]*models.PromptTemplate, error) {
	query := `
		SELECT id, category, label, content, created_at
		FROM prompt_templates
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	return scanTemplates(rows)
}

func scanTemplates(rows *sql.Rows) ([]*models.PromptTemplate, error) {
	var templates []*models.PromptTemplate
	for rows.Next() {
		var tmpl models.PromptTemplate
		err := rows.Scan(
			&tmpl.ID,
			&tmpl.Category,
			&tmpl.Label,
			&tmpl.Content,
			&tmpl.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, &tmpl)
	}
	return templates, rows.Err()
}

// Delete removes a template by ID.
func (r *TemplateRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM prompt_templates WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete template", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete template: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("template not found: %s", id)
	}
	return nil
}
