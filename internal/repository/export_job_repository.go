package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opscheck/checklist-api/internal/models"
)

// ExportJobRepository handles persistence for asynchronous export jobs.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository creates a new repository instance.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create persists a new export job in pending state.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = models.ExportPending
	}

	const query = `INSERT INTO export_jobs (id, format, status, run_id, template_id, run_status, from_date, to_date, file_path, error_message, requested_by, created_at, updated_at, completed_at)
		VALUES (:id, :format, :status, :run_id, :template_id, :run_status, :from_date, :to_date, :file_path, :error_message, :requested_by, :created_at, :updated_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// FindByID returns an export job by id.
func (r *ExportJobRepository) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT id, format, status, run_id, template_id, run_status, from_date, to_date, file_path, error_message, requested_by, created_at, updated_at, completed_at FROM export_jobs WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkProcessing flips a pending job to processing.
func (r *ExportJobRepository) MarkProcessing(ctx context.Context, id string) error {
	const query = `UPDATE export_jobs SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, models.ExportProcessing, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark export processing: %w", err)
	}
	return nil
}

// MarkCompleted records the rendered file path and completion time.
func (r *ExportJobRepository) MarkCompleted(ctx context.Context, id, filePath string) error {
	now := time.Now().UTC()
	const query = `UPDATE export_jobs SET status = $1, file_path = $2, error_message = NULL, updated_at = $3, completed_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, models.ExportCompleted, filePath, now, id); err != nil {
		return fmt.Errorf("mark export completed: %w", err)
	}
	return nil
}

// MarkFailed records the failure reason.
func (r *ExportJobRepository) MarkFailed(ctx context.Context, id, message string) error {
	const query = `UPDATE export_jobs SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, models.ExportFailed, message, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark export failed: %w", err)
	}
	return nil
}

// DeleteOlderThan removes jobs created before the cutoff and returns their
// file paths for storage cleanup.
func (r *ExportJobRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	var paths []string
	if err := r.db.SelectContext(ctx, &paths, `SELECT file_path FROM export_jobs WHERE created_at < $1 AND file_path IS NOT NULL`, cutoff); err != nil {
		return nil, fmt.Errorf("list stale export files: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM export_jobs WHERE created_at < $1`, cutoff); err != nil {
		return nil, fmt.Errorf("delete stale export jobs: %w", err)
	}
	return paths, nil
}
