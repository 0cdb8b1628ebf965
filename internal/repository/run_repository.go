package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opscheck/checklist-api/internal/models"
)

// RunRepository handles persistence for checklist runs.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new repository instance.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// List returns runs matching filters, most recent first, with pagination
// metadata. Date bounds are inclusive on both ends.
func (r *RunRepository) List(ctx context.Context, filter models.RunFilter) ([]models.Run, int, error) {
	base := "FROM runs WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.TemplateID != "" {
		conditions = append(conditions, fmt.Sprintf("template_id = $%d", len(args)+1))
		args = append(args, filter.TemplateID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, template_id, template_version, status, created_at, started_at, completed_at, created_by_employee_id %s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, size, offset)
	var runs []models.Run
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	return runs, total, nil
}

// FindByID returns a run by id.
func (r *RunRepository) FindByID(ctx context.Context, id string) (*models.Run, error) {
	const query = `SELECT id, template_id, template_version, status, created_at, started_at, completed_at, created_by_employee_id FROM runs WHERE id = $1`
	var run models.Run
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// Create persists a new run.
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	if run.Status == "" {
		run.Status = models.RunInProgress
	}

	const query = `INSERT INTO runs (id, template_id, template_version, status, created_at, started_at, completed_at, created_by_employee_id) VALUES (:id, :template_id, :template_version, :status, :created_at, :started_at, :completed_at, :created_by_employee_id)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// TransitionStatus moves a run between states with a conditional update so
// concurrent transitions cannot clobber each other. It reports whether the
// run was in the expected state.
func (r *RunRepository) TransitionStatus(ctx context.Context, id string, from, to models.RunStatus, completedAt *time.Time) (bool, error) {
	const query = `UPDATE runs SET status = $1, completed_at = COALESCE($2, completed_at) WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, to, completedAt, id, from)
	if err != nil {
		return false, fmt.Errorf("transition run %s -> %s: %w", from, to, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition run rows affected: %w", err)
	}
	return affected == 1, nil
}

// ClearCompletedAt resets the completion timestamp, used when reopening.
func (r *RunRepository) ClearCompletedAt(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE runs SET completed_at = NULL WHERE id = $1`, id); err != nil {
		return fmt.Errorf("clear run completed_at: %w", err)
	}
	return nil
}
