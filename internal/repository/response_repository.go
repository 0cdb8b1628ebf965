package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opscheck/checklist-api/internal/models"
)

// ResponseRepository handles persistence for typed run responses.
type ResponseRepository struct {
	db *sqlx.DB
}

// NewResponseRepository creates a new repository instance.
func NewResponseRepository(db *sqlx.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// Upsert writes the current value for (run_id, item_id), overwriting any prior
// value. All three value slots are written on conflict so exactly one stays
// populated. Last write wins; the unique index provides the row atomicity.
func (r *ResponseRepository) Upsert(ctx context.Context, resp *models.Response) error {
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = now
	}
	resp.UpdatedAt = now

	const query = `INSERT INTO responses (id, run_id, item_id, value_text, value_number, value_json, created_at, updated_at)
		VALUES (:id, :run_id, :item_id, :value_text, :value_number, :value_json, :created_at, :updated_at)
		ON CONFLICT (run_id, item_id) DO UPDATE SET
			value_text = EXCLUDED.value_text,
			value_number = EXCLUDED.value_number,
			value_json = EXCLUDED.value_json,
			updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, resp); err != nil {
		return fmt.Errorf("upsert response: %w", err)
	}
	return nil
}

// FindByRunAndItem returns the current value for an item within a run.
func (r *ResponseRepository) FindByRunAndItem(ctx context.Context, runID, itemID string) (*models.Response, error) {
	const query = `SELECT id, run_id, item_id, value_text, value_number, value_json, created_at, updated_at FROM responses WHERE run_id = $1 AND item_id = $2`
	var resp models.Response
	if err := r.db.GetContext(ctx, &resp, query, runID, itemID); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListByRun returns all current responses for a run.
func (r *ResponseRepository) ListByRun(ctx context.Context, runID string) ([]models.Response, error) {
	const query = `SELECT id, run_id, item_id, value_text, value_number, value_json, created_at, updated_at FROM responses WHERE run_id = $1 ORDER BY created_at ASC`
	var responses []models.Response
	if err := r.db.SelectContext(ctx, &responses, query, runID); err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return responses, nil
}

// ListReviewRows returns responses for the given runs joined to their items,
// sections, runs and templates. Sections join LEFT so orphaned items still
// surface; grouping and ordering happen in the review service.
func (r *ResponseRepository) ListReviewRows(ctx context.Context, runIDs []string) ([]models.ReviewRow, error) {
	if len(runIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT
			resp.id AS response_id,
			resp.run_id,
			ru.status AS run_status,
			ru.created_at AS run_created_at,
			t.name AS template_name,
			s.id AS section_id,
			s.name AS section_name,
			s.sort_order AS section_sort_order,
			i.id AS item_id,
			i.prompt AS item_prompt,
			i.type AS item_type,
			i.sort_order AS item_sort_order,
			resp.value_text,
			resp.value_number,
			resp.value_json,
			resp.created_at AS response_created_at
		FROM responses resp
		JOIN runs ru ON ru.id = resp.run_id
		JOIN templates t ON t.id = ru.template_id
		JOIN items i ON i.id = resp.item_id
		LEFT JOIN sections s ON s.id = i.section_id
		WHERE resp.run_id IN (?)`, runIDs)
	if err != nil {
		return nil, fmt.Errorf("build review query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []models.ReviewRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list review rows: %w", err)
	}
	return rows, nil
}
