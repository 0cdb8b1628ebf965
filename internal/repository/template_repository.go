package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opscheck/checklist-api/internal/models"
)

// TemplateRepository handles persistence for templates, sections and items.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository creates a new repository instance.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// List returns templates matching filters with pagination metadata.
func (r *TemplateRepository) List(ctx context.Context, filter models.TemplateFilter) ([]models.Template, int, error) {
	base := "FROM templates WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
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

	query := fmt.Sprintf("SELECT id, name, is_active, frequency, version, created_at, updated_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, size, offset)
	var templates []models.Template
	if err := r.db.SelectContext(ctx, &templates, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list templates: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count templates: %w", err)
	}

	return templates, total, nil
}

// FindByID returns a template by id.
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*models.Template, error) {
	const query = `SELECT id, name, is_active, frequency, version, created_at, updated_at FROM templates WHERE id = $1`
	var template models.Template
	if err := r.db.GetContext(ctx, &template, query, id); err != nil {
		return nil, err
	}
	return &template, nil
}

// FindActiveByID returns a template only when it exists and is active.
func (r *TemplateRepository) FindActiveByID(ctx context.Context, id string) (*models.Template, error) {
	const query = `SELECT id, name, is_active, frequency, version, created_at, updated_at FROM templates WHERE id = $1 AND is_active = TRUE`
	var template models.Template
	if err := r.db.GetContext(ctx, &template, query, id); err != nil {
		return nil, err
	}
	return &template, nil
}

// Create persists a new template.
func (r *TemplateRepository) Create(ctx context.Context, template *models.Template) error {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}
	template.UpdatedAt = now
	if template.Version == 0 {
		template.Version = 1
	}

	const query = `INSERT INTO templates (id, name, is_active, frequency, version, created_at, updated_at) VALUES (:id, :name, :is_active, :frequency, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// Update modifies a template's mutable fields.
func (r *TemplateRepository) Update(ctx context.Context, template *models.Template) error {
	template.UpdatedAt = time.Now().UTC()
	const query = `UPDATE templates SET name = :name, is_active = :is_active, frequency = :frequency, version = :version, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}

// Delete removes a template and cascades to its sections and items in one
// transaction. Callers must check for referencing runs first.
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete template: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE section_id IN (SELECT id FROM sections WHERE template_id = $1)`, id); err != nil {
		return fmt.Errorf("delete template items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE template_id = $1`, id); err != nil {
		return fmt.Errorf("delete template sections: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM templates WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete template: %w", err)
	}
	return nil
}

// CountRuns returns the number of runs referencing the template.
func (r *TemplateRepository) CountRuns(ctx context.Context, templateID string) (int, error) {
	const query = `SELECT COUNT(*) FROM runs WHERE template_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, templateID); err != nil {
		return 0, fmt.Errorf("count template runs: %w", err)
	}
	return count, nil
}

// ListSections returns a template's sections ordered by sort_order with
// creation time as the stable tie breaker.
func (r *TemplateRepository) ListSections(ctx context.Context, templateID string) ([]models.Section, error) {
	const query = `SELECT id, template_id, name, sort_order, created_at FROM sections WHERE template_id = $1 ORDER BY sort_order ASC, created_at ASC`
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, templateID); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// FindSectionByID returns a section by id.
func (r *TemplateRepository) FindSectionByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, template_id, name, sort_order, created_at FROM sections WHERE id = $1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// CreateSection persists a new section.
func (r *TemplateRepository) CreateSection(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	if section.CreatedAt.IsZero() {
		section.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO sections (id, template_id, name, sort_order, created_at) VALUES (:id, :template_id, :name, :sort_order, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// DeleteSection removes a section and its items in one transaction.
func (r *TemplateRepository) DeleteSection(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete section: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE section_id = $1`, id); err != nil {
		return fmt.Errorf("delete section items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete section: %w", err)
	}
	return nil
}

// ListItemsBySection returns a section's items in display order.
func (r *TemplateRepository) ListItemsBySection(ctx context.Context, sectionID string) ([]models.Item, error) {
	const query = `SELECT id, section_id, prompt, type, required, sort_order, config, created_at FROM items WHERE section_id = $1 ORDER BY sort_order ASC, created_at ASC`
	var items []models.Item
	if err := r.db.SelectContext(ctx, &items, query, sectionID); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// FindItemByID returns an item together with its owning template id.
func (r *TemplateRepository) FindItemByID(ctx context.Context, id string) (*models.Item, string, error) {
	const query = `SELECT i.id, i.section_id, i.prompt, i.type, i.required, i.sort_order, i.config, i.created_at, s.template_id
		FROM items i JOIN sections s ON s.id = i.section_id WHERE i.id = $1`
	row := struct {
		models.Item
		TemplateID string `db:"template_id"`
	}{}
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, "", err
	}
	return &row.Item, row.TemplateID, nil
}

// CreateItem persists a new item.
func (r *TemplateRepository) CreateItem(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if len(item.Config) == 0 {
		item.Config = []byte("{}")
	}

	const query = `INSERT INTO items (id, section_id, prompt, type, required, sort_order, config, created_at) VALUES (:id, :section_id, :prompt, :type, :required, :sort_order, :config, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// DeleteItem removes an item record.
func (r *TemplateRepository) DeleteItem(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// Detail loads a template with its ordered sections and items.
func (r *TemplateRepository) Detail(ctx context.Context, templateID string) (*models.TemplateDetail, error) {
	template, err := r.FindByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	sections, err := r.ListSections(ctx, templateID)
	if err != nil {
		return nil, err
	}

	detail := &models.TemplateDetail{Template: *template, Sections: make([]models.SectionWithItems, 0, len(sections))}
	if len(sections) == 0 {
		return detail, nil
	}

	sectionIDs := make([]string, len(sections))
	for i, s := range sections {
		sectionIDs[i] = s.ID
	}

	query, args, err := sqlx.In(`SELECT id, section_id, prompt, type, required, sort_order, config, created_at FROM items WHERE section_id IN (?) ORDER BY sort_order ASC, created_at ASC`, sectionIDs)
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}
	query = r.db.Rebind(query)

	var items []models.Item
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("list template items: %w", err)
	}

	bySection := make(map[string][]models.Item, len(sections))
	for _, item := range items {
		bySection[item.SectionID] = append(bySection[item.SectionID], item)
	}
	for _, section := range sections {
		detail.Sections = append(detail.Sections, models.SectionWithItems{Section: section, Items: bySection[section.ID]})
	}
	return detail, nil
}
