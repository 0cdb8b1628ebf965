package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/opscheck/checklist-api/internal/models"
	appErrors "github.com/opscheck/checklist-api/pkg/errors"
)

type templateRepository interface {
	List(ctx context.Context, filter models.TemplateFilter) ([]models.Template, int, error)
	FindByID(ctx context.Context, id string) (*models.Template, error)
	Create(ctx context.Context, template *models.Template) error
	Update(ctx context.Context, template *models.Template) error
	Delete(ctx context.Context, id string) error
	CountRuns(ctx context.Context, templateID string) (int, error)
	ListSections(ctx context.Context, templateID string) ([]models.Section, error)
	FindSectionByID(ctx context.Context, id string) (*models.Section, error)
	CreateSection(ctx context.Context, section *models.Section) error
	DeleteSection(ctx context.Context, id string) error
	CreateItem(ctx context.Context, item *models.Item) error
	FindItemByID(ctx context.Context, id string) (*models.Item, string, error)
	DeleteItem(ctx context.Context, id string) error
	Detail(ctx context.Context, templateID string) (*models.TemplateDetail, error)
}

// CreateTemplateRequest captures fields for creating templates.
type CreateTemplateRequest struct {
	Name      string  `json:"name" validate:"required"`
	IsActive  bool    `json:"is_active"`
	Frequency *string `json:"frequency,omitempty"`
}

// UpdateTemplateRequest renames or toggles a template.
type UpdateTemplateRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// AddSectionRequest captures fields for adding a section.
type AddSectionRequest struct {
	Name      string `json:"name" validate:"required"`
	SortOrder int    `json:"sort_order"`
}

// AddItemRequest captures fields for adding an item.
type AddItemRequest struct {
	Prompt    string          `json:"prompt" validate:"required"`
	Type      models.ItemType `json:"type" validate:"required"`
	Required  bool            `json:"required"`
	SortOrder int             `json:"sort_order"`
	Config    json.RawMessage `json:"config,omitempty"`
}

// TemplateService owns the checklist template catalog.
type TemplateService struct {
	repo      templateRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTemplateService creates a new template service.
func NewTemplateService(repo templateRepository, validate *validator.Validate, logger *zap.Logger) *TemplateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated templates.
func (s *TemplateService) List(ctx context.Context, filter models.TemplateFilter) ([]models.Template, *models.Pagination, error) {
	templates, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list templates")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return templates, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a template with its ordered sections and items.
func (s *TemplateService) Get(ctx context.Context, id string) (*models.TemplateDetail, error) {
	detail, err := s.repo.Detail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	return detail, nil
}

// Create adds a new template.
func (s *TemplateService) Create(ctx context.Context, req CreateTemplateRequest) (*models.Template, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}

	var frequency *models.TemplateFrequency
	if req.Frequency != nil {
		f := models.TemplateFrequency(strings.ToLower(strings.TrimSpace(*req.Frequency)))
		if !f.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid frequency")
		}
		frequency = &f
	}

	template := &models.Template{
		Name:      req.Name,
		IsActive:  req.IsActive,
		Frequency: frequency,
	}

	if err := s.repo.Create(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create template")
	}
	return template, nil
}

// Update renames a template and/or toggles its active flag.
func (s *TemplateService) Update(ctx context.Context, id string, req UpdateTemplateRequest) (*models.Template, error) {
	template, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "template name must not be empty")
		}
		template.Name = name
	}
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update template")
	}
	return template, nil
}

// Delete removes a template and cascades its sections and items. Templates
// referenced by runs are never deleted; deactivate instead.
func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}

	count, err := s.repo.CountRuns(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check template runs")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "template has recorded runs; deactivate it instead")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete template")
	}
	return nil
}

// AddSection appends a section to a template.
func (s *TemplateService) AddSection(ctx context.Context, templateID string, req AddSectionRequest) (*models.Section, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	if _, err := s.repo.FindByID(ctx, templateID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}

	section := &models.Section{
		TemplateID: templateID,
		Name:       req.Name,
		SortOrder:  req.SortOrder,
	}
	if err := s.repo.CreateSection(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	return section, nil
}

// DeleteSection removes a section and its items.
func (s *TemplateService) DeleteSection(ctx context.Context, sectionID string) error {
	if _, err := s.repo.FindSectionByID(ctx, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	if err := s.repo.DeleteSection(ctx, sectionID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
	}
	return nil
}

// AddItem appends a typed item to a section. Config must be well-formed JSON;
// for select items it must carry an options array of strings. Validation
// happens before anything is persisted.
func (s *TemplateService) AddItem(ctx context.Context, sectionID string, req AddItemRequest) (*models.Item, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid item payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown item type")
	}

	config, err := normalizeItemConfig(req.Type, req.Config)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindSectionByID(ctx, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	item := &models.Item{
		SectionID: sectionID,
		Prompt:    req.Prompt,
		Type:      req.Type,
		Required:  req.Required,
		SortOrder: req.SortOrder,
		Config:    types.JSONText(config),
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create item")
	}
	return item, nil
}

// DeleteItem removes an item.
func (s *TemplateService) DeleteItem(ctx context.Context, itemID string) error {
	if _, _, err := s.repo.FindItemByID(ctx, itemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}

	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete item")
	}
	return nil
}

func normalizeItemConfig(itemType models.ItemType, raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "config must be a valid JSON object")
	}

	if itemType == models.ItemTypeSelect {
		var cfg models.SelectConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "select config must carry an options array of strings")
		}
		if len(cfg.Options) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "select config requires at least one option")
		}
	}

	return raw, nil
}
