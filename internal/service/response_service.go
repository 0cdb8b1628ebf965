package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/opscheck/checklist-api/internal/models"
	appErrors "github.com/opscheck/checklist-api/pkg/errors"
)

type responseRepository interface {
	Upsert(ctx context.Context, resp *models.Response) error
	FindByRunAndItem(ctx context.Context, runID, itemID string) (*models.Response, error)
	ListByRun(ctx context.Context, runID string) ([]models.Response, error)
}

type responseRunReader interface {
	FindByID(ctx context.Context, id string) (*models.Run, error)
}

type responseItemReader interface {
	FindItemByID(ctx context.Context, id string) (*models.Item, string, error)
}

// UpsertResponseRequest carries one typed answer for an item within a run. The
// value wire shape depends on the item type: booleans or the literal
// "Yes"/"No" strings for yesno, booleans for checkbox, numbers for number,
// strings for text and select.
type UpsertResponseRequest struct {
	ItemID string          `json:"item_id" validate:"required"`
	Value  json.RawMessage `json:"value" validate:"required"`
}

// ResponseService records typed answers against in-progress runs. Each
// (run, item) pair holds at most one current value; rewrites overwrite under
// last-write-wins.
type ResponseService struct {
	responses responseRepository
	runs      responseRunReader
	items     responseItemReader
	cache     reviewCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResponseService creates a new response service.
func NewResponseService(
	responses responseRepository,
	runs responseRunReader,
	items responseItemReader,
	cache reviewCacheInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *ResponseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseService{
		responses: responses,
		runs:      runs,
		items:     items,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// Upsert records the current value for an item within a run. Runs accept
// writes only while in progress; the item must belong to the run's template.
func (s *ResponseService) Upsert(ctx context.Context, runID string, req UpsertResponseRequest) (*models.Response, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid response payload")
	}

	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load run")
	}
	if run.Status != models.RunInProgress {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("run is %s, responses require an in-progress run", run.Status))
	}

	item, templateID, err := s.items.FindItemByID(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
	}
	if templateID != run.TemplateID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "item does not belong to the run's template")
	}

	resp := &models.Response{RunID: runID, ItemID: item.ID}
	if err := encodeValue(resp, item.Type, req.Value); err != nil {
		return nil, err
	}

	if err := s.responses.Upsert(ctx, resp); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record response")
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, reviewCachePattern); err != nil {
			s.logger.Warn("failed to invalidate review cache", zap.Error(err))
		}
	}
	return resp, nil
}

// ListByRun returns the current responses for a run.
func (s *ResponseService) ListByRun(ctx context.Context, runID string) ([]models.Response, error) {
	if _, err := s.runs.FindByID(ctx, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load run")
	}

	responses, err := s.responses.ListByRun(ctx, runID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list responses")
	}
	return responses, nil
}

// encodeValue writes the wire value into exactly one storage slot according to
// the item type. Select values are stored verbatim without checking the
// configured option list.
func encodeValue(resp *models.Response, itemType models.ItemType, raw json.RawMessage) error {
	switch itemType {
	case models.ItemTypeYesNo:
		text, err := decodeYesNo(raw)
		if err != nil {
			return err
		}
		resp.ValueText = &text
	case models.ItemTypeNumber:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "number value must be numeric")
		}
		resp.ValueNumber = &v
	case models.ItemTypeText:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "text value must be a string")
		}
		resp.ValueText = &v
	case models.ItemTypeSelect:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "select value must be a string")
		}
		resp.ValueText = &v
	case models.ItemTypeCheckbox:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "checkbox value must be a boolean")
		}
		payload, err := json.Marshal(models.CheckboxValue{Checked: v})
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode checkbox value")
		}
		resp.ValueJSON = types.JSONText(payload)
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown item type")
	}
	return nil
}

// decodeYesNo normalizes a yesno wire value to the stored "Yes"/"No" strings.
// Both the boolean form and the literal strings are accepted.
func decodeYesNo(raw json.RawMessage) (string, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return "Yes", nil
		}
		return "No", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "Yes", "No":
			return s, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrValidation, `yesno value must be a boolean or "Yes"/"No"`)
}
