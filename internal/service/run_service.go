package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opscheck/checklist-api/internal/models"
	appErrors "github.com/opscheck/checklist-api/pkg/errors"
)

const reviewCachePattern = "review:*"

type runRepository interface {
	List(ctx context.Context, filter models.RunFilter) ([]models.Run, int, error)
	FindByID(ctx context.Context, id string) (*models.Run, error)
	Create(ctx context.Context, run *models.Run) error
	TransitionStatus(ctx context.Context, id string, from, to models.RunStatus, completedAt *time.Time) (bool, error)
	ClearCompletedAt(ctx context.Context, id string) error
}

type runTemplateReader interface {
	FindByID(ctx context.Context, id string) (*models.Template, error)
}

type runAuditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type roleResolver interface {
	ResolveRoleByUserID(ctx context.Context, userID string) (models.UserRole, error)
}

type reviewCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// StartRunRequest captures fields for starting a run.
type StartRunRequest struct {
	TemplateID string  `json:"template_id" validate:"required"`
	EmployeeID *string `json:"employee_id,omitempty"`
}

// RunService owns the run lifecycle: start, submit, approve and reopen.
// Privileged transitions re-resolve the caller's role against the system of
// record instead of trusting token claims.
type RunService struct {
	runs      runRepository
	templates runTemplateReader
	audits    runAuditRecorder
	roles     roleResolver
	cache     reviewCacheInvalidator
	notifier  Notifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRunService creates a new run service.
func NewRunService(
	runs runRepository,
	templates runTemplateReader,
	audits runAuditRecorder,
	roles roleResolver,
	cache reviewCacheInvalidator,
	notifier Notifier,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *RunService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunService{
		runs:      runs,
		templates: templates,
		audits:    audits,
		roles:     roles,
		cache:     cache,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns runs matching the filter with pagination metadata.
func (s *RunService) List(ctx context.Context, filter models.RunFilter) ([]models.Run, *models.Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown run status")
	}

	runs, total, err := s.runs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list runs")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return runs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a run by id.
func (s *RunService) Get(ctx context.Context, id string) (*models.Run, error) {
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load run")
	}
	return run, nil
}

// Start opens a new in-progress run against an active template, recording the
// template version in effect at start time.
func (s *RunService) Start(ctx context.Context, req StartRunRequest) (*models.Run, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid run payload")
	}

	template, err := s.templates.FindByID(ctx, req.TemplateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	// Inactive templates are indistinguishable from missing ones here: retired
	// checklists disappear from the employee surface rather than conflicting.
	if !template.IsActive {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
	}

	run := &models.Run{
		TemplateID:          template.ID,
		TemplateVersion:     template.Version,
		Status:              models.RunInProgress,
		CreatedByEmployeeID: req.EmployeeID,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create run")
	}

	s.metrics.RecordRunTransition(models.RunInProgress)
	return run, nil
}

// Submit moves an in-progress run to submitted and stamps completion.
// Responses left unanswered do not block submission.
func (s *RunService) Submit(ctx context.Context, runID string) (*models.Run, error) {
	now := time.Now().UTC()
	run, err := s.transition(ctx, runID, models.RunInProgress, models.RunSubmitted, &now)
	if err != nil {
		return nil, err
	}

	s.invalidateReviewCache(ctx)
	s.notifier.RunEvent(run.ID, "submitted")
	return run, nil
}

// Approve moves a submitted run to approved. Only admins and managers may
// approve; the caller's role is re-resolved from storage before the check.
func (s *RunService) Approve(ctx context.Context, actorUserID, runID string) (*models.Run, error) {
	if err := s.requirePrivileged(ctx, actorUserID); err != nil {
		return nil, err
	}

	run, err := s.transition(ctx, runID, models.RunSubmitted, models.RunApproved, nil)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actorUserID, models.AuditActionApproveRun, runID, `{"status":"approved"}`)
	s.invalidateReviewCache(ctx)
	s.notifier.RunEvent(run.ID, "approved")
	return run, nil
}

// Reopen moves an approved run back to in progress, the only backward edge in
// the lifecycle. The completion timestamp is cleared.
func (s *RunService) Reopen(ctx context.Context, actorUserID, runID string) (*models.Run, error) {
	if err := s.requirePrivileged(ctx, actorUserID); err != nil {
		return nil, err
	}

	run, err := s.transition(ctx, runID, models.RunApproved, models.RunInProgress, nil)
	if err != nil {
		return nil, err
	}

	if err := s.runs.ClearCompletedAt(ctx, runID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reopen run")
	}
	run.CompletedAt = nil

	s.recordAudit(ctx, actorUserID, models.AuditActionReopenRun, runID, `{"status":"in_progress"}`)
	s.invalidateReviewCache(ctx)
	return run, nil
}

// transition applies a conditional status update. A miss means either the run
// does not exist or it was not in the expected state; the refetch decides
// which error to surface.
func (s *RunService) transition(ctx context.Context, runID string, from, to models.RunStatus, completedAt *time.Time) (*models.Run, error) {
	ok, err := s.runs.TransitionStatus(ctx, runID, from, to, completedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition run")
	}
	if !ok {
		run, err := s.runs.FindByID(ctx, runID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load run")
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("run is %s, expected %s", run.Status, from))
	}

	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load run")
	}

	s.metrics.RecordRunTransition(to)
	return run, nil
}

func (s *RunService) requirePrivileged(ctx context.Context, actorUserID string) error {
	if actorUserID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	role, err := s.roles.ResolveRoleByUserID(ctx, actorUserID)
	if err != nil {
		return err
	}
	if !role.Privileged() {
		return appErrors.Clone(appErrors.ErrForbidden, "admin or manager role required")
	}
	return nil
}

func (s *RunService) recordAudit(ctx context.Context, actorUserID, action, runID, newValues string) {
	if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorUserID,
		Action:     action,
		Resource:   "runs",
		ResourceID: &runID,
		NewValues:  []byte(newValues),
	}); err != nil {
		s.logger.Warn("failed to record run audit log", zap.String("run_id", runID), zap.Error(err))
	}
}

func (s *RunService) invalidateReviewCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, reviewCachePattern); err != nil {
		s.logger.Warn("failed to invalidate review cache", zap.Error(err))
	}
}
