package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/opscheck/checklist-api/internal/models"
	appErrors "github.com/opscheck/checklist-api/pkg/errors"
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

type employeeRepository interface {
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error)
	FindByID(ctx context.Context, id string) (*models.Employee, error)
	FindByCode(ctx context.Context, code string) (*models.Employee, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, employee *models.Employee) error
	Update(ctx context.Context, employee *models.Employee) error
	UpdatePINHash(ctx context.Context, id, pinHash string) error
	CreateSession(ctx context.Context, session *models.EmployeeSession) error
	FindSession(ctx context.Context, token string) (*models.EmployeeSession, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context) error
}

// CreateEmployeeRequest captures fields for registering an employee. Codes are
// stored uppercase and must be unique; the PIN is exactly four digits.
type CreateEmployeeRequest struct {
	Code       string  `json:"code" validate:"required"`
	FullName   string  `json:"full_name" validate:"required"`
	Department *string `json:"department,omitempty"`
	PIN        string  `json:"pin" validate:"required"`
}

// UpdateEmployeeRequest modifies profile fields.
type UpdateEmployeeRequest struct {
	FullName   *string `json:"full_name,omitempty"`
	Department *string `json:"department,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

// EmployeeService manages field workers and their PIN-pad sessions.
type EmployeeService struct {
	repo       employeeRepository
	validator  *validator.Validate
	logger     *zap.Logger
	sessionTTL time.Duration
}

// NewEmployeeService creates a new employee service.
func NewEmployeeService(repo employeeRepository, validate *validator.Validate, logger *zap.Logger, sessionTTL time.Duration) *EmployeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessionTTL <= 0 {
		sessionTTL = 12 * time.Hour
	}
	return &EmployeeService{repo: repo, validator: validate, logger: logger, sessionTTL: sessionTTL}
}

// List returns employees matching the filter.
func (s *EmployeeService) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, *models.Pagination, error) {
	employees, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list employees")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return employees, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns an employee by id.
func (s *EmployeeService) Get(ctx context.Context, id string) (*models.Employee, error) {
	employee, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	return employee, nil
}

// Create registers an employee with a hashed PIN.
func (s *EmployeeService) Create(ctx context.Context, req CreateEmployeeRequest) (*models.Employee, error) {
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid employee payload")
	}
	if !pinPattern.MatchString(req.PIN) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pin must be exactly four digits")
	}

	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check employee code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "employee code already in use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash pin")
	}

	employee := &models.Employee{
		Code:       req.Code,
		FullName:   req.FullName,
		Department: req.Department,
		Active:     true,
		PINHash:    string(hash),
	}
	if err := s.repo.Create(ctx, employee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create employee")
	}
	return employee, nil
}

// Update modifies an employee's profile fields.
func (s *EmployeeService) Update(ctx context.Context, id string, req UpdateEmployeeRequest) (*models.Employee, error) {
	employee, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "full name must not be empty")
		}
		employee.FullName = name
	}
	if req.Department != nil {
		employee.Department = req.Department
	}
	if req.Active != nil {
		employee.Active = *req.Active
	}

	if err := s.repo.Update(ctx, employee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update employee")
	}
	return employee, nil
}

// ResetPIN replaces an employee's PIN.
func (s *EmployeeService) ResetPIN(ctx context.Context, id, pin string) error {
	if !pinPattern.MatchString(pin) {
		return appErrors.Clone(appErrors.ErrValidation, "pin must be exactly four digits")
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash pin")
	}
	if err := s.repo.UpdatePINHash(ctx, id, string(hash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset pin")
	}
	return nil
}

// Login verifies a code/PIN pair and opens an opaque session. Unknown codes,
// bad PINs and inactive employees all surface the same credential error.
func (s *EmployeeService) Login(ctx context.Context, req models.EmployeeLoginRequest) (*models.EmployeeSession, *models.Employee, error) {
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	employee, err := s.repo.FindByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid code or pin")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch employee")
	}
	if !employee.Active {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid code or pin")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(employee.PINHash), []byte(req.PIN)); err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid code or pin")
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session token")
	}

	session := &models.EmployeeSession{
		Token:      token,
		EmployeeID: employee.ID,
		ExpiresAt:  time.Now().UTC().Add(s.sessionTTL),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	if err := s.repo.DeleteExpiredSessions(ctx); err != nil {
		s.logger.Warn("failed to sweep expired sessions", zap.Error(err))
	}

	return session, employee, nil
}

// WhoAmI resolves a session token to its employee. Expired and unknown tokens
// both read as unauthorized.
func (s *EmployeeService) WhoAmI(ctx context.Context, token string) (*models.Employee, error) {
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing session")
	}

	session, err := s.repo.FindSession(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if time.Now().UTC().After(session.ExpiresAt) {
		if err := s.repo.DeleteSession(ctx, token); err != nil {
			s.logger.Warn("failed to delete expired session", zap.Error(err))
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session expired")
	}

	employee, err := s.repo.FindByID(ctx, session.EmployeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	if !employee.Active {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session")
	}
	return employee, nil
}

// Logout discards a session token. Unknown tokens are a no-op.
func (s *EmployeeService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.DeleteSession(ctx, token); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	return nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
