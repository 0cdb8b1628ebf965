package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/opscheck/checklist-api/internal/models"
	appErrors "github.com/opscheck/checklist-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	UpdateRole(ctx context.Context, userID string, role models.UserRole) error
	RoleSourceByUserID(ctx context.Context, userID string) (models.RoleSource, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateUserRequest captures fields for provisioning a console account.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role" validate:"required"`
}

// CreateUserResult is the minimal acknowledgement returned on success.
type CreateUserResult struct {
	OK     bool   `json:"ok"`
	UserID string `json:"userId"`
}

// UserService provisions console accounts and manages role assignments. Every
// mutation re-resolves the caller's role from storage; the role claim carried
// in the token is never trusted for these operations.
type UserService struct {
	repo      userRepository
	roles     roleResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates a new user service.
func NewUserService(repo userRepository, roles roleResolver, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, roles: roles, validator: validate, logger: logger}
}

// List returns console users matching the filter.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create provisions a new console account. Admins and managers may create
// accounts; the actor's role is re-resolved against the system of record first.
func (s *UserService) Create(ctx context.Context, actorUserID string, req CreateUserRequest) (*CreateUserResult, error) {
	if err := s.requirePrivileged(ctx, actorUserID); err != nil {
		return nil, err
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	role := models.UserRole(strings.ToLower(strings.TrimSpace(req.Role)))
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Active:       true,
	}
	if req.FullName != "" {
		user.FullName = &req.FullName
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	if err := s.repo.UpdateRole(ctx, user.ID, role); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign role")
	}

	s.recordAudit(ctx, actorUserID, models.AuditActionCreateUser, user.ID, fmt.Sprintf(`{"email":%q,"role":%q}`, req.Email, role))
	return &CreateUserResult{OK: true, UserID: user.ID}, nil
}

// ChangeRole reassigns a user's role. Admin or manager, re-verified
// server-side.
func (s *UserService) ChangeRole(ctx context.Context, actorUserID, userID string, newRole string) error {
	if err := s.requirePrivileged(ctx, actorUserID); err != nil {
		return err
	}

	role := models.UserRole(strings.ToLower(strings.TrimSpace(newRole)))
	if !role.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := s.repo.UpdateRole(ctx, userID, role); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change role")
	}

	s.recordAudit(ctx, actorUserID, models.AuditActionChangeRole, userID, fmt.Sprintf(`{"role":%q}`, role))
	return nil
}

func (s *UserService) requirePrivileged(ctx context.Context, actorUserID string) error {
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

func (s *UserService) recordAudit(ctx context.Context, actorUserID, action, resourceID, newValues string) {
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorUserID,
		Action:     action,
		Resource:   "users",
		ResourceID: &resourceID,
		NewValues:  []byte(newValues),
	}); err != nil {
		s.logger.Warn("failed to record user audit log", zap.Error(err))
	}
}
