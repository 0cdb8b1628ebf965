package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opscheck/checklist-api/internal/models"
)

// UserRepository handles persistence for console users, role links and audit
// logs. User rows may carry their role inline or via a role_id link to the
// roles table; RoleSourceByUserID surfaces whichever shape is present.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// List returns users with pagination metadata.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	base := "FROM users WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(full_name) LIKE $%d)", len(args)+1, len(args)+1))
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

	query := fmt.Sprintf("SELECT id, email, password_hash, full_name, role, role_id, active, created_at, updated_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, size, offset)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// FindByID returns a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, email, password_hash, full_name, role, role_id, active, created_at, updated_at FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail returns a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT id, email, password_hash, full_name, role, role_id, active, created_at, updated_at FROM users WHERE LOWER(email) = LOWER($1)`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByEmail checks uniqueness of user emails.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`, email); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check user email: %w", err)
	}
	return true, nil
}

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, email, password_hash, full_name, role, role_id, active, created_at, updated_at) VALUES (:id, :email, :password_hash, :full_name, :role, :role_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateRole rewrites the role link. When the roles table carries the slug the
// link column is used and the inline scalar cleared; otherwise the scalar is
// written directly.
func (r *UserRepository) UpdateRole(ctx context.Context, userID string, role models.UserRole) error {
	roleID, err := r.FindRoleIDBySlug(ctx, string(role))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	now := time.Now().UTC()
	if roleID != "" {
		const query = `UPDATE users SET role = NULL, role_id = $1, updated_at = $2 WHERE id = $3`
		if _, err := r.db.ExecContext(ctx, query, roleID, now, userID); err != nil {
			return fmt.Errorf("update user role link: %w", err)
		}
		return nil
	}

	const query = `UPDATE users SET role = $1, role_id = NULL, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, role, now, userID); err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	return nil
}

// FindRoleIDBySlug resolves a role entity id from its slug.
func (r *UserRepository) FindRoleIDBySlug(ctx context.Context, slug string) (string, error) {
	var id string
	if err := r.db.GetContext(ctx, &id, `SELECT id FROM roles WHERE slug = $1`, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("find role by slug: %w", err)
	}
	return id, nil
}

// RoleSourceByUserID loads the role representation backing a user, whichever
// shape it takes. Missing users and missing role rows both yield an empty
// source, which resolves to employee.
func (r *UserRepository) RoleSourceByUserID(ctx context.Context, userID string) (models.RoleSource, error) {
	row := struct {
		Role   *string `db:"role"`
		RoleID *string `db:"role_id"`
	}{}
	if err := r.db.GetContext(ctx, &row, `SELECT role, role_id FROM users WHERE id = $1`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RoleSource{}, nil
		}
		return models.RoleSource{}, fmt.Errorf("load user role: %w", err)
	}

	if row.Role != nil {
		return models.InlineRole(*row.Role), nil
	}
	if row.RoleID == nil {
		return models.RoleSource{}, nil
	}

	var linked []models.LinkedRole
	if err := r.db.SelectContext(ctx, &linked, `SELECT id, slug, name, role, role_name FROM roles WHERE id = $1`, *row.RoleID); err != nil {
		return models.RoleSource{}, fmt.Errorf("load linked role: %w", err)
	}
	return models.LinkedRoleSource(linked...), nil
}

// CreateAuditLog records an audit entry.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	if len(log.NewValues) == 0 {
		log.NewValues = []byte("{}")
	}

	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, new_values, ip_address, user_agent, created_at) VALUES (:id, :user_id, :action, :resource, :resource_id, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
