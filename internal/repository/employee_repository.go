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

// EmployeeRepository handles persistence for employees and their sessions.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository creates a new repository instance.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// List returns employees matching filters with pagination metadata.
func (r *EmployeeRepository) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error) {
	base := "FROM employees WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(code) LIKE $%d OR LOWER(full_name) LIKE $%d)", len(args)+1, len(args)+1))
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

	query := fmt.Sprintf("SELECT id, code, full_name, department, active, pin_hash, created_at, updated_at %s ORDER BY full_name ASC LIMIT %d OFFSET %d", base, size, offset)
	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}

	return employees, total, nil
}

// FindByID returns an employee by id.
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*models.Employee, error) {
	const query = `SELECT id, code, full_name, department, active, pin_hash, created_at, updated_at FROM employees WHERE id = $1`
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, id); err != nil {
		return nil, err
	}
	return &employee, nil
}

// FindByCode returns an employee by its unique uppercase code.
func (r *EmployeeRepository) FindByCode(ctx context.Context, code string) (*models.Employee, error) {
	const query = `SELECT id, code, full_name, department, active, pin_hash, created_at, updated_at FROM employees WHERE code = $1`
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, code); err != nil {
		return nil, err
	}
	return &employee, nil
}

// ExistsByCode checks uniqueness of employee codes.
func (r *EmployeeRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM employees WHERE code = $1"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check employee code: %w", err)
	}
	return true, nil
}

// Create persists a new employee.
func (r *EmployeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = now
	}
	employee.UpdatedAt = now

	const query = `INSERT INTO employees (id, code, full_name, department, active, pin_hash, created_at, updated_at) VALUES (:id, :code, :full_name, :department, :active, :pin_hash, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, employee); err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

// Update modifies an employee's profile fields.
func (r *EmployeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	employee.UpdatedAt = time.Now().UTC()
	const query = `UPDATE employees SET full_name = :full_name, department = :department, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, employee); err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	return nil
}

// UpdatePINHash replaces the stored PIN hash.
func (r *EmployeeRepository) UpdatePINHash(ctx context.Context, id, pinHash string) error {
	const query = `UPDATE employees SET pin_hash = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, pinHash, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update employee pin: %w", err)
	}
	return nil
}

// CreateSession persists a new opaque session token.
func (r *EmployeeRepository) CreateSession(ctx context.Context, session *models.EmployeeSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO employee_sessions (token, employee_id, expires_at, created_at) VALUES (:token, :employee_id, :expires_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create employee session: %w", err)
	}
	return nil
}

// FindSession returns a session by token.
func (r *EmployeeRepository) FindSession(ctx context.Context, token string) (*models.EmployeeSession, error) {
	const query = `SELECT token, employee_id, expires_at, created_at FROM employee_sessions WHERE token = $1`
	var session models.EmployeeSession
	if err := r.db.GetContext(ctx, &session, query, token); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session token.
func (r *EmployeeRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM employee_sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete employee session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions clears sessions past their expiry.
func (r *EmployeeRepository) DeleteExpiredSessions(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM employee_sessions WHERE expires_at < $1`, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	return nil
}
