package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscheck/checklist-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestUserFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "role_id", "active", "created_at", "updated_at"}).
		AddRow("u1", "user@example.com", "hash", "User", "admin", nil, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, role_id, active, created_at, updated_at FROM users WHERE LOWER(email) = LOWER($1)")).
		WithArgs("user@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	listRows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "role_id", "active", "created_at", "updated_at"}).
		AddRow("u1", "a@example.com", "hash", "A", "manager", nil, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, role_id, active, created_at, updated_at FROM users WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(listRows)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1")).WillReturnRows(countRows)

	users, total, err := repo.List(context.Background(), models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRoleSourceInline(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"role", "role_id"}).AddRow("manager", nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT role, role_id FROM users WHERE id = $1")).
		WithArgs("u1").
		WillReturnRows(rows)

	src, err := repo.RoleSourceByUserID(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, src.Inline)
	assert.Equal(t, "manager", *src.Inline)
	assert.Equal(t, models.RoleManager, models.ResolveRole(src))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRoleSourceLinked(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	userRows := sqlmock.NewRows([]string{"role", "role_id"}).AddRow(nil, "role-1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT role, role_id FROM users WHERE id = $1")).
		WithArgs("u1").
		WillReturnRows(userRows)

	roleRows := sqlmock.NewRows([]string{"id", "slug", "name", "role", "role_name"}).
		AddRow("role-1", "admin", nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, slug, name, role, role_name FROM roles WHERE id = $1")).
		WithArgs("role-1").
		WillReturnRows(roleRows)

	src, err := repo.RoleSourceByUserID(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, src.Linked)
	assert.Equal(t, models.RoleAdmin, models.ResolveRole(src))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRoleSourceMissingUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT role, role_id FROM users WHERE id = $1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"role", "role_id"}))

	src, err := repo.RoleSourceByUserID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, src.Inline)
	assert.Nil(t, src.Linked)
	assert.Equal(t, models.RoleEmployee, models.ResolveRole(src))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdateRolePrefersLink(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM roles WHERE slug = $1")).
		WithArgs("manager").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("role-2"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role = NULL, role_id = $1, updated_at = $2 WHERE id = $3")).
		WithArgs("role-2", sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateRole(context.Background(), "u1", models.RoleManager))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserUpdateRoleInlineFallback(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM roles WHERE slug = $1")).
		WithArgs("manager").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role = $1, role_id = NULL, updated_at = $2 WHERE id = $3")).
		WithArgs(models.RoleManager, sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateRole(context.Background(), "u1", models.RoleManager))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserExistsByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("free@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}))

	exists, err := repo.ExistsByEmail(context.Background(), "free@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateAuditLogDefaultsValues(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	log := &models.AuditLog{Action: models.AuditActionChangeRole, Resource: "users"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), log))
	assert.NotEmpty(t, log.ID)
	assert.JSONEq(t, `{}`, string(log.NewValues))
	assert.NoError(t, mock.ExpectationsWereMet())
}
