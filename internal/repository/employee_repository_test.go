package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscheck/checklist-api/internal/models"
)

func TestEmployeeFindByCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "code", "full_name", "department", "active", "pin_hash", "created_at", "updated_at"}).
		AddRow("e1", "JD01", "Jamie Doe", "Kitchen", true, "hash", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, full_name, department, active, pin_hash, created_at, updated_at FROM employees WHERE code = $1")).
		WithArgs("JD01").
		WillReturnRows(rows)

	employee, err := repo.FindByCode(context.Background(), "JD01")
	require.NoError(t, err)
	assert.Equal(t, "e1", employee.ID)
	assert.Equal(t, "Jamie Doe", employee.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeExistsByCodeWithExclusion(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM employees WHERE code = $1 AND id <> $2 LIMIT 1")).
		WithArgs("JD01", "e1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	exists, err := repo.ExistsByCode(context.Background(), "JD01", "e1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeCreateSession(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	mock.ExpectExec("INSERT INTO employee_sessions").WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.EmployeeSession{Token: "tok", EmployeeID: "e1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.CreateSession(context.Background(), session))
	assert.False(t, session.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeFindSession(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"token", "employee_id", "expires_at", "created_at"}).
		AddRow("tok", "e1", now.Add(time.Hour), now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT token, employee_id, expires_at, created_at FROM employee_sessions WHERE token = $1")).
		WithArgs("tok").
		WillReturnRows(rows)

	session, err := repo.FindSession(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "e1", session.EmployeeID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeDeleteExpiredSessions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM employee_sessions WHERE expires_at < $1")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.DeleteExpiredSessions(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeUpdatePINHash(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE employees SET pin_hash = $1, updated_at = $2 WHERE id = $3")).
		WithArgs("newhash", sqlmock.AnyArg(), "e1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePINHash(context.Background(), "e1", "newhash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
