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

func TestRunTransitionStatusApplied(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRunRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE runs SET status = $1, completed_at = COALESCE($2, completed_at) WHERE id = $3 AND status = $4")).
		WithArgs(models.RunSubmitted, &now, "r1", models.RunInProgress).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.TransitionStatus(context.Background(), "r1", models.RunInProgress, models.RunSubmitted, &now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunTransitionStatusMissed(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE runs SET status = $1, completed_at = COALESCE($2, completed_at) WHERE id = $3 AND status = $4")).
		WithArgs(models.RunApproved, nil, "r1", models.RunSubmitted).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.TransitionStatus(context.Background(), "r1", models.RunSubmitted, models.RunApproved, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunListWithFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRunRepository(db)

	now := time.Now()
	listRows := sqlmock.NewRows([]string{"id", "template_id", "template_version", "status", "created_at", "started_at", "completed_at", "created_by_employee_id"}).
		AddRow("r1", "t1", 1, string(models.RunSubmitted), now, now, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, template_id, template_version, status, created_at, started_at, completed_at, created_by_employee_id FROM runs WHERE 1=1 AND status = $1 AND template_id = $2 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs(models.RunSubmitted, "t1").
		WillReturnRows(listRows)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM runs WHERE 1=1 AND status = $1 AND template_id = $2")).
		WithArgs(models.RunSubmitted, "t1").
		WillReturnRows(countRows)

	status := models.RunSubmitted
	runs, total, err := repo.List(context.Background(), models.RunFilter{Status: &status, TemplateID: "t1"})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunCreateDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRunRepository(db)

	mock.ExpectExec("INSERT INTO runs").WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.Run{TemplateID: "t1", TemplateVersion: 2}
	require.NoError(t, repo.Create(context.Background(), run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, models.RunInProgress, run.Status)
	assert.False(t, run.StartedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunClearCompletedAt(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE runs SET completed_at = NULL WHERE id = $1")).
		WithArgs("r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ClearCompletedAt(context.Background(), "r1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
