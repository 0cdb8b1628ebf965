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

func TestExportJobCreateDefaultsStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	mock.ExpectExec("INSERT INTO export_jobs").WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ExportJob{Format: models.ExportFormatCSV}
	require.NoError(t, repo.Create(context.Background(), job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.ExportPending, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobMarkCompleted(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET status = $1, file_path = $2, error_message = NULL, updated_at = $3, completed_at = $3 WHERE id = $4")).
		WithArgs(models.ExportCompleted, "2026-08-28/job-1.csv", sqlmock.AnyArg(), "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkCompleted(context.Background(), "job-1", "2026-08-28/job-1.csv"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobMarkFailed(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4")).
		WithArgs(models.ExportFailed, "render error", sqlmock.AnyArg(), "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkFailed(context.Background(), "job-1", "render error"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobDeleteOlderThan(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT file_path FROM export_jobs WHERE created_at < $1 AND file_path IS NOT NULL")).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"file_path"}).AddRow("2026-08-01/old.csv"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM export_jobs WHERE created_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 1))

	paths, err := repo.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-01/old.csv"}, paths)
	assert.NoError(t, mock.ExpectationsWereMet())
}
