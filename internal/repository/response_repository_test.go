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

func TestResponseUpsertExec(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResponseRepository(db)

	mock.ExpectExec("INSERT INTO responses").WillReturnResult(sqlmock.NewResult(1, 1))

	text := "Yes"
	resp := &models.Response{RunID: "r1", ItemID: "i1", ValueText: &text}
	require.NoError(t, repo.Upsert(context.Background(), resp))
	assert.NotEmpty(t, resp.ID)
	assert.False(t, resp.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseFindByRunAndItem(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResponseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "run_id", "item_id", "value_text", "value_number", "value_json", "created_at", "updated_at"}).
		AddRow("resp-1", "r1", "i1", "Yes", nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, run_id, item_id, value_text, value_number, value_json, created_at, updated_at FROM responses WHERE run_id = $1 AND item_id = $2")).
		WithArgs("r1", "i1").
		WillReturnRows(rows)

	resp, err := repo.FindByRunAndItem(context.Background(), "r1", "i1")
	require.NoError(t, err)
	require.NotNil(t, resp.ValueText)
	assert.Equal(t, "Yes", *resp.ValueText)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseListByRun(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResponseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "run_id", "item_id", "value_text", "value_number", "value_json", "created_at", "updated_at"}).
		AddRow("resp-1", "r1", "i1", "Yes", nil, nil, now, now).
		AddRow("resp-2", "r1", "i2", nil, 68.0, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, run_id, item_id, value_text, value_number, value_json, created_at, updated_at FROM responses WHERE run_id = $1 ORDER BY created_at ASC")).
		WithArgs("r1").
		WillReturnRows(rows)

	responses, err := repo.ListByRun(context.Background(), "r1")
	require.NoError(t, err)
	assert.Len(t, responses, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseListReviewRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResponseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"response_id", "run_id", "run_status", "run_created_at", "template_name",
		"section_id", "section_name", "section_sort_order",
		"item_id", "item_prompt", "item_type", "item_sort_order",
		"value_text", "value_number", "value_json", "response_created_at",
	}).AddRow("resp-1", "r1", string(models.RunSubmitted), now, "Daily Closeout",
		"s1", "Opening", 1,
		"i1", "Doors unlocked?", string(models.ItemTypeYesNo), 1,
		"Yes", nil, nil, now)
	mock.ExpectQuery("FROM responses resp").
		WithArgs("r1", "r2").
		WillReturnRows(rows)

	reviewRows, err := repo.ListReviewRows(context.Background(), []string{"r1", "r2"})
	require.NoError(t, err)
	require.Len(t, reviewRows, 1)
	assert.Equal(t, "Daily Closeout", reviewRows[0].TemplateName)
	require.NotNil(t, reviewRows[0].SectionName)
	assert.Equal(t, "Opening", *reviewRows[0].SectionName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseListReviewRowsEmptyInput(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResponseRepository(db)

	rows, err := repo.ListReviewRows(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
