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

func TestTemplateFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "is_active", "frequency", "version", "created_at", "updated_at"}).
		AddRow("t1", "Daily Closeout", true, "daily", 1, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, is_active, frequency, version, created_at, updated_at FROM templates WHERE id = $1")).
		WithArgs("t1").
		WillReturnRows(rows)

	template, err := repo.FindByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Daily Closeout", template.Name)
	assert.True(t, template.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateCreateAssignsVersion(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectExec("INSERT INTO templates").WillReturnResult(sqlmock.NewResult(1, 1))

	template := &models.Template{Name: "Daily Closeout", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), template))
	assert.NotEmpty(t, template.ID)
	assert.Equal(t, 1, template.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateDeleteCascadesInTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM items WHERE section_id IN (SELECT id FROM sections WHERE template_id = $1)")).
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sections WHERE template_id = $1")).
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM templates WHERE id = $1")).
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "t1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateCountRuns(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM runs WHERE template_id = $1")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountRuns(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateDeleteSectionCascades(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM items WHERE section_id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sections WHERE id = $1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteSection(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateFindItemByIDReturnsOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "section_id", "prompt", "type", "required", "sort_order", "config", "created_at", "template_id"}).
		AddRow("i1", "s1", "Doors unlocked?", string(models.ItemTypeYesNo), true, 1, []byte(`{}`), now, "t1")
	mock.ExpectQuery("FROM items i JOIN sections s ON s.id = i.section_id").
		WithArgs("i1").
		WillReturnRows(rows)

	item, templateID, err := repo.FindItemByID(context.Background(), "i1")
	require.NoError(t, err)
	assert.Equal(t, "Doors unlocked?", item.Prompt)
	assert.Equal(t, "t1", templateID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateCreateItemDefaultsConfig(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectExec("INSERT INTO items").WillReturnResult(sqlmock.NewResult(1, 1))

	item := &models.Item{SectionID: "s1", Prompt: "Lights off", Type: models.ItemTypeCheckbox}
	require.NoError(t, repo.CreateItem(context.Background(), item))
	assert.JSONEq(t, `{}`, string(item.Config))
	assert.NoError(t, mock.ExpectationsWereMet())
}
