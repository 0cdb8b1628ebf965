package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscheck/checklist-api/internal/models"
	appErrors "github.com/opscheck/checklist-api/pkg/errors"
)

type mockResponseRepo struct {
	upserts []*models.Response
	byRun   map[string][]models.Response
}

func (m *mockResponseRepo) Upsert(ctx context.Context, resp *models.Response) error {
	copy := *resp
	m.upserts = append(m.upserts, &copy)
	return nil
}

func (m *mockResponseRepo) FindByRunAndItem(ctx context.Context, runID, itemID string) (*models.Response, error) {
	return nil, sql.ErrNoRows
}

func (m *mockResponseRepo) ListByRun(ctx context.Context, runID string) ([]models.Response, error) {
	return m.byRun[runID], nil
}

type mockItemReader struct {
	items map[string]*models.Item
	owner map[string]string
}

func (m *mockItemReader) FindItemByID(ctx context.Context, id string) (*models.Item, string, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, "", sql.ErrNoRows
	}
	copy := *item
	return &copy, m.owner[id], nil
}

func newResponseFixture() (*ResponseService, *mockResponseRepo, *mockRunRepo) {
	responses := &mockResponseRepo{}
	runs := &mockRunRepo{runs: map[string]*models.Run{
		"r1": {ID: "r1", TemplateID: "t1", Status: models.RunInProgress},
		"r2": {ID: "r2", TemplateID: "t1", Status: models.RunSubmitted},
	}}
	items := &mockItemReader{
		items: map[string]*models.Item{
			"yes":   {ID: "yes", Type: models.ItemTypeYesNo},
			"num":   {ID: "num", Type: models.ItemTypeNumber},
			"txt":   {ID: "txt", Type: models.ItemTypeText},
			"sel":   {ID: "sel", Type: models.ItemTypeSelect},
			"chk":   {ID: "chk", Type: models.ItemTypeCheckbox},
			"other": {ID: "other", Type: models.ItemTypeText},
		},
		owner: map[string]string{
			"yes": "t1", "num": "t1", "txt": "t1", "sel": "t1", "chk": "t1",
			"other": "t2",
		},
	}
	svc := NewResponseService(responses, runs, items, &mockCacheInvalidator{}, nil, nil)
	return svc, responses, runs
}

func TestResponseUpsertYesNo(t *testing.T) {
	svc, responses, _ := newResponseFixture()

	resp, err := svc.Upsert(context.Background(), "r1", UpsertResponseRequest{ItemID: "yes", Value: json.RawMessage(`true`)})
	require.NoError(t, err)
	require.NotNil(t, resp.ValueText)
	assert.Equal(t, "Yes", *resp.ValueText)
	assert.Nil(t, resp.ValueNumber)
	assert.Empty(t, resp.ValueJSON)
	require.Len(t, responses.upserts, 1)

	resp, err = svc.Upsert(context.Background(), "r1", UpsertResponseRequest{ItemID: "yes", Value: json.RawMessage(`false`)})
	require.NoError(t, err)
	assert.Equal(t, "No", *resp.ValueText)
}

func TestResponseUpsertYesNoLiteralStrings(t *testing.T) {
	svc, responses, _ := newResponseFixture()

	resp, err := svc.Upsert(context.Background(), "r1", UpsertResponseRequest{ItemID: "yes", Value: json.RawMessage(`"Yes"`)})
	require.NoError(t, err)
	require.NotNil(t, resp.ValueText)
	assert.Equal(t, "Yes", *resp.ValueText)

	resp, err = svc.Upsert(context.Background(), "r1", UpsertResponseRequest{ItemID: "yes", Value: json.RawMessage(`"No"`)})
	require.NoError(t, err)
	assert.Equal(t, "No", *resp.ValueText)
	require.Len(t, responses.upserts, 2)
}

func TestResponseUpsertYesNoRejectsOtherStrings(t *testing.T) {
	svc, responses, _ := newResponseFixture()

	_, err := svc.Upsert(context.Background(), "r1", UpsertResponseRequest{ItemID: "yes", Value: json.RawMessage(`"maybe"`)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, responses.upserts)
}

func TestResponseUpsertNumber(t *testing.T) {
	svc, _, _ := newResponseFixture()

	resp, err := svc.Upsert(context.Background(), "r1", UpsertResponseRequest{ItemID: "num", Value: json.RawMessage(`68`)})
	require.NoError(t, err)
	require.NotNil(t, resp.ValueNumber)
	assert.Equal(t, 68.0, *resp.ValueNumber)
	assert.Nil(t, resp.ValueText)
}

func TestResponseUpsertCheckbox(t *testing.T) {
	svc, _, _ := newResponseFixture()

	resp, err := svc.Upsert(context.Background(), "r1", UpsertResponseRequest{ItemID: "chk", Value: json.RawMessage(`true`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"checked":true}`, string(resp.ValueJSON))
	assert.Nil(t, resp.ValueText)
	assert.Nil(t, resp.ValueNumber)
}

func TestResponseUpsertSelectNotValidatedAgainstOptions(t *testing.T) {
	svc, _, _ := newResponseFixture()

	resp, err := svc.Upsert(context.Background(), "r1", UpsertResponseRequest{ItemID: "sel", Value: json.RawMessage(`"Anything"`)})
	require.NoError(t, err)
	require.NotNil(t, resp.ValueText)
	assert.Equal(t, "Anything", *resp.ValueText)
}

func TestResponseUpsertTypeMismatch(t *testing.T) {
	svc, responses, _ := newResponseFixture()

	_, err := svc.Upsert(context.Background(), "r1", UpsertResponseRequest{ItemID: "num", Value: json.RawMessage(`"not a number"`)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, responses.upserts)
}

func TestResponseUpsertForeignItem(t *testing.T) {
	svc, _, _ := newResponseFixture()

	_, err := svc.Upsert(context.Background(), "r1", UpsertResponseRequest{ItemID: "other", Value: json.RawMessage(`"x"`)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestResponseUpsertRequiresInProgressRun(t *testing.T) {
	svc, _, _ := newResponseFixture()

	_, err := svc.Upsert(context.Background(), "r2", UpsertResponseRequest{ItemID: "txt", Value: json.RawMessage(`"done"`)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestResponseUpsertUnknownRun(t *testing.T) {
	svc, _, _ := newResponseFixture()

	_, err := svc.Upsert(context.Background(), "missing", UpsertResponseRequest{ItemID: "txt", Value: json.RawMessage(`"x"`)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
