package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscheck/checklist-api/internal/models"
	appErrors "github.com/opscheck/checklist-api/pkg/errors"
)

type mockReviewResponseRepo struct {
	rows []models.ReviewRow
}

func (m *mockReviewResponseRepo) ListReviewRows(ctx context.Context, runIDs []string) ([]models.ReviewRow, error) {
	rows := make([]models.ReviewRow, len(m.rows))
	copy(rows, m.rows)
	return rows, nil
}

type mockReviewCache struct {
	store map[string][]byte
	hits  int
	sets  int
}

func (m *mockReviewCache) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (m *mockReviewCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	return nil
}

func strPtr(s string) *string   { return &s }
func intPtr(i int) *int         { return &i }
func numPtr(f float64) *float64 { return &f }

func reviewFixtureRows(runCreated time.Time) []models.ReviewRow {
	// Deliberately shuffled: grouping and ordering is the service's job.
	return []models.ReviewRow{
		{
			ResponseID: "resp-3", RunID: "r1", RunStatus: models.RunSubmitted, RunCreatedAt: runCreated,
			TemplateName: "Daily Closeout",
			SectionID:    strPtr("s2"), SectionName: strPtr("Tanks"), SectionSortOrder: intPtr(2),
			ItemID: "i3", ItemPrompt: "Tank temperature", ItemType: models.ItemTypeNumber, ItemSortOrder: intPtr(1),
			ValueNumber: numPtr(68),
		},
		{
			ResponseID: "resp-4", RunID: "r1", RunStatus: models.RunSubmitted, RunCreatedAt: runCreated,
			TemplateName: "Daily Closeout",
			ItemID:       "i4", ItemPrompt: "Anything unusual?", ItemType: models.ItemTypeText,
			ValueText: strPtr("All quiet"),
		},
		{
			ResponseID: "resp-1", RunID: "r1", RunStatus: models.RunSubmitted, RunCreatedAt: runCreated,
			TemplateName: "Daily Closeout",
			SectionID:    strPtr("s1"), SectionName: strPtr("Opening"), SectionSortOrder: intPtr(1),
			ItemID: "i1", ItemPrompt: "Doors unlocked?", ItemType: models.ItemTypeYesNo, ItemSortOrder: intPtr(1),
			ValueText: strPtr("Yes"),
		},
		{
			ResponseID: "resp-2", RunID: "r1", RunStatus: models.RunSubmitted, RunCreatedAt: runCreated,
			TemplateName: "Daily Closeout",
			SectionID:    strPtr("s1"), SectionName: strPtr("Opening"), SectionSortOrder: intPtr(1),
			ItemID: "i2", ItemPrompt: "Lights checked", ItemType: models.ItemTypeCheckbox, ItemSortOrder: intPtr(2),
			ValueJSON: types.JSONText(`{"checked":false}`),
		},
	}
}

func TestReviewGroupingAndFormatting(t *testing.T) {
	runCreated := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	responses := &mockReviewResponseRepo{rows: reviewFixtureRows(runCreated)}
	runs := &mockRunRepo{runs: map[string]*models.Run{
		"r1": {ID: "r1", TemplateID: "t1", Status: models.RunSubmitted, CreatedAt: runCreated},
	}}
	templates := &mockTemplateReader{templates: map[string]*models.Template{
		"t1": {ID: "t1", Name: "Daily Closeout"},
	}}
	svc := NewReviewService(responses, runs, templates, nil, nil, time.Minute, nil)

	review, err := svc.GetRunReview(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "Daily Closeout", review.TemplateName)
	require.Len(t, review.Sections, 3)

	// Sections in sort order, null section bucketed under General at the end.
	assert.Equal(t, "Opening", review.Sections[0].SectionName)
	assert.Equal(t, "Tanks", review.Sections[1].SectionName)
	assert.Equal(t, "General", review.Sections[2].SectionName)

	opening := review.Sections[0].Rows
	require.Len(t, opening, 2)
	assert.Equal(t, "Doors unlocked?", opening[0].Prompt)
	assert.Equal(t, "Yes", opening[0].FormattedValue)
	assert.Equal(t, "Unchecked", opening[1].FormattedValue)

	tanks := review.Sections[1].Rows
	require.Len(t, tanks, 1)
	assert.Equal(t, "68", tanks[0].FormattedValue)

	general := review.Sections[2].Rows
	require.Len(t, general, 1)
	assert.Equal(t, "All quiet", general[0].FormattedValue)
}

func TestReviewNumberFormattingTrimsTrailingZeros(t *testing.T) {
	row := models.ReviewRow{ValueNumber: numPtr(3.50)}
	assert.Equal(t, "3.5", formatValue(row))

	row = models.ReviewRow{ValueNumber: numPtr(0)}
	assert.Equal(t, "0", formatValue(row))
}

func TestReviewFormatValueEmpty(t *testing.T) {
	assert.Equal(t, "", formatValue(models.ReviewRow{}))
}

func TestBuildRunDataset(t *testing.T) {
	runCreated := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	responses := &mockReviewResponseRepo{rows: reviewFixtureRows(runCreated)}
	runs := &mockRunRepo{runs: map[string]*models.Run{
		"r1": {ID: "r1", TemplateID: "t1", Status: models.RunSubmitted, CreatedAt: runCreated},
	}}
	templates := &mockTemplateReader{templates: map[string]*models.Template{
		"t1": {ID: "t1", Name: "Daily Closeout"},
	}}
	svc := NewReviewService(responses, runs, templates, nil, nil, time.Minute, nil)

	dataset, err := svc.BuildRunDataset(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, dataset.Headers, 9)
	require.Len(t, dataset.Rows, 4)

	first := dataset.Rows[0]
	assert.Equal(t, "Daily Closeout", first[0])
	assert.Equal(t, "r1", first[1])
	assert.Equal(t, "2026-08-20T09:30:00Z", first[2])
	assert.Equal(t, "submitted", first[3])
	assert.Equal(t, "Opening", first[4])
	assert.Equal(t, "Doors unlocked?", first[5])
	assert.Equal(t, "yesno", first[6])
	assert.Equal(t, "Yes", first[7])

	// Sectionless rows land last with the General bucket name.
	last := dataset.Rows[3]
	assert.Equal(t, "General", last[4])
	assert.Equal(t, "All quiet", last[7])
}

func TestReviewListRunsWritesCache(t *testing.T) {
	runs := &mockRunRepo{listRuns: []models.Run{{ID: "r1", Status: models.RunSubmitted}}}
	cache := &mockReviewCache{}
	svc := NewReviewService(&mockReviewResponseRepo{}, runs, &mockTemplateReader{}, cache, nil, time.Minute, nil)

	result, err := svc.ListRuns(context.Background(), models.RunFilter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, result.Runs, 1)
	assert.Equal(t, 1, cache.sets)
}
