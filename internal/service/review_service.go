package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/opscheck/checklist-api/internal/models"
	appErrors "github.com/opscheck/checklist-api/pkg/errors"
	"github.com/opscheck/checklist-api/pkg/export"
)

// Sort sentinel pushing null sort orders behind every explicit value.
const sortOrderLast = 1 << 30

const generalSectionName = "General"

type reviewResponseRepository interface {
	ListReviewRows(ctx context.Context, runIDs []string) ([]models.ReviewRow, error)
}

type reviewRunReader interface {
	List(ctx context.Context, filter models.RunFilter) ([]models.Run, int, error)
	FindByID(ctx context.Context, id string) (*models.Run, error)
}

type reviewTemplateReader interface {
	FindByID(ctx context.Context, id string) (*models.Template, error)
}

type reviewCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ReviewListResult is the cached payload for the review feed.
type ReviewListResult struct {
	Runs       []models.Run      `json:"runs"`
	Pagination models.Pagination `json:"pagination"`
}

// ReviewService assembles the read-side views: the run feed, per-run grouped
// responses, and flat datasets for export rendering.
type ReviewService struct {
	responses reviewResponseRepository
	runs      reviewRunReader
	templates reviewTemplateReader
	cache     reviewCache
	metrics   *MetricsService
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewReviewService creates a new review service. A nil cache disables feed
// caching.
func NewReviewService(
	responses reviewResponseRepository,
	runs reviewRunReader,
	templates reviewTemplateReader,
	cache reviewCache,
	metrics *MetricsService,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &ReviewService{
		responses: responses,
		runs:      runs,
		templates: templates,
		cache:     cache,
		metrics:   metrics,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// ListRuns returns the review feed, served from cache when warm. Cache entries
// are invalidated by the write side on every run or response mutation.
func (s *ReviewService) ListRuns(ctx context.Context, filter models.RunFilter) (*ReviewListResult, error) {
	key := reviewFeedCacheKey(filter)
	if s.cache != nil {
		var cached ReviewListResult
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("review feed cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	runs, total, err := s.runs.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list runs")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	result := &ReviewListResult{
		Runs:       runs,
		Pagination: models.Pagination{Page: page, PageSize: size, TotalCount: total},
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
			s.logger.Warn("review feed cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

// GetRunReview returns a run's responses grouped by section in display order.
// Sections order by sort_order ascending with nulls last; responses whose item
// lost its section land in a General bucket at the end.
func (s *ReviewService) GetRunReview(ctx context.Context, runID string) (*models.ReviewRun, error) {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load run")
	}

	template, err := s.templates.FindByID(ctx, run.TemplateID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	templateName := ""
	if template != nil {
		templateName = template.Name
	}

	rows, err := s.responses.ListReviewRows(ctx, []string{runID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load responses")
	}

	return &models.ReviewRun{
		RunID:        run.ID,
		TemplateName: templateName,
		Status:       run.Status,
		CreatedAt:    run.CreatedAt,
		Sections:     groupRows(rows),
	}, nil
}

// BuildRunDataset renders one run's responses as a flat export dataset.
func (s *ReviewService) BuildRunDataset(ctx context.Context, runID string) (*export.Dataset, error) {
	if _, err := s.runs.FindByID(ctx, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load run")
	}
	return s.buildDataset(ctx, []string{runID})
}

// BuildDataset renders every run matching the filter as a flat export dataset.
// Pagination on the filter is ignored; exports cover the full match.
func (s *ReviewService) BuildDataset(ctx context.Context, filter models.RunFilter) (*export.Dataset, error) {
	filter.Page = 1
	filter.PageSize = 100

	var runIDs []string
	for {
		runs, total, err := s.runs.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list runs")
		}
		for _, run := range runs {
			runIDs = append(runIDs, run.ID)
		}
		if len(runIDs) >= total || len(runs) == 0 {
			break
		}
		filter.Page++
	}

	return s.buildDataset(ctx, runIDs)
}

func (s *ReviewService) buildDataset(ctx context.Context, runIDs []string) (*export.Dataset, error) {
	headers := []string{
		"template_name", "run_id", "run_created_at", "run_status",
		"section_name", "item_prompt", "item_type", "value", "response_created_at",
	}
	dataset := &export.Dataset{Headers: headers}
	if len(runIDs) == 0 {
		return dataset, nil
	}

	rows, err := s.responses.ListReviewRows(ctx, runIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load responses")
	}
	sortRows(rows)

	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, []string{
			row.TemplateName,
			row.RunID,
			row.RunCreatedAt.UTC().Format(time.RFC3339),
			string(row.RunStatus),
			sectionNameOf(row),
			row.ItemPrompt,
			string(row.ItemType),
			formatValue(row),
			row.ResponseCreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return dataset, nil
}

// groupRows buckets rows by section and orders everything for display.
func groupRows(rows []models.ReviewRow) []models.ReviewSection {
	sortRows(rows)

	var sections []models.ReviewSection
	index := map[string]int{}
	for _, row := range rows {
		key := ""
		if row.SectionID != nil {
			key = *row.SectionID
		}
		pos, ok := index[key]
		if !ok {
			pos = len(sections)
			index[key] = pos
			sections = append(sections, models.ReviewSection{
				SectionID:   key,
				SectionName: sectionNameOf(row),
			})
		}
		sections[pos].Rows = append(sections[pos].Rows, models.ReviewEntry{
			ResponseID:     row.ResponseID,
			ItemID:         row.ItemID,
			Prompt:         row.ItemPrompt,
			Type:           row.ItemType,
			FormattedValue: formatValue(row),
			RecordedAt:     row.ResponseCreatedAt,
		})
	}
	return sections
}

// sortRows orders rows section-first then item, sort_order ascending with
// nulls pushed last, recording time as the final tie-break.
func sortRows(rows []models.ReviewRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.RunID != b.RunID {
			if !a.RunCreatedAt.Equal(b.RunCreatedAt) {
				return a.RunCreatedAt.After(b.RunCreatedAt)
			}
			return a.RunID < b.RunID
		}
		as, bs := sortKey(a.SectionSortOrder), sortKey(b.SectionSortOrder)
		if as != bs {
			return as < bs
		}
		ai, bi := sortKey(a.ItemSortOrder), sortKey(b.ItemSortOrder)
		if ai != bi {
			return ai < bi
		}
		return a.ResponseCreatedAt.Before(b.ResponseCreatedAt)
	})
}

func sortKey(v *int) int {
	if v == nil {
		return sortOrderLast
	}
	return *v
}

func sectionNameOf(row models.ReviewRow) string {
	if row.SectionName != nil && *row.SectionName != "" {
		return *row.SectionName
	}
	return generalSectionName
}

// formatValue renders whichever storage slot is populated. Text wins, then
// number, then the JSON slot; checkbox payloads render as Checked/Unchecked.
func formatValue(row models.ReviewRow) string {
	if row.ValueText != nil {
		return *row.ValueText
	}
	if row.ValueNumber != nil {
		return strconv.FormatFloat(*row.ValueNumber, 'f', -1, 64)
	}
	if len(row.ValueJSON) > 0 {
		if row.ItemType == models.ItemTypeCheckbox {
			var v models.CheckboxValue
			if err := json.Unmarshal(row.ValueJSON, &v); err == nil {
				if v.Checked {
					return "Checked"
				}
				return "Unchecked"
			}
		}
		return string(row.ValueJSON)
	}
	return ""
}

func reviewFeedCacheKey(filter models.RunFilter) string {
	status := ""
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	from, to := "", ""
	if filter.From != nil {
		from = filter.From.UTC().Format(time.RFC3339)
	}
	if filter.To != nil {
		to = filter.To.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("review:runs:%s:%s:%s:%s:%d:%d", status, filter.TemplateID, from, to, filter.Page, filter.PageSize)
}
