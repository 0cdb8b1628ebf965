package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/opscheck/checklist-api/internal/models"
	appErrors "github.com/opscheck/checklist-api/pkg/errors"
	"github.com/opscheck/checklist-api/pkg/export"
	"github.com/opscheck/checklist-api/pkg/jobs"
	"github.com/opscheck/checklist-api/pkg/storage"
)

type exportJobRepository interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, filePath string) error
	MarkFailed(ctx context.Context, id, message string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}

type datasetBuilder interface {
	BuildRunDataset(ctx context.Context, runID string) (*export.Dataset, error)
	BuildDataset(ctx context.Context, filter models.RunFilter) (*export.Dataset, error)
}

// CreateExportRequest captures an export request: a single run, or every run
// matching the filter fields.
type CreateExportRequest struct {
	Format     models.ExportFormat `json:"format" validate:"required"`
	RunID      *string             `json:"run_id,omitempty"`
	TemplateID *string             `json:"template_id,omitempty"`
	RunStatus  *models.RunStatus   `json:"run_status,omitempty"`
	From       *time.Time          `json:"from,omitempty"`
	To         *time.Time          `json:"to,omitempty"`
}

// ExportStatusResult is the polling payload for an export job. The download
// token is only present once the job has completed.
type ExportStatusResult struct {
	Job           *models.ExportJob `json:"job"`
	DownloadToken string            `json:"download_token,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
}

// ExportService renders review datasets to CSV or PDF in the background and
// serves the results through signed download tokens.
type ExportService struct {
	repo     exportJobRepository
	datasets datasetBuilder
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	store    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	queue    *jobs.Queue
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewExportService creates the export service and its backing worker queue.
// Call Start before enqueueing and Stop on shutdown.
func NewExportService(
	repo exportJobRepository,
	datasets datasetBuilder,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	metrics *MetricsService,
	queueCfg jobs.QueueConfig,
	logger *zap.Logger,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportService{
		repo:     repo,
		datasets: datasets,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		store:    store,
		signer:   signer,
		metrics:  metrics,
		logger:   logger,
	}
	if queueCfg.Logger == nil {
		queueCfg.Logger = logger
	}
	s.queue = jobs.NewQueue("exports", s.process, queueCfg)
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the export workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Create registers an export job and enqueues it for rendering.
func (s *ExportService) Create(ctx context.Context, requestedBy string, req CreateExportRequest) (*models.ExportJob, error) {
	if !req.Format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if req.RunStatus != nil && !req.RunStatus.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown run status")
	}

	job := &models.ExportJob{
		Format:     req.Format,
		Status:     models.ExportPending,
		RunID:      req.RunID,
		TemplateID: req.TemplateID,
		RunStatus:  req.RunStatus,
		From:       req.From,
		To:         req.To,
	}
	if requestedBy != "" {
		job.RequestedBy = &requestedBy
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "export"}); err != nil {
		s.markFailed(ctx, job.ID, "queue unavailable")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return job, nil
}

// Status returns a job and, when completed, a signed download token.
func (s *ExportService) Status(ctx context.Context, jobID string) (*ExportStatusResult, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}

	result := &ExportStatusResult{Job: job}
	if job.Status == models.ExportCompleted && job.FilePath != nil {
		token, expiresAt, err := s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
		}
		result.DownloadToken = token
		result.ExpiresAt = &expiresAt
	}
	return result, nil
}

// Download validates a signed token and returns the rendered file along with
// the job describing it. The caller owns closing the file.
func (s *ExportService) Download(ctx context.Context, token string) (*os.File, *models.ExportJob, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}

	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.Status != models.ExportCompleted || job.FilePath == nil || *job.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "export file not available")
	}

	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return file, job, nil
}

// Cleanup drops jobs older than the retention window and their files.
func (s *ExportService) Cleanup(ctx context.Context, retention time.Duration) error {
	paths, err := s.repo.DeleteOlderThan(ctx, time.Now().UTC().Add(-retention))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete stale export jobs")
	}
	for _, path := range paths {
		if err := s.store.Delete(path); err != nil {
			s.logger.Warn("failed to delete export file", zap.String("path", path), zap.Error(err))
		}
	}
	return nil
}

// process renders one queued export job.
func (s *ExportService) process(ctx context.Context, queued jobs.Job) error {
	job, err := s.repo.FindByID(ctx, queued.ID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", queued.ID, err)
	}
	if job.Status == models.ExportCompleted {
		return nil
	}

	if err := s.repo.MarkProcessing(ctx, job.ID); err != nil {
		return err
	}

	dataset, err := s.buildDataset(ctx, job)
	if err != nil {
		s.markFailed(ctx, job.ID, err.Error())
		return err
	}

	var rendered []byte
	switch job.Format {
	case models.ExportFormatCSV:
		rendered, err = s.csv.Render(*dataset)
	case models.ExportFormatPDF:
		rendered, err = s.pdf.Render(*dataset, "Checklist Export")
	default:
		err = fmt.Errorf("unsupported export format %q", job.Format)
	}
	if err != nil {
		s.markFailed(ctx, job.ID, err.Error())
		return err
	}

	filename := fmt.Sprintf("%s/%s.%s", job.CreatedAt.UTC().Format("2006-01-02"), job.ID, job.Format)
	relPath, err := s.store.Save(filename, rendered)
	if err != nil {
		s.markFailed(ctx, job.ID, err.Error())
		return err
	}

	if err := s.repo.MarkCompleted(ctx, job.ID, relPath); err != nil {
		return err
	}
	s.metrics.RecordExportJob(models.ExportCompleted)
	s.logger.Info("export rendered",
		zap.String("job_id", job.ID),
		zap.String("format", string(job.Format)),
		zap.Int("rows", len(dataset.Rows)))
	return nil
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (*export.Dataset, error) {
	if job.RunID != nil {
		return s.datasets.BuildRunDataset(ctx, *job.RunID)
	}

	filter := models.RunFilter{From: job.From, To: job.To}
	if job.TemplateID != nil {
		filter.TemplateID = *job.TemplateID
	}
	if job.RunStatus != nil {
		filter.Status = job.RunStatus
	}
	return s.datasets.BuildDataset(ctx, filter)
}

func (s *ExportService) markFailed(ctx context.Context, jobID, message string) {
	if err := s.repo.MarkFailed(ctx, jobID, message); err != nil {
		s.logger.Error("failed to mark export job failed", zap.String("job_id", jobID), zap.Error(err))
	}
	s.metrics.RecordExportJob(models.ExportFailed)
}
