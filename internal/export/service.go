package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/therealutkarshpriyadarshi/timeline/internal/metrics"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// ErrJobNotVisible hides other users' jobs behind a not-found
var ErrJobNotVisible = errors.New("export job not found")

// ErrNotRetryable is returned when retrying a job that has not failed
var ErrNotRetryable = errors.New("only failed exports can be retried")

// Publisher hands a job to the workers
type Publisher interface {
	PublishExport(ctx context.Context, job *models.ExportJob) error
}

// Service starts exports and reports their progress
type Service struct {
	store       Store
	queue       Publisher
	progress    ProgressCache
	progressTTL time.Duration
}

// NewService creates an export service
func NewService(store Store, queue Publisher, progress ProgressCache) *Service {
	return &Service{store: store, queue: queue, progress: progress, progressTTL: 24 * time.Hour}
}

// Start records and enqueues an export of req for projectID
func (s *Service) Start(ctx context.Context, projectID string, req models.ExportRequest) (*models.ExportJob, error) {
	job := &models.ExportJob{
		ProjectID: projectID,
		UserID:    req.UserID,
		Stage:     models.ExportStagePreparing,
		Request:   req,
	}
	if err := s.store.CreateExportJob(ctx, job); err != nil {
		return nil, err
	}

	queued := models.ExportProgress{JobID: job.ID, Stage: job.Stage, Message: "Queued", At: time.Now()}
	if err := s.progress.SetExportProgress(ctx, queued, s.progressTTL); err != nil {
		metrics.RecordError("export", "progress_cache")
	}

	if err := s.queue.PublishExport(ctx, job); err != nil {
		_ = s.store.FailExportJob(ctx, job.ID, "failed to enqueue export", 0)
		return nil, fmt.Errorf("failed to enqueue export: %w", err)
	}

	metrics.RecordExportCreated()
	return job, nil
}

// Progress returns the latest progress of a job owned by userID. The cache
// has live values; the job row is the fallback once they expire.
func (s *Service) Progress(ctx context.Context, jobID, userID string) (models.ExportProgress, error) {
	job, err := s.store.GetExportJob(ctx, jobID)
	if err != nil {
		return models.ExportProgress{}, err
	}
	if job.UserID != userID {
		return models.ExportProgress{}, ErrJobNotVisible
	}

	if cached, err := s.progress.GetExportProgress(ctx, jobID); err == nil && cached != nil {
		return *cached, nil
	}

	p := models.ExportProgress{
		JobID:    job.ID,
		Stage:    job.Stage,
		Progress: job.Progress,
		Message:  job.Message,
		Error:    job.ErrorMsg,
		At:       job.UpdatedAt,
	}
	if job.Stage == models.ExportStageComplete {
		p.Progress = 100
	}
	return p, nil
}

// Job returns a job owned by userID
func (s *Service) Job(ctx context.Context, jobID, userID string) (*models.ExportJob, error) {
	job, err := s.store.GetExportJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, ErrJobNotVisible
	}
	return job, nil
}

// Retry requeues a failed job with a fresh retry budget
func (s *Service) Retry(ctx context.Context, jobID, userID string) (*models.ExportJob, error) {
	job, err := s.Job(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}
	if job.Stage != models.ExportStageError {
		return nil, ErrNotRetryable
	}

	if err := s.store.ResetExportJob(ctx, job.ID); err != nil {
		return nil, err
	}
	job.Stage = models.ExportStagePreparing
	job.Progress = 0
	job.Message = "Queued"
	job.ErrorMsg = ""
	job.RetryCount = 0

	queued := models.ExportProgress{JobID: job.ID, Stage: job.Stage, Message: job.Message, At: time.Now()}
	if err := s.progress.SetExportProgress(ctx, queued, s.progressTTL); err != nil {
		metrics.RecordError("export", "progress_cache")
	}

	if err := s.queue.PublishExport(ctx, job); err != nil {
		_ = s.store.FailExportJob(ctx, job.ID, "failed to enqueue export", 0)
		return nil, fmt.Errorf("failed to enqueue export: %w", err)
	}
	return job, nil
}
