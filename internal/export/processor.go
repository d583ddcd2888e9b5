package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/therealutkarshpriyadarshi/timeline/internal/logging"
	"github.com/therealutkarshpriyadarshi/timeline/internal/metrics"
	"github.com/therealutkarshpriyadarshi/timeline/internal/storage"
	"github.com/therealutkarshpriyadarshi/timeline/internal/tracing"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// Store is the job persistence the export pipeline needs
type Store interface {
	CreateExportJob(ctx context.Context, job *models.ExportJob) error
	GetExportJob(ctx context.Context, id string) (*models.ExportJob, error)
	UpdateExportProgress(ctx context.Context, id, stage string, progress float64, message string) error
	CompleteExportJob(ctx context.Context, id string, result models.ExportResult) error
	FailExportJob(ctx context.Context, id, errMsg string, retryCount int) error
	ResetExportJob(ctx context.Context, id string) error
	MarkExported(ctx context.Context, projectID, userID, mediaFileID string) error
}

// ProgressCache holds the latest progress report of running jobs
type ProgressCache interface {
	SetExportProgress(ctx context.Context, p models.ExportProgress, ttl time.Duration) error
	GetExportProgress(ctx context.Context, jobID string) (*models.ExportProgress, error)
}

// Renderer produces the video for a request
type Renderer interface {
	Render(ctx context.Context, req models.ExportRequest) (models.ExportResult, error)
}

// ObjectStatter confirms the rendered file exists
type ObjectStatter interface {
	Stat(ctx context.Context, objectKey string) (storage.ObjectInfo, error)
}

// Processor runs export jobs taken off the queue
type Processor struct {
	store       Store
	progress    ProgressCache
	renderer    Renderer
	objects     ObjectStatter
	logger      *logging.Logger
	Tick        time.Duration
	ProgressTTL time.Duration
}

// NewProcessor creates a processor; objects may be nil to skip output checks
func NewProcessor(store Store, progress ProgressCache, renderer Renderer, objects ObjectStatter, logger *logging.Logger) *Processor {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Processor{
		store:       store,
		progress:    progress,
		renderer:    renderer,
		objects:     objects,
		logger:      logger,
		Tick:        time.Second,
		ProgressTTL: 24 * time.Hour,
	}
}

// stageSink writes to the database only when the stage changes
type stageSink struct {
	store Store
	stage string
}

func (s *stageSink) ReportProgress(ctx context.Context, p models.ExportProgress) error {
	if p.Stage == s.stage || p.Stage == models.ExportStageError || p.Stage == models.ExportStageComplete {
		return nil
	}
	s.stage = p.Stage
	return s.store.UpdateExportProgress(ctx, p.JobID, p.Stage, p.Progress, p.Message)
}

func (p *Processor) tracker(job *models.ExportJob, logger *logging.Logger) *Tracker {
	return NewTracker(job.ID,
		SinkFunc(func(ctx context.Context, pr models.ExportProgress) error {
			return p.progress.SetExportProgress(ctx, pr, p.ProgressTTL)
		}),
		&stageSink{store: p.store},
		SinkFunc(func(_ context.Context, pr models.ExportProgress) error {
			logger.LogExportProgress(pr.JobID, pr.Stage, int(pr.Progress), pr.Message)
			return nil
		}),
	)
}

// Process renders one job. Contract violations and invalid requests fail the
// job for good and return nil; anything else returns an error so the queue
// retries it.
func (p *Processor) Process(ctx context.Context, job *models.ExportJob) error {
	span, ctx := tracing.StartProjectSpan(ctx, "export.process", job.ProjectID)
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "job.id", job.ID)

	logger := p.logger.WithJobID(job.ID).WithProjectID(job.ProjectID)
	start := time.Now()
	metrics.ExportJobsInProgress.Inc()
	defer metrics.ExportJobsInProgress.Dec()

	tr := p.tracker(job, logger)
	report := func(stage string, progress float64, msg string) {
		if err := tr.Report(ctx, stage, progress, msg); err != nil {
			logger.WithError(err).Warn("Failed to publish export progress")
		}
	}

	report(models.ExportStagePreparing, 0, "Preparing export")
	if len(job.Request.Clips) == 0 {
		return p.fail(ctx, tr, job, start, ErrEmptyTimeline, false)
	}

	report(models.ExportStageLoading, StageStart(models.ExportStageLoading), fmt.Sprintf("Sending %d clips to renderer", len(job.Request.Clips)))

	result, err := p.renderWithEstimate(ctx, job, report)
	if err != nil {
		tracing.LogError(span, err)
		if errors.Is(err, ErrContractViolation) {
			metrics.RecordContractViolation()
			return p.fail(ctx, tr, job, start, err, false)
		}
		return p.fail(ctx, tr, job, start, err, true)
	}
	if !result.Success {
		return p.fail(ctx, tr, job, start, fmt.Errorf("render failed: %s", result.Error), true)
	}

	report(models.ExportStageUploading, StageStart(models.ExportStageUploading), "Verifying output")
	if p.objects != nil && result.StoragePath != "" {
		if _, err := p.objects.Stat(ctx, result.StoragePath); err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				metrics.RecordContractViolation()
				return p.fail(ctx, tr, job, start, fmt.Errorf("%w: output %s missing", ErrContractViolation, result.StoragePath), false)
			}
			return p.fail(ctx, tr, job, start, err, true)
		}
	}

	if err := p.store.CompleteExportJob(ctx, job.ID, result); err != nil {
		return fmt.Errorf("failed to record export result: %w", err)
	}
	if result.MediaFileID != "" {
		if err := p.store.MarkExported(ctx, job.ProjectID, job.UserID, result.MediaFileID); err != nil {
			logger.WithError(err).Warn("Failed to mark project exported")
		}
	}

	report(models.ExportStageComplete, 100, "Export complete!")
	metrics.RecordExportCompleted("completed", time.Since(start).Seconds())
	logger.LogJobEvent(job.ID, "export_completed", models.ExportStageComplete, map[string]interface{}{
		"video_url":          result.VideoURL,
		"file_size":          result.FileSize,
		"processing_time_ms": result.ProcessingTimeMs,
	})
	return nil
}

// renderWithEstimate calls the renderer while publishing estimated progress
func (p *Processor) renderWithEstimate(ctx context.Context, job *models.ExportJob, report func(string, float64, string)) (models.ExportResult, error) {
	expected := ExpectedRenderTime(job.Request)
	started := time.Now()

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(p.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				stage, progress := Estimate(time.Since(started), expected)
				report(stage, progress, stageMessage(stage))
			}
		}
	}()

	result, err := p.renderer.Render(ctx, job.Request)
	close(done)
	<-stopped
	return result, err
}

func stageMessage(stage string) string {
	switch stage {
	case models.ExportStageDownloading:
		return "Downloading video files..."
	case models.ExportStageTrimming:
		return "Processing clips..."
	case models.ExportStageConcatenating:
		return "Joining clips together..."
	case models.ExportStageFinalizing:
		return "Finalizing video..."
	default:
		return ""
	}
}

func (p *Processor) fail(ctx context.Context, tr *Tracker, job *models.ExportJob, start time.Time, cause error, retry bool) error {
	if err := tr.Report(ctx, models.ExportStageError, 0, cause.Error()); err != nil {
		p.logger.WithJobID(job.ID).WithError(err).Warn("Failed to publish export failure")
	}
	if err := p.store.FailExportJob(ctx, job.ID, cause.Error(), job.RetryCount); err != nil {
		p.logger.WithJobID(job.ID).WithError(err).Error("Failed to record export failure")
	}
	metrics.RecordExportCompleted("failed", time.Since(start).Seconds())
	p.logger.LogJobEvent(job.ID, "export_failed", models.ExportStageError, map[string]interface{}{
		"error":     cause.Error(),
		"retryable": retry,
		"attempt":   job.RetryCount,
	})

	if retry {
		return cause
	}
	return nil
}
