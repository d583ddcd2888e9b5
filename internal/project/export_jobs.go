package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/therealutkarshpriyadarshi/timeline/internal/tracing"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

const exportColumns = `id, project_id, user_id, stage, progress, message, error_msg, retry_count,
	request, result, started_at, completed_at, created_at, updated_at`

func scanExportJob(row pgx.Row) (*models.ExportJob, error) {
	var j models.ExportJob
	err := row.Scan(
		&j.ID, &j.ProjectID, &j.UserID, &j.Stage, &j.Progress, &j.Message, &j.ErrorMsg, &j.RetryCount,
		&j.Request, &j.Result, &j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateExportJob records a new export in the preparing stage
func (r *Repository) CreateExportJob(ctx context.Context, job *models.ExportJob) (err error) {
	span, ctx := tracing.StartProjectSpan(ctx, "export.create", job.ProjectID)
	defer tracing.FinishSpan(span)
	defer observe("create_export_job", time.Now(), &err)

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Stage == "" {
		job.Stage = models.ExportStagePreparing
	}

	err = r.db.Pool.QueryRow(ctx, `
		INSERT INTO export_jobs (id, project_id, user_id, stage, progress, request)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, job.ID, job.ProjectID, job.UserID, job.Stage, job.Progress, job.Request).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		tracing.LogError(span, err)
		return fmt.Errorf("failed to create export job: %w", err)
	}

	return nil
}

// GetExportJob retrieves an export job
func (r *Repository) GetExportJob(ctx context.Context, id string) (job *models.ExportJob, err error) {
	defer observe("get_export_job", time.Now(), &err)

	job, err = scanExportJob(r.db.Pool.QueryRow(ctx, `SELECT `+exportColumns+` FROM export_jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get export job: %w", err)
	}

	return job, nil
}

// ListExportJobs returns a project's exports, newest first
func (r *Repository) ListExportJobs(ctx context.Context, projectID, userID string, limit int) (jobs []*models.ExportJob, err error) {
	defer observe("list_export_jobs", time.Now(), &err)

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+exportColumns+` FROM export_jobs
		WHERE project_id = $1 AND user_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, projectID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list export jobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		j, err := scanExportJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export job: %w", err)
		}
		jobs = append(jobs, j)
	}

	return jobs, rows.Err()
}

// UpdateExportProgress moves a job to a stage; the first report stamps started_at
func (r *Repository) UpdateExportProgress(ctx context.Context, id, stage string, progress float64, message string) (err error) {
	defer observe("update_export_progress", time.Now(), &err)

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE export_jobs
		SET stage = $2, progress = $3, message = $4, started_at = COALESCE(started_at, NOW()), updated_at = NOW()
		WHERE id = $1
	`, id, stage, progress, message)
	if err != nil {
		return fmt.Errorf("failed to update export progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExportNotFound
	}

	return nil
}

// CompleteExportJob stores the render result
func (r *Repository) CompleteExportJob(ctx context.Context, id string, result models.ExportResult) (err error) {
	defer observe("complete_export_job", time.Now(), &err)

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE export_jobs
		SET stage = $2, progress = 100, result = $3, error_msg = '', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id, models.ExportStageComplete, result)
	if err != nil {
		return fmt.Errorf("failed to complete export job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExportNotFound
	}

	return nil
}

// FailExportJob marks an attempt as failed; retries bump retry_count
func (r *Repository) FailExportJob(ctx context.Context, id, errMsg string, retryCount int) (err error) {
	defer observe("fail_export_job", time.Now(), &err)

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE export_jobs
		SET stage = $2, error_msg = $3, retry_count = $4, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id, models.ExportStageError, errMsg, retryCount)
	if err != nil {
		return fmt.Errorf("failed to fail export job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExportNotFound
	}

	return nil
}

// ResetExportJob puts a failed job back at the start of the pipeline
func (r *Repository) ResetExportJob(ctx context.Context, id string) (err error) {
	defer observe("reset_export_job", time.Now(), &err)

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE export_jobs
		SET stage = $2, progress = 0, message = 'Queued', error_msg = '', retry_count = 0,
		    started_at = NULL, completed_at = NULL, updated_at = NOW()
		WHERE id = $1
	`, id, models.ExportStagePreparing)
	if err != nil {
		return fmt.Errorf("failed to reset export job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExportNotFound
	}

	return nil
}

// ExportStats counts the export jobs created since a point in time
func (r *Repository) ExportStats(ctx context.Context, since time.Time) (stats models.ExportStats, err error) {
	defer observe("export_stats", time.Now(), &err)

	err = r.db.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE stage = $2),
			COUNT(*) FILTER (WHERE stage = $3),
			COALESCE(AVG(EXTRACT(EPOCH FROM (started_at - created_at))) FILTER (WHERE started_at IS NOT NULL), 0),
			COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - started_at))) FILTER (WHERE stage = $2), 0)
		FROM export_jobs
		WHERE created_at >= $1
	`, since, models.ExportStageComplete, models.ExportStageError).Scan(
		&stats.Total, &stats.Completed, &stats.Failed, &stats.AverageWaitSeconds, &stats.AverageRenderSeconds,
	)
	if err != nil {
		return models.ExportStats{}, fmt.Errorf("failed to get export stats: %w", err)
	}

	stats.Active = stats.Total - stats.Completed - stats.Failed
	return stats, nil
}
