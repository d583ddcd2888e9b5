package project

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/timeline/internal/database"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// setupRepository connects to TIMELINE_TEST_DATABASE_URL; the tests are
// skipped when it is unset
func setupRepository(t *testing.T) *Repository {
	dsn := os.Getenv("TIMELINE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping integration test - TIMELINE_TEST_DATABASE_URL not set")
	}

	db, err := database.Connect(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(context.Background()))

	return NewRepository(db)
}

func TestRepository_ProjectLifecycle(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	user := "user-" + uuid.New().String()

	p := &models.Project{UserID: user, Name: "Launch"}
	require.NoError(t, repo.Create(ctx, p))
	assert.Equal(t, models.ProjectStatusDraft, p.Status)

	data := models.ProjectData{
		Clips:         []models.Clip{{ID: "a", SourceURL: "https://cdn/a.mp4", SourceDuration: 6, Audio: models.DefaultAudioInfo()}},
		TimelineScale: 70,
	}
	_, err := repo.Save(ctx, p.ID, user, nil, data)
	require.NoError(t, err)

	opened, err := repo.Open(ctx, p.ID, user)
	require.NoError(t, err)
	require.NotNil(t, opened.LastOpenedAt)
	assert.Equal(t, 70.0, opened.Data.TimelineScale)
	assert.Equal(t, 1, opened.ClipCount)
	assert.InDelta(t, 6.0, opened.TotalDuration, 1e-9)

	_, err = repo.Get(ctx, p.ID, "someone-else")
	assert.ErrorIs(t, err, ErrNotFound)

	dup, err := repo.Duplicate(ctx, p.ID, user, "")
	require.NoError(t, err)
	assert.Equal(t, "Launch (copy)", dup.Name)

	require.NoError(t, repo.Archive(ctx, p.ID, user))
	list, err := repo.List(ctx, user, models.ProjectListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, dup.ID, list[0].ID)

	require.NoError(t, repo.MarkExported(ctx, dup.ID, user, "media-9"))
	exported, err := repo.Get(ctx, dup.ID, user)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusExported, exported.Status)
	require.NotNil(t, exported.ExportedMediaID)
	assert.Equal(t, "media-9", *exported.ExportedMediaID)

	require.NoError(t, repo.Delete(ctx, p.ID, user))
	assert.ErrorIs(t, repo.Delete(ctx, p.ID, user), ErrNotFound)
}

func TestRepository_ExportJobs(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()
	user := "user-" + uuid.New().String()

	p := &models.Project{UserID: user, Name: "Export me"}
	require.NoError(t, repo.Create(ctx, p))

	job := &models.ExportJob{ProjectID: p.ID, UserID: user, Request: models.ExportRequest{ProjectName: p.Name, UserID: user}}
	require.NoError(t, repo.CreateExportJob(ctx, job))

	require.NoError(t, repo.UpdateExportProgress(ctx, job.ID, models.ExportStageTrimming, 40, "trimming"))
	require.NoError(t, repo.CompleteExportJob(ctx, job.ID, models.ExportResult{Success: true, VideoURL: "https://cdn/out.mp4", MediaFileID: "m1"}))

	got, err := repo.GetExportJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStageComplete, got.Stage)
	require.NotNil(t, got.Result)
	assert.Equal(t, "m1", got.Result.MediaFileID)
	assert.NotNil(t, got.StartedAt)

	jobs, err := repo.ListExportJobs(ctx, p.ID, user, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	_, err = repo.GetExportJob(ctx, uuid.New().String())
	assert.ErrorIs(t, err, ErrExportNotFound)

	failed := &models.ExportJob{ProjectID: p.ID, UserID: user, Request: job.Request}
	require.NoError(t, repo.CreateExportJob(ctx, failed))
	require.NoError(t, repo.FailExportJob(ctx, failed.ID, "render timed out", 3))
	require.NoError(t, repo.ResetExportJob(ctx, failed.ID))

	got, err = repo.GetExportJob(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStagePreparing, got.Stage)
	assert.Empty(t, got.ErrorMsg)
	assert.Zero(t, got.RetryCount)
	assert.Nil(t, got.CompletedAt)

	stats, err := repo.ExportStats(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Total, int64(2))
}
