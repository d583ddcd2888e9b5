package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/timeline/internal/history"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	return cache, mr
}

func sampleSnapshot() history.Snapshot {
	return history.Snapshot{
		Clips: []models.Clip{
			{ID: "a", SourceURL: "https://cdn/a.mp4", SourceDuration: 10, TrimStart: 1, Audio: models.DefaultAudioInfo()},
			{ID: "b", SourceURL: "https://cdn/b.mp4", SourceDuration: 6, StartTime: 9, TransitionOut: &models.Transition{Type: "fade", Duration: 1}, Audio: models.DefaultAudioInfo()},
		},
		TextOverlays: []models.TextOverlay{
			{ID: "t1", StartTime: 2, Duration: 3, Text: "Hello", Position: models.Position{X: 50, Y: 50}, Style: models.DefaultTextStyle()},
		},
	}
}

func TestNewCache(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	require.NoError(t, cache.Ping(context.Background()))
}

func TestNewCache_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	host, port := mr.Host(), mr.Server().Addr().Port
	mr.Close()

	_, err = NewCache(host, port, "", 0)
	assert.Error(t, err)
}

func TestCache_DraftRoundTrip(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	snap := sampleSnapshot()

	require.NoError(t, cache.SetDraft(ctx, "project-1", snap, time.Hour))

	got, err := cache.GetDraft(ctx, "project-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	want, err := history.Sum(snap)
	require.NoError(t, err)
	sum, err := history.Sum(*got)
	require.NoError(t, err)
	assert.Equal(t, want, sum)
	assert.Equal(t, "b", got.Clips[1].ID)
	assert.Equal(t, "fade", got.Clips[1].TransitionOut.Type)

	// stored compressed, not as plain CBOR
	raw, err := mr.Get("draft:project-1")
	require.NoError(t, err)
	encoded, err := history.Encode(snap)
	require.NoError(t, err)
	assert.NotEqual(t, string(encoded), raw)
}

func TestCache_DraftMissAndDelete(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	got, err := cache.GetDraft(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.SetDraft(ctx, "project-1", sampleSnapshot(), time.Hour))
	require.NoError(t, cache.DeleteDraft(ctx, "project-1"))

	got, err = cache.GetDraft(ctx, "project-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_DraftExpires(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.SetDraft(ctx, "project-1", sampleSnapshot(), time.Minute))

	mr.FastForward(2 * time.Minute)

	got, err := cache.GetDraft(ctx, "project-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_DraftCorrupt(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	require.NoError(t, mr.Set("draft:broken", "not zstd"))

	_, err := cache.GetDraft(context.Background(), "broken")
	assert.Error(t, err)
}

func TestCache_ExportProgress(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	got, err := cache.GetExportProgress(ctx, "job-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	p := models.ExportProgress{JobID: "job-1", Stage: models.ExportStageTrimming, Progress: 40, Message: "Trimming clip 2 of 3"}
	require.NoError(t, cache.SetExportProgress(ctx, p, time.Hour))

	got, err = cache.GetExportProgress(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.ExportStageTrimming, got.Stage)
	assert.Equal(t, 40.0, got.Progress)
}

func TestCache_RateLimit(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	key := "export:user-123"
	limit := int64(5)
	window := 1 * time.Minute

	for i := 0; i < 5; i++ {
		allowed, err := cache.CheckRateLimit(ctx, key, limit, window)
		if err != nil {
			t.Fatalf("CheckRateLimit failed: %v", err)
		}
		if !allowed {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	allowed, err := cache.CheckRateLimit(ctx, key, limit, window)
	require.NoError(t, err)
	assert.False(t, allowed, "Request beyond limit should be denied")

	mr.FastForward(2 * window)
	allowed, err = cache.CheckRateLimit(ctx, key, limit, window)
	require.NoError(t, err)
	assert.True(t, allowed, "Window should reset")
}

func TestCache_Locking(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	resource := "project:test-123"

	acquired, err := cache.AcquireLock(ctx, resource, "api-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired, "First lock acquisition should succeed")

	acquired, err = cache.AcquireLock(ctx, resource, "api-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired, "Second lock acquisition should fail")

	// another owner cannot release or refresh it
	assert.ErrorIs(t, cache.ReleaseLock(ctx, resource, "api-2"), ErrLockNotHeld)
	assert.ErrorIs(t, cache.RefreshLock(ctx, resource, "api-2", time.Minute), ErrLockNotHeld)

	require.NoError(t, cache.RefreshLock(ctx, resource, "api-1", 10*time.Minute))
	assert.Greater(t, mr.TTL("lock:"+resource), 5*time.Minute)

	require.NoError(t, cache.ReleaseLock(ctx, resource, "api-1"))

	acquired, err = cache.AcquireLock(ctx, resource, "api-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired, "Lock acquisition after release should succeed")
}

func BenchmarkCache_SetDraft(b *testing.B) {
	mr, _ := miniredis.Run()
	defer mr.Close()

	cache, _ := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	defer cache.Close()

	ctx := context.Background()
	snap := sampleSnapshot()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cache.SetDraft(ctx, "bench", snap, time.Hour)
	}
}
