package project

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

func TestClampScale(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, DefaultScale},
		{-10, DefaultScale},
		{50, 50},
		{54, 50},
		{56, 60},
		{5, MinScale},
		{500, MaxScale},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampScale(tt.in), "scale %v", tt.in)
	}

	assert.Equal(t, 60.0, ZoomIn(50))
	assert.Equal(t, MaxScale, ZoomIn(MaxScale))
	assert.Equal(t, 40.0, ZoomOut(50))
	assert.Equal(t, MinScale, ZoomOut(MinScale))
}

func TestNormalize(t *testing.T) {
	d := Normalize(models.ProjectData{
		Clips:   []models.Clip{{ID: "a", SourceDuration: 5}},
		Version: 1,
	})

	assert.NotNil(t, d.TextOverlays)
	assert.Equal(t, DefaultScale, d.TimelineScale)
	assert.Equal(t, models.ProjectDataVersion, d.Version)
	assert.Equal(t, models.DefaultAudioInfo(), d.Clips[0].Audio)

	// current documents keep explicit audio state, even an all-zero one
	d = Normalize(models.ProjectData{
		Clips:   []models.Clip{{ID: "a", SourceDuration: 5}},
		Version: models.ProjectDataVersion,
	})
	assert.False(t, d.Clips[0].Audio.HasAudio)
}

func TestSummarize(t *testing.T) {
	total, count := Summarize(models.ProjectData{Clips: []models.Clip{
		{ID: "a", SourceDuration: 10, TrimStart: 2},
		{ID: "b", SourceDuration: 5, TrimEnd: 1, StartTime: 8},
	}})
	assert.InDelta(t, 12.0, total, 1e-9)
	assert.Equal(t, 2, count)
}

func TestBuildListQuery(t *testing.T) {
	q, args := buildListQuery("u1", models.ProjectListOptions{})
	assert.Contains(t, q, "status <> 'archived'")
	assert.Contains(t, q, "ORDER BY updated_at DESC")
	assert.Equal(t, []interface{}{"u1", 20, 0}, args)
	assert.True(t, strings.HasSuffix(q, "LIMIT $2 OFFSET $3"))

	q, args = buildListQuery("u1", models.ProjectListOptions{Status: models.ProjectStatusArchived, SortBy: "name", Ascending: true, Limit: 5, Offset: 10})
	assert.Contains(t, q, "status = $2")
	assert.Contains(t, q, "ORDER BY name ASC")
	assert.Equal(t, []interface{}{"u1", models.ProjectStatusArchived, 5, 10}, args)

	q, _ = buildListQuery("u1", models.ProjectListOptions{Status: models.ProjectStatusAll, SortBy: "id; DROP TABLE projects"})
	where := q[strings.Index(q, "WHERE"):]
	assert.NotContains(t, where, "status", "all statuses are listed")
	assert.NotContains(t, q, "DROP")
	assert.Contains(t, q, "ORDER BY updated_at")
}

type fakeSaver struct {
	mu    sync.Mutex
	saves []models.ProjectData
	err   error
}

func (f *fakeSaver) Save(_ context.Context, id, userID string, _ *string, data models.ProjectData) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, data)
	return time.Now(), f.err
}

func (f *fakeSaver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeSaver) last() models.ProjectData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[len(f.saves)-1]
}

func TestAutoSaverDebounces(t *testing.T) {
	saver := &fakeSaver{}
	a := NewAutoSaver(saver, "p1", "u1", 20*time.Millisecond, nil, nil)

	for i := 0; i < 5; i++ {
		a.Schedule(models.ProjectData{TimelineScale: float64(20 + i*10)})
	}
	assert.True(t, a.Pending())

	assert.Eventually(t, func() bool { return saver.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 60.0, saver.last().TimelineScale, "latest state wins")
	assert.False(t, a.Pending())
}

func TestAutoSaverReportsErrors(t *testing.T) {
	saver := &fakeSaver{err: errors.New("db down")}
	results := make(chan error, 1)
	a := NewAutoSaver(saver, "p1", "u1", time.Millisecond, func(_ time.Time, err error) { results <- err }, nil)

	a.Schedule(models.ProjectData{})

	select {
	case err := <-results:
		assert.EqualError(t, err, "db down")
	case <-time.After(time.Second):
		t.Fatal("autosave result not reported")
	}
}

func TestAutoSaverFlushAndClose(t *testing.T) {
	saver := &fakeSaver{}
	a := NewAutoSaver(saver, "p1", "u1", time.Hour, nil, nil)

	require.NoError(t, a.Flush(context.Background()))
	assert.Equal(t, 0, saver.count(), "nothing pending")

	a.Schedule(models.ProjectData{TimelineScale: 30})
	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, 1, saver.count())

	a.Schedule(models.ProjectData{TimelineScale: 40})
	assert.False(t, a.Pending(), "closed autosaver ignores new work")
}

func TestAutoSaverCloseWaitsForRunningSave(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	saver := &gatedSaver{started: started, release: release}
	a := NewAutoSaver(saver, "p1", "u1", time.Millisecond, nil, nil)

	a.Schedule(models.ProjectData{TimelineScale: 30})
	<-started

	closed := make(chan error, 1)
	go func() { closed <- a.Close(context.Background()) }()

	select {
	case <-closed:
		t.Fatal("Close returned while a save was running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-closed)
	assert.Equal(t, 1, saver.count())
}

func TestAutoSaverNoSaveAfterClose(t *testing.T) {
	for i := 0; i < 50; i++ {
		saver := &fakeSaver{}
		a := NewAutoSaver(saver, "p1", "u1", time.Duration(i%3)*time.Millisecond, nil, nil)

		for j := 0; j < 5; j++ {
			a.Schedule(models.ProjectData{TimelineScale: float64(20 + j*10)})
		}
		require.NoError(t, a.Close(context.Background()))

		after := saver.count()
		assert.LessOrEqual(t, after, 5)
		time.Sleep(5 * time.Millisecond)
		assert.Equal(t, after, saver.count(), "save ran after Close returned")
		assert.False(t, a.Pending())
	}
}

// gatedSaver blocks its first save until release is closed
type gatedSaver struct {
	fakeSaver
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedSaver) Save(ctx context.Context, id, userID string, name *string, data models.ProjectData) (time.Time, error) {
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return g.fakeSaver.Save(ctx, id, userID, name, data)
}
