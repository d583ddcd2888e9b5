package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

type fakeStats struct {
	stats models.ExportStats
	since time.Time
	err   error
}

func (f *fakeStats) ExportStats(_ context.Context, since time.Time) (models.ExportStats, error) {
	f.since = since
	return f.stats, f.err
}

type fakeQueue struct {
	depth, dlq int
	err        error
}

func (f *fakeQueue) GetQueueDepth() (int, error) { return f.depth, f.err }
func (f *fakeQueue) GetDLQDepth() (int, error)   { return f.dlq, f.err }

func newTestMonitor(stats *fakeStats, queue *fakeQueue) *Monitor {
	m := NewMonitor(stats, queue, time.Hour, DefaultThresholds(), nil)
	m.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return m
}

func TestCollectHealthy(t *testing.T) {
	stats := &fakeStats{stats: models.ExportStats{Total: 12, Completed: 10, Failed: 1, Active: 1}}
	m := newTestMonitor(stats, &fakeQueue{depth: 3})

	require.NoError(t, m.Collect(context.Background()))

	s := m.Snapshot()
	assert.Equal(t, 3, s.QueueDepth)
	assert.Equal(t, int64(12), s.Exports.Total)
	assert.Equal(t, time.Date(2026, 5, 1, 11, 0, 0, 0, time.UTC), stats.since)
	assert.Equal(t, HealthHealthy, m.Health())
	assert.Empty(t, m.Alerts())
}

func TestHealthLevels(t *testing.T) {
	tests := []struct {
		name   string
		stats  models.ExportStats
		queue  fakeQueue
		health string
		alerts int
	}{
		{"dead letters", models.ExportStats{}, fakeQueue{dlq: 21}, HealthCritical, 1},
		{"backlog", models.ExportStats{}, fakeQueue{depth: 500}, HealthWarning, 1},
		{"failures", models.ExportStats{Completed: 8, Failed: 2}, fakeQueue{}, HealthWarning, 1},
		{"everything", models.ExportStats{Completed: 1, Failed: 1}, fakeQueue{depth: 500, dlq: 50}, HealthCritical, 3},
		{"nothing finished", models.ExportStats{Total: 4, Active: 4}, fakeQueue{}, HealthHealthy, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.queue
			m := newTestMonitor(&fakeStats{stats: tt.stats}, &q)
			require.NoError(t, m.Collect(context.Background()))
			assert.Equal(t, tt.health, m.Health())
			assert.Len(t, m.Alerts(), tt.alerts)
			if tt.health == HealthCritical {
				assert.ErrorContains(t, m.Err(), "High DLQ depth")
			} else {
				assert.NoError(t, m.Err())
			}
		})
	}
}

func TestCollectKeepsLastSnapshotOnError(t *testing.T) {
	stats := &fakeStats{stats: models.ExportStats{Total: 1}}
	queue := &fakeQueue{depth: 7}
	m := newTestMonitor(stats, queue)
	require.NoError(t, m.Collect(context.Background()))

	queue.err = errors.New("channel closed")
	assert.Error(t, m.Collect(context.Background()))
	assert.Equal(t, 7, m.Snapshot().QueueDepth)
}
