// Package monitoring watches the export pipeline: queue backlog, dead letters
// and the outcome of recent jobs.
package monitoring

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/timeline/internal/logging"
	"github.com/therealutkarshpriyadarshi/timeline/internal/metrics"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// Health levels
const (
	HealthHealthy  = "healthy"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

// Thresholds decide when the pipeline is reported as unhealthy
type Thresholds struct {
	QueueDepth  int
	DLQDepth    int
	FailureRate float64
}

// DefaultThresholds suits a small render fleet
func DefaultThresholds() Thresholds {
	return Thresholds{QueueDepth: 200, DLQDepth: 20, FailureRate: 0.1}
}

// Snapshot holds the last collected pipeline metrics
type Snapshot struct {
	QueueDepth  int                `json:"queue_depth"`
	DLQDepth    int                `json:"dlq_depth"`
	Exports     models.ExportStats `json:"exports"`
	LastUpdated time.Time          `json:"last_updated"`
}

// StatsSource reports on recent export jobs
type StatsSource interface {
	ExportStats(ctx context.Context, since time.Time) (models.ExportStats, error)
}

// QueueProvider reports queue backlogs
type QueueProvider interface {
	GetQueueDepth() (int, error)
	GetDLQDepth() (int, error)
}

// Monitor periodically collects pipeline metrics
type Monitor struct {
	stats      StatsSource
	queue      QueueProvider
	window     time.Duration
	thresholds Thresholds
	logger     *logging.Logger

	mu       sync.RWMutex
	snapshot Snapshot
	now      func() time.Time
}

// NewMonitor creates a monitor looking at jobs created within window
func NewMonitor(stats StatsSource, queue QueueProvider, window time.Duration, thresholds Thresholds, logger *logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.Nop()
	}
	if window <= 0 {
		window = time.Hour
	}
	return &Monitor{
		stats:      stats,
		queue:      queue,
		window:     window,
		thresholds: thresholds,
		logger:     logger,
		now:        time.Now,
	}
}

// Run collects every interval until ctx is done, logging new alerts
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Collect(ctx); err != nil {
				m.logger.WithError(err).Warn("Failed to collect pipeline metrics")
				continue
			}
			for _, alert := range m.Alerts() {
				m.logger.Warn(alert)
			}
		}
	}
}

// Collect refreshes the snapshot and the exported gauges
func (m *Monitor) Collect(ctx context.Context) error {
	queueDepth, err := m.queue.GetQueueDepth()
	if err != nil {
		return fmt.Errorf("failed to get queue depth: %w", err)
	}
	dlqDepth, err := m.queue.GetDLQDepth()
	if err != nil {
		return fmt.Errorf("failed to get DLQ depth: %w", err)
	}

	now := m.now()
	stats, err := m.stats.ExportStats(ctx, now.Add(-m.window))
	if err != nil {
		return fmt.Errorf("failed to get export stats: %w", err)
	}

	metrics.RecordQueueDepth(queueDepth, dlqDepth)

	m.mu.Lock()
	m.snapshot = Snapshot{
		QueueDepth:  queueDepth,
		DLQDepth:    dlqDepth,
		Exports:     stats,
		LastUpdated: now,
	}
	m.mu.Unlock()
	return nil
}

// Snapshot returns the last collected metrics
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

func (s Snapshot) failureRate() float64 {
	finished := s.Exports.Completed + s.Exports.Failed
	if finished == 0 {
		return 0
	}
	return float64(s.Exports.Failed) / float64(finished)
}

// Health summarizes the last snapshot
func (m *Monitor) Health() string {
	s := m.Snapshot()
	switch {
	case s.DLQDepth > m.thresholds.DLQDepth:
		return HealthCritical
	case s.QueueDepth > m.thresholds.QueueDepth, s.failureRate() > m.thresholds.FailureRate:
		return HealthWarning
	default:
		return HealthHealthy
	}
}

// Err reports the pipeline as failing while its health is critical
func (m *Monitor) Err() error {
	if m.Health() != HealthCritical {
		return nil
	}
	return fmt.Errorf("export pipeline critical: %s", strings.Join(m.Alerts(), "; "))
}

// Alerts describes every threshold the last snapshot exceeds
func (m *Monitor) Alerts() []string {
	s := m.Snapshot()

	var alerts []string
	if s.DLQDepth > m.thresholds.DLQDepth {
		alerts = append(alerts, fmt.Sprintf("High DLQ depth: %d exports abandoned", s.DLQDepth))
	}
	if s.QueueDepth > m.thresholds.QueueDepth {
		alerts = append(alerts, fmt.Sprintf("High queue depth: %d exports pending", s.QueueDepth))
	}
	if rate := s.failureRate(); rate > m.thresholds.FailureRate {
		alerts = append(alerts, fmt.Sprintf("High export failure rate: %.1f%%", rate*100))
	}
	return alerts
}
