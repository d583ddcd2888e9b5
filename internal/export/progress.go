package export

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// band is the progress range a stage occupies
type band struct {
	from, to float64
}

var stageBands = map[string]band{
	models.ExportStagePreparing:     {0, 2},
	models.ExportStageLoading:       {2, 10},
	models.ExportStageDownloading:   {10, 30},
	models.ExportStageTrimming:      {30, 70},
	models.ExportStageConcatenating: {70, 90},
	models.ExportStageFinalizing:    {90, 95},
	models.ExportStageUploading:     {95, 99},
	models.ExportStageComplete:      {100, 100},
}

// StageStart returns the progress at which stage begins
func StageStart(stage string) float64 {
	return stageBands[stage].from
}

// renderStages are the stages that happen inside the render service and can
// only be estimated from elapsed time
var renderStages = []string{
	models.ExportStageDownloading,
	models.ExportStageTrimming,
	models.ExportStageConcatenating,
	models.ExportStageFinalizing,
}

// ExpectedRenderTime guesses how long the render service needs for a request
func ExpectedRenderTime(req models.ExportRequest) time.Duration {
	var seconds float64
	for _, c := range req.Clips {
		seconds += c.SourceDuration - c.TrimStart - c.TrimEnd
	}
	// roughly one second of work per two seconds of output, plus a per-clip download
	est := 5*time.Second + time.Duration(seconds*float64(time.Second)/2) + time.Duration(len(req.Clips))*2*time.Second
	if len(req.TextOverlays) > 0 {
		est += est / 4
	}
	return est
}

// Estimate maps elapsed render time onto the render stages. It approaches but
// never reaches the end of finalizing, so a slow render stalls near 95% rather
// than claiming completion.
func Estimate(elapsed, expected time.Duration) (string, float64) {
	if expected <= 0 {
		expected = time.Second
	}
	start := StageStart(models.ExportStageDownloading)
	end := stageBands[models.ExportStageFinalizing].to

	frac := 1 - math.Exp(-2*float64(elapsed)/float64(expected))
	p := start + frac*(end-start)
	p = math.Min(p, end-0.5)

	for _, stage := range renderStages {
		if p < stageBands[stage].to {
			return stage, math.Round(p*10) / 10
		}
	}
	return models.ExportStageFinalizing, math.Round(p*10) / 10
}

// Sink receives progress reports
type Sink interface {
	ReportProgress(ctx context.Context, p models.ExportProgress) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, p models.ExportProgress) error

func (f SinkFunc) ReportProgress(ctx context.Context, p models.ExportProgress) error {
	return f(ctx, p)
}

// Tracker publishes monotonic progress for one job to its sinks
type Tracker struct {
	jobID string
	sinks []Sink
	now   func() time.Time

	mu   sync.Mutex
	last models.ExportProgress
}

// NewTracker creates a tracker for jobID
func NewTracker(jobID string, sinks ...Sink) *Tracker {
	return &Tracker{jobID: jobID, sinks: sinks, now: time.Now}
}

// Report publishes a stage update. Progress never moves backwards except into
// the error stage, which keeps the last progress value.
func (t *Tracker) Report(ctx context.Context, stage string, progress float64, message string) error {
	t.mu.Lock()
	if stage == models.ExportStageError {
		progress = t.last.Progress
	} else if progress < t.last.Progress {
		progress = t.last.Progress
	}
	p := models.ExportProgress{
		JobID:    t.jobID,
		Stage:    stage,
		Progress: math.Max(0, math.Min(100, progress)),
		Message:  message,
		At:       t.now(),
	}
	if stage == models.ExportStageError {
		p.Error = message
	}
	t.last = p
	t.mu.Unlock()

	var firstErr error
	for _, s := range t.sinks {
		if err := s.ReportProgress(ctx, p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Last returns the most recent report
func (t *Tracker) Last() models.ExportProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}
