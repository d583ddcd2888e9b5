package project

import (
	"context"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/timeline/internal/logging"
	"github.com/therealutkarshpriyadarshi/timeline/internal/metrics"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// Saver is the persistence call the autosaver makes
type Saver interface {
	Save(ctx context.Context, id, userID string, name *string, data models.ProjectData) (time.Time, error)
}

// ResultFunc receives the outcome of every background save
type ResultFunc func(savedAt time.Time, err error)

const saveTimeout = 10 * time.Second

// AutoSaver coalesces editor state changes into debounced background saves.
// Schedule never blocks on the database; the newest state always wins.
type AutoSaver struct {
	saver     Saver
	projectID string
	userID    string
	debounce  time.Duration
	onResult  ResultFunc
	logger    *logging.Logger

	mu      sync.Mutex
	pending *models.ProjectData
	timer   *time.Timer
	closed  bool

	saveMu sync.Mutex
	wg     sync.WaitGroup
}

// NewAutoSaver creates an autosaver for one project
func NewAutoSaver(saver Saver, projectID, userID string, debounce time.Duration, onResult ResultFunc, logger *logging.Logger) *AutoSaver {
	if logger == nil {
		logger = logging.Nop()
	}
	return &AutoSaver{
		saver:     saver,
		projectID: projectID,
		userID:    userID,
		debounce:  debounce,
		onResult:  onResult,
		logger:    logger.WithProjectID(projectID),
	}
}

// Schedule queues data for saving after the debounce window
func (a *AutoSaver) Schedule(data models.ProjectData) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.pending = &data

	// an armed timer holds one wg count; a timer that already fired releases
	// its own count from fire
	if a.timer != nil && a.timer.Stop() {
		a.wg.Done()
	}
	a.wg.Add(1)
	a.timer = time.AfterFunc(a.debounce, a.fire)
}

// Pending reports whether unsaved state is queued
func (a *AutoSaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

func (a *AutoSaver) fire() {
	defer a.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	_ = a.saveNow(ctx)
}

func (a *AutoSaver) take() *models.ProjectData {
	a.mu.Lock()
	defer a.mu.Unlock()

	data := a.pending
	a.pending = nil
	if a.timer != nil {
		if a.timer.Stop() {
			a.wg.Done()
		}
		a.timer = nil
	}
	return data
}

func (a *AutoSaver) saveNow(ctx context.Context) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	data := a.take()
	if data == nil {
		return nil
	}

	savedAt, err := a.saver.Save(ctx, a.projectID, a.userID, nil, *data)
	metrics.RecordAutoSave(err)
	if err != nil {
		a.logger.WithError(err).Warn("Autosave failed")
	} else {
		a.logger.Debug("Autosaved project")
	}
	if a.onResult != nil {
		a.onResult(savedAt, err)
	}
	return err
}

// Flush saves any pending state immediately
func (a *AutoSaver) Flush(ctx context.Context) error {
	return a.saveNow(ctx)
}

// Close flushes pending state and stops accepting new work. No save starts
// after Close returns.
func (a *AutoSaver) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	err := a.saveNow(ctx)
	a.wg.Wait()
	return err
}
