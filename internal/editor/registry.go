package editor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/timeline/internal/logging"
	"github.com/therealutkarshpriyadarshi/timeline/internal/project"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

// ProjectLoader opens a stored project for its owner
type ProjectLoader interface {
	Open(ctx context.Context, id, userID string) (*models.Project, error)
}

// Locker gives one session at a time ownership of a project
type Locker interface {
	AcquireLock(ctx context.Context, resource, owner string, ttl time.Duration) (bool, error)
	RefreshLock(ctx context.Context, resource, owner string, ttl time.Duration) error
	ReleaseLock(ctx context.Context, resource, owner string) error
}

// Registry tracks the open sessions of this process and closes idle ones
type Registry struct {
	loader ProjectLoader
	saver  project.Saver
	drafts DraftStore
	locks  Locker
	opts   Options
	logger *logging.Logger

	mu        sync.Mutex
	sessions  map[string]*Session
	byProject map[string]string
	opening   map[string]chan struct{}
}

// NewRegistry creates a registry. saver, drafts and locks may be nil.
func NewRegistry(loader ProjectLoader, saver project.Saver, drafts DraftStore, locks Locker, opts Options, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Registry{
		loader:    loader,
		saver:     saver,
		drafts:    drafts,
		locks:     locks,
		opts:      opts.withDefaults(),
		logger:    logger,
		sessions:  make(map[string]*Session),
		byProject: make(map[string]string),
		opening:   make(map[string]chan struct{}),
	}
}

func lockResource(projectID string) string {
	return "project:" + projectID
}

// Open returns the user's session on a project, creating it if needed. A
// project held by a session in another process is refused. Loading happens
// outside the registry lock; concurrent opens of the same project wait for
// the first one to finish.
func (r *Registry) Open(ctx context.Context, projectID, userID string) (*Session, bool, error) {
	var done chan struct{}
	for done == nil {
		r.mu.Lock()
		if id, ok := r.byProject[projectID]; ok {
			s := r.sessions[id]
			r.mu.Unlock()
			if s.UserID != userID {
				return nil, false, ErrProjectLocked
			}
			s.mu.Lock()
			s.lastActive = time.Now()
			s.mu.Unlock()
			return s, false, nil
		}

		if wait, ok := r.opening[projectID]; ok {
			r.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, false, ctx.Err()
			}
		}

		done = make(chan struct{})
		r.opening[projectID] = done
		r.mu.Unlock()
	}

	s, err := r.load(ctx, projectID, userID)

	r.mu.Lock()
	delete(r.opening, projectID)
	if err == nil {
		r.sessions[s.ID] = s
		r.byProject[projectID] = s.ID
	}
	close(done)
	r.mu.Unlock()

	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// load locks the project, reads it and builds its session
func (r *Registry) load(ctx context.Context, projectID, userID string) (*Session, error) {
	sessionID := uuid.New().String()
	if r.locks != nil {
		ok, err := r.locks.AcquireLock(ctx, lockResource(projectID), sessionID, r.opts.IdleTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to lock project: %w", err)
		}
		if !ok {
			return nil, ErrProjectLocked
		}
	}
	release := func() {
		if r.locks != nil {
			_ = r.locks.ReleaseLock(ctx, lockResource(projectID), sessionID)
		}
	}

	p, err := r.loader.Open(ctx, projectID, userID)
	if err != nil {
		release()
		return nil, err
	}

	s, err := NewSession(p, r.opts, Deps{ID: sessionID, Saver: r.saver, Drafts: r.drafts, Logger: r.logger})
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	if r.drafts != nil {
		snap, err := r.drafts.GetDraft(ctx, projectID)
		if err != nil {
			r.logger.WithProjectID(projectID).WithError(err).Warn("Ignoring unreadable draft")
		} else if snap != nil {
			if recovered, err := s.Recover(*snap); err == nil && recovered {
				r.logger.WithProjectID(projectID).Info("Recovered unsaved draft")
			}
		}
	}
	return s, nil
}

// Get returns a session owned by userID
func (r *Registry) Get(sessionID, userID string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	r.mu.Unlock()

	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close ends a session owned by userID
func (r *Registry) Close(ctx context.Context, sessionID, userID string) error {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if !ok || s.UserID != userID {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	r.removeLocked(s)
	r.mu.Unlock()

	return r.shutdown(ctx, s)
}

// CloseProject ends userID's session on projectID, if there is one
func (r *Registry) CloseProject(ctx context.Context, projectID, userID string) error {
	r.mu.Lock()
	id, ok := r.byProject[projectID]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	s := r.sessions[id]
	if s.UserID != userID {
		r.mu.Unlock()
		return ErrProjectLocked
	}
	r.removeLocked(s)
	r.mu.Unlock()

	return r.shutdown(ctx, s)
}

func (r *Registry) removeLocked(s *Session) {
	delete(r.sessions, s.ID)
	if r.byProject[s.ProjectID] == s.ID {
		delete(r.byProject, s.ProjectID)
	}
}

func (r *Registry) shutdown(ctx context.Context, s *Session) error {
	err := s.Close(ctx)
	if r.locks != nil {
		if lerr := r.locks.ReleaseLock(ctx, lockResource(s.ProjectID), s.ID); lerr != nil {
			r.logger.WithSessionID(s.ID).WithError(lerr).Warn("Failed to release project lock")
		}
	}
	return err
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle since before now-IdleTimeout and refreshes the
// project locks of the rest. It returns how many sessions were closed.
func (r *Registry) Sweep(ctx context.Context, now time.Time) int {
	r.mu.Lock()
	var idle, live []*Session
	for _, s := range r.sessions {
		if now.Sub(s.LastActive()) > r.opts.IdleTimeout && !s.Playing() {
			idle = append(idle, s)
			r.removeLocked(s)
		} else {
			live = append(live, s)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		if err := r.shutdown(ctx, s); err != nil {
			r.logger.WithSessionID(s.ID).WithError(err).Warn("Idle session closed with unsaved changes")
		}
	}
	if r.locks != nil {
		for _, s := range live {
			if err := r.locks.RefreshLock(ctx, lockResource(s.ProjectID), s.ID, r.opts.IdleTimeout); err != nil {
				r.logger.WithSessionID(s.ID).WithError(err).Warn("Failed to refresh project lock")
			}
		}
	}
	return len(idle)
}

// Run sweeps idle sessions every interval until ctx is done, then closes
// every remaining session
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			r.CloseAll(shutdownCtx)
			cancel()
			return
		case now := <-ticker.C:
			if n := r.Sweep(ctx, now); n > 0 {
				r.logger.Infof("Closed %d idle sessions", n)
			}
		}
	}
}

// CloseAll ends every session, flushing their pending saves
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
		r.removeLocked(s)
	}
	r.mu.Unlock()

	for _, s := range all {
		if err := r.shutdown(ctx, s); err != nil {
			r.logger.WithSessionID(s.ID).WithError(err).Error("Failed to close session")
		}
	}
}
