package interaction

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

var (
	ErrGestureActive = errors.New("another gesture is already in progress")
	ErrNoGesture     = errors.New("no gesture in progress")
	ErrUnknownKind   = errors.New("unknown gesture kind")
)

// Resolver turns the latest pointer position into a draft
type Resolver func(s Session) (Draft, error)

// Committer writes a finished gesture to the committed model
type Committer func(s Session) error

// Manager owns at most one active gesture. Pointer updates are coalesced so
// that only the latest position is resolved, at most once per frame.
type Manager struct {
	mu sync.Mutex

	active  *Session
	pending *float64

	resolve  Resolver
	commit   Committer
	throttle *Throttle
}

// NewManager creates a gesture manager. A nil throttle resolves every pointer update.
func NewManager(resolve Resolver, commit Committer, throttle *Throttle) *Manager {
	return &Manager{
		resolve:  resolve,
		commit:   commit,
		throttle: throttle,
	}
}

// Begin starts a gesture on an entity with the pointer at origin
func (m *Manager) Begin(kind Kind, entityID string, origin float64) (Session, error) {
	if !kind.Valid() {
		return Session{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return Session{}, ErrGestureActive
	}

	s := &Session{
		ID:        uuid.New().String(),
		EntityID:  entityID,
		Kind:      kind,
		Origin:    origin,
		Pointer:   origin,
		StartedAt: time.Now(),
	}
	draft, err := m.resolve(*s)
	if err != nil {
		return Session{}, err
	}
	s.Draft = draft
	m.active = s
	m.pending = nil
	return *s, nil
}

// Pointer records the latest pointer time. It is resolved immediately when the
// throttle allows, otherwise on the next Frame or End.
func (m *Manager) Pointer(t float64) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return Session{}, ErrNoGesture
	}
	m.pending = &t
	if m.throttle.Allow() {
		if err := m.flushLocked(); err != nil {
			return *m.active, err
		}
	}
	return *m.active, nil
}

// Frame resolves the pending pointer update, if any. It reports whether the
// draft changed.
func (m *Manager) Frame() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil || m.pending == nil {
		return false, nil
	}
	return true, m.flushLocked()
}

func (m *Manager) flushLocked() error {
	if m.pending == nil {
		return nil
	}
	next := *m.active
	next.Pointer = *m.pending
	m.pending = nil

	draft, err := m.resolve(next)
	if err != nil {
		return err
	}
	next.Draft = draft
	next.Updates++
	*m.active = next
	return nil
}

// End flushes the last pointer update and hands the session to the committer
// exactly once. The session is cleared whether or not the commit succeeds.
func (m *Manager) End() (Session, error) {
	m.mu.Lock()
	if m.active == nil {
		m.mu.Unlock()
		return Session{}, ErrNoGesture
	}
	flushErr := m.flushLocked()
	s := *m.active
	m.active = nil
	m.pending = nil
	m.mu.Unlock()

	if flushErr != nil {
		return s, flushErr
	}
	return s, m.commit(s)
}

// Cancel drops the active gesture without committing
func (m *Manager) Cancel() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return Session{}, false
	}
	s := *m.active
	m.active = nil
	m.pending = nil
	return s, true
}

// Active returns the in-flight gesture
func (m *Manager) Active() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return Session{}, false
	}
	return *m.active, true
}

// InProgress reports whether a gesture is active
func (m *Manager) InProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Override returns the committed clips with the active clip draft applied.
// Readers such as the playback scheduler use this instead of the raw model.
func (m *Manager) Override(clips []models.Clip) []models.Clip {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return clips
	}
	return m.active.ApplyClip(clips)
}
