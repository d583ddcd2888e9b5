package editor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/timeline/internal/history"
	"github.com/therealutkarshpriyadarshi/timeline/internal/project"
	"github.com/therealutkarshpriyadarshi/timeline/pkg/models"
)

type memLoader struct {
	projects map[string]*models.Project
	opened   int
}

func (m *memLoader) Open(_ context.Context, id, userID string) (*models.Project, error) {
	p, ok := m.projects[id]
	if !ok || p.UserID != userID {
		return nil, project.ErrNotFound
	}
	m.opened++
	cp := *p
	return &cp, nil
}

type memLocks struct {
	mu     sync.Mutex
	owners map[string]string
}

func newMemLocks() *memLocks {
	return &memLocks{owners: make(map[string]string)}
}

func (m *memLocks) AcquireLock(_ context.Context, resource, owner string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.owners[resource]; held {
		return false, nil
	}
	m.owners[resource] = owner
	return true, nil
}

func (m *memLocks) RefreshLock(context.Context, string, string, time.Duration) error {
	return nil
}

func (m *memLocks) ReleaseLock(_ context.Context, resource, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owners[resource] == owner {
		delete(m.owners, resource)
	}
	return nil
}

func (m *memLocks) holder(resource string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owners[resource]
}

func newTestRegistry(locks Locker, drafts DraftStore) (*Registry, *memLoader) {
	loader := &memLoader{projects: map[string]*models.Project{
		"project-1": {ID: "project-1", UserID: "user-1", Name: "Trip"},
		"project-2": {ID: "project-2", UserID: "user-2", Name: "Other"},
	}}
	opts := testOptions()
	opts.IdleTimeout = time.Minute
	return NewRegistry(loader, nil, drafts, locks, opts, nil), loader
}

func TestRegistryOpenReusesSession(t *testing.T) {
	locks := newMemLocks()
	reg, loader := newTestRegistry(locks, nil)
	ctx := context.Background()
	defer reg.CloseAll(ctx)

	s, created, err := reg.Open(ctx, "project-1", "user-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, s.ID, locks.holder("project:project-1"))

	again, created, err := reg.Open(ctx, "project-1", "user-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, s.ID, again.ID)
	assert.Equal(t, 1, loader.opened)

	got, err := reg.Get(s.ID, "user-1")
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = reg.Get(s.ID, "user-2")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, _, err = reg.Open(ctx, "project-2", "user-1")
	assert.ErrorIs(t, err, project.ErrNotFound)
	assert.Empty(t, locks.holder("project:project-2"), "failed opens release the lock")
}

func TestRegistryRefusesLockedProject(t *testing.T) {
	locks := newMemLocks()
	locks.owners["project:project-1"] = "session-in-another-process"
	reg, _ := newTestRegistry(locks, nil)

	_, _, err := reg.Open(context.Background(), "project-1", "user-1")
	assert.ErrorIs(t, err, ErrProjectLocked)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryCloseReleasesLock(t *testing.T) {
	locks := newMemLocks()
	reg, _ := newTestRegistry(locks, nil)
	ctx := context.Background()

	s, _, err := reg.Open(ctx, "project-1", "user-1")
	require.NoError(t, err)

	assert.ErrorIs(t, reg.Close(ctx, s.ID, "user-2"), ErrSessionNotFound)
	require.NoError(t, reg.Close(ctx, s.ID, "user-1"))
	assert.Empty(t, locks.holder("project:project-1"))
	assert.Equal(t, 0, reg.Len())

	_, err = s.AddClips(sources(1))
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestRegistryCloseProject(t *testing.T) {
	locks := newMemLocks()
	reg, _ := newTestRegistry(locks, nil)
	ctx := context.Background()

	require.NoError(t, reg.CloseProject(ctx, "project-1", "user-1"), "no session is a no-op")

	_, _, err := reg.Open(ctx, "project-1", "user-1")
	require.NoError(t, err)
	assert.ErrorIs(t, reg.CloseProject(ctx, "project-1", "user-2"), ErrProjectLocked)
	require.NoError(t, reg.CloseProject(ctx, "project-1", "user-1"))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistrySweepClosesIdleSessions(t *testing.T) {
	locks := newMemLocks()
	reg, _ := newTestRegistry(locks, nil)
	ctx := context.Background()

	s, _, err := reg.Open(ctx, "project-1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, 0, reg.Sweep(ctx, time.Now()))
	assert.Equal(t, 1, reg.Len())

	assert.Equal(t, 1, reg.Sweep(ctx, s.LastActive().Add(2*time.Minute)))
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, locks.holder("project:project-1"))
}

func TestRegistryRecoversDraft(t *testing.T) {
	drafts := newMemDrafts()
	drafts.drafts["project-1"] = history.Snapshot{
		Clips: []models.Clip{{
			ID:             "clip-1",
			SourceURL:      "https://cdn.example.com/a.mp4",
			SourceDuration: 6,
			Audio:          models.DefaultAudioInfo(),
		}},
	}
	reg, _ := newTestRegistry(nil, drafts)
	ctx := context.Background()
	defer reg.CloseAll(ctx)

	s, _, err := reg.Open(ctx, "project-1", "user-1")
	require.NoError(t, err)

	st := s.State()
	require.Len(t, st.Clips, 1)
	assert.Equal(t, "clip-1", st.Clips[0].ID)
	assert.True(t, st.CanUndo, "the stored state is one undo away")

	ok, err := s.Undo()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, s.State().Clips)
}

// gatedLoader blocks Open until release is closed
type gatedLoader struct {
	inner   *memLoader
	mu      sync.Mutex
	entered chan struct{}
	release chan struct{}
	calls   int
}

func (g *gatedLoader) Open(ctx context.Context, id, userID string) (*models.Project, error) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()
	if first {
		close(g.entered)
		<-g.release
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inner.Open(ctx, id, userID)
}

func TestRegistryOpenDoesNotBlockOtherCalls(t *testing.T) {
	_, mem := newTestRegistry(nil, nil)
	loader := &gatedLoader{inner: mem, entered: make(chan struct{}), release: make(chan struct{})}
	opts := testOptions()
	opts.IdleTimeout = time.Minute
	reg := NewRegistry(loader, nil, nil, newMemLocks(), opts, nil)
	ctx := context.Background()
	defer reg.CloseAll(ctx)

	type result struct {
		s       *Session
		created bool
		err     error
	}
	first := make(chan result, 1)
	go func() {
		s, created, err := reg.Open(ctx, "project-1", "user-1")
		first <- result{s, created, err}
	}()
	<-loader.entered

	// the registry stays usable while the load is in flight
	idle := make(chan struct{})
	go func() {
		_, err := reg.Get("missing", "user-1")
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.Equal(t, 0, reg.Len())
		reg.Sweep(ctx, time.Now())
		close(idle)
	}()
	select {
	case <-idle:
	case <-time.After(time.Second):
		t.Fatal("registry blocked behind a loading project")
	}

	second := make(chan result, 1)
	go func() {
		s, created, err := reg.Open(ctx, "project-1", "user-1")
		second <- result{s, created, err}
	}()

	close(loader.release)
	a := <-first
	b := <-second
	require.NoError(t, a.err)
	require.NoError(t, b.err)
	assert.True(t, a.created)
	assert.False(t, b.created, "the concurrent open joins the loaded session")
	assert.Equal(t, a.s.ID, b.s.ID)
	assert.Equal(t, 1, loader.calls)
}

func TestRegistryOpenWaitHonoursContext(t *testing.T) {
	_, mem := newTestRegistry(nil, nil)
	loader := &gatedLoader{inner: mem, entered: make(chan struct{}), release: make(chan struct{})}
	reg := NewRegistry(loader, nil, nil, nil, testOptions(), nil)
	defer reg.CloseAll(context.Background())

	go func() { _, _, _ = reg.Open(context.Background(), "project-1", "user-1") }()
	<-loader.entered

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err := reg.Open(ctx, "project-1", "user-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(loader.release)
	assert.Eventually(t, func() bool { return reg.Len() == 1 }, time.Second, 5*time.Millisecond)
}
