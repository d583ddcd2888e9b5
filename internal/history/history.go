package history

import (
	"errors"
	"sync"
)

// DefaultMaxDepth is how many snapshots are kept before the oldest is evicted
const DefaultMaxDepth = 50

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

type entry struct {
	snapshot Snapshot
	sum      Fingerprint
}

// History is a linear snapshot stack with a cursor. Entries after the cursor
// form the redo branch, which is discarded on the next push.
type History struct {
	mu sync.Mutex

	entries []entry
	index   int

	// gesture blocks Observe while a drag is in flight
	gesture bool
	// suppress swallows the next Observe after undo/redo
	suppress bool

	maxDepth int
}

// New creates a history bounded to maxDepth entries
func New(maxDepth int) *History {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &History{index: -1, maxDepth: maxDepth}
}

// Reset drops all entries and seeds the stack with an initial state
func (h *History) Reset(initial Snapshot) error {
	sum, err := Sum(initial)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = []entry{{snapshot: initial.Clone(), sum: sum}}
	h.index = 0
	h.gesture = false
	h.suppress = false
	return nil
}

// SetGestureActive marks whether a transient gesture is in progress
func (h *History) SetGestureActive(active bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gesture = active
}

// GestureActive reports whether Observe is currently blocked by a gesture
func (h *History) GestureActive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gesture
}

// Observe is called after every change to the committed model. It pushes the
// snapshot unless a gesture is active, the change came from undo/redo, or the
// content equals the current entry. It reports whether an entry was added.
func (h *History) Observe(s Snapshot) (bool, error) {
	h.mu.Lock()
	if h.gesture {
		h.mu.Unlock()
		return false, nil
	}
	if h.suppress {
		h.suppress = false
		h.mu.Unlock()
		return false, nil
	}
	h.mu.Unlock()

	return h.Push(s)
}

// Push adds a snapshot regardless of the gesture and suppression flags
func (h *History) Push(s Snapshot) (bool, error) {
	sum, err := Sum(s)
	if err != nil {
		return false, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pushLocked(s, sum), nil
}

func (h *History) pushLocked(s Snapshot, sum Fingerprint) bool {
	if h.index >= 0 && h.entries[h.index].sum == sum {
		return false
	}

	// discard redo branch
	h.entries = append(h.entries[:h.index+1], entry{snapshot: s.Clone(), sum: sum})
	h.index = len(h.entries) - 1

	if len(h.entries) > h.maxDepth {
		excess := len(h.entries) - h.maxDepth
		h.entries = append([]entry(nil), h.entries[excess:]...)
		h.index -= excess
	}
	return true
}

// CommitGesture records a finished gesture as one undoable step. The state
// before the gesture is pushed first if it is not already the current entry.
func (h *History) CommitGesture(pre, post Snapshot) error {
	preSum, err := Sum(pre)
	if err != nil {
		return err
	}
	postSum, err := Sum(post)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.gesture = false
	h.pushLocked(pre, preSum)
	h.pushLocked(post, postSum)
	return nil
}

// Undo moves the cursor back and returns the snapshot to restore.
// The next Observe call is suppressed.
func (h *History) Undo() (Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index <= 0 {
		return Snapshot{}, ErrNothingToUndo
	}
	h.index--
	h.suppress = true
	return h.entries[h.index].snapshot.Clone(), nil
}

// Redo moves the cursor forward and returns the snapshot to restore.
// The next Observe call is suppressed.
func (h *History) Redo() (Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index >= len(h.entries)-1 {
		return Snapshot{}, ErrNothingToRedo
	}
	h.index++
	h.suppress = true
	return h.entries[h.index].snapshot.Clone(), nil
}

// CanUndo returns true if undo is available
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index > 0
}

// CanRedo returns true if redo is available
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index < len(h.entries)-1
}

// Current returns the snapshot at the cursor
func (h *History) Current() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index < 0 {
		return Snapshot{}, false
	}
	return h.entries[h.index].snapshot.Clone(), true
}

// Len returns the number of stored snapshots
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Index returns the cursor position, -1 when empty
func (h *History) Index() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index
}
