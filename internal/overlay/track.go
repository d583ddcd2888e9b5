package overlay

import (
	"errors"
	"sort"
)

var (
	ErrNotFound = errors.New("overlay not found")
	ErrEmptyID  = errors.New("overlay id is required")
)

// Track is an ordered collection of time-ranged items keyed by id.
// Items may overlap; the track never relayouts them.
type Track[T any] struct {
	items []T
	id    func(T) string
	span  func(T) (start, end float64)
}

// NewTrack builds a track from accessors for an item's id and time range
func NewTrack[T any](id func(T) string, span func(T) (float64, float64)) *Track[T] {
	return &Track[T]{id: id, span: span}
}

// Items returns a copy of the items in insertion order
func (t *Track[T]) Items() []T {
	if t.items == nil {
		return nil
	}
	return append([]T(nil), t.items...)
}

// Sorted returns the items ordered by start time
func (t *Track[T]) Sorted() []T {
	out := t.Items()
	sort.SliceStable(out, func(i, j int) bool {
		si, _ := t.span(out[i])
		sj, _ := t.span(out[j])
		return si < sj
	})
	return out
}

// Len returns the number of items
func (t *Track[T]) Len() int {
	return len(t.items)
}

// Replace swaps the whole item list
func (t *Track[T]) Replace(items []T) {
	if items == nil {
		t.items = nil
		return
	}
	t.items = append([]T(nil), items...)
}

// Get returns the item with the given id
func (t *Track[T]) Get(id string) (T, bool) {
	i := t.index(id)
	if i < 0 {
		var zero T
		return zero, false
	}
	return t.items[i], true
}

func (t *Track[T]) index(id string) int {
	for i, item := range t.items {
		if t.id(item) == id {
			return i
		}
	}
	return -1
}

// Add appends an item
func (t *Track[T]) Add(item T) error {
	if t.id(item) == "" {
		return ErrEmptyID
	}
	t.items = append(t.items, item)
	return nil
}

// Update applies fn to the item with the given id
func (t *Track[T]) Update(id string, fn func(*T)) (T, error) {
	i := t.index(id)
	if i < 0 {
		var zero T
		return zero, ErrNotFound
	}
	fn(&t.items[i])
	return t.items[i], nil
}

// Delete removes the item with the given id
func (t *Track[T]) Delete(id string) error {
	i := t.index(id)
	if i < 0 {
		return ErrNotFound
	}
	t.items = append(t.items[:i:i], t.items[i+1:]...)
	return nil
}

// ActiveAt returns every item with start <= at < end, in start order
func (t *Track[T]) ActiveAt(at float64) []T {
	var out []T
	for _, item := range t.Sorted() {
		start, end := t.span(item)
		if at >= start && at < end {
			out = append(out, item)
		}
	}
	return out
}
