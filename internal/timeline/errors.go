package timeline

import (
	"errors"
	"fmt"
)

// Validation rejections. Their messages are shown to the user as-is.
var (
	ErrClipNotFound      = errors.New("clip not found")
	ErrSplitAtEdge       = errors.New("cannot split at clip edge")
	ErrSplitOutsideClip  = errors.New("split point is outside the clip")
	ErrClipTooShort      = errors.New("clip would be shorter than the minimum duration")
	ErrNegativeTrim      = errors.New("trim values cannot be negative")
	ErrUnknownEdge       = errors.New("unknown trim edge")
	ErrNoSuccessor       = errors.New("transitions need a following clip")
	ErrUnknownTransition = errors.New("unknown transition type")
	ErrInvalidVolume     = errors.New("volume must be between 0 and 1")
)

// ValidationError reports an edit that was refused without touching the model
type ValidationError struct {
	Op     string
	ClipID string
	Err    error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func reject(op, clipID string, err error) error {
	return &ValidationError{Op: op, ClipID: clipID, Err: err}
}

// IsValidation reports whether err is a user-facing edit rejection
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InvariantError describes a committed clip list that breaks the timeline rules
type InvariantError struct {
	ClipID string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("timeline invariant violated at clip %s: %s", e.ClipID, e.Reason)
}
