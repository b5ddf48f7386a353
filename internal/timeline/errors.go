package timeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/strata/internal/effect"
)

// Contract violations. These indicate a programming error in the caller and
// are never recovered from by the engine.
var (
	// ErrBuilt is returned by every Builder mutator after Build.
	ErrBuilt = errors.New("timeline: builder already built")

	// ErrForeignToken is returned when a topic, cell or event minted by one
	// timeline is used with another.
	ErrForeignToken = errors.New("timeline: token belongs to a different timeline")

	// ErrUnknownCell is returned for a cell index that was never allocated.
	ErrUnknownCell = errors.New("timeline: unknown cell")

	// ErrWaitOnBranch is returned by Wait and Commit on a forked history.
	// Time only advances on the trunk.
	ErrWaitOnBranch = errors.New("timeline: cannot wait or commit on a branch")

	// ErrUnrelatedBranches is returned by Join when the two histories are not
	// the two sides of the same fork.
	ErrUnrelatedBranches = errors.New("timeline: join of unrelated branches")

	// ErrNegativeWait is returned by Wait for a negative duration.
	ErrNegativeWait = errors.New("timeline: negative wait")

	// ErrDuplicateName is returned when a topic, cell or resource name is
	// registered twice.
	ErrDuplicateName = errors.New("timeline: duplicate name")
)

// ConflictError reports concurrent events that cannot both be applied to a
// cell. Err is the algebra's *effect.ConflictError.
type ConflictError struct {
	Cell string
	At   time.Duration
	Err  error
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on cell %q at %s: %v", e.Cell, e.At, e.Err)
}

// Unwrap returns the algebra error.
func (e *ConflictError) Unwrap() error {
	return e.Err
}

// IsConflict returns true if err is or wraps a timeline ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// AsConflict extracts the timeline ConflictError from err, if any.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// cellError attributes an evaluation error to a cell. Algebra conflicts
// become *ConflictError; anything else (a failing Apply) is wrapped.
func cellError(cell string, at time.Duration, err error) error {
	if ce, ok := effect.AsConflict(err); ok {
		if ce.Resource == "" {
			ce = ce.Within(cell)
		}
		return &ConflictError{Cell: cell, At: at, Err: ce}
	}
	return fmt.Errorf("cell %q at %s: %w", cell, at, err)
}
