package vibelist

import (
	"errors"
	"fmt"

	"github.com/heavenlydemon269/vibelist/engine"
	"github.com/heavenlydemon269/vibelist/index"
	"github.com/heavenlydemon269/vibelist/snapshot"
)

var (
	// ErrConfiguration is returned when a snapshot or its collaborators
	// cannot be served: missing artifacts, misaligned rows, duplicate IDs or
	// an encoder that does not match the index.
	ErrConfiguration = snapshot.ErrConfiguration

	// ErrInvalidCount is returned when a negative count is requested.
	ErrInvalidCount = engine.ErrInvalidCount

	// ErrClosed is returned by operations on a closed Vibelist.
	ErrClosed = errors.New("vibelist: closed")

	// ErrNotFound is returned by First when nothing matches.
	ErrNotFound = errors.New("not found")
)

// ErrDimensionMismatch indicates an encoder whose vectors do not fit the index.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: index has %d, encoder produces %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrModelMismatch indicates an encoder model other than the one a snapshot
// was built with.
type ErrModelMismatch struct {
	Snapshot string
	Encoder  string
}

func (e *ErrModelMismatch) Error() string {
	return fmt.Sprintf("snapshot was built with model %q, encoder uses %q", e.Snapshot, e.Encoder)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *index.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return fmt.Errorf("%w: %w", ErrConfiguration, &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err})
	}
	if errors.Is(err, engine.ErrMisaligned) && !errors.Is(err, ErrConfiguration) {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return err
}
