package engine

import "errors"

var (
	// ErrInvalidCount is returned for a negative Query.Count.
	ErrInvalidCount = errors.New("count must not be negative")

	// ErrMisaligned is returned when catalog and index rows do not line up.
	ErrMisaligned = errors.New("catalog and index are not row aligned")
)
