package catalog

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

var (
	// ErrEmptyID is returned when a track has no identifier.
	ErrEmptyID = errors.New("track id must not be empty")

	// ErrTooManyTracks is returned when a table exceeds the row space.
	ErrTooManyTracks = errors.New("too many tracks")
)

// DuplicateIDError is returned when two rows share an identifier.
type DuplicateIDError struct {
	ID        string
	FirstRow  uint32
	SecondRow uint32
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate track id %q at rows %d and %d", e.ID, e.FirstRow, e.SecondRow)
}

// Catalog is an immutable, row-addressed set of tracks.
// It is safe for concurrent use.
type Catalog struct {
	tracks []Track
	byID   map[string]uint32
}

// New builds a catalog from tracks in row order. The slice is copied.
func New(tracks []Track) (*Catalog, error) {
	if uint64(len(tracks)) > math.MaxUint32 {
		return nil, ErrTooManyTracks
	}

	c := &Catalog{
		tracks: make([]Track, len(tracks)),
		byID:   make(map[string]uint32, len(tracks)),
	}
	copy(c.tracks, tracks)

	for i, t := range c.tracks {
		row := uint32(i)
		if t.ID == "" {
			return nil, fmt.Errorf("row %d: %w", row, ErrEmptyID)
		}
		if first, ok := c.byID[t.ID]; ok {
			return nil, &DuplicateIDError{ID: t.ID, FirstRow: first, SecondRow: row}
		}
		c.byID[t.ID] = row
	}
	return c, nil
}

// Len returns the number of tracks.
func (c *Catalog) Len() int { return len(c.tracks) }

// At returns the track at row.
func (c *Catalog) At(row uint32) (Track, bool) {
	if int(row) >= len(c.tracks) {
		return Track{}, false
	}
	return c.tracks[row], true
}

// Lookup returns the row of the track with the given id.
func (c *Catalog) Lookup(id string) (uint32, bool) {
	row, ok := c.byID[id]
	return row, ok
}

// Get returns the track with the given id.
func (c *Catalog) Get(id string) (Track, bool) {
	row, ok := c.byID[id]
	if !ok {
		return Track{}, false
	}
	return c.tracks[row], true
}

// Rows returns the rows of the given ids as a bitmap. Ids that are not in the
// catalog are ignored.
func (c *Catalog) Rows(ids iter.Seq[string]) *roaring.Bitmap {
	bm := roaring.New()
	for id := range ids {
		if row, ok := c.byID[id]; ok {
			bm.Add(row)
		}
	}
	return bm
}

// All iterates over the catalog in row order.
func (c *Catalog) All() iter.Seq2[uint32, Track] {
	return func(yield func(uint32, Track) bool) {
		for i, t := range c.tracks {
			if !yield(uint32(i), t) {
				return
			}
		}
	}
}
