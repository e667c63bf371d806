// Package musicservice defines the contract between the recommender and a
// streaming service that hosts playlists.
package musicservice

import (
	"context"
	"errors"
	"iter"
)

// MaxBatch is the largest number of references sent in one add or remove call.
const MaxBatch = 100

// ErrPlaylistNotFound is returned for unknown playlist IDs.
var ErrPlaylistNotFound = errors.New("playlist not found")

// Playlist identifies a playlist on the service.
type Playlist struct {
	ID    string `json:"id"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title"`
}

// Client talks to a music service.
type Client interface {
	// Resolve maps catalog track IDs to playable references. IDs the service
	// does not know are absent from the result.
	Resolve(ctx context.Context, ids []string) (map[string]string, error)

	// CreatePlaylist creates an empty playlist owned by the current user.
	CreatePlaylist(ctx context.Context, title, description string, public bool) (Playlist, error)

	// AddTracks appends refs to a playlist in order.
	AddTracks(ctx context.Context, playlistID string, refs []string) error

	// RemoveTracks removes every occurrence of refs from a playlist.
	RemoveTracks(ctx context.Context, playlistID string, refs []string) error
}

// Batches splits refs into consecutive chunks of at most size elements.
func Batches(refs []string, size int) iter.Seq[[]string] {
	if size <= 0 {
		size = MaxBatch
	}
	return func(yield func([]string) bool) {
		for start := 0; start < len(refs); start += size {
			if !yield(refs[start:min(start+size, len(refs))]) {
				return
			}
		}
	}
}
