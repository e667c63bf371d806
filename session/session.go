package session

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoActivePlaylist is returned by operations that need a committed playlist.
	ErrNoActivePlaylist = errors.New("no active playlist")

	// ErrPlaylistActive is returned by Begin while a playlist exists or is being built.
	ErrPlaylistActive = errors.New("playlist already active")

	// ErrNotBuilding is returned by Commit and Abort outside the Building state.
	ErrNotBuilding = errors.New("no playlist is being built")

	// ErrNotFound is returned by stores for unknown session IDs.
	ErrNotFound = errors.New("session not found")
)

// State is the lifecycle state of a Session.
type State uint8

const (
	StateNoActivePlaylist State = iota
	StateBuilding
	StateRefining
)

func (s State) String() string {
	switch s {
	case StateNoActivePlaylist:
		return "no_active_playlist"
	case StateBuilding:
		return "building"
	case StateRefining:
		return "refining"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Session is the editing state of one remote playlist.
type Session struct {
	ID    string `json:"id"`
	State State  `json:"state"`

	PlaylistID  string `json:"playlist_id,omitempty"`
	PlaylistURL string `json:"playlist_url,omitempty"`
	Title       string `json:"title,omitempty"`

	// Vibe is the text the playlist was created from.
	Vibe string `json:"vibe,omitempty"`
	// Refinements are applied refinement texts, oldest first.
	Refinements []string `json:"refinements,omitempty"`
	// TrackIDs are the tracks committed to the playlist, in playlist order.
	TrackIDs []string `json:"track_ids,omitempty"`
	// Unavailable are recommended tracks the music service could not resolve.
	// They stay excluded until the session is reset.
	Unavailable []string `json:"unavailable,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an empty session with a random ID.
func New() *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		State:     StateNoActivePlaylist,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Active reports whether a playlist has been committed.
func (s *Session) Active() bool { return s.State == StateRefining }

// Begin starts building a playlist for vibe.
func (s *Session) Begin(vibe string) error {
	if s.State != StateNoActivePlaylist {
		return ErrPlaylistActive
	}
	s.State = StateBuilding
	s.Vibe = vibe
	s.touch()
	return nil
}

// Commit records the created playlist and the tracks added to it. The
// committed IDs become the exclusion set.
func (s *Session) Commit(playlistID, url, title string, trackIDs []string) error {
	if s.State != StateBuilding {
		return ErrNotBuilding
	}
	s.State = StateRefining
	s.PlaylistID = playlistID
	s.PlaylistURL = url
	s.Title = title
	s.TrackIDs = nil
	s.addTracks(trackIDs)
	s.touch()
	return nil
}

// Abort discards a playlist that failed to build.
func (s *Session) Abort() error {
	if s.State != StateBuilding {
		return ErrNotBuilding
	}
	s.clear()
	return nil
}

// EffectiveVibe returns the original vibe followed by every refinement and
// then next, joined by single spaces. Empty parts are skipped.
func (s *Session) EffectiveVibe(next string) string {
	parts := make([]string, 0, len(s.Refinements)+2)
	for _, p := range append(append([]string{s.Vibe}, s.Refinements...), next) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Exclusion returns the IDs that must not be recommended again: the
// playlist's tracks followed by the unavailable ones.
func (s *Session) Exclusion() []string {
	return slices.Concat(s.TrackIDs, s.Unavailable)
}

// MarkUnavailable records ids the music service could not resolve.
func (s *Session) MarkUnavailable(ids ...string) {
	n := len(s.Unavailable)
	for _, id := range ids {
		if !slices.Contains(s.Unavailable, id) {
			s.Unavailable = append(s.Unavailable, id)
		}
	}
	if len(s.Unavailable) != n {
		s.touch()
	}
}

// Refine records an applied refinement and the tracks it added.
func (s *Session) Refine(text string, added []string) error {
	if s.State != StateRefining {
		return ErrNoActivePlaylist
	}
	s.Refinements = append(s.Refinements, text)
	s.addTracks(added)
	s.touch()
	return nil
}

// Remove drops id from the playlist. It reports whether id was present.
func (s *Session) Remove(id string) (bool, error) {
	if s.State != StateRefining {
		return false, ErrNoActivePlaylist
	}
	i := slices.Index(s.TrackIDs, id)
	if i < 0 {
		return false, nil
	}
	s.TrackIDs = slices.Delete(s.TrackIDs, i, i+1)
	s.touch()
	return true, nil
}

// Has reports whether id is in the playlist.
func (s *Session) Has(id string) bool {
	return slices.Contains(s.TrackIDs, id)
}

// Reset discards the playlist and all history.
func (s *Session) Reset() {
	s.clear()
}

func (s *Session) addTracks(ids []string) {
	for _, id := range ids {
		if !slices.Contains(s.TrackIDs, id) {
			s.TrackIDs = append(s.TrackIDs, id)
		}
	}
}

func (s *Session) clear() {
	s.State = StateNoActivePlaylist
	s.PlaylistID = ""
	s.PlaylistURL = ""
	s.Title = ""
	s.Vibe = ""
	s.Refinements = nil
	s.TrackIDs = nil
	s.Unavailable = nil
	s.touch()
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}
