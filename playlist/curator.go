// Package playlist keeps a remote playlist and a session.Session in step
// with the recommender.
package playlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/heavenlydemon269/vibelist/catalog"
	"github.com/heavenlydemon269/vibelist/engine"
	"github.com/heavenlydemon269/vibelist/musicservice"
	"github.com/heavenlydemon269/vibelist/session"
)

const (
	// DefaultTitlePrefix starts every generated playlist title.
	DefaultTitlePrefix = "Vibelist: "
	// titleVibeRunes is how much of the vibe goes into a title.
	titleVibeRunes = 30
)

// ErrTrackNotInPlaylist is returned by Remove for IDs the session does not hold.
var ErrTrackNotInPlaylist = errors.New("track not in playlist")

// Recommender is the part of the engine a Curator needs.
type Recommender interface {
	Recommend(ctx context.Context, q engine.Query) (*engine.Result, error)
}

// Options configures a Curator.
type Options struct {
	TitlePrefix string
	Description string
	Public      bool
	Logger      *slog.Logger
}

// DefaultOptions returns public playlists titled "Vibelist: <vibe>".
func DefaultOptions() Options {
	return Options{
		TitlePrefix: DefaultTitlePrefix,
		Description: "Created by vibelist",
		Public:      true,
	}
}

// Outcome reports one create or refine step.
type Outcome struct {
	Playlist musicservice.Playlist
	// Added are the tracks committed to the playlist, in rank order.
	Added []engine.Recommendation
	// NotFound are recommended tracks the service could not resolve. They
	// were not added and are excluded until the session is reset.
	NotFound []catalog.Track
}

// Curator drives create, refine, remove and reset.
type Curator struct {
	rec    Recommender
	client musicservice.Client
	opts   Options
	logger *slog.Logger
}

// NewCurator creates a curator.
func NewCurator(rec Recommender, client musicservice.Client, opts Options) *Curator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Curator{rec: rec, client: client, opts: opts, logger: logger}
}

// Title returns the playlist title for vibe.
func (c *Curator) Title(vibe string) string {
	vibe = strings.Join(strings.Fields(vibe), " ")
	if utf8.RuneCountInString(vibe) > titleVibeRunes {
		vibe = string([]rune(vibe)[:titleVibeRunes])
	}
	return c.opts.TitlePrefix + vibe
}

// Create recommends count tracks for vibe, creates a playlist holding them
// and commits it to s. On failure s returns to NoActivePlaylist.
func (c *Curator) Create(ctx context.Context, s *session.Session, vibe string, count int) (*Outcome, error) {
	if err := s.Begin(vibe); err != nil {
		return nil, err
	}

	out, err := c.create(ctx, s, vibe, count)
	if err != nil {
		_ = s.Abort()
		return nil, err
	}
	return out, nil
}

func (c *Curator) create(ctx context.Context, s *session.Session, vibe string, count int) (*Outcome, error) {
	out, refs, err := c.collect(ctx, vibe, nil, count)
	if err != nil {
		return nil, err
	}

	p, err := c.client.CreatePlaylist(ctx, c.Title(vibe), c.opts.Description, c.opts.Public)
	if err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}
	out.Playlist = p

	if err := c.client.AddTracks(ctx, p.ID, refs); err != nil {
		return nil, fmt.Errorf("add tracks: %w", err)
	}
	if err := s.Commit(p.ID, p.URL, p.Title, addedIDs(out.Added)); err != nil {
		return nil, err
	}
	s.MarkUnavailable(trackIDs(out.NotFound)...)

	c.logger.InfoContext(ctx, "playlist created",
		slog.String("session_id", s.ID),
		slog.String("playlist_id", p.ID),
		slog.Int("added", len(out.Added)),
		slog.Int("not_found", len(out.NotFound)),
	)
	return out, nil
}

// Refine recommends count more tracks for the accumulated vibe plus text,
// excluding everything already in the playlist, and appends them.
func (c *Curator) Refine(ctx context.Context, s *session.Session, text string, count int) (*Outcome, error) {
	if !s.Active() {
		return nil, session.ErrNoActivePlaylist
	}

	out, refs, err := c.collect(ctx, s.EffectiveVibe(text), s.Exclusion(), count)
	if err != nil {
		return nil, err
	}
	out.Playlist = musicservice.Playlist{ID: s.PlaylistID, URL: s.PlaylistURL, Title: s.Title}

	if err := c.client.AddTracks(ctx, s.PlaylistID, refs); err != nil {
		return nil, fmt.Errorf("add tracks: %w", err)
	}
	if err := s.Refine(text, addedIDs(out.Added)); err != nil {
		return nil, err
	}
	s.MarkUnavailable(trackIDs(out.NotFound)...)

	c.logger.InfoContext(ctx, "playlist refined",
		slog.String("session_id", s.ID),
		slog.String("playlist_id", s.PlaylistID),
		slog.Int("added", len(out.Added)),
		slog.Int("not_found", len(out.NotFound)),
		slog.Int("refinements", len(s.Refinements)),
	)
	return out, nil
}

// Remove deletes trackID from the playlist. The track may be recommended again.
func (c *Curator) Remove(ctx context.Context, s *session.Session, trackID string) error {
	if !s.Active() {
		return session.ErrNoActivePlaylist
	}
	if !s.Has(trackID) {
		return ErrTrackNotInPlaylist
	}

	resolved, err := c.client.Resolve(ctx, []string{trackID})
	if err != nil {
		return fmt.Errorf("resolve %s: %w", trackID, err)
	}
	if ref, ok := resolved[trackID]; ok {
		if err := c.client.RemoveTracks(ctx, s.PlaylistID, []string{ref}); err != nil {
			return fmt.Errorf("remove tracks: %w", err)
		}
	}

	_, err = s.Remove(trackID)
	return err
}

// Reset forgets the playlist. The remote playlist is left untouched.
func (c *Curator) Reset(s *session.Session) {
	s.Reset()
}

// collect recommends count tracks for vibe and resolves them. Tracks the
// service does not know are excluded and replaced by the next ranked ones
// until count tracks resolve or no eligible track is left.
func (c *Curator) collect(ctx context.Context, vibe string, exclude []string, count int) (*Outcome, []string, error) {
	out := &Outcome{Added: []engine.Recommendation{}, NotFound: []catalog.Track{}}
	var refs []string
	exclude = slices.Clone(exclude)

	for {
		res, err := c.rec.Recommend(ctx, engine.Query{Vibe: vibe, Exclude: exclude, Count: count - len(out.Added)})
		if err != nil {
			return nil, nil, err
		}
		part, partRefs, err := c.resolve(ctx, res.Recommendations)
		if err != nil {
			return nil, nil, err
		}
		out.Added = append(out.Added, part.Added...)
		out.NotFound = append(out.NotFound, part.NotFound...)
		refs = append(refs, partRefs...)

		if len(part.NotFound) == 0 || len(out.Added) >= count {
			return out, refs, nil
		}
		exclude = append(exclude, addedIDs(part.Added)...)
		exclude = append(exclude, trackIDs(part.NotFound)...)
	}
}

// resolve splits recs into playable tracks and tracks the service does not know.
func (c *Curator) resolve(ctx context.Context, recs []engine.Recommendation) (*Outcome, []string, error) {
	out := &Outcome{Added: []engine.Recommendation{}, NotFound: []catalog.Track{}}
	if len(recs) == 0 {
		return out, nil, nil
	}

	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.Track.ID
	}
	resolved, err := c.client.Resolve(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve tracks: %w", err)
	}

	refs := make([]string, 0, len(recs))
	for _, r := range recs {
		ref, ok := resolved[r.Track.ID]
		if !ok {
			out.NotFound = append(out.NotFound, r.Track)
			continue
		}
		out.Added = append(out.Added, r)
		refs = append(refs, ref)
	}
	return out, refs, nil
}

func trackIDs(tracks []catalog.Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

func addedIDs(recs []engine.Recommendation) []string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.Track.ID
	}
	return ids
}
