package playlist_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heavenlydemon269/vibelist/engine"
	"github.com/heavenlydemon269/vibelist/musicservice"
	"github.com/heavenlydemon269/vibelist/playlist"
	"github.com/heavenlydemon269/vibelist/session"
	"github.com/heavenlydemon269/vibelist/testutil"
)

func newCurator(t *testing.T) (*playlist.Curator, *musicservice.Memory, *testutil.Fixture) {
	t.Helper()
	f := testutil.UpbeatFixture(t)
	e, err := engine.New(f.Encoder, f.Index, f.Catalog)
	require.NoError(t, err)
	svc := musicservice.NewMemory()
	return playlist.NewCurator(e, svc, playlist.DefaultOptions()), svc, f
}

func ids(out *playlist.Outcome) []string {
	ids := make([]string, len(out.Added))
	for i, r := range out.Added {
		ids[i] = r.Track.ID
	}
	return ids
}

func TestCreateRefineRemoveReset(t *testing.T) {
	c, svc, _ := newCurator(t)
	ctx := context.Background()
	s := session.New()

	out, err := c.Create(ctx, s, "upbeat", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, ids(out))
	assert.Equal(t, "Vibelist: upbeat", out.Playlist.Title)
	assert.Equal(t, session.StateRefining, s.State)
	assert.Equal(t, []string{"C", "A"}, s.TrackIDs)
	assert.Equal(t, []string{svc.Ref("C"), svc.Ref("A")}, svc.Tracks(s.PlaylistID))

	// "upbeat upbeat" is unknown to the fixture encoder; the fallback vector
	// sits at 45 degrees, nearest to E then B.
	out, err = c.Refine(ctx, s, "upbeat", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"E", "B"}, ids(out))
	assert.Equal(t, []string{"C", "A", "E", "B"}, s.TrackIDs)
	assert.Equal(t, []string{"upbeat"}, s.Refinements)

	require.NoError(t, c.Remove(ctx, s, "A"))
	assert.Equal(t, []string{"C", "E", "B"}, s.TrackIDs)
	assert.NotContains(t, svc.Tracks(s.PlaylistID), svc.Ref("A"))
	assert.ErrorIs(t, c.Remove(ctx, s, "A"), playlist.ErrTrackNotInPlaylist)

	// A becomes eligible again, D is the only other track left.
	out, err = c.Refine(ctx, s, "more", 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "D"}, ids(out))

	out, err = c.Refine(ctx, s, "more", 5)
	require.NoError(t, err)
	assert.Empty(t, out.Added)

	c.Reset(s)
	assert.Equal(t, session.StateNoActivePlaylist, s.State)
	_, err = c.Refine(ctx, s, "x", 1)
	assert.ErrorIs(t, err, session.ErrNoActivePlaylist)
	assert.ErrorIs(t, c.Remove(ctx, s, "C"), session.ErrNoActivePlaylist)
}

func TestCreateReportsNotFound(t *testing.T) {
	c, svc, _ := newCurator(t)
	svc.Unavailable = map[string]bool{"A": true}
	s := session.New()

	// A is replaced by the next ranked track.
	out, err := c.Create(context.Background(), s, "upbeat", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "E", "B"}, ids(out))
	require.Len(t, out.NotFound, 1)
	assert.Equal(t, "A", out.NotFound[0].ID)
	assert.Equal(t, []string{"C", "E", "B"}, s.TrackIDs)
	assert.Equal(t, []string{"A"}, s.Unavailable)
}

func notFoundIDs(out *playlist.Outcome) []string {
	ids := make([]string, len(out.NotFound))
	for i, t := range out.NotFound {
		ids[i] = t.ID
	}
	return ids
}

func TestUnavailableTracksDoNotStallRefine(t *testing.T) {
	c, svc, _ := newCurator(t)
	ctx := context.Background()
	s := session.New()

	svc.Unavailable = map[string]bool{"C": true, "A": true}
	out, err := c.Create(ctx, s, "upbeat", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"E", "B"}, ids(out))
	assert.Equal(t, []string{"C", "A"}, notFoundIDs(out))
	assert.Equal(t, []string{svc.Ref("E"), svc.Ref("B")}, svc.Tracks(s.PlaylistID))

	// Only D is left once C and A are known to be unavailable.
	out, err = c.Refine(ctx, s, "upbeat", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"D"}, ids(out))
	assert.Empty(t, out.NotFound)
	assert.Equal(t, []string{"E", "B", "D"}, s.TrackIDs)

	out, err = c.Refine(ctx, s, "upbeat", 2)
	require.NoError(t, err)
	assert.Empty(t, out.Added)
	assert.Empty(t, out.NotFound)

	c.Reset(s)
	assert.Empty(t, s.Unavailable)
}

func TestRefineReplacesUnavailableTracks(t *testing.T) {
	c, svc, _ := newCurator(t)
	ctx := context.Background()
	s := session.New()

	_, err := c.Create(ctx, s, "upbeat", 1)
	require.NoError(t, err)

	// "upbeat upbeat" ranks E, B, A, D; E and A cannot be resolved.
	svc.Unavailable = map[string]bool{"E": true, "A": true}
	out, err := c.Refine(ctx, s, "upbeat", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "D"}, ids(out))
	assert.Equal(t, []string{"E", "A"}, notFoundIDs(out))
	assert.Equal(t, []string{"C", "B", "D"}, s.TrackIDs)
	assert.Equal(t, []string{"E", "A"}, s.Unavailable)
	assert.Equal(t, []string{svc.Ref("C"), svc.Ref("B"), svc.Ref("D")}, svc.Tracks(s.PlaylistID))
}

func TestCreateRejectsActiveSession(t *testing.T) {
	c, _, _ := newCurator(t)
	s := session.New()
	_, err := c.Create(context.Background(), s, "upbeat", 1)
	require.NoError(t, err)

	_, err = c.Create(context.Background(), s, "upbeat", 1)
	assert.ErrorIs(t, err, session.ErrPlaylistActive)
}

type failingService struct {
	*musicservice.Memory
}

func (failingService) CreatePlaylist(context.Context, string, string, bool) (musicservice.Playlist, error) {
	return musicservice.Playlist{}, errors.New("service down")
}

func TestCreateFailureAbortsSession(t *testing.T) {
	f := testutil.UpbeatFixture(t)
	e, err := engine.New(f.Encoder, f.Index, f.Catalog)
	require.NoError(t, err)
	c := playlist.NewCurator(e, failingService{musicservice.NewMemory()}, playlist.DefaultOptions())

	s := session.New()
	_, err = c.Create(context.Background(), s, "upbeat", 2)
	assert.ErrorContains(t, err, "service down")
	assert.Equal(t, session.StateNoActivePlaylist, s.State)
	assert.Empty(t, s.Vibe)
}

func TestCreateLargePlaylistIsBatched(t *testing.T) {
	rng := testutil.NewRNG(9)
	f := testutil.RandomFixture(t, rng, 260, 8)
	e, err := engine.New(f.Encoder, f.Index, f.Catalog)
	require.NoError(t, err)
	svc := musicservice.NewMemory()
	c := playlist.NewCurator(e, svc, playlist.DefaultOptions())

	_, err = c.Create(context.Background(), session.New(), "x", 250)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 100, 50}, svc.Batches())
}

func TestTitle(t *testing.T) {
	c := playlist.NewCurator(nil, nil, playlist.DefaultOptions())
	assert.Equal(t, "Vibelist: rainy day", c.Title("  rainy \n day "))
	assert.Equal(t, "Vibelist: "+strings.Repeat("ä", 30), c.Title(strings.Repeat("ä", 40)))
}
