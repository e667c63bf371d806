package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	s := New()
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, StateNoActivePlaylist, s.State)
	assert.False(t, s.Active())

	require.NoError(t, s.Begin("late night drive"))
	assert.Equal(t, StateBuilding, s.State)
	assert.ErrorIs(t, s.Begin("again"), ErrPlaylistActive)

	require.NoError(t, s.Commit("pl1", "https://example.com/pl1", "Vibelist: late night drive", []string{"a", "b", "a"}))
	assert.Equal(t, StateRefining, s.State)
	assert.True(t, s.Active())
	assert.Equal(t, []string{"a", "b"}, s.Exclusion())

	assert.Equal(t, "late night drive more synth", s.EffectiveVibe("more synth"))
	require.NoError(t, s.Refine("more synth", []string{"c", "b"}))
	assert.Equal(t, "late night drive more synth slower", s.EffectiveVibe(" slower "))
	require.NoError(t, s.Refine("slower", []string{"d"}))
	assert.Equal(t, []string{"a", "b", "c", "d"}, s.TrackIDs)
	assert.Equal(t, []string{"more synth", "slower"}, s.Refinements)

	ok, err := s.Remove("b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, s.Has("b"))
	assert.NotContains(t, s.Exclusion(), "b")

	ok, err = s.Remove("zzz")
	require.NoError(t, err)
	assert.False(t, ok)

	s.Reset()
	assert.Equal(t, StateNoActivePlaylist, s.State)
	assert.Empty(t, s.TrackIDs)
	assert.Empty(t, s.Refinements)
	assert.Empty(t, s.Vibe)
	assert.Empty(t, s.PlaylistID)
}

func TestSessionIllegalTransitions(t *testing.T) {
	s := New()

	assert.ErrorIs(t, s.Refine("x", nil), ErrNoActivePlaylist)
	_, err := s.Remove("a")
	assert.ErrorIs(t, err, ErrNoActivePlaylist)
	assert.ErrorIs(t, s.Commit("p", "", "", nil), ErrNotBuilding)
	assert.ErrorIs(t, s.Abort(), ErrNotBuilding)

	require.NoError(t, s.Begin("x"))
	assert.ErrorIs(t, s.Refine("y", nil), ErrNoActivePlaylist)
	require.NoError(t, s.Abort())
	assert.Equal(t, StateNoActivePlaylist, s.State)
	assert.Empty(t, s.Vibe)
}

func TestExclusionIsACopy(t *testing.T) {
	s := New()
	require.NoError(t, s.Begin("x"))
	require.NoError(t, s.Commit("p", "", "", []string{"a"}))

	ex := s.Exclusion()
	ex[0] = "mutated"
	assert.Equal(t, []string{"a"}, s.TrackIDs)
}

func TestUnavailableIsExcludedUntilReset(t *testing.T) {
	s := New()
	require.NoError(t, s.Begin("x"))
	s.MarkUnavailable("u1")
	require.NoError(t, s.Commit("p", "", "", []string{"a"}))
	s.MarkUnavailable("u2", "u1")

	assert.Equal(t, []string{"u1", "u2"}, s.Unavailable)
	assert.Equal(t, []string{"a", "u1", "u2"}, s.Exclusion())
	assert.False(t, s.Has("u1"))

	s.Reset()
	assert.Empty(t, s.Unavailable)
	assert.Empty(t, s.Exclusion())
}

func TestEffectiveVibeSkipsEmpty(t *testing.T) {
	s := &Session{Vibe: "", Refinements: []string{"  ", "rainy"}}
	assert.Equal(t, "rainy jazz", s.EffectiveVibe("jazz"))
	assert.Equal(t, "rainy", s.EffectiveVibe(""))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "refining", StateRefining.String())
	assert.Equal(t, "unknown(9)", State(9).String())
}
