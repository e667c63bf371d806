package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	c, ok := ByName("go-json")
	require.True(t, ok)
	assert.Equal(t, "go-json", c.Name())

	_, ok = ByName("gob")
	assert.False(t, ok)

	_, err := Lookup("gob")
	assert.ErrorContains(t, err, "gob")
}

func TestGoJSON(t *testing.T) {
	type rec struct {
		ID   string   `json:"id"`
		Tags []string `json:"tags"`
	}
	in := rec{ID: "s1", Tags: []string{"a", "b"}}

	b, err := Default.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"s1","tags":["a","b"]}`, string(b))

	var out rec
	require.NoError(t, Default.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}
