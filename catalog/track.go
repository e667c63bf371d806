package catalog

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TextFormatVersion identifies the EmbeddingText layout. Indexes built with a
// different layout are not comparable with queries embedded today.
const TextFormatVersion = 1

// Track is one catalog entry.
type Track struct {
	// ID is the music service identifier. It is the exclusion key and the
	// reference handed to the music service.
	ID     string `json:"id"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"`

	// Extra carries display-only columns that are not embedded.
	Extra map[string]string `json:"extra,omitempty"`
}

// EmbeddingText returns the text embedded for t at index build time.
func EmbeddingText(t Track) string {
	var b strings.Builder
	b.WriteString(Clean(t.Name))
	if artist := Clean(t.Artist); artist != "" {
		b.WriteString(" by ")
		b.WriteString(artist)
	}
	if album := Clean(t.Album); album != "" {
		b.WriteString(" from ")
		b.WriteString(album)
	}
	return b.String()
}

// Clean NFC-normalizes s and collapses runs of whitespace into single spaces.
func Clean(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
