package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingColumn is returned when a table lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Column aliases accepted in table headers.
var columnAliases = map[string]string{
	"id":          "id",
	"track_id":    "id",
	"trackid":     "id",
	"uri":         "id",
	"name":        "name",
	"title":       "name",
	"track":       "name",
	"track_name":  "name",
	"artist":      "artist",
	"artists":     "artist",
	"artist_name": "artist",
	"album":       "album",
	"album_name":  "album",
}

// canonicalColumn maps a header cell to its canonical name, or "" for extra columns.
func canonicalColumn(h string) string {
	return columnAliases[strings.ToLower(strings.TrimSpace(h))]
}

// ReadCSV reads tracks from a CSV table with a header row.
//
// The id, name and artist columns are required; album is optional. Any other
// column is kept in Track.Extra.
func ReadCSV(r io.Reader) ([]Track, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv: %w: empty table", ErrMissingColumn)
		}
		return nil, fmt.Errorf("csv header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	cols := map[string]int{}
	for i, h := range header {
		if c := canonicalColumn(h); c != "" {
			if _, dup := cols[c]; !dup {
				cols[c] = i
			}
		}
	}
	for _, required := range []string{"id", "name", "artist"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv: %w %q", ErrMissingColumn, required)
		}
	}

	field := func(rec []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var tracks []Track
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		t := Track{
			ID:     field(rec, "id"),
			Name:   field(rec, "name"),
			Artist: field(rec, "artist"),
			Album:  field(rec, "album"),
		}
		for i, h := range header {
			if canonicalColumn(h) != "" || i >= len(rec) || rec[i] == "" {
				continue
			}
			if t.Extra == nil {
				t.Extra = map[string]string{}
			}
			t.Extra[strings.TrimSpace(h)] = rec[i]
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// WriteCSV writes tracks as a CSV table readable by ReadCSV. Extra columns are dropped.
func WriteCSV(w io.Writer, tracks []Track) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "name", "artist", "album"}); err != nil {
		return err
	}
	for _, t := range tracks {
		if err := cw.Write([]string{t.ID, t.Name, t.Artist, t.Album}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
