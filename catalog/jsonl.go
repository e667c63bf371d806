package catalog

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// maxJSONLine bounds a single JSON lines record.
const maxJSONLine = 1 << 20

// ReadJSONL reads tracks from JSON lines, one Track object per line.
// Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]Track, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxJSONLine)

	var tracks []Track
	for line := 1; sc.Scan(); line++ {
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var t Track
		if err := json.Unmarshal(b, &t); err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", line, err)
		}
		tracks = append(tracks, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("jsonl: %w", err)
	}
	return tracks, nil
}

// WriteJSONL writes tracks as JSON lines.
func WriteJSONL(w io.Writer, tracks []Track) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, t := range tracks {
		if err := enc.Encode(t); err != nil {
			return err
		}
	}
	return bw.Flush()
}
