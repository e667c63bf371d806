package catalog

import (
	"fmt"
	"path"
	"strings"
)

// Format is a catalog table encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSONL   Format = "jsonl"
	FormatSQLite  Format = "sqlite"
	FormatParquet Format = "parquet"
)

// Streamable reports whether the format can be decoded from a plain reader.
// SQLite and Parquet need a file on disk.
func (f Format) Streamable() bool {
	return f == FormatCSV || f == FormatJSONL
}

// DetectFormat infers the format from a file name. Compression suffixes
// (.zst, .lz4) must be stripped by the caller.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unknown catalog format for %q", name)
	}
}
