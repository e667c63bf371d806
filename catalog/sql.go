package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // duckdb driver
	_ "modernc.org/sqlite"             // sqlite driver
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DefaultTable is the table read by ReadSQLite when none is given.
const DefaultTable = "tracks"

// ReadSQLite reads tracks from a SQLite database file. Rows are returned in
// rowid order, which becomes the catalog row order.
func ReadSQLite(ctx context.Context, path, table string) ([]Track, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("sqlite: invalid table name %q", table)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	query := `SELECT id, name, artist, coalesce(album, '') FROM ` + table + ` ORDER BY rowid`
	return queryTracks(ctx, db, query)
}

// ReadParquet reads tracks from a Parquet file through DuckDB. File order is
// preserved.
func ReadParquet(ctx context.Context, path string) ([]Track, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()

	query := `SELECT CAST(id AS VARCHAR), CAST(name AS VARCHAR), CAST(artist AS VARCHAR), ` +
		`coalesce(CAST(album AS VARCHAR), '') FROM read_parquet(` + quoteLiteral(path) + `, file_row_number = true) ORDER BY file_row_number`
	return queryTracks(ctx, db, query)
}

func queryTracks(ctx context.Context, db *sql.DB, query string, args ...any) ([]Track, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		var (
			t      Track
			artist sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Name, &artist, &t.Album); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		t.Artist = artist.String
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tracks, nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// WriteSQLite creates a SQLite database at path holding tracks in table,
// inserted in row order. An existing table of that name is replaced.
func WriteSQLite(ctx context.Context, path, table string, tracks []Track) (err error) {
	if table == "" {
		table = DefaultTable
	}
	if !identifier.MatchString(table) {
		return fmt.Errorf("sqlite: invalid table name %q", table)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmts := []string{
		`DROP TABLE IF EXISTS ` + table,
		`CREATE TABLE ` + table + ` (id TEXT PRIMARY KEY, name TEXT NOT NULL, artist TEXT, album TEXT)`,
	}
	for _, s := range stmts {
		if _, err = tx.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
	}

	insert, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (id, name, artist, album) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insert.Close()

	for _, t := range tracks {
		var album any
		if t.Album != "" {
			album = t.Album
		}
		if _, err = insert.ExecContext(ctx, t.ID, t.Name, t.Artist, album); err != nil {
			return fmt.Errorf("insert %q: %w", t.ID, err)
		}
	}
	return tx.Commit()
}
