// Package catalog holds the immutable table of tracks that recommendations
// are drawn from.
//
// A Catalog is loaded once per process from a snapshot table and never
// changes afterwards. The position of a track in the table (its row) is the
// join key with the vector index: index row i holds the embedding of
// catalog row i.
//
// Supported table formats are CSV, JSON lines, SQLite and Parquet.
package catalog
