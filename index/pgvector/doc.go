// Package pgvector provides an index.Index backed by a PostgreSQL table with
// the pgvector extension.
//
// The table stores one row per catalog position:
//
//	CREATE TABLE <table> (row_id integer PRIMARY KEY, embedding vector(<dim>))
//
// Load copies a flat index into such a table; Open attaches to an existing one.
package pgvector
