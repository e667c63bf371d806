// Package index provides the vector index searched by the recommendation engine.
//
// An index holds one embedding per catalog row. Row i of the index always
// corresponds to row i of the catalog it was built from, and search results
// are reported as row positions.
//
// # Implementations
//
//   - Flat: exact nearest neighbour search over an in-memory row-major matrix.
//     Loaded from the binary index file written by Flat.WriteTo.
//   - pgvector (subpackage): rows stored in PostgreSQL and ranked by the
//     pgvector distance operators.
//
// # Ordering
//
// Results are sorted by ascending distance. Equal distances are ordered by
// ascending row, so a given query always yields the same sequence.
package index
