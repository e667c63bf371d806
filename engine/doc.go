// Package engine turns a free-text vibe into a ranked list of catalog tracks.
//
// A recommendation runs in four stages:
//
//  1. Encode: the vibe is embedded with the configured encoder.Encoder.
//  2. Search: the index is asked for k = count + |exclude| + margin
//     nearest rows.
//  3. Filter: rows whose track ID is excluded are dropped. Exclusions are
//     compiled into a roaring bitmap over catalog rows.
//  4. Truncate: at most count tracks are returned, nearest first.
//
// # Policies
//
// PolicySingleShot (the default) queries the index exactly once. Because k
// always covers every excluded row plus count survivors, an exact index
// fills the result whenever the catalog holds at least count eligible
// tracks.
//
// PolicyAdaptive repeats the search with k doubled (capped at the index
// size) while the result is short and rows remain unseen. It is meant for
// approximate backends that may return fewer than k rows.
//
// A short or empty result is never an error: it means the catalog is
// exhausted for the given exclusions.
package engine
