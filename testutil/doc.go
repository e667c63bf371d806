// Package testutil provides testing utilities for vibelist.
//
// This package is intended for use in tests and benchmarks only.
// It provides seeded random generators for vectors, tracks and exclusion
// sets, a fixed-vector encoder, and the five-track "upbeat" fixture whose
// ranking is known in advance.
//
// # Random Data
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.UnitVectors(1000, 32)
//	tracks := testutil.Tracks(1000)
//
// # Known Ranking
//
//	f := testutil.UpbeatFixture(t)
//	// encoding "upbeat" ranks C, A, E, B, D
package testutil
