// Package snapshot loads and writes the read-only data a recommender serves
// from: a catalog table and a flat vector index whose rows are positionally
// aligned, optionally described by a manifest.
//
// A snapshot directory typically looks like:
//
//	manifest.json
//	catalog.jsonl.zst
//	index.vbl
//
// Artifacts are read through a blobstore.BlobStore, so the same layout can be
// served from a local directory, S3, MinIO or GCS. Names ending in .zst or
// .lz4 are decompressed transparently.
//
// Every problem found while loading (missing artifacts, a row-count mismatch
// between catalog and index, duplicate track IDs, a corrupt index) is
// reported as an error matching ErrConfiguration.
package snapshot
