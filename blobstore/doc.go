// Package blobstore abstracts where snapshot artifacts live.
//
// A snapshot (catalog table, index file, manifest) is read once at startup
// and written once by the offline builder. Implementations must be safe for
// concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, read through mmap
//   - MemoryStore: in-process map, for tests and embedding
//   - s3.Store: Amazon S3
//   - minio.Store: MinIO and other S3-compatible services
//   - gcs.Store: Google Cloud Storage
package blobstore
