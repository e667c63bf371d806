// Package s3 provides a blobstore backed by Amazon S3.
//
// Blobs are fetched whole with the S3 transfer manager's parallel
// downloader; snapshots are read end to end at startup, so ranged reads
// would only add round trips.
package s3
