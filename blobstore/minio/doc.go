// Package minio provides a blobstore for MinIO and other S3-compatible
// object stores.
package minio
