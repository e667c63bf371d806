// Package gcs provides a blobstore backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/heavenlydemon269/vibelist/blobstore"
)

// Compile-time check to ensure Store satisfies blobstore.WritableStore.
var _ blobstore.WritableStore = (*Store)(nil)

// Store implements blobstore.WritableStore for a GCS bucket.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a client and store. An empty credentialsFile uses
// application default credentials.
func New(ctx context.Context, bucket, prefix, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return NewStore(client, bucket, prefix), nil
}

// NewStore wraps an existing client.
func NewStore(client *storage.Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *Store) object(name string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.key(name))
}

// Open opens an object for ranged reads.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	obj := s.object(name)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return &gcsBlob{ctx: ctx, obj: obj, size: attrs.Size}, nil
}

// Create opens a writer for a new object. The object is committed on Close.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return s.object(name).NewWriter(ctx), nil
}

// gcsBlob keeps the context passed to Open for its range reads.
type gcsBlob struct {
	ctx  context.Context
	obj  *storage.ObjectHandle
	size int64
}

func (b *gcsBlob) ReadAt(p []byte, off int64) (int, error) {
	if off >= b.size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	length := min(int64(len(p)), b.size-off)
	r, err := b.obj.NewRangeReader(b.ctx, off, length)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n, err := io.ReadFull(r, p[:length])
	if err != nil {
		return n, err
	}
	if int64(n) < int64(len(p)) {
		return n, io.EOF
	}
	return n, nil
}

func (b *gcsBlob) Size() int64  { return b.size }
func (b *gcsBlob) Close() error { return nil }
