package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// errNegativeOffset is returned by ReadAt for offsets below zero.
var errNegativeOffset = errors.New("blobstore: negative offset")

// BlobStore opens immutable blobs for reading.
type BlobStore interface {
	Open(ctx context.Context, name string) (Blob, error)
}

// WritableStore is a BlobStore that can also create blobs.
type WritableStore interface {
	BlobStore

	// Create returns a writer for a new blob. The blob becomes visible once
	// Close returns nil.
	Create(ctx context.Context, name string) (WritableBlob, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob receives the content of a blob being created.
type WritableBlob interface {
	io.Writer
	io.Closer
}

// Mappable is an optional interface for Blobs whose content is already in memory.
type Mappable interface {
	// Bytes returns the blob content without copying.
	// The slice is valid until the Blob is closed.
	Bytes() ([]byte, error)
}

// NewReader returns a sequential reader over the whole blob.
func NewReader(b Blob) io.Reader {
	return io.NewSectionReader(b, 0, b.Size())
}

// ReadAll returns the content of b. Mappable blobs are returned without a copy
// and stay valid until b is closed.
func ReadAll(b Blob) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		return m.Bytes()
	}
	buf := make([]byte, b.Size())
	n, err := b.ReadAt(buf, 0)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == b.Size()) {
		return nil, err
	}
	return buf, nil
}

// Put writes data as a new blob named name.
func Put(ctx context.Context, s WritableStore, name string, data []byte) error {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return w.Close()
}

// readAtBytes implements io.ReaderAt semantics over data.
func readAtBytes(data, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}
	if off >= int64(len(data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// bytesBlob is a Blob over an in-memory slice.
type bytesBlob struct {
	data []byte
}

// NewBytesBlob wraps data as a Blob. data must not be modified afterwards.
func NewBytesBlob(data []byte) Blob {
	return &bytesBlob{data: data}
}

func (b *bytesBlob) ReadAt(p []byte, off int64) (int, error) { return readAtBytes(b.data, p, off) }
func (b *bytesBlob) Close() error                            { return nil }
func (b *bytesBlob) Size() int64                             { return int64(len(b.data)) }
func (b *bytesBlob) Bytes() ([]byte, error)                  { return b.data, nil }
