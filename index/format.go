package index

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/heavenlydemon269/vibelist/distance"
)

const (
	// MagicNumber identifies vibelist index files (ASCII: "VBL1").
	MagicNumber = 0x56424c31
	// Version is the current file format version (v1.0.0).
	Version = 0x00010000

	// HeaderSize is the encoded size of FileHeader.
	HeaderSize = 64

	// FlagNormalized marks files whose rows are L2-normalized.
	FlagNormalized = 1 << 0

	// MaxDimension bounds the dimension accepted when reading a file.
	MaxDimension = 1 << 16

	// encodeChunk is the number of floats encoded per write.
	encodeChunk = 4096
)

var (
	ErrInvalidMagic       = errors.New("invalid magic number")
	ErrUnsupportedVersion = errors.New("unsupported index file version")
	ErrInvalidHeader      = errors.New("invalid index file header")
	ErrTruncated          = errors.New("index file truncated")
)

// FileHeader is the 64-byte little-endian header at the start of every index file.
type FileHeader struct {
	Magic       uint32 // 0x56424c31 ("VBL1")
	Version     uint32
	Metric      uint8 // distance.Metric
	Flags       uint8
	Padding1    [2]byte
	VectorCount uint64
	Dimension   uint32
	Padding2    [4]byte
	DataOffset  uint64 // Offset of the first vector, always HeaderSize in v1
	Checksum    uint32 // CRC32 of the vector data section
	Reserved    [24]byte
}

// DataSize returns the size in bytes of the vector section described by h.
func (h *FileHeader) DataSize() uint64 {
	return h.VectorCount * uint64(h.Dimension) * 4
}

func (h *FileHeader) validate() error {
	if h.Magic != MagicNumber {
		return ErrInvalidMagic
	}
	if h.Version>>16 != Version>>16 {
		return fmt.Errorf("%w: 0x%08x", ErrUnsupportedVersion, h.Version)
	}
	if !distance.Metric(h.Metric).Valid() {
		return fmt.Errorf("%w: unknown metric %d", ErrInvalidHeader, h.Metric)
	}
	if h.Dimension == 0 || h.Dimension > MaxDimension {
		return fmt.Errorf("%w: dimension %d", ErrInvalidHeader, h.Dimension)
	}
	if h.VectorCount > math.MaxUint32 {
		return fmt.Errorf("%w: %d vectors exceed row space", ErrInvalidHeader, h.VectorCount)
	}
	if h.DataOffset != HeaderSize {
		return fmt.Errorf("%w: data offset %d", ErrInvalidHeader, h.DataOffset)
	}
	if h.DataSize() > math.MaxInt/2 {
		return fmt.Errorf("%w: data section too large", ErrInvalidHeader)
	}
	return nil
}

// ReadHeader decodes and validates a header from r.
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var h FileHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	if err := h.validate(); err != nil {
		return nil, err
	}
	return &h, nil
}

// Header returns the file header describing f.
func (f *Flat) Header() FileHeader {
	h := FileHeader{
		Magic:       MagicNumber,
		Version:     Version,
		Metric:      uint8(f.metric),
		VectorCount: uint64(f.n),
		Dimension:   uint32(f.dim),
		DataOffset:  HeaderSize,
	}
	if f.metric.Normalizes() {
		h.Flags |= FlagNormalized
	}
	return h
}

// WriteTo writes f in the binary index format. It implements io.WriterTo.
func (f *Flat) WriteTo(w io.Writer) (int64, error) {
	sum := newChecksumWriter(io.Discard)
	if err := f.encodeData(sum); err != nil {
		return 0, err
	}

	h := f.Header()
	h.Checksum = sum.Sum()

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	if err := f.encodeData(bw); err != nil {
		return HeaderSize, fmt.Errorf("write vectors: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return int64(HeaderSize + h.DataSize()), nil
}

func (f *Flat) encodeData(w io.Writer) error {
	buf := make([]byte, encodeChunk*4)
	data := f.data[:f.n*f.dim]
	for len(data) > 0 {
		n := min(len(data), encodeChunk)
		for i, v := range data[:n] {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
		}
		if _, err := w.Write(buf[:n*4]); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// ReadFlat reads a flat index written by WriteTo.
func ReadFlat(r io.Reader) (*Flat, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	f, err := NewFlatWithCapacity(int(h.Dimension), distance.Metric(h.Metric), int(h.VectorCount))
	if err != nil {
		return nil, err
	}

	cr := newChecksumReader(r)
	buf := make([]byte, encodeChunk*4)
	remaining := int(h.VectorCount) * int(h.Dimension)
	for remaining > 0 {
		n := min(remaining, encodeChunk)
		if _, err := io.ReadFull(cr, buf[:n*4]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, ErrTruncated
			}
			return nil, err
		}
		for i := 0; i < n; i++ {
			f.data = append(f.data, math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
		}
		remaining -= n
	}
	if err := cr.Verify(h.Checksum); err != nil {
		return nil, err
	}

	f.n = int(h.VectorCount)
	return f, nil
}

// DecodeFlat decodes a flat index from an in-memory (typically mmapped) file image.
// The vectors are copied, so b may be released afterwards.
func DecodeFlat(b []byte) (*Flat, error) {
	if len(b) < HeaderSize {
		return nil, ErrTruncated
	}
	h, err := ReadHeader(bytes.NewReader(b[:HeaderSize]))
	if err != nil {
		return nil, err
	}

	end := uint64(HeaderSize) + h.DataSize()
	if uint64(len(b)) < end {
		return nil, ErrTruncated
	}
	data := b[HeaderSize:end]
	if actual := crc32.Checksum(data, crc32Table); actual != h.Checksum {
		return nil, &ChecksumMismatchError{Expected: h.Checksum, Actual: actual}
	}

	f, err := NewFlatWithCapacity(int(h.Dimension), distance.Metric(h.Metric), int(h.VectorCount))
	if err != nil {
		return nil, err
	}
	f.data = f.data[:len(data)/4]
	for i := range f.data {
		f.data[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	f.n = int(h.VectorCount)
	return f, nil
}
