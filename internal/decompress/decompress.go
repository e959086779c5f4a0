// Package decompress opens FASTQ inputs and exposes their decoded bytes
// through a large read buffer.
package decompress

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// DefaultBufferSize is the decoded-bytes buffer used when Options leaves it unset.
const DefaultBufferSize = 8 << 20 // 8MB

// rawBufferSize buffers compressed bytes between the file and the decoder.
const rawBufferSize = 1 << 20

var (
	// ErrDecode is wrapped by every error caused by a corrupt compressed stream.
	ErrDecode = errors.New("corrupt compressed stream")
	// ErrUnsupported is returned for an Algorithm with no decoder.
	ErrUnsupported = errors.New("unsupported compression")
)

// Options configures how an input is decoded.
type Options struct {
	BufferSize int // Decoded-bytes buffer (default: 8MB)
	Threads    int // Decoder goroutines for gzip, BGZF, zstd and lz4 (default: 1)
}

func (o *Options) withDefaults() *Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.BufferSize <= 0 {
		out.BufferSize = DefaultBufferSize
	}
	if out.Threads <= 0 {
		out.Threads = 1
	}
	return &out
}

// Reader yields the decoded bytes of one input file. It owns the file handle
// and decoder state until Close.
type Reader struct {
	algo    Algorithm
	br      *bufio.Reader
	closers []io.Closer // closed in reverse order
	closed  bool
}

// Open opens path and selects a decoder for it. The returned error wraps the
// underlying fs error when the file cannot be opened, and ErrDecode when its
// header does not match the detected format.
func Open(path string, opts *Options) (*Reader, error) {
	opts = opts.withDefaults()

	f, err := os.Open(path) //nolint:gosec // CLI tool needs to open user-specified files
	if err != nil {
		return nil, fmt.Errorf("cannot open input: %w", err)
	}

	raw := bufio.NewReaderSize(f, rawBufferSize)
	header, err := raw.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		_ = f.Close()
		return nil, fmt.Errorf("cannot inspect input %s: %w", path, err)
	}

	algo := Detect(header, path)
	dec, closer, err := newDecoder(algo, raw, opts)
	if err != nil {
		_ = f.Close()
		if errors.Is(err, ErrUnsupported) {
			return nil, err
		}
		return nil, fmt.Errorf("cannot open %s input %s: %w: %w", algo, path, ErrDecode, err)
	}

	r := &Reader{
		algo:    algo,
		br:      bufio.NewReaderSize(decodeReader{dec}, opts.BufferSize),
		closers: []io.Closer{f},
	}
	if closer != nil {
		r.closers = append(r.closers, closer)
	}
	return r, nil
}

// Algorithm reports the detected input format.
func (r *Reader) Algorithm() Algorithm {
	return r.algo
}

// Read implements io.Reader over the decoded stream.
func (r *Reader) Read(p []byte) (int, error) {
	return r.br.Read(p)
}

// ReadSlice reads decoded bytes up to and including delim, as
// bufio.Reader.ReadSlice.
func (r *Reader) ReadSlice(delim byte) ([]byte, error) {
	return r.br.ReadSlice(delim)
}

// Fill returns the next chunk of decoded bytes, refilling the buffer when it
// is empty. The chunk is only valid until the next call on r. Fill returns
// io.EOF at the end of the stream.
func (r *Reader) Fill() ([]byte, error) {
	if r.br.Buffered() == 0 {
		if _, err := r.br.Peek(1); err != nil {
			return nil, err
		}
	}
	chunk, _ := r.br.Peek(r.br.Buffered()) //nolint:errcheck // n <= Buffered never fails
	_, _ = r.br.Discard(len(chunk))
	return chunk, nil
}

// Close releases the decoder and the file. It is safe to call more than once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// decodeReader marks decoder failures with ErrDecode so callers can tell a
// corrupt stream from a clean end.
type decodeReader struct {
	r io.Reader
}

func (d decodeReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		err = fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return n, err
}
