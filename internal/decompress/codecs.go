package decompress

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/biogo/hts/bgzf"
	"github.com/dsnet/compress/bzip2"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/pierrec/lz4/v4"
)

// Algorithm names the compression format of an input stream.
type Algorithm string

// Supported input formats.
const (
	AlgorithmNone   Algorithm = "none"
	AlgorithmGzip   Algorithm = "gzip"
	AlgorithmBGZF   Algorithm = "bgzf"
	AlgorithmZstd   Algorithm = "zstd"
	AlgorithmBzip2  Algorithm = "bzip2"
	AlgorithmLZ4    Algorithm = "lz4"
	AlgorithmSnappy Algorithm = "snappy"
	AlgorithmBrotli Algorithm = "brotli"
)

// sniffLen is enough to see every magic number below, including the BGZF
// extra subfield at offset 12.
const sniffLen = 16

// pgzipBlockSize is the readahead block used for multi-threaded gzip.
const pgzipBlockSize = 1 << 20

var extensions = map[string]Algorithm{
	".gz":     AlgorithmGzip,
	".gzip":   AlgorithmGzip,
	".bgz":    AlgorithmBGZF,
	".zst":    AlgorithmZstd,
	".zstd":   AlgorithmZstd,
	".bz2":    AlgorithmBzip2,
	".lz4":    AlgorithmLZ4,
	".sz":     AlgorithmSnappy,
	".snappy": AlgorithmSnappy,
	".br":     AlgorithmBrotli,
}

// Brotli has no magic number; it is only recognised by extension.
var magics = []struct {
	algo  Algorithm
	magic []byte
}{
	{AlgorithmZstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{AlgorithmLZ4, []byte{0x04, 0x22, 0x4d, 0x18}},
	{AlgorithmBzip2, []byte{'B', 'Z', 'h'}},
	{AlgorithmSnappy, []byte{0xff, 0x06, 0x00, 0x00, 's', 'N', 'a', 'P', 'p', 'Y'}},
}

// Detect picks the decoder for a stream from its leading bytes, falling back
// to the file extension. Empty input is always treated as uncompressed.
func Detect(header []byte, name string) Algorithm {
	if len(header) == 0 {
		return AlgorithmNone
	}
	if len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b {
		if isBGZF(header) {
			return AlgorithmBGZF
		}
		return AlgorithmGzip
	}
	for _, m := range magics {
		if bytes.HasPrefix(header, m.magic) {
			return m.algo
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	if algo, ok := extensions[ext]; ok {
		return algo
	}
	return AlgorithmNone
}

// isBGZF checks for the FEXTRA flag and the 'BC' subfield that every BGZF
// block carries.
func isBGZF(header []byte) bool {
	return len(header) >= 14 &&
		header[3]&0x04 != 0 &&
		header[12] == 'B' && header[13] == 'C'
}

// newDecoder wraps r in the decoder for algo. The returned closer is nil for
// decoders that hold no resources.
func newDecoder(algo Algorithm, r io.Reader, opts *Options) (io.Reader, io.Closer, error) {
	switch algo {
	case AlgorithmNone:
		return r, nil, nil
	case AlgorithmGzip:
		if opts.Threads > 1 {
			blocks := max(opts.Threads, opts.BufferSize/pgzipBlockSize)
			zr, err := pgzip.NewReaderN(r, pgzipBlockSize, blocks)
			if err != nil {
				return nil, nil, err
			}
			return zr, zr, nil
		}
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr, nil
	case AlgorithmBGZF:
		zr, err := bgzf.NewReader(r, opts.Threads)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr, nil
	case AlgorithmZstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(opts.Threads))
		if err != nil {
			return nil, nil, err
		}
		rc := zr.IOReadCloser()
		return rc, rc, nil
	case AlgorithmBzip2:
		zr, err := bzip2.NewReader(r, new(bzip2.ReaderConfig))
		if err != nil {
			return nil, nil, err
		}
		return zr, zr, nil
	case AlgorithmLZ4:
		zr := lz4.NewReader(r)
		if opts.Threads > 1 {
			if err := zr.Apply(lz4.ConcurrencyOption(opts.Threads)); err != nil {
				return nil, nil, err
			}
		}
		return zr, nil, nil
	case AlgorithmSnappy:
		return snappy.NewReader(r), nil, nil
	case AlgorithmBrotli:
		return brotli.NewReader(r), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupported, algo)
	}
}
