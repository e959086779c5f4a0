// Package parser provides fast FASTQ file parsing.
package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// DefaultBufferSize is used when the input does not already buffer lines.
const DefaultBufferSize = 1 << 20 // 1MB

var (
	// ErrMalformed is returned for records that break the 4-line layout.
	ErrMalformed = errors.New("invalid FASTQ")
	// ErrTruncated is returned when the input ends inside a record.
	ErrTruncated = fmt.Errorf("truncated FASTQ record: %w", io.ErrUnexpectedEOF)
)

// Record represents a single FASTQ record.
//
// The slices are views into parser buffers and are only valid until the next
// call to Next.
type Record struct {
	Header   []byte // Header line without the leading '@'
	Sequence []byte // Bases, case preserved
	Quality  []byte // Encoded quality scores, same length as Sequence
}

// LineReader is satisfied by *bufio.Reader and *decompress.Reader.
type LineReader interface {
	ReadSlice(delim byte) (line []byte, err error)
}

// Parser reads FASTQ records from an input stream. Once Next has returned an
// error, every later call returns the same error.
type Parser struct {
	reader LineReader
	line   []byte // reusable buffer for reading lines
	rec    Record
	header []byte
	seq    []byte
	qual   []byte
	err    error
}

// New creates a new FASTQ parser. Inputs that already implement LineReader
// are used directly so a large decode buffer is not wrapped a second time.
func New(r io.Reader) *Parser {
	lr, ok := r.(LineReader)
	if !ok {
		lr = bufio.NewReaderSize(r, DefaultBufferSize)
	}
	return &Parser{
		reader: lr,
		line:   make([]byte, 0, 512),
		seq:    make([]byte, 0, 512),
		qual:   make([]byte, 0, 512),
	}
}

// Next reads and returns the next FASTQ record.
// Returns io.EOF when no more records are available.
func (p *Parser) Next() (*Record, error) {
	if p.err != nil {
		return nil, p.err
	}
	if err := p.next(); err != nil {
		p.err = err
		return nil, err
	}
	return &p.rec, nil
}

func (p *Parser) next() error {
	// Line 1: Header (starts with @), blank lines before it are skipped
	line, err := p.readLine()
	for err == nil && len(line) == 0 {
		line, err = p.readLine()
	}
	if err != nil {
		return err
	}
	if line[0] != '@' {
		return fmt.Errorf("%w: header line must start with @", ErrMalformed)
	}
	p.header = append(p.header[:0], line[1:]...)

	// Line 2: Sequence
	line, err = p.readRecordLine()
	if err != nil {
		return err
	}
	p.seq = append(p.seq[:0], line...)

	// Line 3: Plus line (we ignore it)
	line, err = p.readRecordLine()
	if err != nil {
		return err
	}
	if len(line) == 0 || line[0] != '+' {
		return fmt.Errorf("%w: separator line must start with +", ErrMalformed)
	}

	// Line 4: Quality scores
	line, err = p.readRecordLine()
	if err != nil {
		return err
	}
	p.qual = append(p.qual[:0], line...)

	if len(p.seq) != len(p.qual) {
		return fmt.Errorf("%w: sequence and quality lengths must match (%d != %d)",
			ErrMalformed, len(p.seq), len(p.qual))
	}

	p.rec = Record{Header: p.header, Sequence: p.seq, Quality: p.qual}
	return nil
}

// readRecordLine reads a line inside a record, where EOF means truncation.
func (p *Parser) readRecordLine() ([]byte, error) {
	line, err := p.readLine()
	if errors.Is(err, io.EOF) {
		return nil, ErrTruncated
	}
	return line, err
}

// readLine reads a line from the input, stripping the newline.
// Reuses an internal buffer to minimize allocations. A line cut short by a
// read error other than io.EOF is dropped and the error returned.
func (p *Parser) readLine() ([]byte, error) {
	p.line = p.line[:0]

	for {
		segment, err := p.reader.ReadSlice('\n')
		p.line = append(p.line, segment...)

		switch {
		case err == nil:
			p.line = p.line[:len(p.line)-1]
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(p.line) > 0:
			// last line without a trailing newline
		default:
			return nil, err
		}
		break
	}

	// Trim any trailing CR (for Windows line endings)
	p.line = bytes.TrimSuffix(p.line, []byte{'\r'})

	return p.line, nil
}
