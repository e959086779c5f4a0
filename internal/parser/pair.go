package parser

import (
	"errors"
	"io"
)

// ErrDiscordant is returned when one mate stream ends before the other.
var ErrDiscordant = errors.New("discordant FASTQ pairs")

// PairParser advances an R1 and an R2 parser in lockstep.
type PairParser struct {
	r1, r2 *Parser
	err    error
}

// NewPair composes two parsers whose records correspond positionally.
func NewPair(r1, r2 *Parser) *PairParser {
	return &PairParser{r1: r1, r2: r2}
}

// Next reads one record from each mate. It returns io.EOF when both streams
// end together, ErrDiscordant when only one does, and otherwise the first
// parse error. Any error ends the pair stream for good.
func (p *PairParser) Next() (*Record, *Record, error) {
	if p.err != nil {
		return nil, nil, p.err
	}

	rec1, err1 := p.r1.Next()
	rec2, err2 := p.r2.Next()

	switch {
	case err1 == nil && err2 == nil:
		return rec1, rec2, nil
	case isEOF(err1) && isEOF(err2):
		p.err = io.EOF
	case err1 != nil && !isEOF(err1):
		p.err = err1
	case err2 != nil && !isEOF(err2):
		p.err = err2
	default:
		p.err = ErrDiscordant
	}
	return nil, nil, p.err
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
