package parser

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastq(n int, seq string) string {
	var sb strings.Builder
	for i := range n {
		sb.WriteString("@read")
		sb.WriteByte(byte('0' + i%10))
		sb.WriteString("\n" + seq + "\n+\n" + strings.Repeat("I", len(seq)) + "\n")
	}
	return sb.String()
}

func newPair(r1, r2 string) *PairParser {
	return NewPair(New(strings.NewReader(r1)), New(strings.NewReader(r2)))
}

func countPairs(t *testing.T, p *PairParser) (int, error) {
	t.Helper()

	n := 0
	for {
		_, _, err := p.Next()
		if err != nil {
			return n, err
		}
		n++
	}
}

func TestPairLockstep(t *testing.T) {
	t.Parallel()

	p := newPair(fastq(2, "AAAA"), fastq(2, "CCCCCC"))

	r1, r2, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, []byte("AAAA"), r1.Sequence)
	assert.Equal(t, []byte("CCCCCC"), r2.Sequence)

	_, _, err = p.Next()
	require.NoError(t, err)

	_, _, err = p.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPairStopsAtShorterMate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		r1, r2 int
	}{
		{"r1 longer", 3, 2},
		{"r2 longer", 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := newPair(fastq(tt.r1, "ACGT"), fastq(tt.r2, "ACGT"))
			n, err := countPairs(t, p)
			assert.Equal(t, 2, n)
			assert.ErrorIs(t, err, ErrDiscordant)
		})
	}
}

func TestPairMalformedMateEndsStream(t *testing.T) {
	t.Parallel()

	bad := fastq(1, "ACGT") + "@broken\nACGT\n+\nII\n" + fastq(3, "ACGT")
	p := newPair(fastq(5, "ACGT"), bad)

	n, err := countPairs(t, p)
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestPairErrorPreferredOverEOF(t *testing.T) {
	t.Parallel()

	p := newPair("", "@r\nAC\n+\n")
	_, _, err := p.Next()
	assert.ErrorIs(t, err, ErrTruncated)
	assert.False(t, errors.Is(err, ErrDiscordant))
}

func TestPairErrorIsSticky(t *testing.T) {
	t.Parallel()

	p := newPair(fastq(1, "A"), "")
	_, _, err := p.Next()
	require.ErrorIs(t, err, ErrDiscordant)

	_, _, err = p.Next()
	assert.ErrorIs(t, err, ErrDiscordant)
}
