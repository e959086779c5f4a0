// Package stats folds FASTQ records into base-composition and quality counters.
package stats

// Phred encoding offsets.
const (
	Phred33Offset = 33 // Sanger/Illumina 1.8+
	Phred64Offset = 64 // Illumina 1.3-1.7
)

// Thresholds are the encoded quality bytes at or above which a base counts
// as Q20 and Q30.
type Thresholds struct {
	Q20 int
	Q30 int
}

// NewThresholds places the Q20/Q30 cut-offs above a quality encoding offset.
func NewThresholds(offset int) Thresholds {
	return Thresholds{Q20: offset + 20, Q30: offset + 30}
}

// CounterSet holds the running totals of one accumulation scope.
//
// Bytes outside A, C, G, T and N (including lowercase bases) add to TotalBase
// but to no base counter.
type CounterSet struct {
	TotalBase uint64 `json:"total_base"`
	TotalRead uint64 `json:"total_read"`

	A uint64 `json:"a"`
	C uint64 `json:"c"`
	G uint64 `json:"g"`
	T uint64 `json:"t"`
	N uint64 `json:"n"`

	Q30 uint64 `json:"q30_bases"`
	Q20 uint64 `json:"q20_bases"`
}

// Fold returns c with one read added.
func (c CounterSet) Fold(seq, qual []byte, th Thresholds) CounterSet {
	c.TotalBase += uint64(len(seq))
	c.TotalRead++

	for _, b := range seq {
		switch b {
		case 'A':
			c.A++
		case 'C':
			c.C++
		case 'G':
			c.G++
		case 'T':
			c.T++
		case 'N':
			c.N++
		}
	}

	for _, q := range qual {
		if int(q) >= th.Q30 {
			c.Q30++
		}
		if int(q) >= th.Q20 {
			c.Q20++
		}
	}
	return c
}

// Add returns the field-wise sum of c and o.
func (c CounterSet) Add(o CounterSet) CounterSet {
	return CounterSet{
		TotalBase: c.TotalBase + o.TotalBase,
		TotalRead: c.TotalRead + o.TotalRead,
		A:         c.A + o.A,
		C:         c.C + o.C,
		G:         c.G + o.G,
		T:         c.T + o.T,
		N:         c.N + o.N,
		Q30:       c.Q30 + o.Q30,
		Q20:       c.Q20 + o.Q20,
	}
}
