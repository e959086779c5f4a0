package stats

import "github.com/vertti/fqstat/internal/parser"

// SampleStatistics is the combined scope of one sample plus, for paired
// samples, one scope per mate.
type SampleStatistics struct {
	Paired   bool
	Combined CounterSet
	Mate1    CounterSet
	Mate2    CounterSet
}

// Aggregator folds the records of a single sample. It is not safe for
// concurrent use; give each sample its own.
type Aggregator struct {
	th    Thresholds
	stats SampleStatistics
}

// NewAggregator starts an empty sample whose quality bytes are encoded with
// the given offset.
func NewAggregator(qualityOffset int, paired bool) *Aggregator {
	return &Aggregator{
		th:    NewThresholds(qualityOffset),
		stats: SampleStatistics{Paired: paired},
	}
}

// FoldSingle adds a single-end read to the combined scope.
func (a *Aggregator) FoldSingle(rec *parser.Record) {
	a.stats.Combined = a.stats.Combined.Fold(rec.Sequence, rec.Quality, a.th)
}

// FoldPair adds a mate pair: r1 to the combined and mate-1 scopes, r2 to the
// combined and mate-2 scopes.
func (a *Aggregator) FoldPair(r1, r2 *parser.Record) {
	m1 := CounterSet{}.Fold(r1.Sequence, r1.Quality, a.th)
	m2 := CounterSet{}.Fold(r2.Sequence, r2.Quality, a.th)

	a.stats.Mate1 = a.stats.Mate1.Add(m1)
	a.stats.Mate2 = a.stats.Mate2.Add(m2)
	a.stats.Combined = a.stats.Combined.Add(m1).Add(m2)
}

// Stats returns a copy of the totals folded so far.
func (a *Aggregator) Stats() SampleStatistics {
	return a.stats
}
