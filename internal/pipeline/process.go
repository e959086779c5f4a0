// Package pipeline computes and writes per-sample FASTQ statistics.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"

	"github.com/vertti/fqstat/internal/config"
	"github.com/vertti/fqstat/internal/decompress"
	"github.com/vertti/fqstat/internal/parser"
	"github.com/vertti/fqstat/internal/sample"
	"github.com/vertti/fqstat/internal/stats"
)

// cancelCheckInterval is how many records are folded between context checks.
const cancelCheckInterval = 1 << 16

// Outcome tells how scanning of a sample ended.
type Outcome uint8

// Scan outcomes. Every outcome except Cancelled still yields a report built
// from the records folded before the stop.
const (
	Completed      Outcome = iota // every record was read
	Malformed                     // a record broke the 4-line layout
	Truncated                     // the input ended inside a record
	DecodeFailed                  // the compressed stream was corrupt
	Desynchronized                // one mate file ended before the other
	Cancelled                     // the run was interrupted
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Malformed:
		return "malformed"
	case Truncated:
		return "truncated"
	case DecodeFailed:
		return "decode-failed"
	case Desynchronized:
		return "desynchronized"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// classify maps the error that stopped a scan to its Outcome. A nil error
// means the input ended cleanly.
func classify(err error) Outcome {
	switch {
	case err == nil:
		return Completed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Cancelled
	case errors.Is(err, parser.ErrDiscordant):
		return Desynchronized
	case errors.Is(err, parser.ErrTruncated):
		return Truncated
	case errors.Is(err, parser.ErrMalformed):
		return Malformed
	default:
		return DecodeFailed
	}
}

// Options configures sample processing.
type Options struct {
	QualityOffset int    // Quality encoding offset (default: Phred+33)
	Workers       int    // Samples processed in parallel (default: NumCPU)
	DecodeThreads int    // Decoder goroutines per input file (default: 1)
	BufferSize    int    // Decoded-bytes buffer per input file (default: 8MB)
	Format        string // Report format (default: text)
	Overwrite     bool   // Recompute samples whose report already exists

	Logger *slog.Logger // default: discard
	// OnDone is called once per sample, from the worker that handled it.
	OnDone func(Result)
}

// FromConfig maps run settings onto Options.
func FromConfig(cfg *config.Config) *Options {
	return &Options{
		QualityOffset: cfg.QualityOffset,
		Workers:       cfg.Workers,
		DecodeThreads: cfg.DecodeThreads,
		BufferSize:    cfg.BufferSize,
		Format:        cfg.ReportFormat,
		Overwrite:     cfg.Overwrite,
	}
}

func (o *Options) withDefaults() *Options {
	var out Options
	if o != nil {
		out = *o
	}
	if out.QualityOffset <= 0 {
		out.QualityOffset = config.Phred33Offset
	}
	if out.Workers <= 0 {
		out.Workers = runtime.NumCPU()
	}
	if out.Format == "" {
		out.Format = config.FormatText
	}
	if out.Logger == nil {
		out.Logger = slog.New(slog.DiscardHandler)
	}
	return &out
}

func (o *Options) decodeOptions() *decompress.Options {
	return &decompress.Options{BufferSize: o.BufferSize, Threads: o.DecodeThreads}
}

// Result is the outcome of one sample.
type Result struct {
	Sample  sample.Sample
	Stats   stats.SampleStatistics
	Outcome Outcome
	Cause   error // what stopped scanning early; nil when Completed
	Skipped bool  // report already existed
	Err     error // the sample could not be opened or its report written
}

// Process opens the sample's files and folds every record into fresh
// statistics. Both inputs are closed before it returns.
func Process(ctx context.Context, s sample.Sample, opts *Options) Result {
	opts = opts.withDefaults()
	res := Result{Sample: s}

	r1, err := decompress.Open(s.R1, opts.decodeOptions())
	if err != nil {
		res.Err = err
		return res
	}
	defer closeInput(r1, s.R1, opts.Logger)
	opts.Logger.Debug("opened input", "path", s.R1, "codec", r1.Algorithm())

	agg := stats.NewAggregator(opts.QualityOffset, s.Paired())

	var scanErr error
	if s.Paired() {
		r2, err := decompress.Open(s.R2, opts.decodeOptions())
		if err != nil {
			res.Err = err
			return res
		}
		defer closeInput(r2, s.R2, opts.Logger)
		opts.Logger.Debug("opened input", "path", s.R2, "codec", r2.Algorithm())

		scanErr = ScanPaired(ctx, parser.NewPair(parser.New(r1), parser.New(r2)), agg)
	} else {
		scanErr = ScanSingle(ctx, parser.New(r1), agg)
	}

	res.Stats = agg.Stats()
	res.Outcome = classify(scanErr)
	res.Cause = scanErr
	return res
}

func closeInput(r *decompress.Reader, path string, logger *slog.Logger) {
	if err := r.Close(); err != nil {
		logger.Warn("closing input", "path", path, "err", err)
	}
}

// ScanSingle folds records until the parser stops. It returns nil at a clean
// end of input and otherwise the error that stopped it.
func ScanSingle(ctx context.Context, p *parser.Parser, agg *stats.Aggregator) error {
	for n := 1; ; n++ {
		rec, err := p.Next()
		if err != nil {
			return endOfScan(err)
		}
		agg.FoldSingle(rec)

		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
}

// ScanPaired folds mate pairs until either mate stops.
func ScanPaired(ctx context.Context, p *parser.PairParser, agg *stats.Aggregator) error {
	for n := 1; ; n++ {
		r1, r2, err := p.Next()
		if err != nil {
			return endOfScan(err)
		}
		agg.FoldPair(r1, r2)

		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
}

func endOfScan(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
