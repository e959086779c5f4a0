package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vertti/fqstat/internal/report"
	"github.com/vertti/fqstat/internal/sample"
)

// Run computes and writes the report of every sample, at most opts.Workers
// at a time. Results are returned in the order of samples. A failing sample
// never stops its siblings; the returned error is only set when ctx was
// cancelled.
func Run(ctx context.Context, samples []sample.Sample, opts *Options) ([]Result, error) {
	opts = opts.withDefaults()
	results := make([]Result, len(samples))

	// Single worker path (simpler, no goroutine overhead)
	if opts.Workers == 1 {
		for i, s := range samples {
			if err := ctx.Err(); err != nil {
				return results[:i], err
			}
			results[i] = runSample(ctx, s, opts)
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	scheduled := 0
	for i, s := range samples {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = runSample(gctx, s, opts)
			return nil
		})
		scheduled++
	}

	if err := g.Wait(); err != nil {
		return results[:scheduled], err
	}
	if err := ctx.Err(); err != nil {
		return results[:scheduled], err
	}
	return results, nil
}

// runSample handles the skip check, scanning and report writing for one
// sample. Cancelled scans write nothing so a later run redoes the sample.
func runSample(ctx context.Context, s sample.Sample, opts *Options) Result {
	log := opts.Logger.With("sample", s.Name)

	if !opts.Overwrite && s.Done() {
		log.Warn("report already exists, skipping", "output", s.Output)
		res := Result{Sample: s, Skipped: true}
		notify(opts, res)
		return res
	}

	log.Debug("processing", "prefix", s.Prefix, "r1", s.R1, "r2", s.R2)
	res := Process(ctx, s, opts)

	switch {
	case res.Err != nil:
		log.Error("cannot process sample", "err", res.Err)
	case res.Outcome == Cancelled:
		log.Warn("interrupted", "reads", res.Stats.Combined.TotalRead)
	default:
		if res.Outcome != Completed {
			log.Warn("stopped early", "outcome", res.Outcome, "reads", res.Stats.Combined.TotalRead, "err", res.Cause)
		}
		if err := write(s, res, opts.Format); err != nil {
			res.Err = err
			log.Error("cannot write report", "err", err)
			break
		}
		log.Info("done", "reads", res.Stats.Combined.TotalRead, "bases", res.Stats.Combined.TotalBase,
			"outcome", res.Outcome, "output", s.Output)
	}

	notify(opts, res)
	return res
}

func write(s sample.Sample, res Result, format string) error {
	data, err := report.Render(format, s.Name, res.Stats)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", s.Name, err)
	}
	return report.WriteFile(s.Output, data)
}

func notify(opts *Options, res Result) {
	if opts.OnDone != nil {
		opts.OnDone(res)
	}
}
