// fqstat writes base composition and quality statistics for FASTQ samples.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/vertti/fqstat/internal/config"
	"github.com/vertti/fqstat/internal/pipeline"
	"github.com/vertti/fqstat/internal/report"
	"github.com/vertti/fqstat/internal/sample"
)

var version = "dev"

const (
	exitSuccess = 0
	exitError   = 1
)

// cli holds flag values. Flags override the config file only when set.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	flags      config.Config
	json       bool
	progress   bool
	verbose    bool

	name string // sample subcommand
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	return exitSuccess
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr, flags: *config.Default()}

	root := &cobra.Command{
		Use:   "fqstat [flags] <dir>",
		Short: "Per-sample FASTQ base composition and quality statistics",
		Long: `fqstat scans every <name>_1.fastq.gz in a directory, pairs it with
<name>_2.fastq.gz when present, and writes <name>.sqs next to the reads.
Samples whose report already exists are skipped unless --force is given.

Inputs may be plain, gzip, BGZF, zstd, bzip2, lz4, snappy or brotli
compressed; the codec is detected from the file contents.`,
		Example: `  fqstat /data/run42
  fqstat --workers 8 --progress /data/run42
  fqstat --r1-suffix _R1.fq.zst --r2-suffix _R2.fq.zst --json /data/run42
  fqstat sample reads_1.fastq.gz reads_2.fastq.gz`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDirectory(cmd, args[0])
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("fqstat version {{.Version}}\n")
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configPath, "config", "c", "", "YAML config file")
	pf.IntVar(&c.flags.QualityOffset, "phred", c.flags.QualityOffset, "quality encoding offset (33 or 64)")
	pf.IntVar(&c.flags.DecodeThreads, "decode-threads", c.flags.DecodeThreads, "decoder goroutines per input file")
	pf.IntVar(&c.flags.BufferSize, "buffer-size", c.flags.BufferSize, "decoded-bytes buffer per input file")
	pf.StringVar(&c.flags.R1Suffix, "r1-suffix", c.flags.R1Suffix, "file name suffix of mate 1")
	pf.StringVar(&c.flags.R2Suffix, "r2-suffix", c.flags.R2Suffix, "file name suffix of mate 2")
	pf.StringVar(&c.flags.OutputExt, "ext", c.flags.OutputExt, "report file extension")
	pf.BoolVar(&c.json, "json", false, "write JSON reports instead of text")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "log every sample")

	f := root.Flags()
	f.IntVarP(&c.flags.Workers, "workers", "w", c.flags.Workers, "samples processed in parallel")
	f.BoolVarP(&c.flags.Overwrite, "force", "f", false, "recompute samples whose report exists")
	f.BoolVar(&c.progress, "progress", false, "show a progress bar")

	root.AddCommand(c.sampleCommand())
	return root
}

func (c *cli) sampleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample [flags] <r1> [r2]",
		Short: "Print the report of one sample to stdout",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r2 := ""
			if len(args) == 2 {
				r2 = args[1]
			}
			return c.runSample(cmd, args[0], r2)
		},
	}
	cmd.Flags().StringVar(&c.name, "name", "", "sample name in the report (default: derived from r1)")
	return cmd
}

// loadConfig reads the config file, if any, and applies the flags the user set.
func (c *cli) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.Load(c.configPath); err != nil {
			return nil, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("phred") {
		cfg.QualityOffset = c.flags.QualityOffset
	}
	if changed("decode-threads") {
		cfg.DecodeThreads = c.flags.DecodeThreads
	}
	if changed("buffer-size") {
		cfg.BufferSize = c.flags.BufferSize
	}
	if changed("r1-suffix") {
		cfg.R1Suffix = c.flags.R1Suffix
	}
	if changed("r2-suffix") {
		cfg.R2Suffix = c.flags.R2Suffix
	}
	if changed("ext") {
		cfg.OutputExt = c.flags.OutputExt
	}
	if changed("workers") {
		cfg.Workers = c.flags.Workers
	}
	if changed("force") {
		cfg.Overwrite = c.flags.Overwrite
	}
	if c.json {
		cfg.ReportFormat = config.FormatJSON
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *cli) logger() *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
}

func layoutOf(cfg *config.Config) sample.Layout {
	return sample.Layout{R1Suffix: cfg.R1Suffix, R2Suffix: cfg.R2Suffix, OutputExt: cfg.OutputExt}
}

func (c *cli) runDirectory(cmd *cobra.Command, dir string) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := c.logger()

	samples, err := sample.Discover(dir, layoutOf(cfg))
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		logger.Warn("no samples found", "dir", dir, "r1_suffix", cfg.R1Suffix)
		return nil
	}
	logger.Debug("discovered samples", "dir", dir, "count", len(samples), "workers", cfg.Workers)

	opts := pipeline.FromConfig(cfg)
	opts.Logger = logger

	var bar *pb.ProgressBar
	if c.progress {
		bar = pb.Full.New(len(samples)).SetWriter(c.stderr).Start()
		opts.OnDone = func(pipeline.Result) { bar.Increment() }
	}

	results, err := pipeline.Run(cmd.Context(), samples, opts)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("interrupted after %d of %d samples: %w", len(results), len(samples), err)
	}

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Sample.Name, res.Err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d samples failed: %w", len(errs), len(samples), errors.Join(errs...))
	}
	return nil
}

func (c *cli) runSample(cmd *cobra.Command, r1, r2 string) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := c.logger()

	s := sample.New(r1, r2, layoutOf(cfg))
	if c.name != "" {
		s.Name = c.name
	}

	opts := pipeline.FromConfig(cfg)
	opts.Logger = logger

	res := pipeline.Process(cmd.Context(), s, opts)
	if res.Err != nil {
		return res.Err
	}
	switch res.Outcome {
	case pipeline.Completed:
	case pipeline.Cancelled:
		return res.Cause
	default:
		logger.Warn("stopped early", "sample", s.Name, "outcome", res.Outcome,
			"reads", res.Stats.Combined.TotalRead, "err", res.Cause)
	}

	data, err := report.Render(cfg.ReportFormat, s.Name, res.Stats)
	if err != nil {
		return err
	}
	_, err = c.stdout.Write(data)
	return err
}
