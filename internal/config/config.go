// Package config holds fqstat run settings and loads them from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/vertti/fqstat/internal/report"
	"github.com/vertti/fqstat/internal/stats"
)

// Quality encoding offsets.
const (
	Phred33Offset = stats.Phred33Offset
	Phred64Offset = stats.Phred64Offset
)

// DefaultBufferSize is the decoded-stream buffer per input file.
const DefaultBufferSize = 8 << 20 // 8MB

// Report formats.
const (
	FormatText = report.FormatText
	FormatJSON = report.FormatJSON
)

// Config configures discovery, decoding and statistics.
type Config struct {
	// QualityOffset is the byte value of quality score zero (Phred+33 by default).
	QualityOffset int `yaml:"quality_offset"`

	Workers       int `yaml:"workers"`        // Samples processed in parallel (default: NumCPU)
	DecodeThreads int `yaml:"decode_threads"` // Inflate goroutines per gzip/zstd input (default: 1)
	BufferSize    int `yaml:"buffer_size"`    // Read buffer per input file in bytes

	R1Suffix  string `yaml:"r1_suffix"`
	R2Suffix  string `yaml:"r2_suffix"`
	OutputExt string `yaml:"output_ext"`

	ReportFormat string `yaml:"report_format"`
	Overwrite    bool   `yaml:"overwrite"` // Recompute samples whose report already exists
}

// Default returns the settings the tool runs with when no file is given.
func Default() *Config {
	return &Config{
		QualityOffset: Phred33Offset,
		Workers:       runtime.NumCPU(),
		DecodeThreads: 1,
		BufferSize:    DefaultBufferSize,
		R1Suffix:      "_1.fastq.gz",
		R2Suffix:      "_2.fastq.gz",
		OutputExt:     ".sqs",
		ReportFormat:  FormatText,
	}
}

// Load reads a YAML file on top of Default. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path) //nolint:gosec // CLI tool reads a user-specified config
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case c.QualityOffset < 1 || c.QualityOffset+30 > 255:
		return fmt.Errorf("quality_offset %d out of range", c.QualityOffset)
	case c.Workers < 1:
		return errors.New("workers must be at least 1")
	case c.DecodeThreads < 1:
		return errors.New("decode_threads must be at least 1")
	case c.BufferSize < 4096:
		return fmt.Errorf("buffer_size %d too small (minimum 4096)", c.BufferSize)
	case c.R1Suffix == "":
		return errors.New("r1_suffix must not be empty")
	case c.R1Suffix == c.R2Suffix:
		return errors.New("r1_suffix and r2_suffix must differ")
	case c.OutputExt == "":
		return errors.New("output_ext must not be empty")
	}

	switch c.ReportFormat {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("unknown report_format %q", c.ReportFormat)
	}
	return nil
}
