// Package sample discovers FASTQ samples in a directory and pairs their mates.
package sample

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vertti/fqstat/internal/report"
)

// Layout names the files that make up a sample.
type Layout struct {
	R1Suffix  string // e.g. "_1.fastq.gz"
	R2Suffix  string // e.g. "_2.fastq.gz"
	OutputExt string // e.g. ".sqs"
}

// Sample is one unit of work: an R1 file, an optional R2 file and the report
// path they produce.
type Sample struct {
	Name   string // file prefix without directory
	Prefix string // directory joined with Name
	R1     string
	R2     string // empty for single-end samples
	Output string
}

// Paired reports whether the sample has a mate-2 file.
func (s Sample) Paired() bool {
	return s.R2 != ""
}

// Done reports whether the sample's report already exists and is non-empty.
func (s Sample) Done() bool {
	fi, err := os.Stat(s.Output)
	return err == nil && fi.Mode().IsRegular() && fi.Size() > 0
}

// New builds a sample from explicit paths. The prefix is r1 without the R1
// suffix, or without its extension when the suffix does not match.
func New(r1, r2 string, layout Layout) Sample {
	prefix, ok := strings.CutSuffix(r1, layout.R1Suffix)
	if !ok || prefix == "" {
		prefix = strings.TrimSuffix(r1, filepath.Ext(r1))
	}
	return Sample{
		Name:   report.SampleName(prefix),
		Prefix: prefix,
		R1:     r1,
		R2:     r2,
		Output: prefix + layout.OutputExt,
	}
}

// Discover lists every "<name><R1Suffix>" file in dir, in name order, and
// pairs it with "<name><R2Suffix>" when that file exists.
func Discover(dir string, layout Layout) ([]Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var samples []Sample
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := strings.CutSuffix(e.Name(), layout.R1Suffix)
		if !ok || name == "" {
			continue
		}

		prefix := filepath.Join(dir, name)
		s := Sample{
			Name:   report.SampleName(prefix),
			Prefix: prefix,
			R1:     prefix + layout.R1Suffix,
			Output: prefix + layout.OutputExt,
		}
		if layout.R2Suffix != "" {
			if fi, err := os.Stat(prefix + layout.R2Suffix); err == nil && !fi.IsDir() {
				s.R2 = prefix + layout.R2Suffix
			}
		}
		samples = append(samples, s)
	}
	return samples, nil
}
