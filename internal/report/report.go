// Package report renders sample statistics as .sqs text or JSON.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vertti/fqstat/internal/stats"
)

// Output formats accepted by Render.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Mate suffixes appended to the sample name on per-mate summary lines.
const (
	SuffixR1 = "_R1"
	SuffixR2 = "_R2"
)

// SampleName returns the last path element of a sample prefix.
func SampleName(prefix string) string {
	return filepath.Base(prefix)
}

// Text renders the report: a summary line and a detail block for the
// combined scope, then one of each per mate for paired samples.
func Text(name string, s stats.SampleStatistics) []byte {
	var buf bytes.Buffer
	writeBlock(&buf, name, name, s.Combined)
	if s.Paired {
		writeBlock(&buf, name+SuffixR1, name, s.Mate1)
		writeBlock(&buf, name+SuffixR2, name, s.Mate2)
	}
	return buf.Bytes()
}

// The detail block keeps the bare sample name even for mate scopes.
func writeBlock(buf *bytes.Buffer, summaryName, sampleName string, c stats.CounterSet) {
	m := stats.Derive(c)

	fmt.Fprintf(buf, "%s\t%d\t%d\t%.4f\t%.2f\t%.2f\t%.2f\n",
		summaryName, c.TotalBase, c.TotalRead, m.NRate, m.GCRate, m.Q20Rate, m.Q30Rate)
	fmt.Fprintf(buf, "SampleName : %s\n", sampleName)
	fmt.Fprintf(buf, "Total A : %d\n", c.A)
	fmt.Fprintf(buf, "Total C : %d\n", c.C)
	fmt.Fprintf(buf, "Total G : %d\n", c.G)
	fmt.Fprintf(buf, "Total T : %d\n", c.T)
	fmt.Fprintf(buf, "Total N : %d\n", c.N)
	fmt.Fprintf(buf, "Q30 Bases : %d\n", c.Q30)
	fmt.Fprintf(buf, "Q20 Bases : %d\n", c.Q20)
	fmt.Fprintf(buf, "Avg.ReadSize : %.2f\n", m.AvgReadLength)
}

// Scope is one counter set with its derived rates, as serialized to JSON.
type Scope struct {
	Name string `json:"name"`
	stats.CounterSet
	stats.Metrics
}

// Document is the JSON form of a report.
type Document struct {
	Sample string  `json:"sample"`
	Paired bool    `json:"paired"`
	Scopes []Scope `json:"scopes"`
}

// JSON renders the same numbers as Text as an indented JSON document.
func JSON(name string, s stats.SampleStatistics) ([]byte, error) {
	doc := Document{
		Sample: name,
		Paired: s.Paired,
		Scopes: []Scope{newScope(name, s.Combined)},
	}
	if s.Paired {
		doc.Scopes = append(doc.Scopes,
			newScope(name+SuffixR1, s.Mate1),
			newScope(name+SuffixR2, s.Mate2))
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return append(out, '\n'), nil
}

func newScope(name string, c stats.CounterSet) Scope {
	return Scope{Name: name, CounterSet: c, Metrics: stats.Derive(c)}
}

// Render produces the report for name in the given format.
func Render(format, name string, s stats.SampleStatistics) ([]byte, error) {
	switch format {
	case FormatText, "":
		return Text(name, s), nil
	case FormatJSON:
		return JSON(name, s)
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// WriteFile replaces path with data. The report is written to a temporary
// file in the same directory first, so an interrupted run never leaves a
// partial report behind.
func WriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("cannot create output: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o644); err != nil { //nolint:gosec // reports are meant to be shared
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
