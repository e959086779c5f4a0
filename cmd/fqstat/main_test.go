package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

const twoReads = "@r1\nACGTN\n+\nIIII#\n@r2\nGGCC\n+\n5555\n"

func TestRunDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeGzipFile(t, filepath.Join(dir, "S_1.fastq.gz"), []byte(twoReads))
	writeGzipFile(t, filepath.Join(dir, "S_2.fastq.gz"), []byte(twoReads))

	var stdout, stderr bytes.Buffer
	if code := run([]string{"--workers", "2", dir}, &stdout, &stderr); code != exitSuccess {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}

	got := readFile(t, filepath.Join(dir, "S.sqs"))
	if !strings.HasPrefix(got, "S\t18\t4\t") {
		t.Fatalf("unexpected summary line: %q", got)
	}
	for _, want := range []string{"S_R1\t9\t2\t", "S_R2\t9\t2\t", "SampleName : S\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRunSkipsExistingReport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeGzipFile(t, filepath.Join(dir, "S_1.fastq.gz"), []byte(twoReads))
	out := filepath.Join(dir, "S.sqs")
	if err := os.WriteFile(out, []byte("kept\n"), 0o600); err != nil {
		t.Fatalf("write report: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{dir}, &stdout, &stderr); code != exitSuccess {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if got := readFile(t, out); got != "kept\n" {
		t.Fatalf("existing report was rewritten: %q", got)
	}
	if !strings.Contains(stderr.String(), "already exists") {
		t.Errorf("skip not logged: %s", stderr.String())
	}

	if code := run([]string{"--force", dir}, &stdout, &stderr); code != exitSuccess {
		t.Fatalf("exit code %d with --force, stderr: %s", code, stderr.String())
	}
	if got := readFile(t, out); !strings.HasPrefix(got, "S\t9\t2\t") {
		t.Fatalf("--force did not recompute: %q", got)
	}
}

func TestRunSampleCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r1 := filepath.Join(dir, "x_1.fastq.gz")
	writeGzipFile(t, r1, []byte(twoReads))

	var stdout, stderr bytes.Buffer
	if code := run([]string{"sample", "--name", "mine", r1}, &stdout, &stderr); code != exitSuccess {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}

	want := "mine\t9\t2\t11.1111\t66.67\t88.89\t44.44\n"
	if !strings.HasPrefix(stdout.String(), want) {
		t.Fatalf("got %q, want prefix %q", stdout.String(), want)
	}
	if _, err := os.Stat(filepath.Join(dir, "x.sqs")); !os.IsNotExist(err) {
		t.Errorf("sample command must not write a report file")
	}
}

func TestRunSampleJSON(t *testing.T) {
	t.Parallel()

	r1 := filepath.Join(t.TempDir(), "reads.fq")
	if err := os.WriteFile(r1, []byte(twoReads), 0o600); err != nil {
		t.Fatalf("write reads: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"sample", "--json", r1}, &stdout, &stderr); code != exitSuccess {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}

	var doc struct {
		Sample string `json:"sample"`
		Scopes []struct {
			TotalRead uint64 `json:"total_read"`
		} `json:"scopes"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout.String(), err)
	}
	if doc.Sample != "reads" || len(doc.Scopes) != 1 || doc.Scopes[0].TotalRead != 2 {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestRunSampleStopsEarlyStillPrints(t *testing.T) {
	t.Parallel()

	r1 := filepath.Join(t.TempDir(), "reads.fq")
	if err := os.WriteFile(r1, []byte(twoReads+"@r3\nACGT\n+\nII\n"), 0o600); err != nil {
		t.Fatalf("write reads: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"sample", r1}, &stdout, &stderr); code != exitSuccess {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	if !strings.HasPrefix(stdout.String(), "reads\t9\t2\t") {
		t.Fatalf("unexpected report: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "outcome=malformed") {
		t.Errorf("early stop not logged: %s", stderr.String())
	}
}

func TestRunConfigFileAndFlags(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeGzipFile(t, filepath.Join(dir, "S_R1.fq.gz"), []byte(twoReads))

	cfgPath := filepath.Join(t.TempDir(), "fqstat.yaml")
	cfg := "workers: 1\nr1_suffix: _R1.fq.gz\nr2_suffix: _R2.fq.gz\nreport_format: json\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var stdout, stderr bytes.Buffer
	code := run([]string{"--config", cfgPath, "--ext", ".json", dir}, &stdout, &stderr)
	if code != exitSuccess {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}

	got := readFile(t, filepath.Join(dir, "S.json"))
	if !json.Valid([]byte(got)) {
		t.Fatalf("report is not JSON: %q", got)
	}
}

func TestRunPhred64(t *testing.T) {
	t.Parallel()

	r1 := filepath.Join(t.TempDir(), "reads.fq")
	// 'h' is Q40 and 'T' is Q20 in Phred+64.
	if err := os.WriteFile(r1, []byte("@r\nACGT\n+\nhhTT\n"), 0o600); err != nil {
		t.Fatalf("write reads: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"sample", "--phred", "64", r1}, &stdout, &stderr); code != exitSuccess {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	want := "reads\t4\t1\t0.0000\t50.00\t100.00\t50.00\n"
	if !strings.HasPrefix(stdout.String(), want) {
		t.Fatalf("got %q, want prefix %q", stdout.String(), want)
	}
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"missing directory", []string{filepath.Join(dir, "missing")}},
		{"no arguments", []string{}},
		{"invalid workers", []string{"--workers", "0", dir}},
		{"unknown flag", []string{"--nope", dir}},
		{"missing config", []string{"--config", filepath.Join(dir, "none.yaml"), dir}},
		{"missing sample file", []string{"sample", filepath.Join(dir, "none.fq")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != exitError {
				t.Fatalf("exit code %d, want %d", code, exitError)
			}
			if !strings.HasPrefix(stderr.String(), "error: ") {
				t.Errorf("stderr = %q", stderr.String())
			}
		})
	}
}

func TestRunFailedSampleExitsWithError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeGzipFile(t, filepath.Join(dir, "good_1.fastq.gz"), []byte(twoReads))
	if err := os.WriteFile(filepath.Join(dir, "bad_1.fastq.gz"), []byte{0x1f, 0x8b, 0, 0}, 0o600); err != nil {
		t.Fatalf("write bad input: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{dir}, &stdout, &stderr); code != exitError {
		t.Fatalf("exit code %d, want %d", code, exitError)
	}
	if !strings.Contains(stderr.String(), "1 of 2 samples failed") {
		t.Errorf("stderr = %q", stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "good.sqs")); err != nil {
		t.Errorf("good sample not reported: %v", err)
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if code := run([]string{"--version"}, &stdout, &stderr); code != exitSuccess {
		t.Fatalf("exit code %d", code)
	}
	if got := stdout.String(); got != "fqstat version dev\n" {
		t.Fatalf("version output %q", got)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	b, err := os.ReadFile(path) //nolint:gosec // test fixture path
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func writeGzipFile(t *testing.T, path string, data []byte) {
	t.Helper()

	f, err := os.Create(path) //nolint:gosec // test fixture path
	if err != nil {
		t.Fatalf("create gzip file: %v", err)
	}
	defer func() { _ = f.Close() }()

	gz := gzip.NewWriter(f)
	if _, err := gz.Write(data); err != nil {
		t.Fatalf("write gzip data: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip writer: %v", err)
	}
}
