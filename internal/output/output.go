// Package output renders search results for the console.
package output

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/usestring/chunkgrep/internal/result"
	"github.com/usestring/chunkgrep/pkg/types"
)

// Report is everything printed for one invocation.
type Report struct {
	Snapshot    *result.Snapshot
	Diagnostics []types.Diagnostic // reported before the search ran (patterns, discovery)
	CountOnly   bool
	Cached      bool
	Elapsed     time.Duration

	// Set when a jq expression was applied; replaces the record list.
	Values   []any
	JQErrors []string
}

// Partial reports whether any input went unscanned.
func (r Report) Partial() bool {
	if r.Snapshot != nil && r.Snapshot.Partial {
		return true
	}
	for _, d := range r.Diagnostics {
		if d.Kind.Incomplete() {
			return true
		}
	}
	return false
}

// AllDiagnostics returns the pre-search diagnostics followed by the snapshot's.
func (r Report) AllDiagnostics() []types.Diagnostic {
	out := slices.Clone(r.Diagnostics)
	if r.Snapshot != nil {
		out = append(out, r.Snapshot.Diagnostics...)
	}
	return out
}

// Printer writes reports to stdout and diagnostics to stderr.
type Printer struct {
	out io.Writer
	err io.Writer
	p   *message.Printer
}

// NewPrinter creates a Printer. Counts are formatted with English digit grouping.
func NewPrinter(stdout, stderr io.Writer) *Printer {
	return &Printer{out: stdout, err: stderr, p: message.NewPrinter(language.English)}
}

// Text prints the match count, the records (unless count-only) in a stable
// order, the elapsed time, then diagnostics on stderr.
func (pr *Printer) Text(r Report) {
	var count int64
	if r.Snapshot != nil {
		count = r.Snapshot.Count
	}
	pr.p.Fprintf(pr.out, "%d matches\n", count)

	switch {
	case r.CountOnly:
	case r.Values != nil:
		for _, v := range r.Values {
			fmt.Fprintln(pr.out, formatValue(v))
		}
	case r.Snapshot != nil:
		for _, rec := range SortedRecords(r.Snapshot.Records) {
			if line := FormatRecord(rec); line != "" {
				fmt.Fprintln(pr.out, line)
			}
		}
	}

	suffix := ""
	if r.Cached {
		suffix = " (cached)"
	}
	fmt.Fprintf(pr.out, "elapsed: %s%s\n", r.Elapsed.Round(time.Microsecond), suffix)

	for _, d := range r.AllDiagnostics() {
		fmt.Fprintf(pr.err, "chunkgrep: %s\n", d)
	}
	for _, msg := range r.JQErrors {
		fmt.Fprintf(pr.err, "chunkgrep: jq: %s\n", msg)
	}
}

// document is the machine-readable form of a Report.
type document struct {
	Count       int64               `json:"count" yaml:"count"`
	Records     []types.MatchRecord `json:"records,omitempty" yaml:"records,omitempty"`
	Values      []any               `json:"values,omitempty" yaml:"values,omitempty"`
	Partial     bool                `json:"partial" yaml:"partial"`
	Cached      bool                `json:"cached" yaml:"cached"`
	ElapsedMs   int64               `json:"elapsed_ms" yaml:"elapsed_ms"`
	Diagnostics []types.Diagnostic  `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	JQErrors    []string            `json:"jq_errors,omitempty" yaml:"jq_errors,omitempty"`
}

func newDocument(r Report) document {
	doc := document{
		Values:      r.Values,
		Partial:     r.Partial(),
		Cached:      r.Cached,
		ElapsedMs:   r.Elapsed.Milliseconds(),
		Diagnostics: r.AllDiagnostics(),
		JQErrors:    r.JQErrors,
	}
	if r.Snapshot != nil {
		doc.Count = r.Snapshot.Count
		if !r.CountOnly && r.Values == nil {
			doc.Records = SortedRecords(r.Snapshot.Records)
		}
	}
	return doc
}

// JSON prints the report as one JSON document on stdout.
func (pr *Printer) JSON(r Report) error {
	enc := json.NewEncoder(pr.out)
	enc.SetIndent("", "  ")
	return enc.Encode(newDocument(r))
}

// YAML prints the report as one YAML document on stdout.
func (pr *Printer) YAML(r Report) error {
	enc := yaml.NewEncoder(pr.out)
	enc.SetIndent(2)
	if err := enc.Encode(newDocument(r)); err != nil {
		return err
	}
	return enc.Close()
}

// FormatRecord renders the present fields of rec grep-style: file, line number,
// pattern and text joined by ':'.
func FormatRecord(rec types.MatchRecord) string {
	var parts []string
	if rec.File != nil {
		parts = append(parts, *rec.File)
	}
	if rec.LineNumber != nil {
		parts = append(parts, strconv.Itoa(*rec.LineNumber))
	}
	if rec.Pattern != nil {
		parts = append(parts, *rec.Pattern)
	}
	if rec.Text != nil {
		parts = append(parts, *rec.Text)
	}
	return strings.Join(parts, ":")
}

// SortedRecords returns a copy of records ordered by file, line, pattern and text.
func SortedRecords(records []types.MatchRecord) []types.MatchRecord {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b types.MatchRecord) int {
		ka, kb := a.Key(), b.Key()
		return cmp.Or(
			cmp.Compare(ka.File, kb.File),
			cmp.Compare(ka.LineNumber, kb.LineNumber),
			cmp.Compare(ka.Pattern, kb.Pattern),
			cmp.Compare(ka.Text, kb.Text),
		)
	})
	return out
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
