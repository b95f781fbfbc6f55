// Package types provides shared types for chunkgrep.
// These types are used across multiple packages and are designed for external consumption.
package types

import (
	"fmt"
	"regexp"
	"slices"
)

// Options controls matching behavior and which fields a MatchRecord carries.
type Options struct {
	Invert          bool `json:"invert,omitempty"`           // -v
	CaseInsensitive bool `json:"case_insensitive,omitempty"` // -i
	Recursive       bool `json:"recursive,omitempty"`        // -R
	CountOnly       bool `json:"count_only,omitempty"`       // -c
	ShowLineNumber  bool `json:"show_line_number,omitempty"` // -n
	ShowLineText    bool `json:"show_line_text,omitempty"`   // -l
	ShowFileName    bool `json:"show_file_name,omitempty"`   // -sf
	ShowPattern     bool `json:"show_pattern,omitempty"`     // -sp
}

// Validate reports an ArgumentError when CountOnly is combined with any show flag.
func (o Options) Validate() error {
	if o.CountOnly && o.showsAnything() {
		return &ArgumentError{Err: ErrCountOnlyConflict}
	}
	return nil
}

func (o Options) showsAnything() bool {
	return o.ShowLineNumber || o.ShowLineText || o.ShowFileName || o.ShowPattern
}

// Pattern is a compiled regular expression together with the text it was compiled from.
type Pattern struct {
	source string
	re     *regexp.Regexp
}

// CompilePattern compiles source, adding the (?i) flag when caseInsensitive is set.
// Failures are returned as *PatternError.
func CompilePattern(source string, caseInsensitive bool) (Pattern, error) {
	expr := source
	if caseInsensitive {
		expr = "(?i)" + source
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, &PatternError{Pattern: source, Err: err}
	}
	return Pattern{source: source, re: re}, nil
}

// CompilePatterns compiles every source and keeps the ones that compile.
// Each failure is reported as a *PatternError; order of the survivors is preserved.
func CompilePatterns(sources []string, caseInsensitive bool) ([]Pattern, []error) {
	var (
		patterns []Pattern
		errs     []error
	)
	for _, src := range sources {
		p, err := CompilePattern(src, caseInsensitive)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		patterns = append(patterns, p)
	}
	return patterns, errs
}

// String returns the pattern text as the user wrote it.
func (p Pattern) String() string { return p.source }

// Regexp returns the compiled expression.
func (p Pattern) Regexp() *regexp.Regexp { return p.re }

// Expr returns the expression actually compiled, including any flags.
func (p Pattern) Expr() string {
	if p.re == nil {
		return ""
	}
	return p.re.String()
}

// SearchRequest describes one complete search invocation.
// It is immutable once constructed; accessors return copies.
type SearchRequest struct {
	patterns    []Pattern
	files       []string
	directories []string
	options     Options
}

// NewSearchRequest validates and builds a SearchRequest.
// files must already contain any files expanded from directories.
func NewSearchRequest(patterns []Pattern, files, directories []string, opts Options) (*SearchRequest, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return nil, &ArgumentError{Err: ErrNoPatterns}
	}
	if len(files) == 0 && !opts.Recursive {
		return nil, &ArgumentError{Err: ErrNoFiles}
	}
	for _, p := range patterns {
		if p.re == nil {
			return nil, &ArgumentError{Err: fmt.Errorf("pattern %q is not compiled", p.source)}
		}
	}
	return &SearchRequest{
		patterns:    slices.Clone(patterns),
		files:       slices.Clone(files),
		directories: slices.Clone(directories),
		options:     opts,
	}, nil
}

// Patterns returns the patterns in request order.
func (r *SearchRequest) Patterns() []Pattern { return slices.Clone(r.patterns) }

// Files returns the target file paths.
func (r *SearchRequest) Files() []string { return slices.Clone(r.files) }

// Directories returns the directories the file list was expanded from.
func (r *SearchRequest) Directories() []string { return slices.Clone(r.directories) }

// Options returns the request options.
func (r *SearchRequest) Options() Options { return r.options }
