package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/chunkgrep/internal/discover"
	"github.com/usestring/chunkgrep/internal/output"
	"github.com/usestring/chunkgrep/internal/search"
	"github.com/usestring/chunkgrep/pkg/types"
)

// SearchInput is the input for chunkgrep_search.
type SearchInput struct {
	Patterns    []string     `json:"patterns" jsonschema:"Regular expressions (RE2 syntax). Each line is tested against every pattern; one record per (line, pattern) match."`
	Files       []string     `json:"files,omitempty" jsonschema:"Files to search"`
	Directories []string     `json:"directories,omitempty" jsonschema:"Directories to expand when recursive is set (default: current directory)"`
	Recursive   bool         `json:"recursive,omitempty" jsonschema:"Search every regular file under directories. Symlinks are not followed."`
	Flags       *SearchFlags `json:"flags,omitempty" jsonschema:"Matching and projection flags. Default: file_name, line_number and line_text"`
	Where       string       `json:"where,omitempty" jsonschema:"jq predicate; only records for which it yields a truthy value are kept. Applied before jq."`
	JQ          string       `json:"jq,omitempty" jsonschema:"jq expression applied to each record (fields: line_number, text, file, pattern). Replaces records with values."`
	Limit       int          `json:"limit,omitempty" jsonschema:"Max records or values returned (default and max: MCP_MAX_RECORDS)"`
}

// SearchFlags mirrors the CLI flags.
type SearchFlags struct {
	LineNumber      bool `json:"line_number,omitempty" jsonschema:"Include the 1-based line number (-n)"`
	LineText        bool `json:"line_text,omitempty" jsonschema:"Include the line text (-l)"`
	FileName        bool `json:"file_name,omitempty" jsonschema:"Include the file path (-sf)"`
	Pattern         bool `json:"pattern,omitempty" jsonschema:"Include the pattern that matched (-sp)"`
	Invert          bool `json:"invert,omitempty" jsonschema:"Report lines that do NOT match, once per pattern (-v)"`
	CaseInsensitive bool `json:"case_insensitive,omitempty" jsonschema:"Compile patterns case-insensitively (-i)"`
	CountOnly       bool `json:"count_only,omitempty" jsonschema:"Return only the count; cannot be combined with the include flags (-c)"`
}

// SearchOutput is the output for chunkgrep_search.
type SearchOutput struct {
	Count         int64               `json:"count"`
	Records       []types.MatchRecord `json:"records,omitzero"`
	Values        []any               `json:"values,omitzero"`
	Truncated     bool                `json:"truncated,omitempty"`
	Partial       bool                `json:"partial"`
	Cached        bool                `json:"cached"`
	ElapsedMs     int64               `json:"elapsed_ms"`
	FilesSearched int                 `json:"files_searched"`
	Diagnostics   []types.Diagnostic  `json:"diagnostics,omitzero"`
	JQErrors      []string            `json:"jq_errors,omitzero"`
	Hint          string              `json:"hint,omitempty"`
}

var defaultFlags = SearchFlags{LineNumber: true, LineText: true, FileName: true}

func (f *SearchFlags) options(recursive bool) types.Options {
	if f == nil {
		f = &defaultFlags
	}
	return types.Options{
		Invert:          f.Invert,
		CaseInsensitive: f.CaseInsensitive,
		Recursive:       recursive,
		CountOnly:       f.CountOnly,
		ShowLineNumber:  f.LineNumber,
		ShowLineText:    f.LineText,
		ShowFileName:    f.FileName,
		ShowPattern:     f.Pattern,
	}
}

// ToolSearch searches files for regular expressions.
func ToolSearch(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input SearchInput) (*sdkmcp.CallToolResult, SearchOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input SearchInput) (*sdkmcp.CallToolResult, SearchOutput, error) {
		start := time.Now()

		if len(input.Patterns) == 0 {
			return nil, SearchOutput{}, ErrInvalidInput("patterns is required")
		}
		if input.Limit < 0 {
			return nil, SearchOutput{}, ErrInvalidInput("limit must not be negative")
		}
		for _, expr := range []string{input.Where, input.JQ} {
			if expr == "" {
				continue
			}
			if err := d.Query.ValidateExpression(expr); err != nil {
				return nil, SearchOutput{}, ErrInvalidInput(err.Error())
			}
		}

		opts := input.Flags.options(input.Recursive)
		if err := opts.Validate(); err != nil {
			return nil, SearchOutput{}, WrapSearchError(err)
		}

		patterns, diags, err := search.CompilePatterns(input.Patterns, opts.CaseInsensitive)
		if err != nil {
			return nil, SearchOutput{}, WrapSearchError(errors.Join(err, diagnosticsError(diags)))
		}

		var dirs []string
		if input.Recursive {
			dirs = input.Directories
			if len(dirs) == 0 {
				dirs = []string{"."}
			}
		}
		files, discoverDiags := discover.Files(input.Files, dirs)
		diags = append(diags, discoverDiags...)

		searchReq, err := types.NewSearchRequest(patterns, files, dirs, opts)
		if err != nil {
			return nil, SearchOutput{}, WrapSearchError(err)
		}

		snap, cached, err := d.Execute(ctx, searchReq)
		if err != nil {
			return nil, SearchOutput{}, WrapSearchError(err)
		}

		report := output.Report{Snapshot: snap, Diagnostics: diags, CountOnly: opts.CountOnly, Cached: cached}
		out := SearchOutput{
			Count:         snap.Count,
			Partial:       report.Partial(),
			Cached:        cached,
			FilesSearched: snap.FilesSearched,
			Diagnostics:   report.AllDiagnostics(),
		}

		limit := d.MaxRecords()
		if input.Limit > 0 && input.Limit < limit {
			limit = input.Limit
		}

		var total int
		if !opts.CountOnly {
			records := output.SortedRecords(snap.Records)
			if input.Where != "" {
				records, err = d.Query.Select(records, input.Where)
				if err != nil {
					return nil, SearchOutput{}, ErrInvalidInput(err.Error())
				}
			}
			if input.JQ != "" {
				qr, err := d.Query.Records(records, input.JQ, false, 0)
				if err != nil {
					return nil, SearchOutput{}, ErrInvalidInput(err.Error())
				}
				total = len(qr.Values)
				out.Values = qr.Values[:min(limit, total)]
				out.JQErrors = qr.Errors
			} else {
				total = len(records)
				out.Records = records[:min(limit, total)]
			}
			out.Truncated = total > limit
		}

		out.ElapsedMs = time.Since(start).Milliseconds()
		out.Hint = searchHint(out, total, limit)
		return nil, out, nil
	}
}

func searchHint(out SearchOutput, total, limit int) string {
	var hints []string
	if out.Count == 0 {
		hints = append(hints, "No matches. Check the patterns (RE2 syntax, no backreferences) and the diagnostics for unreadable files.")
	}
	if out.Truncated {
		hints = append(hints, fmt.Sprintf("Showing %d of %d. Narrow the patterns, add a jq filter, or use count_only for totals (max limit %d).", limit, total, limit))
	}
	if out.Partial {
		hints = append(hints, "Result is partial: some input was not scanned (see diagnostics). Partial results are not cached.")
	}
	return strings.Join(hints, " ")
}

// diagnosticsError folds pattern diagnostics into one error for the caller.
func diagnosticsError(diags []types.Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	msgs := make([]string, len(diags))
	for i, d := range diags {
		msgs[i] = d.Message
	}
	return errors.New(strings.Join(msgs, "; "))
}
