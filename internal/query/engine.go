// Package query provides jq filtering over match records.
package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/usestring/chunkgrep/pkg/types"
)

// Engine executes jq expressions against match records.
type Engine struct{}

// NewEngine creates a new query engine.
func NewEngine() *Engine {
	return &Engine{}
}

// QueryResult contains the results of a jq query.
type QueryResult struct {
	Values         []any    `json:"values"`                    // Extracted values
	Errors         []string `json:"errors,omitempty"`          // Per-record errors (e.g., type mismatch)
	RawCount       int      `json:"raw_count"`                 // Count before deduplication
	MatchedIndices []int    `json:"matched_indices,omitempty"` // Indices of records that produced values, ascending
}

// Records runs expression once per record. Each record is presented as an
// object holding only its present fields: line_number, text, file, pattern.
// Runtime errors are collected per record and do not stop the query.
func (e *Engine) Records(records []types.MatchRecord, expression string, deduplicate bool, maxResults int) (*QueryResult, error) {
	code, err := compile(expression)
	if err != nil {
		return nil, err
	}

	result := &QueryResult{
		Values: make([]any, 0),
		Errors: make([]string, 0),
	}
	seen := make(map[string]bool)
	seenErrors := make(map[string]bool) // Deduplicate similar errors

	for i, rec := range records {
		if maxResults > 0 && len(result.Values) >= maxResults {
			break
		}
		label := fmt.Sprintf("record[%d]", i)
		matched := false

		iter := code.Run(recordValue(rec))
		for {
			if maxResults > 0 && len(result.Values) >= maxResults {
				break
			}
			v, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := v.(error); isErr {
				msg := formatJQError(label, err)
				if !seenErrors[msg] {
					result.Errors = append(result.Errors, msg)
					seenErrors[msg] = true
				}
				continue
			}
			// select() that filters a record out yields nothing; an explicit null is skipped too
			if v == nil {
				continue
			}

			result.RawCount++
			matched = true

			if deduplicate {
				key := valueKey(v)
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			result.Values = append(result.Values, v)
		}
		if matched {
			result.MatchedIndices = append(result.MatchedIndices, i)
		}
	}

	return result, nil
}

// Select keeps the records for which expression yields at least one truthy value.
func (e *Engine) Select(records []types.MatchRecord, expression string) ([]types.MatchRecord, error) {
	code, err := compile(expression)
	if err != nil {
		return nil, err
	}
	out := make([]types.MatchRecord, 0, len(records))
	for _, rec := range records {
		iter := code.Run(recordValue(rec))
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			if _, isErr := v.(error); isErr {
				break
			}
			if truthy(v) {
				out = append(out, rec)
				break
			}
		}
	}
	return out, nil
}

// ValidateExpression checks if a jq expression is valid without executing it.
func (e *Engine) ValidateExpression(expression string) error {
	_, err := compile(expression)
	return err
}

func compile(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("invalid jq expression at position %d: %w", parseErr.Offset, err)
		}
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return code, nil
}

// recordValue converts a record into the map form gojq operates on.
func recordValue(r types.MatchRecord) map[string]any {
	m := make(map[string]any, 4)
	if r.LineNumber != nil {
		m["line_number"] = *r.LineNumber
	}
	if r.Text != nil {
		m["text"] = *r.Text
	}
	if r.File != nil {
		m["file"] = *r.File
	}
	if r.Pattern != nil {
		m["pattern"] = *r.Pattern
	}
	return m
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	default:
		return true
	}
}

// formatJQError creates a helpful error message for jq execution errors.
//
// Runtime errors (like "cannot iterate over: null") are plain errors without
// typed wrappers in gojq, so hints are chosen by string matching. They only
// decorate messages and never drive control flow.
func formatJQError(label string, err error) string {
	var haltErr *gojq.HaltError
	if errors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return fmt.Sprintf("%s: query halted", label)
		}
		return fmt.Sprintf("%s: query halted with: %v", label, haltErr.Value())
	}

	errStr := err.Error()

	var hint string
	switch {
	case strings.Contains(errStr, "cannot iterate over: null"):
		hint = " (the field may be absent; enable it with -n, -l, -sf or -sp)"
	case strings.Contains(errStr, "cannot index") && strings.Contains(errStr, "with"):
		hint = " (records are flat objects: line_number, text, file, pattern)"
	case strings.Contains(errStr, "cannot be applied to: null"):
		hint = " (the field may be absent; enable it with -n, -l, -sf or -sp)"
	}

	return fmt.Sprintf("%s: %s%s", label, errStr, hint)
}

// valueKey creates a string key for deduplication.
func valueKey(v any) string {
	switch val := v.(type) {
	case string:
		return "s:" + val
	case int, float64:
		return fmt.Sprintf("n:%v", val)
	case bool:
		return fmt.Sprintf("b:%v", val)
	case nil:
		return "null"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("?:%v", val)
		}
		return "j:" + string(b)
	}
}
