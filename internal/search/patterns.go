package search

import (
	"log/slog"

	"github.com/usestring/chunkgrep/pkg/types"
)

// CompilePatterns compiles sources, skipping the ones that fail. Each failure is
// returned as a pattern diagnostic. If nothing compiles the result is an
// ArgumentError wrapping types.ErrNoPatterns.
func CompilePatterns(sources []string, caseInsensitive bool) ([]types.Pattern, []types.Diagnostic, error) {
	patterns, errs := types.CompilePatterns(sources, caseInsensitive)

	diags := make([]types.Diagnostic, 0, len(errs))
	for _, err := range errs {
		d := types.Diagnostic{Kind: types.DiagPattern, Chunk: -1, Message: err.Error()}
		slog.Warn("skipping invalid pattern", slog.String("error", d.Message))
		diags = append(diags, d)
	}

	if len(patterns) == 0 {
		return nil, diags, &types.ArgumentError{Err: types.ErrNoPatterns}
	}
	return patterns, diags, nil
}
