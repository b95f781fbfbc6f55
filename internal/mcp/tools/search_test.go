package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/chunkgrep/internal/cache"
	"github.com/usestring/chunkgrep/internal/config"
	"github.com/usestring/chunkgrep/internal/query"
	"github.com/usestring/chunkgrep/internal/search"
	"github.com/usestring/chunkgrep/pkg/types"
)

func newTestDeps(t *testing.T, withCache bool) *Deps {
	t.Helper()
	engine := search.New(search.Config{Workers: 4, QueueCapacity: 8})
	d := &Deps{
		Config: &config.Config{MCPMaxRecords: 5},
		Search: engine,
		Query:  query.NewEngine(),
	}
	if withCache {
		store, err := cache.NewStore("", 0)
		require.NoError(t, err)
		d.Cache = cache.NewProxy(engine, store, 0)
	}
	return d
}

func writeLog(t *testing.T, dir, name string, lines int) string {
	t.Helper()
	var sb strings.Builder
	for i := 1; i <= lines; i++ {
		if i%2 == 0 {
			fmt.Fprintf(&sb, "%d ERROR disk full\n", i)
		} else {
			fmt.Fprintf(&sb, "%d INFO ok\n", i)
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var coded *CodedError
	require.True(t, errors.As(err, &coded), "expected CodedError, got %v", err)
	assert.Equal(t, code, coded.Code)
}

func TestToolSearch_defaultFlags(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "app.log", 6)
	d := newTestDeps(t, false)

	_, out, err := ToolSearch(d)(context.Background(), nil, SearchInput{
		Patterns: []string{"ERROR"},
		Files:    []string{path},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), out.Count)
	assert.False(t, out.Partial)
	assert.False(t, out.Truncated)
	assert.Equal(t, 1, out.FilesSearched)
	require.Len(t, out.Records, 3)
	for i, rec := range out.Records {
		require.NotNil(t, rec.LineNumber)
		assert.Equal(t, (i+1)*2, *rec.LineNumber)
		assert.Equal(t, path, *rec.File)
		assert.Contains(t, *rec.Text, "ERROR")
		assert.Nil(t, rec.Pattern)
	}
}

func TestToolSearch_truncatesToLimit(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "app.log", 40)
	d := newTestDeps(t, false)

	_, out, err := ToolSearch(d)(context.Background(), nil, SearchInput{
		Patterns: []string{"ERROR"},
		Files:    []string{path},
		Limit:    100, // capped by MCPMaxRecords
	})
	require.NoError(t, err)

	assert.Equal(t, int64(20), out.Count)
	assert.Len(t, out.Records, 5)
	assert.True(t, out.Truncated)
	assert.Contains(t, out.Hint, "Showing 5 of 20")
	assert.Equal(t, 2, *out.Records[0].LineNumber)
	assert.Equal(t, 10, *out.Records[4].LineNumber)
}

func TestToolSearch_countOnly(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "app.log", 10)
	d := newTestDeps(t, false)

	_, out, err := ToolSearch(d)(context.Background(), nil, SearchInput{
		Patterns: []string{"INFO", "ERROR"},
		Files:    []string{path},
		Flags:    &SearchFlags{CountOnly: true},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), out.Count)
	assert.Empty(t, out.Records)
}

func TestToolSearch_jq(t *testing.T) {
	dir := t.TempDir()
	a := writeLog(t, dir, "a.log", 4)
	b := writeLog(t, dir, "b.log", 4)
	d := newTestDeps(t, false)

	_, out, err := ToolSearch(d)(context.Background(), nil, SearchInput{
		Patterns: []string{"ERROR"},
		Files:    []string{b, a},
		Flags:    &SearchFlags{FileName: true, LineNumber: true},
		JQ:       `"\(.file):\(.line_number)"`,
	})
	require.NoError(t, err)
	assert.Empty(t, out.Records)
	assert.Equal(t, []any{a + ":2", a + ":4", b + ":2", b + ":4"}, out.Values)
}

func TestToolSearch_where(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "app.log", 10)
	d := newTestDeps(t, false)

	_, out, err := ToolSearch(d)(context.Background(), nil, SearchInput{
		Patterns: []string{"ERROR"},
		Files:    []string{path},
		Where:    ".line_number > 6",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), out.Count)
	require.Len(t, out.Records, 2)
	assert.Equal(t, 8, *out.Records[0].LineNumber)
	assert.Equal(t, 10, *out.Records[1].LineNumber)
	assert.False(t, out.Truncated)
}

func TestToolSearch_recursive(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.log", 2)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	writeLog(t, filepath.Join(dir, "sub"), "b.log", 2)
	d := newTestDeps(t, false)

	_, out, err := ToolSearch(d)(context.Background(), nil, SearchInput{
		Patterns:    []string{"ERROR"},
		Directories: []string{dir},
		Recursive:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Count)
	assert.Equal(t, 2, out.FilesSearched)
}

func TestToolSearch_partialOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "a.log", 2)
	d := newTestDeps(t, true)

	_, out, err := ToolSearch(d)(context.Background(), nil, SearchInput{
		Patterns: []string{"ERROR", "("},
		Files:    []string{path, filepath.Join(dir, "missing.log")},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), out.Count)
	assert.True(t, out.Partial)
	assert.Contains(t, out.Hint, "partial")

	kinds := make(map[types.DiagnosticKind]int)
	for _, diag := range out.Diagnostics {
		kinds[diag.Kind]++
	}
	assert.Equal(t, map[types.DiagnosticKind]int{types.DiagPattern: 1, types.DiagIO: 1}, kinds)
	assert.Equal(t, 0, d.Cache.Stats().Entries, "partial results are not cached")
}

func TestToolSearch_cached(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "a.log", 4)
	d := newTestDeps(t, true)
	in := SearchInput{Patterns: []string{"ERROR"}, Files: []string{path}}

	_, first, err := ToolSearch(d)(context.Background(), nil, in)
	require.NoError(t, err)
	_, second, err := ToolSearch(d)(context.Background(), nil, in)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Records, second.Records)

	_, stats, err := ToolCacheStats(d)(context.Background(), nil, CacheStatsInput{})
	require.NoError(t, err)
	assert.True(t, stats.Enabled)
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	_, purged, err := ToolCachePurge(d)(context.Background(), nil, CachePurgeInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, purged.Removed)
}

func TestToolSearch_invalidInput(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "a.log", 2)
	d := newTestDeps(t, false)

	tests := []struct {
		name  string
		input SearchInput
	}{
		{"no patterns", SearchInput{Files: []string{path}}},
		{"no files", SearchInput{Patterns: []string{"x"}}},
		{"no pattern compiles", SearchInput{Patterns: []string{"(", "["}, Files: []string{path}}},
		{"count with show flag", SearchInput{Patterns: []string{"x"}, Files: []string{path}, Flags: &SearchFlags{CountOnly: true, LineText: true}}},
		{"bad jq", SearchInput{Patterns: []string{"x"}, Files: []string{path}, JQ: ".["}},
		{"bad where", SearchInput{Patterns: []string{"x"}, Files: []string{path}, Where: "map("}},
		{"negative limit", SearchInput{Patterns: []string{"x"}, Files: []string{path}, Limit: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ToolSearch(d)(context.Background(), nil, tt.input)
			requireCode(t, err, ErrCodeInvalidInput)
		})
	}
}

func TestCacheTools_disabled(t *testing.T) {
	d := newTestDeps(t, false)

	_, stats, err := ToolCacheStats(d)(context.Background(), nil, CacheStatsInput{})
	require.NoError(t, err)
	assert.Equal(t, CacheStatsOutput{}, stats)

	_, purged, err := ToolCachePurge(d)(context.Background(), nil, CachePurgeInput{})
	require.NoError(t, err)
	assert.Zero(t, purged.Removed)
}

func TestWrapSearchError(t *testing.T) {
	assert.NoError(t, WrapSearchError(nil))
	requireCode(t, WrapSearchError(&types.ArgumentError{Err: types.ErrNoFiles}), ErrCodeInvalidInput)
	requireCode(t, WrapSearchError(fmt.Errorf("run: %w", context.DeadlineExceeded)), ErrCodeTimeout)
	requireCode(t, WrapSearchError(errors.New("boom")), ErrCodeSearchError)

	coded := ErrInvalidInput("bad")
	assert.Same(t, coded, WrapSearchError(coded))
}

func TestRegisteredOutputsPassSchema(t *testing.T) {
	assert.NoError(t, CheckOutputSchema[SearchOutput]("chunkgrep_search"))
	assert.NoError(t, CheckOutputSchema[CacheStatsOutput]("chunkgrep_cache_stats"))
	assert.NoError(t, CheckOutputSchema[CachePurgeOutput]("chunkgrep_cache_purge"))
}
