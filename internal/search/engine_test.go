package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/chunkgrep/internal/chunk"
	"github.com/usestring/chunkgrep/internal/pool"
	"github.com/usestring/chunkgrep/internal/result"
	"github.com/usestring/chunkgrep/pkg/types"
)

// --- helpers ---

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newRequest(t *testing.T, patterns []string, files []string, opts types.Options) *types.SearchRequest {
	t.Helper()
	compiled, diags, err := CompilePatterns(patterns, opts.CaseInsensitive)
	require.NoError(t, err)
	require.Empty(t, diags)
	req, err := types.NewSearchRequest(compiled, files, nil, opts)
	require.NoError(t, err)
	return req
}

func lineNumbers(snap *result.Snapshot) []int {
	out := make([]int, 0, len(snap.Records))
	for _, r := range snap.Records {
		out = append(out, *r.LineNumber)
	}
	slices.Sort(out)
	return out
}

// numberedLog returns n lines where every 7th line contains "match".
func numberedLog(n int) (string, []int) {
	var sb strings.Builder
	var want []int
	for i := 1; i <= n; i++ {
		if i%7 == 0 {
			fmt.Fprintf(&sb, "line %d match\n", i)
			want = append(want, i)
		} else {
			fmt.Fprintf(&sb, "line %d\n", i)
		}
	}
	return sb.String(), want
}

// dropAll drops every rejected task.
type dropAll struct{}

func (dropAll) Kind() pool.Kind { return "drop-all" }
func (dropAll) OnRejected(pool.Task, pool.Handle) error { return pool.ErrTaskDropped }

// --- tests ---

func TestExecute_singleFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "f.txt", "foo\nbarfoo\nbaz")
	req := newRequest(t, []string{"foo"}, []string{path}, types.Options{ShowLineText: true})

	snap, err := New(Config{Workers: 2}).Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int64(2), snap.Count)
	assert.Len(t, snap.Records, 2)
	for _, r := range snap.Records {
		assert.Equal(t, "foo", *r.Text)
	}
	assert.False(t, snap.Partial)
	assert.Equal(t, 1, snap.FilesSearched)
	assert.Equal(t, 2, snap.ChunksScanned)
}

func TestExecute_lineNumbersAcrossChunks(t *testing.T) {
	content, want := numberedLog(500)
	path := writeFile(t, t.TempDir(), "app.log", content)
	req := newRequest(t, []string{"match"}, []string{path}, types.Options{ShowLineNumber: true})

	snap, err := New(Config{Workers: 3, QueueCapacity: 2, Plan: chunk.PlanConfig{TargetChunks: 9}}).
		Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Greater(t, snap.ChunksScanned, 1)
	assert.Equal(t, want, lineNumbers(snap))
}

func TestExecute_sameResultUnderEveryPolicy(t *testing.T) {
	dir := t.TempDir()
	content, _ := numberedLog(300)
	files := []string{
		writeFile(t, dir, "a.log", content),
		writeFile(t, dir, "b.log", strings.Repeat("match match\nnothing\n", 40)),
		writeFile(t, dir, "empty.log", ""),
	}
	opts := types.Options{ShowLineNumber: true, ShowFileName: true, ShowPattern: true, ShowLineText: true}
	req := newRequest(t, []string{"match", "line \\d+"}, files, opts)

	reference, err := New(Config{Workers: 1, Plan: chunk.PlanConfig{TargetChunks: 1}}).Execute(context.Background(), req)
	require.NoError(t, err)
	require.NotZero(t, reference.Count)

	policies := []pool.Policy{pool.CallerRuns{}, &pool.GrowPool{}, pool.BackoffRetry{MaxRetries: 1000, Backoff: time.Millisecond}}
	for _, policy := range policies {
		t.Run(string(policy.Kind()), func(t *testing.T) {
			engine := New(Config{
				Workers:       2,
				QueueCapacity: 1,
				Policy:        policy,
				Plan:          chunk.PlanConfig{TargetChunks: 16},
				FileWorkers:   3,
			})
			snap, err := engine.Execute(context.Background(), req)
			require.NoError(t, err)
			assert.False(t, snap.Partial)
			assert.Equal(t, reference.Count, snap.Count)
			assert.True(t, reference.SameRecords(snap), "records differ from single-chunk run")
		})
	}
}

func TestExecute_droppedChunksStayNumbered(t *testing.T) {
	content, want := numberedLog(2000)
	path := writeFile(t, t.TempDir(), "big.log", content)
	req := newRequest(t, []string{"match"}, []string{path}, types.Options{ShowLineNumber: true})

	engine := New(Config{Workers: 1, QueueCapacity: 1, Policy: dropAll{}, Plan: chunk.PlanConfig{TargetChunks: 40}})
	snap, err := engine.Execute(context.Background(), req)
	require.NoError(t, err)

	dropped := 0
	for _, d := range snap.Diagnostics {
		if d.Kind == types.DiagDropped {
			dropped++
		}
	}
	assert.Equal(t, dropped > 0, snap.Partial)
	assert.Equal(t, int64(len(snap.Records)), snap.Count)

	// whatever survived carries its true line number
	for _, n := range lineNumbers(snap) {
		assert.Contains(t, want, n)
	}
}

func TestExecute_unreadableInputs(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", "hit\n")
	missing := filepath.Join(dir, "missing.txt")
	req := newRequest(t, []string{"hit"}, []string{good, missing, dir}, types.Options{ShowFileName: true})

	snap, err := New(Config{}).Execute(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, snap.Partial)
	assert.Equal(t, int64(1), snap.Count)
	assert.Equal(t, 1, snap.FilesSearched)
	require.Len(t, snap.Diagnostics, 2)

	var paths []string
	for _, d := range snap.Diagnostics {
		assert.Equal(t, types.DiagIO, d.Kind)
		assert.Equal(t, -1, d.Chunk)
		paths = append(paths, d.Path)
	}
	assert.ElementsMatch(t, []string{missing, dir}, paths)
}

func TestExecute_canceledBeforeStart(t *testing.T) {
	path := writeFile(t, t.TempDir(), "f.txt", "foo\n")
	req := newRequest(t, []string{"foo"}, []string{path}, types.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := New(Config{}).Execute(ctx, req)
	require.NoError(t, err)
	assert.True(t, snap.Partial)
	assert.Zero(t, snap.FilesSearched)
	require.Len(t, snap.Diagnostics, 1)
	assert.Equal(t, types.DiagCancel, snap.Diagnostics[0].Kind)
}

func TestExecute_countOnly(t *testing.T) {
	path := writeFile(t, t.TempDir(), "f.txt", "ab ab\nab\n")
	req := newRequest(t, []string{"ab"}, []string{path}, types.Options{CountOnly: true})

	snap, err := New(Config{}).Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Count)
	for _, r := range snap.Records {
		assert.Equal(t, types.MatchRecord{}, r)
	}
}

func TestExecute_invertedAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "keep\ndrop me\n")
	b := writeFile(t, dir, "b.txt", "drop\nkeep too\n")
	req := newRequest(t, []string{"drop"}, []string{a, b}, types.Options{Invert: true, ShowLineText: true, ShowFileName: true})

	snap, err := New(Config{}).Execute(context.Background(), req)
	require.NoError(t, err)

	var got []string
	for _, r := range snap.Records {
		got = append(got, filepath.Base(*r.File)+":"+*r.Text)
	}
	assert.ElementsMatch(t, []string{"a.txt:keep", "b.txt:keep too"}, got)
}

func TestFileRun_rebaseRecountsMissingChunks(t *testing.T) {
	// three chunks of two lines each; the middle one never reported
	path := writeFile(t, t.TempDir(), "f.txt", "a\nb\nc\nd\ne\nf\n")
	f, err := os.Open(path)
	require.NoError(t, err)

	run := newFileRun(path, f, true)
	chunks := []types.Chunk{{Seq: 0, Start: 0, End: 3}, {Seq: 1, Start: 4, End: 7}, {Seq: 2, Start: 8, End: 11}}
	for _, c := range chunks {
		run.plan(c)
	}
	builder := types.NewRecordBuilder(types.Options{ShowLineNumber: true})
	run.reports[0] = chunkReport{lines: 2, records: []types.MatchRecord{builder.Build(2, "", "", "")}}
	run.reports[2] = chunkReport{lines: 2, records: []types.MatchRecord{builder.Build(1, "", "", "")}}
	run.done.Add(0)
	run.done.Add(2)
	for range chunks {
		run.release()
	}
	run.release()

	acc := result.New()
	assert.Equal(t, 2, run.finish(acc))

	snap := acc.Snapshot()
	assert.Equal(t, []int{2, 5}, lineNumbers(snap))
}

func TestFileRun_unscannedChunkMakesResultPartial(t *testing.T) {
	run := newFileRun("app.log", nil, false)
	run.plan(types.Chunk{Seq: 0, Start: 0, End: 9})
	run.plan(types.Chunk{Seq: 1, Start: 10, End: 19})

	// chunk 0 scanned; chunk 1's task died without reporting anything
	acc := result.New()
	acc.Append(types.NewRecordBuilder(types.Options{ShowLineText: true}).Build(1, "hit", "", ""))
	run.done.Add(0)

	assert.Equal(t, 1, run.finish(acc))

	snap := acc.Snapshot()
	assert.True(t, snap.Partial)
	require.Len(t, snap.Diagnostics, 1)
	assert.Equal(t, types.DiagIO, snap.Diagnostics[0].Kind)
	assert.Equal(t, "app.log", snap.Diagnostics[0].Path)
	assert.Equal(t, 1, snap.Diagnostics[0].Chunk)
}

func TestFileRun_failedChunkReportedOnce(t *testing.T) {
	run := newFileRun("app.log", nil, false)
	run.plan(types.Chunk{Seq: 0, Start: 0, End: 9})
	run.plan(types.Chunk{Seq: 1, Start: 10, End: 19})
	run.done.Add(0)

	acc := result.New()
	run.fail(1)
	acc.Report(types.Diagnostic{Kind: types.DiagDropped, Path: "app.log", Chunk: 1, Message: "task dropped"})

	run.finish(acc)

	snap := acc.Snapshot()
	assert.True(t, snap.Partial)
	require.Len(t, snap.Diagnostics, 1)
	assert.Equal(t, types.DiagDropped, snap.Diagnostics[0].Kind)
}

func TestCompilePatterns(t *testing.T) {
	t.Run("invalid patterns become diagnostics", func(t *testing.T) {
		patterns, diags, err := CompilePatterns([]string{"ok", "(", "fine"}, false)
		require.NoError(t, err)
		assert.Len(t, patterns, 2)
		require.Len(t, diags, 1)
		assert.Equal(t, types.DiagPattern, diags[0].Kind)
	})

	t.Run("nothing compiles", func(t *testing.T) {
		_, diags, err := CompilePatterns([]string{"(", "["}, false)
		var argErr *types.ArgumentError
		require.ErrorAs(t, err, &argErr)
		assert.ErrorIs(t, err, types.ErrNoPatterns)
		assert.Len(t, diags, 2)
	})
}
