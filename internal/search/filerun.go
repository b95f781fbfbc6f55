package search

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/usestring/chunkgrep/internal/chunk"
	"github.com/usestring/chunkgrep/internal/result"
	"github.com/usestring/chunkgrep/pkg/types"
)

// fileRun tracks one file while its chunks are in flight. The file handle is
// shared by every chunk and closed when the last reference is released.
type fileRun struct {
	path        string
	file        *os.File
	refs        atomic.Int32
	lineNumbers bool

	mu      sync.Mutex
	chunks  []types.Chunk // in planning order
	planned *roaring.Bitmap
	done    *roaring.Bitmap
	failed  *roaring.Bitmap // chunks that already have a diagnostic
	reports map[int]chunkReport
}

// chunkReport holds the output of a scanned chunk until line numbers can be resolved.
type chunkReport struct {
	lines   int
	records []types.MatchRecord
}

// newFileRun returns a run holding one reference for the planner.
func newFileRun(path string, f *os.File, lineNumbers bool) *fileRun {
	r := &fileRun{
		path:        path,
		file:        f,
		lineNumbers: lineNumbers,
		planned:     roaring.New(),
		done:        roaring.New(),
		failed:      roaring.New(),
		reports:     make(map[int]chunkReport),
	}
	r.refs.Store(1)
	return r
}

// plan records c and takes a file reference on its behalf.
func (r *fileRun) plan(c types.Chunk) {
	r.refs.Add(1)
	r.mu.Lock()
	r.chunks = append(r.chunks, c)
	r.planned.Add(uint32(c.Seq))
	r.mu.Unlock()
}

// fail marks c as reported so finish does not report it again.
func (r *fileRun) fail(seq int) {
	r.mu.Lock()
	r.failed.Add(uint32(seq))
	r.mu.Unlock()
}

func (r *fileRun) plannedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chunks)
}

func (r *fileRun) release() {
	if r.refs.Add(-1) != 0 {
		return
	}
	if err := r.file.Close(); err != nil {
		slog.Debug("closing file", slog.String("path", r.path), slog.String("error", err.Error()))
	}
}

// scan is the pool task for one chunk. Without line numbers records go straight
// to the accumulator; otherwise they are held back until finish.
func (r *fileRun) scan(c types.Chunk, sc *chunk.Scanner, acc *result.Accumulator) {
	defer r.release()

	var staged []types.MatchRecord
	emit := acc.Append
	if r.lineNumbers {
		emit = func(rec types.MatchRecord) { staged = append(staged, rec) }
	}

	job := chunk.Job{Path: r.path, File: r.file, Chunk: c, Scanner: sc}
	lines, err := job.Run(emit)
	if err != nil {
		r.fail(c.Seq)
		reportIO(acc, err)
		return
	}

	r.mu.Lock()
	r.done.Add(uint32(c.Seq))
	if r.lineNumbers {
		r.reports[c.Seq] = chunkReport{lines: lines, records: staged}
	}
	r.mu.Unlock()
}

// finish runs after the pool has drained. Every planned chunk that was not
// scanned and has no diagnostic yet (its task panicked, for one) is reported,
// so the result is partial. Staged records are published with absolute line
// numbers. It returns the number of chunks scanned.
func (r *fileRun) finish(acc *result.Accumulator) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	missing := roaring.AndNot(r.planned, r.done)
	if !missing.IsEmpty() {
		slog.Warn("chunks not scanned",
			slog.String("path", r.path),
			slog.Uint64("missing", missing.GetCardinality()),
			slog.String("chunks", missing.String()),
		)
	}
	unreported := roaring.AndNot(missing, r.failed)
	for it := unreported.Iterator(); it.HasNext(); {
		acc.Report(types.Diagnostic{
			Kind:    types.DiagIO,
			Path:    r.path,
			Chunk:   int(it.Next()),
			Message: "chunk not scanned",
		})
	}
	if r.lineNumbers {
		r.rebase(acc)
	}
	return int(r.done.GetCardinality())
}

// rebase shifts chunk-local line numbers by the line count of every earlier
// chunk. Chunks that were never scanned are counted again from disk. If that
// fails, records after the gap are published without a line number.
func (r *fileRun) rebase(acc *result.Accumulator) {
	var recount *os.File
	defer func() {
		if recount != nil {
			_ = recount.Close()
		}
	}()
	countLines := func(c types.Chunk) (int, error) {
		if recount == nil {
			f, err := os.Open(r.path)
			if err != nil {
				return 0, err
			}
			recount = f
		}
		return chunk.CountLines(recount, c)
	}

	offset := 0
	known := true
	for _, c := range r.chunks {
		rep, ok := r.reports[c.Seq]
		if !ok {
			if !known {
				continue
			}
			n, err := countLines(c)
			if err != nil {
				known = false
				acc.Report(types.Diagnostic{
					Kind:    types.DiagIO,
					Path:    r.path,
					Chunk:   c.Seq,
					Message: fmt.Sprintf("line numbers unavailable after this chunk: %v", err),
				})
				continue
			}
			offset += n
			continue
		}

		batch := make([]types.MatchRecord, len(rep.records))
		for i, rec := range rep.records {
			if known {
				batch[i] = rec.WithLineNumber(offset + *rec.LineNumber)
			} else {
				rec.LineNumber = nil
				batch[i] = rec
			}
		}
		acc.AppendBatch(batch)
		offset += rep.lines
	}
}
