// Package search runs a SearchRequest over its files using one bounded chunk pool.
package search

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/usestring/chunkgrep/internal/chunk"
	"github.com/usestring/chunkgrep/internal/pool"
	"github.com/usestring/chunkgrep/internal/result"
	"github.com/usestring/chunkgrep/pkg/types"
)

// DefaultFileWorkers is the number of files planned concurrently.
const DefaultFileWorkers = 4

var errIsDirectory = errors.New("is a directory")

// Config configures an Engine.
type Config struct {
	Workers       int              // Chunk workers per request (default: 10)
	QueueCapacity int              // Pool queue size (default: 50)
	Policy        pool.Policy      // Admission policy (default: CallerRuns)
	Plan          chunk.PlanConfig // TargetChunks defaults to Workers
	FileWorkers   int              // Files planned concurrently (default: 4)
}

// Engine executes search requests. It holds no per-request state and is safe
// for concurrent use.
type Engine struct {
	cfg Config
}

// New creates an Engine.
func New(cfg Config) *Engine {
	if cfg.FileWorkers <= 0 {
		cfg.FileWorkers = DefaultFileWorkers
	}
	if cfg.Plan.TargetChunks <= 0 {
		cfg.Plan.TargetChunks = cfg.Workers
	}
	return &Engine{cfg: cfg}
}

// Execute searches every file of req and returns once all chunks have drained.
// Unreadable files and chunks, dropped chunks and cancellation are reported as
// diagnostics on a partial snapshot rather than as an error. Cancelling ctx
// stops planning; chunks already submitted still run.
func (e *Engine) Execute(ctx context.Context, req *types.SearchRequest) (*result.Snapshot, error) {
	start := time.Now()
	opts := req.Options()
	acc := result.New()
	scanner := chunk.NewScanner(req.Patterns(), opts)

	p := pool.New(pool.Config{
		Workers:       e.cfg.Workers,
		QueueCapacity: e.cfg.QueueCapacity,
		Policy:        e.cfg.Policy,
	})
	defer p.Close()

	files := req.Files()
	runs := make([]*fileRun, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.FileWorkers)
	for i, path := range files {
		g.Go(func() error {
			runs[i] = e.dispatch(gctx, p, path, scanner, acc, opts.ShowLineNumber)
			return nil
		})
	}
	_ = g.Wait() // dispatch reports failures as diagnostics

	p.Wait()

	searched, scanned := 0, 0
	for _, run := range runs {
		if run == nil {
			continue
		}
		searched++
		scanned += run.finish(acc)
	}

	snap := acc.Snapshot()
	snap.FilesSearched = searched
	snap.ChunksScanned = scanned

	stats := p.Stats()
	slog.Info("search completed",
		slog.Int("files", searched),
		slog.Int("chunks", scanned),
		slog.Int64("matches", snap.Count),
		slog.Bool("partial", snap.Partial),
		slog.String("policy", string(p.Policy().Kind())),
		slog.Int64("ran_inline", stats.RanInline),
		slog.Int64("grown", stats.Grown),
		slog.Int64("dropped", stats.Dropped),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return snap, nil
}

// dispatch opens path, plans its chunks and submits one task per chunk.
// It returns nil when the file could not be searched at all.
func (e *Engine) dispatch(ctx context.Context, p *pool.Pool, path string, sc *chunk.Scanner, acc *result.Accumulator, lineNumbers bool) *fileRun {
	if err := ctx.Err(); err != nil {
		acc.Report(types.Diagnostic{Kind: types.DiagCancel, Path: path, Chunk: -1, Message: err.Error()})
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		reportIO(acc, &types.IOError{Path: path, Chunk: -1, Err: err})
		return nil
	}
	info, err := f.Stat()
	if err == nil && info.IsDir() {
		err = errIsDirectory
	}
	if err != nil {
		_ = f.Close()
		reportIO(acc, &types.IOError{Path: path, Chunk: -1, Err: err})
		return nil
	}

	run := newFileRun(path, f, lineNumbers)
	err = chunk.Walk(f, info.Size(), e.cfg.Plan, func(c types.Chunk) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		run.plan(c)
		if err := p.Submit(func() { run.scan(c, sc, acc) }); err != nil {
			run.release()
			run.fail(c.Seq)
			acc.Report(types.Diagnostic{Kind: types.DiagDropped, Path: path, Chunk: c.Seq, Message: err.Error()})
		}
		return nil
	})
	switch {
	case err == nil:
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		acc.Report(types.Diagnostic{Kind: types.DiagCancel, Path: path, Chunk: -1, Message: "planning stopped: " + err.Error()})
	default:
		reportIO(acc, &types.IOError{Path: path, Chunk: -1, Err: err})
	}
	run.release()

	slog.Debug("file planned",
		slog.String("path", path),
		slog.Int64("size", info.Size()),
		slog.Int("chunks", run.plannedCount()),
	)
	return run
}

// reportIO records err as an io diagnostic and logs it.
func reportIO(acc *result.Accumulator, err error) {
	d := types.Diagnostic{Kind: types.DiagIO, Chunk: -1, Message: err.Error()}
	var ioErr *types.IOError
	if errors.As(err, &ioErr) {
		d.Path = ioErr.Path
		d.Chunk = ioErr.Chunk
		d.Message = ioErr.Err.Error()
	}
	acc.Report(d)
	slog.Warn("skipping unreadable input",
		slog.String("path", d.Path),
		slog.Int("chunk", d.Chunk),
		slog.String("error", d.Message),
	)
}
