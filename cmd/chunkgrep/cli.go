package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/usestring/chunkgrep/internal/cache"
	"github.com/usestring/chunkgrep/internal/config"
	"github.com/usestring/chunkgrep/internal/discover"
	"github.com/usestring/chunkgrep/internal/logging"
	"github.com/usestring/chunkgrep/internal/output"
	"github.com/usestring/chunkgrep/internal/query"
	"github.com/usestring/chunkgrep/internal/result"
	"github.com/usestring/chunkgrep/internal/search"
	"github.com/usestring/chunkgrep/pkg/types"
)

// Process exit codes.
const (
	exitOK      = 0
	exitPartial = 1 // some input was not scanned
	exitFailure = 1
	exitUsage   = 2
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// cliArgs holds everything parsed from the command line.
type cliArgs struct {
	patterns stringList
	files    stringList
	dirs     stringList
	opts     types.Options

	policy    string
	workers   int
	queue     int
	chunkSize int64
	noCache   bool
	jq        string
	json      bool
	yaml      bool
}

func newFlagSet(a *cliArgs, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("chunkgrep", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: chunkgrep -p PATTERN [-p PATTERN...] [flags] [file...]")
		fmt.Fprintln(stderr, "       chunkgrep mcp")
		fs.PrintDefaults()
	}

	fs.Var(&a.patterns, "p", "regular expression to search for (repeatable)")
	fs.Var(&a.files, "f", "file to search (repeatable; positional arguments are files too)")
	fs.Var(&a.dirs, "d", "directory to expand with -R (repeatable; default .)")

	fs.BoolVar(&a.opts.ShowLineNumber, "n", false, "include line numbers")
	fs.BoolVar(&a.opts.ShowLineText, "l", false, "include line text")
	fs.BoolVar(&a.opts.ShowFileName, "sf", false, "include file names")
	fs.BoolVar(&a.opts.ShowPattern, "sp", false, "include the matching pattern")
	fs.BoolVar(&a.opts.Invert, "v", false, "report lines that do not match, once per pattern")
	fs.BoolVar(&a.opts.CaseInsensitive, "i", false, "case-insensitive patterns")
	fs.BoolVar(&a.opts.CountOnly, "c", false, "print only the match count (conflicts with -n, -l, -sf, -sp)")
	fs.BoolVar(&a.opts.Recursive, "R", false, "search every regular file under the -d directories")

	fs.StringVar(&a.policy, "policy", "", "admission policy when the queue is full: caller-runs, grow, backoff (env ADMISSION_POLICY)")
	fs.IntVar(&a.workers, "workers", 0, "chunk workers (env WORKERS)")
	fs.IntVar(&a.queue, "queue", 0, "work queue capacity (env QUEUE_CAPACITY)")
	fs.Int64Var(&a.chunkSize, "chunk-size", 0, "maximum chunk size in bytes (env MAX_CHUNK_BYTES)")
	fs.BoolVar(&a.noCache, "no-cache", false, "bypass the result cache")
	fs.StringVar(&a.jq, "jq", "", "jq expression applied to each record (fields: line_number, text, file, pattern)")
	fs.BoolVar(&a.json, "json", false, "print the result as JSON")
	fs.BoolVar(&a.yaml, "yaml", false, "print the result as YAML")
	return fs
}

// parseArgs parses flags and positional files. Flags may follow positional
// arguments; "--" ends flag parsing.
func parseArgs(args []string, stderr io.Writer) (*cliArgs, error) {
	a := &cliArgs{}
	fs := newFlagSet(a, stderr)
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			break
		}
		if len(args) > len(rest) && args[len(args)-len(rest)-1] == "--" {
			a.files = append(a.files, rest...)
			break
		}
		a.files = append(a.files, rest[0])
		args = rest[1:]
	}
	return a, nil
}

// apply overlays command-line overrides onto cfg.
func (a *cliArgs) apply(cfg *config.Config) {
	if a.policy != "" {
		cfg.AdmissionPolicy = a.policy
	}
	if a.workers > 0 {
		cfg.Workers = a.workers
	}
	if a.queue > 0 {
		cfg.QueueCapacity = a.queue
	}
	if a.chunkSize > 0 {
		cfg.MaxChunkBytes = a.chunkSize
	}
	if a.noCache {
		cfg.CacheEnabled = false
	}
}

// run executes one search invocation and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg := config.Load()
	a.apply(cfg)

	logCfg := cfg.Logging()
	logCfg.Mode = "cli"
	logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		fmt.Fprintf(stderr, "chunkgrep: logging: %v\n", err)
		return exitFailure
	}
	defer logCleanup()

	usage := func(err error) int {
		fmt.Fprintf(stderr, "chunkgrep: %v\n", err)
		return exitUsage
	}

	if a.jq != "" {
		if err := query.NewEngine().ValidateExpression(a.jq); err != nil {
			return usage(err)
		}
	}

	engineCfg, err := cfg.Engine()
	if err != nil {
		return usage(err)
	}

	start := time.Now()

	patterns, diags, err := search.CompilePatterns(a.patterns, a.opts.CaseInsensitive)
	if err != nil {
		for _, d := range diags {
			fmt.Fprintf(stderr, "chunkgrep: %s\n", d)
		}
		return usage(err)
	}

	var dirs []string
	if a.opts.Recursive {
		dirs = a.dirs
		if len(dirs) == 0 {
			dirs = []string{"."}
		}
	}
	files, discoverDiags := discover.Files(a.files, dirs)
	diags = append(diags, discoverDiags...)

	req, err := types.NewSearchRequest(patterns, files, dirs, a.opts)
	if err != nil {
		return usage(err)
	}

	engine := search.New(engineCfg)
	var (
		snap   *result.Snapshot
		cached bool
	)
	if cfg.CacheEnabled {
		store, err := cache.NewStore(cfg.CachePath, cfg.CacheMaxEntries)
		if err != nil {
			fmt.Fprintf(stderr, "chunkgrep: %v\n", err)
			return exitFailure
		}
		snap, cached, err = cache.NewProxy(engine, store, cfg.CacheTTL).Resolve(ctx, req)
		if err != nil {
			fmt.Fprintf(stderr, "chunkgrep: %v\n", err)
			return exitFailure
		}
	} else {
		snap, err = engine.Execute(ctx, req)
		if err != nil {
			fmt.Fprintf(stderr, "chunkgrep: %v\n", err)
			return exitFailure
		}
	}

	report := output.Report{
		Snapshot:    snap,
		Diagnostics: diags,
		CountOnly:   a.opts.CountOnly,
		Cached:      cached,
	}
	if a.jq != "" && !a.opts.CountOnly {
		qr, err := query.NewEngine().Records(output.SortedRecords(snap.Records), a.jq, false, 0)
		if err != nil {
			return usage(err)
		}
		report.Values = qr.Values
		report.JQErrors = qr.Errors
	}
	report.Elapsed = time.Since(start)

	pr := output.NewPrinter(stdout, stderr)
	var printErr error
	switch {
	case a.json:
		printErr = pr.JSON(report)
	case a.yaml:
		printErr = pr.YAML(report)
	default:
		pr.Text(report)
	}
	if printErr != nil {
		fmt.Fprintf(stderr, "chunkgrep: %v\n", printErr)
		return exitFailure
	}

	if report.Partial() {
		return exitPartial
	}
	return exitOK
}
