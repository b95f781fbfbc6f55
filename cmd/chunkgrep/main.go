package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/usestring/chunkgrep/pkg/mcpsrv"
)

func main() {
	// Set up context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "mcp" {
		os.Exit(runMCP(ctx))
	}
	os.Exit(run(ctx, args, os.Stdout, os.Stderr))
}

// runMCP serves the search tools over stdio until ctx is cancelled.
// Configuration is loaded from environment variables (see internal/config).
func runMCP(ctx context.Context) int {
	server, err := mcpsrv.NewServer()
	if err != nil {
		slog.Error("failed to create MCP server", "error", err)
		return exitFailure
	}
	defer server.Close()

	slog.Info("starting chunkgrep MCP server on stdio")
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "error", err)
		return exitFailure
	}

	slog.Info("server stopped")
	return exitOK
}
