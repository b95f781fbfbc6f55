package mcpsrv

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/chunkgrep/internal/cache"
	"github.com/usestring/chunkgrep/internal/config"
	"github.com/usestring/chunkgrep/internal/logging"
	"github.com/usestring/chunkgrep/internal/mcp"
	"github.com/usestring/chunkgrep/internal/mcp/tools"
	"github.com/usestring/chunkgrep/internal/query"
	"github.com/usestring/chunkgrep/internal/search"
)

// Server is the chunkgrep MCP server.
// It wraps the internal implementation and provides extension points.
type Server struct {
	internal   *mcp.Server
	deps       *Deps
	logCleanup func() error
}

// NewServer creates a new MCP server with the builtin chunkgrep tools.
//
// Configuration is loaded from the environment unless WithConfig is given.
// Use functional options to configure logging, add custom tools, etc.
func NewServer(opts ...Option) (*Server, error) {
	// Build configuration from options
	cfg := &serverConfig{
		config: config.Load(), // Load defaults from environment
	}
	for _, opt := range opts {
		opt(cfg)
	}

	// Setup logging
	logCfg := cfg.config.Logging()
	logCfg.Mode = "mcp"
	if cfg.logLevel != "" {
		logCfg.Level = cfg.logLevel
	}
	if cfg.logFile != "" {
		logCfg.FilePath = cfg.logFile
	}
	logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	// Create engines
	engineCfg, err := cfg.config.Engine()
	if err != nil {
		_ = logCleanup()
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}
	searchEngine := search.New(engineCfg)
	queryEngine := query.NewEngine()

	var (
		executor cache.Executor = searchEngine
		proxy    *cache.Proxy
	)
	if cfg.config.CacheEnabled && !cfg.disableCache {
		store, err := cache.NewStore(cfg.config.CachePath, cfg.config.CacheMaxEntries)
		if err != nil {
			_ = logCleanup()
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		proxy = cache.NewProxy(searchEngine, store, cfg.config.CacheTTL)
		executor = proxy
	}

	// Create deps for internal tools and custom tools
	toolDeps := &tools.Deps{
		Config: cfg.config,
		Search: executor,
		Cache:  proxy,
		Query:  queryEngine,
	}

	// Create public deps (same values, different type for public API)
	deps := &Deps{
		Config: cfg.config,
		Search: executor,
		Cache:  proxy,
		Query:  queryEngine,
	}

	// Build internal server options
	var internalOpts []mcp.ServerOption
	if !cfg.disableBuiltinTools {
		internalOpts = append(internalOpts, mcp.WithBuiltinTools())
	}
	if !cfg.disableBuiltinPrompts {
		internalOpts = append(internalOpts, mcp.WithBuiltinPrompts())
	}

	if cfg.instructions != "" {
		internalOpts = append(internalOpts, mcp.WithInstructions(cfg.instructions))
	}
	for _, register := range cfg.registrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(func(srv *sdkmcp.Server) {
			register(srv, deps)
		}))
	}

	// Create internal server
	internal, err := mcp.NewServer(toolDeps, internalOpts...)
	if err != nil {
		_ = logCleanup()
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return &Server{
		internal:   internal,
		deps:       deps,
		logCleanup: logCleanup,
	}, nil
}

// Run starts the MCP server with stdio transport.
// The server runs until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.internal.Run(ctx)
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.logCleanup != nil {
		return s.logCleanup()
	}
	return nil
}

// Deps returns the dependencies for building custom tools.
func (s *Server) Deps() *Deps {
	return s.deps
}

// MCPServer returns the underlying MCP server, for in-process transports and tests.
func (s *Server) MCPServer() *sdkmcp.Server {
	return s.internal.MCPServer()
}
