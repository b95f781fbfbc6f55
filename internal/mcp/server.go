package mcp

import (
	"context"
	"errors"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/chunkgrep/internal/mcp/prompts"
	"github.com/usestring/chunkgrep/internal/mcp/tools"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// DefaultInstructions is sent to clients on initialize.
const DefaultInstructions = `chunkgrep searches local files for regular expressions (RE2 syntax) in parallel.
Use chunkgrep_search with explicit files, or recursive=true with directories.
Results are cached for a short TTL; call chunkgrep_cache_purge after files change.
The chunkgrep://plan/{path} resource shows how a large file is split across workers.`

// Server is a chunkgrep MCP server bound to one set of search dependencies.
// Nothing is registered unless asked for: see WithBuiltinTools and
// WithBuiltinPrompts.
type Server struct {
	mcpServer *sdkmcp.Server
	deps      *tools.Deps

	instructions string
	tools        bool
	prompts      bool
	extra        []func(*sdkmcp.Server) // run after the builtins, in order
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithBuiltinTools registers chunkgrep_search, the two cache tools and the
// chunkgrep:// resources.
func WithBuiltinTools() ServerOption {
	return func(s *Server) { s.tools = true }
}

// WithBuiltinPrompts registers the search_files and triage_errors prompts.
func WithBuiltinPrompts() ServerOption {
	return func(s *Server) { s.prompts = true }
}

// WithInstructions replaces DefaultInstructions.
func WithInstructions(text string) ServerOption {
	return func(s *Server) { s.instructions = text }
}

// WithCustomRegistration runs fn against the SDK server once the builtins are
// in place. pkg/mcpsrv routes its user tools, prompts and resources through it.
func WithCustomRegistration(fn func(*sdkmcp.Server)) ServerOption {
	return func(s *Server) { s.extra = append(s.extra, fn) }
}

var errMissingDeps = errors.New("deps requires Config, Search and Query")

// NewServer builds the SDK server, installs the logging middleware and runs
// the registrations selected by opts.
func NewServer(deps *tools.Deps, opts ...ServerOption) (*Server, error) {
	if deps == nil || deps.Config == nil || deps.Search == nil || deps.Query == nil {
		return nil, errMissingDeps
	}

	s := &Server{deps: deps, instructions: DefaultInstructions}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "chunkgrep", Version: Version},
		&sdkmcp.ServerOptions{Instructions: s.instructions},
	)
	s.mcpServer.AddReceivingMiddleware(LoggingMiddleware())

	if s.tools {
		tools.Register(s.mcpServer, deps)
		s.registerResources()
	}
	if s.prompts {
		prompts.Register(s.mcpServer, &prompts.Config{
			MaxRecords:   deps.MaxRecords(),
			CacheEnabled: deps.Cache != nil,
		})
	}
	for _, fn := range s.extra {
		fn(s.mcpServer)
	}

	return s, nil
}

// Run serves over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &sdkmcp.StdioTransport{})
}

// MCPServer exposes the SDK server, for in-memory transports.
func (s *Server) MCPServer() *sdkmcp.Server {
	return s.mcpServer
}
