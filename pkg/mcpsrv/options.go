package mcpsrv

import (
	"context"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/chunkgrep/internal/config"
)

// registration adds something to the server once Deps exist.
type registration func(*mcp.Server, *Deps)

// serverConfig holds configuration built from options.
type serverConfig struct {
	config *config.Config

	// Logging overrides
	logLevel string
	logFile  string

	instructions string

	disableBuiltinTools   bool
	disableBuiltinPrompts bool
	disableCache          bool

	// Run in option order, after the builtins.
	registrations []registration
}

// Option configures the server.
type Option func(*serverConfig)

// WithLogLevel sets the log level (debug, info, warn, error).
func WithLogLevel(level string) Option {
	return func(cfg *serverConfig) {
		cfg.logLevel = level
	}
}

// WithLogFile sets the log file path.
// If empty, logs are written to stderr only.
func WithLogFile(path string) Option {
	return func(cfg *serverConfig) {
		cfg.logFile = path
	}
}

// WithConfig replaces the configuration loaded from the environment.
func WithConfig(c *config.Config) Option {
	return func(cfg *serverConfig) {
		if c != nil {
			cfg.config = c
		}
	}
}

// WithInstructions replaces the instructions sent to clients on initialize.
func WithInstructions(text string) Option {
	return func(cfg *serverConfig) {
		cfg.instructions = text
	}
}

// WithoutCache disables the result cache regardless of CACHE_ENABLED.
func WithoutCache() Option {
	return func(cfg *serverConfig) {
		cfg.disableCache = true
	}
}

// WithoutBuiltinTools disables the builtin search and cache tools and resources.
func WithoutBuiltinTools() Option {
	return func(cfg *serverConfig) {
		cfg.disableBuiltinTools = true
	}
}

// WithoutBuiltinPrompts disables the builtin prompts.
func WithoutBuiltinPrompts() Option {
	return func(cfg *serverConfig) {
		cfg.disableBuiltinPrompts = true
	}
}

// WithTool registers a custom tool. In is decoded from the call arguments and
// Out is returned as structured content; Out must pass the AddTool check.
//
//	type CountOutput struct {
//	    Count int `json:"count"`
//	}
//
//	mcpsrv.WithTool(&mcp.Tool{Name: "answer", Description: "Returns 42"},
//	    func(ctx context.Context, req *mcp.CallToolRequest, in struct{}) (*mcp.CallToolResult, CountOutput, error) {
//	        return nil, CountOutput{Count: 42}, nil
//	    })
func WithTool[In, Out any](tool *mcp.Tool, handler func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) Option {
	return func(cfg *serverConfig) {
		cfg.registrations = append(cfg.registrations, func(srv *mcp.Server, _ *Deps) {
			AddTool(srv, tool, handler)
		})
	}
}

// WithDepsTool registers a custom tool built from Deps, for tools that need
// the search engine, the cache or the jq engine. See examples/marker-count.
//
//	mcpsrv.WithDepsTool(&mcp.Tool{Name: "count_todos", Description: "Count TODO comments"},
//	    func(d *mcpsrv.Deps) func(context.Context, *mcp.CallToolRequest, FilesInput) (*mcp.CallToolResult, CountOutput, error) {
//	        return func(ctx context.Context, req *mcp.CallToolRequest, in FilesInput) (*mcp.CallToolResult, CountOutput, error) {
//	            p, err := types.CompilePattern("TODO", false)
//	            if err != nil {
//	                return nil, CountOutput{}, err
//	            }
//	            sr, err := types.NewSearchRequest([]types.Pattern{p}, in.Files, nil, types.Options{CountOnly: true})
//	            if err != nil {
//	                return nil, CountOutput{}, err
//	            }
//	            snap, err := d.Search.Execute(ctx, sr)
//	            if err != nil {
//	                return nil, CountOutput{}, err
//	            }
//	            return nil, CountOutput{Count: int(snap.Count)}, nil
//	        }
//	    })
func WithDepsTool[In, Out any](tool *mcp.Tool, builder func(*Deps) func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) Option {
	return func(cfg *serverConfig) {
		cfg.registrations = append(cfg.registrations, func(srv *mcp.Server, deps *Deps) {
			AddTool(srv, tool, builder(deps))
		})
	}
}

// WithPrompt registers a custom prompt.
func WithPrompt(prompt *mcp.Prompt, handler func(context.Context, *mcp.GetPromptRequest) (*mcp.GetPromptResult, error)) Option {
	return func(cfg *serverConfig) {
		cfg.registrations = append(cfg.registrations, func(srv *mcp.Server, _ *Deps) {
			srv.AddPrompt(prompt, handler)
		})
	}
}

// WithResource registers a custom resource at a fixed URI.
func WithResource(resource *mcp.Resource, handler func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error)) Option {
	return func(cfg *serverConfig) {
		cfg.registrations = append(cfg.registrations, func(srv *mcp.Server, _ *Deps) {
			srv.AddResource(resource, handler)
		})
	}
}

// WithResourceTemplate registers a custom resource template, e.g.
// "myapp://report/{name}".
func WithResourceTemplate(template *mcp.ResourceTemplate, handler func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error)) Option {
	return func(cfg *serverConfig) {
		cfg.registrations = append(cfg.registrations, func(srv *mcp.Server, _ *Deps) {
			srv.AddResourceTemplate(template, handler)
		})
	}
}
