// Package mcpsrv provides an extensible MCP server for chunkgrep.
//
// This package exposes a high-level API for creating and running an MCP server
// with the builtin search and cache tools, prompts and resources. Users can
// extend the server with custom tools, prompts, and resources using functional
// options.
//
// # Basic Usage
//
// Create a server with configuration loaded from the environment:
//
//	server, err := mcpsrv.NewServer()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Close()
//	server.Run(ctx)
//
// # Extension
//
// Add custom tools using MCP SDK types directly:
//
//	import mcp "github.com/modelcontextprotocol/go-sdk/mcp"
//
//	type MyInput struct {
//	    Files []string `json:"files"`
//	}
//
//	type MyOutput struct {
//	    Count int `json:"count"`
//	}
//
//	func myHandler(ctx context.Context, req *mcp.CallToolRequest, input MyInput) (*mcp.CallToolResult, MyOutput, error) {
//	    return nil, MyOutput{Count: 42}, nil
//	}
//
//	server, err := mcpsrv.NewServer(
//	    mcpsrv.WithTool(&mcp.Tool{Name: "my_tool", Description: "My tool"}, myHandler),
//	)
//
// Tools that need the search engine use WithDepsTool. WithPrompt, WithResource
// and WithResourceTemplate add the other MCP capabilities the same way.
//
// # Configuration
//
// Configure logging and caching:
//
//	server, err := mcpsrv.NewServer(
//	    mcpsrv.WithLogLevel("debug"),
//	    mcpsrv.WithLogFile("/var/log/chunkgrep-mcp.log"),
//	    mcpsrv.WithoutCache(),
//	    mcpsrv.WithInstructions("Search /var/log only."),
//	)
package mcpsrv
