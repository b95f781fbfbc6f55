package mcpsrv

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/chunkgrep/internal/mcp/tools"
)

// AddTool registers a tool like [sdkmcp.AddTool], but first checks that the
// zero value of Out passes the schema the SDK infers for it. Slice fields
// without omitzero and json.RawMessage fields fail that check, and AddTool
// panics with a message naming the type and fields to fix. Tools registered
// through WithTool and WithDepsTool go through here.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	tools.AddTool(srv, t, h)
}
