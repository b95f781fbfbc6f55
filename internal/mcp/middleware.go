package mcp

import (
	"context"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// LoggingMiddleware logs every incoming method call with its duration.
// Tool calls log at info with the tool name, calls whose tool reported an error
// at warn, failed methods at error. Protocol chatter (initialize, list, ping) is
// debug only.
func LoggingMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			start := time.Now()
			result, err := next(ctx, method, req)

			level, attrs := callAttrs(method, req, result, err)
			attrs = append(attrs, slog.Int64("duration_ms", time.Since(start).Milliseconds()))
			slog.LogAttrs(ctx, level, "mcp call", attrs...)

			return result, err
		}
	}
}

func callAttrs(method string, req sdkmcp.Request, result sdkmcp.Result, err error) (slog.Level, []slog.Attr) {
	attrs := []slog.Attr{slog.String("method", method)}
	level := slog.LevelDebug

	if call, ok := req.(*sdkmcp.CallToolRequest); ok && call.Params != nil {
		attrs = append(attrs, slog.String("tool", call.Params.Name))
		level = slog.LevelInfo
	}
	if res, ok := result.(*sdkmcp.CallToolResult); ok && res != nil && res.IsError {
		attrs = append(attrs, slog.Bool("tool_error", true))
		level = slog.LevelWarn
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		level = slog.LevelError
	}
	return level, attrs
}
