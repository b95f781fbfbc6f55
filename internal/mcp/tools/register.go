package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all tools with the MCP server. Tool errors always reach
// the client as CodedErrors.
func Register(srv *sdkmcp.Server, d *Deps) {
	// Tool 1: chunkgrep_search
	AddTool(srv, &sdkmcp.Tool{
		Name:        "chunkgrep_search",
		Description: "Search files for regular expressions in parallel. Returns {count, records: [{file, line_number, text, pattern}], partial, diagnostics, cached, elapsed_ms, hint}. Each line yields one record per matching pattern; count is the total before the limit. Records are sorted by file then line. Set flags.count_only for totals only, where to keep records matching a jq predicate (e.g. '.line_number > 100'), or jq to project records into values (e.g. '.file'). Identical searches within the cache TTL are answered from cache (cached=true).",
	}, withCodedErrors(ToolSearch(d)))

	// Tool 2: chunkgrep_cache_stats
	AddTool(srv, &sdkmcp.Tool{
		Name:        "chunkgrep_cache_stats",
		Description: "Report result cache activity: {enabled, entries, hits, misses, expired, path, ttl_ms}",
	}, withCodedErrors(ToolCacheStats(d)))

	// Tool 3: chunkgrep_cache_purge
	AddTool(srv, &sdkmcp.Tool{
		Name:        "chunkgrep_cache_purge",
		Description: "Drop every cached search result, in memory and in the persisted snapshot. Use after files changed within the cache TTL.",
	}, withCodedErrors(ToolCachePurge(d)))
}
