package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// CacheStatsInput is the input for chunkgrep_cache_stats.
type CacheStatsInput struct{}

// CacheStatsOutput is the output for chunkgrep_cache_stats.
type CacheStatsOutput struct {
	Enabled bool   `json:"enabled"`
	Entries int    `json:"entries"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Expired int64  `json:"expired"`
	Path    string `json:"path,omitempty"`
	TTLMs   int64  `json:"ttl_ms,omitempty"`
}

// ToolCacheStats reports result cache activity.
func ToolCacheStats(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input CacheStatsInput) (*sdkmcp.CallToolResult, CacheStatsOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input CacheStatsInput) (*sdkmcp.CallToolResult, CacheStatsOutput, error) {
		return nil, d.cacheStats(), nil
	}
}

func (d *Deps) cacheStats() CacheStatsOutput {
	if d.Cache == nil {
		return CacheStatsOutput{}
	}
	s := d.Cache.Stats()
	out := CacheStatsOutput{
		Enabled: true,
		Entries: s.Entries,
		Hits:    s.Hits,
		Misses:  s.Misses,
		Expired: s.Expired,
		Path:    s.Path,
	}
	if d.Config != nil {
		out.TTLMs = d.Config.CacheTTL.Milliseconds()
	}
	return out
}

// CacheStats returns the same view as chunkgrep_cache_stats, for resources.
func (d *Deps) CacheStats() CacheStatsOutput {
	return d.cacheStats()
}

// CachePurgeInput is the input for chunkgrep_cache_purge.
type CachePurgeInput struct{}

// CachePurgeOutput is the output for chunkgrep_cache_purge.
type CachePurgeOutput struct {
	Removed int `json:"removed"`
}

// ToolCachePurge drops every cached result, in memory and on disk.
func ToolCachePurge(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input CachePurgeInput) (*sdkmcp.CallToolResult, CachePurgeOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input CachePurgeInput) (*sdkmcp.CallToolResult, CachePurgeOutput, error) {
		if d.Cache == nil {
			return nil, CachePurgeOutput{}, nil
		}
		return nil, CachePurgeOutput{Removed: d.Cache.Purge()}, nil
	}
}
