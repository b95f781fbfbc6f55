package tools

import (
	"context"

	"github.com/usestring/chunkgrep/internal/cache"
	"github.com/usestring/chunkgrep/internal/config"
	"github.com/usestring/chunkgrep/internal/query"
	"github.com/usestring/chunkgrep/internal/result"
	"github.com/usestring/chunkgrep/pkg/types"
)

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	Config *config.Config
	Search cache.Executor
	Cache  *cache.Proxy // nil when caching is disabled
	Query  *query.Engine
}

// Execute runs req through the cache when one is configured.
func (d *Deps) Execute(ctx context.Context, req *types.SearchRequest) (*result.Snapshot, bool, error) {
	if d.Cache != nil {
		return d.Cache.Resolve(ctx, req)
	}
	snap, err := d.Search.Execute(ctx, req)
	return snap, false, err
}

// MaxRecords returns the per-call record cap.
func (d *Deps) MaxRecords() int {
	if d.Config == nil || d.Config.MCPMaxRecords <= 0 {
		return config.DefaultMCPMaxRecordsValue
	}
	return d.Config.MCPMaxRecords
}
