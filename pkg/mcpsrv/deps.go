package mcpsrv

import (
	"github.com/usestring/chunkgrep/internal/cache"
	"github.com/usestring/chunkgrep/internal/config"
	"github.com/usestring/chunkgrep/internal/query"
)

// Deps contains all dependencies available to custom tools.
// This gives custom tools access to the same infrastructure as builtin tools.
type Deps struct {
	Config *config.Config
	Search cache.Executor // cache-aware when the cache is enabled
	Cache  *cache.Proxy   // nil when the cache is disabled
	Query  *query.Engine
}
