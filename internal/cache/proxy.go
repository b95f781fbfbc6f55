package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/usestring/chunkgrep/internal/result"
	"github.com/usestring/chunkgrep/pkg/types"
)

// DefaultTTL is how long a cached result stays valid.
const DefaultTTL = 60 * time.Second

// Executor runs a search request.
type Executor interface {
	Execute(ctx context.Context, req *types.SearchRequest) (*result.Snapshot, error)
}

// Stats describes cache activity since the proxy was created.
type Stats struct {
	Entries int    `json:"entries"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Expired int64  `json:"expired"`
	Path    string `json:"path,omitempty"`
}

// Proxy wraps an Executor and answers repeated requests from a Store.
// Identical requests that miss concurrently share one execution.
type Proxy struct {
	next  Executor
	store *Store
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	hits    atomic.Int64
	misses  atomic.Int64
	expired atomic.Int64
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Proxy) { p.now = now }
}

// NewProxy returns a Proxy in front of next. A ttl <= 0 uses DefaultTTL.
func NewProxy(next Executor, store *Store, ttl time.Duration, opts ...Option) *Proxy {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	p := &Proxy{next: next, store: store, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute implements Executor.
func (p *Proxy) Execute(ctx context.Context, req *types.SearchRequest) (*result.Snapshot, error) {
	snap, _, err := p.Resolve(ctx, req)
	return snap, err
}

// Resolve returns the result for req and whether it came from the cache.
// Cached snapshots are shared and must not be modified. Partial results are
// returned but never stored.
func (p *Proxy) Resolve(ctx context.Context, req *types.SearchRequest) (*result.Snapshot, bool, error) {
	key := Key(req)

	if e, ok := p.store.Get(key); ok {
		if p.now().Sub(e.CreatedAt) < p.ttl {
			p.hits.Add(1)
			slog.Debug("cache hit", slog.String("key", key))
			return e.Result, true, nil
		}
		p.expired.Add(1)
		p.store.Delete(key)
		slog.Debug("cache entry expired", slog.String("key", key), slog.Time("created_at", e.CreatedAt))
	}
	p.misses.Add(1)

	v, err, shared := p.group.Do(key, func() (any, error) {
		snap, err := p.next.Execute(ctx, req)
		if err != nil {
			return nil, err
		}
		if snap.Partial {
			slog.Debug("not caching partial result", slog.String("key", key))
			return snap, nil
		}
		p.store.Put(key, Entry{Result: snap, CreatedAt: p.now()})
		return snap, nil
	})
	if err != nil {
		return nil, false, err
	}
	if shared {
		slog.Debug("shared in-flight search", slog.String("key", key))
	}
	return v.(*result.Snapshot), false, nil
}

// Stats returns the current counters.
func (p *Proxy) Stats() Stats {
	return Stats{
		Entries: p.store.Len(),
		Hits:    p.hits.Load(),
		Misses:  p.misses.Load(),
		Expired: p.expired.Load(),
		Path:    p.store.Path(),
	}
}

// Purge drops every cached entry and returns how many were removed.
func (p *Proxy) Purge() int {
	n := p.store.Purge()
	slog.Info("cache purged", slog.Int("removed", n))
	return n
}
