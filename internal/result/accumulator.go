// Package result collects match records produced by concurrent chunk workers.
package result

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/usestring/chunkgrep/pkg/types"
)

// Accumulator is a concurrent-safe multiset of match records plus a running count.
// It is append-only while a search runs and read through Snapshot afterwards.
type Accumulator struct {
	mu          sync.Mutex
	records     []types.MatchRecord
	diagnostics []types.Diagnostic
	partial     bool

	count atomic.Int64
}

// New returns an empty Accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// Append adds one record and increments the count.
func (a *Accumulator) Append(r types.MatchRecord) {
	a.mu.Lock()
	a.records = append(a.records, r)
	a.mu.Unlock()
	a.count.Add(1)
}

// AppendBatch adds records under a single lock acquisition.
func (a *Accumulator) AppendBatch(rs []types.MatchRecord) {
	if len(rs) == 0 {
		return
	}
	a.mu.Lock()
	a.records = append(a.records, rs...)
	a.mu.Unlock()
	a.count.Add(int64(len(rs)))
}

// Count returns the number of records appended so far.
func (a *Accumulator) Count() int64 {
	return a.count.Load()
}

// Report records a non-fatal diagnostic. Diagnostics that mean some input was
// not scanned mark the result as partial.
func (a *Accumulator) Report(d types.Diagnostic) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.diagnostics = append(a.diagnostics, d)
	if d.Kind.Incomplete() {
		a.partial = true
	}
}

// Snapshot returns an immutable copy of the current contents.
func (a *Accumulator) Snapshot() *Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	records := make([]types.MatchRecord, len(a.records))
	copy(records, a.records)
	return &Snapshot{
		Records:     records,
		Count:       a.count.Load(),
		Partial:     a.partial,
		Diagnostics: slices.Clone(a.diagnostics),
	}
}
