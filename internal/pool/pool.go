// Package pool provides a bounded worker pool whose behavior on a full queue
// is delegated to a pluggable admission Policy.
package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Pool defaults.
const (
	DefaultWorkers       = 10
	DefaultQueueCapacity = 50
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("pool closed")

// Task is a unit of work executed by the pool.
type Task func()

// Handle is the view of a pool that a Policy may act on when a submission is rejected.
type Handle interface {
	// TryEnqueue offers t to the queue without blocking.
	TryEnqueue(t Task) bool
	// RunInline executes t on the calling goroutine.
	RunInline(t Task)
	// Grow raises the worker limit by one and starts a worker whose first task is t.
	// It returns the new limit.
	Grow(t Task) int
}

// Config configures a Pool.
type Config struct {
	Workers       int    // Worker goroutines started up front (default: 10)
	QueueCapacity int    // Bounded queue size (default: 50)
	Policy        Policy // Admission policy for a full queue (default: CallerRuns)
}

// Stats is a point-in-time view of pool activity.
type Stats struct {
	Submitted  int64 `json:"submitted"`
	Executed   int64 `json:"executed"`
	RanInline  int64 `json:"ran_inline"`
	Grown      int64 `json:"grown"`
	Dropped    int64 `json:"dropped"`
	Panicked   int64 `json:"panicked"`
	MaxWorkers int64 `json:"max_workers"`
}

// Pool runs tasks on a fixed set of worker goroutines fed by a bounded queue.
// Only one Policy is active per Pool.
type Pool struct {
	queue  chan Task
	policy Policy

	pending sync.WaitGroup // accepted tasks not yet finished
	workers sync.WaitGroup // live worker goroutines

	maxWorkers atomic.Int64

	mu        sync.RWMutex // held shared by Submit, exclusively by Close
	closed    bool
	closeOnce sync.Once

	submitted atomic.Int64
	executed  atomic.Int64
	inline    atomic.Int64
	grown     atomic.Int64
	dropped   atomic.Int64
	panicked  atomic.Int64
}

// New starts a pool with cfg.Workers workers.
func New(cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.Policy == nil {
		cfg.Policy = CallerRuns{}
	}

	p := &Pool{
		queue:  make(chan Task, cfg.QueueCapacity),
		policy: cfg.Policy,
	}
	p.maxWorkers.Store(int64(cfg.Workers))

	p.workers.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker(nil)
	}
	return p
}

// Submit hands t to the pool. When the queue is full the Policy decides what happens;
// its error (for example ErrTaskDropped) is returned to the caller.
func (p *Pool) Submit(t Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	p.submitted.Add(1)

	if p.TryEnqueue(t) {
		return nil
	}

	if err := p.policy.OnRejected(t, p); err != nil {
		if errors.Is(err, ErrTaskDropped) {
			p.dropped.Add(1)
		}
		return fmt.Errorf("%s policy: %w", p.policy.Kind(), err)
	}
	return nil
}

// TryEnqueue implements Handle.
func (p *Pool) TryEnqueue(t Task) bool {
	p.pending.Add(1)
	select {
	case p.queue <- t:
		return true
	default:
		p.pending.Done()
		return false
	}
}

// RunInline implements Handle.
func (p *Pool) RunInline(t Task) {
	p.inline.Add(1)
	p.pending.Add(1)
	p.run(t)
}

// Grow implements Handle. Growth is unbounded: under sustained overload every
// rejected submission adds a goroutine.
func (p *Pool) Grow(t Task) int {
	n := p.maxWorkers.Add(1)
	p.grown.Add(1)
	p.pending.Add(1)
	p.workers.Add(1)
	go p.worker(t)
	return int(n)
}

// Wait blocks until every accepted task has finished.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Close drains the pool and stops its workers. Submit fails afterwards.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		p.pending.Wait()
		close(p.queue)
		p.workers.Wait()
	})
}

// MaxWorkers returns the current worker limit.
func (p *Pool) MaxWorkers() int {
	return int(p.maxWorkers.Load())
}

// Policy returns the active admission policy.
func (p *Pool) Policy() Policy {
	return p.policy
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted:  p.submitted.Load(),
		Executed:   p.executed.Load(),
		RanInline:  p.inline.Load(),
		Grown:      p.grown.Load(),
		Dropped:    p.dropped.Load(),
		Panicked:   p.panicked.Load(),
		MaxWorkers: p.maxWorkers.Load(),
	}
}

func (p *Pool) worker(first Task) {
	defer p.workers.Done()
	if first != nil {
		p.run(first)
	}
	for t := range p.queue {
		p.run(t)
	}
}

// run executes t and marks it finished. A panicking task is logged and counted;
// it does not take the worker down.
func (p *Pool) run(t Task) {
	defer p.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			slog.Error("pool task panicked", slog.Any("panic", r))
		}
	}()
	t()
	p.executed.Add(1)
}
