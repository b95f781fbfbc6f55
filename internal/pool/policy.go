package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ErrTaskDropped is returned when a lossy policy discards a rejected task.
var ErrTaskDropped = errors.New("task dropped: queue still full after retries")

// Kind names an admission policy.
type Kind string

const (
	KindCallerRuns Kind = "caller-runs"
	KindGrow       Kind = "grow"
	KindBackoff    Kind = "backoff"
)

// Backoff-Retry defaults.
const (
	DefaultMaxRetries = 2
	DefaultBackoff    = 5 * time.Millisecond
)

// Policy decides what happens to a task the pool's queue rejected.
type Policy interface {
	Kind() Kind
	// OnRejected is called on the submitting goroutine. A nil error means the task
	// was (or will be) executed.
	OnRejected(t Task, h Handle) error
}

// CallerRuns executes rejected tasks on the submitting goroutine. The submitter
// cannot proceed until the task completes, which throttles submission.
type CallerRuns struct{}

func (CallerRuns) Kind() Kind { return KindCallerRuns }

func (CallerRuns) OnRejected(t Task, h Handle) error {
	h.RunInline(t)
	return nil
}

// GrowPool raises the worker limit by one for every rejected task and hands the
// task to the new worker. It never blocks the submitter and never loses work, but
// the pool can grow without bound under sustained overload. That is a capacity
// hazard accepted by whoever selects this policy.
type GrowPool struct {
	mu sync.Mutex
}

func (*GrowPool) Kind() Kind { return KindGrow }

func (g *GrowPool) OnRejected(t Task, h Handle) error {
	g.mu.Lock()
	n := h.Grow(t)
	g.mu.Unlock()
	slog.Debug("pool grown for rejected task", slog.Int("max_workers", n))
	return nil
}

// BackoffRetry sleeps Backoff and retries a non-blocking enqueue up to MaxRetries
// times. If the queue is still full the task is dropped and ErrTaskDropped returned.
// This policy is lossy.
type BackoffRetry struct {
	MaxRetries int
	Backoff    time.Duration
}

func (BackoffRetry) Kind() Kind { return KindBackoff }

func (b BackoffRetry) OnRejected(t Task, h Handle) error {
	for attempt := 1; attempt <= b.MaxRetries; attempt++ {
		time.Sleep(b.Backoff)
		if h.TryEnqueue(t) {
			slog.Debug("rejected task enqueued after backoff", slog.Int("attempt", attempt))
			return nil
		}
	}
	slog.Warn("dropping task after exhausting retries",
		slog.Int("max_retries", b.MaxRetries),
		slog.Duration("backoff", b.Backoff),
	)
	return ErrTaskDropped
}

// ParsePolicy builds a Policy from its name. maxRetries and backoff only apply to backoff.
func ParsePolicy(name string, maxRetries int, backoff time.Duration) (Policy, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(name))) {
	case KindCallerRuns, "":
		return CallerRuns{}, nil
	case KindGrow:
		return &GrowPool{}, nil
	case KindBackoff:
		if maxRetries < 0 {
			return nil, fmt.Errorf("backoff policy: max retries must be >= 0, got %d", maxRetries)
		}
		if backoff < 0 {
			return nil, fmt.Errorf("backoff policy: backoff must be >= 0, got %s", backoff)
		}
		return BackoffRetry{MaxRetries: maxRetries, Backoff: backoff}, nil
	default:
		return nil, fmt.Errorf("unknown admission policy %q (want %s, %s or %s)", name, KindCallerRuns, KindGrow, KindBackoff)
	}
}
