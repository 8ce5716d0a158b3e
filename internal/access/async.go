package access

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/dirbot/core/logger"
)

const (
	defaultQueueSize     = 256
	defaultRecordTimeout = 5 * time.Second
)

type queuedEntry struct {
	ctx   context.Context
	entry Entry
}

// AsyncSink hands entries to a background worker that writes them to the
// wrapped sink, each under its own deadline. Record never waits for the
// wrapped sink. When the queue is full or closed the entry goes to the log
// instead.
type AsyncSink struct {
	next    Sink
	timeout time.Duration
	queue   chan queuedEntry
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsyncSink starts the worker for next. Non-positive size and timeout
// select the defaults.
func NewAsyncSink(next Sink, size int, timeout time.Duration) *AsyncSink {
	if size <= 0 {
		size = defaultQueueSize
	}
	if timeout <= 0 {
		timeout = defaultRecordTimeout
	}
	a := &AsyncSink{
		next:    next,
		timeout: timeout,
		queue:   make(chan queuedEntry, size),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncSink) run() {
	defer close(a.done)
	for q := range a.queue {
		ctx, cancel := context.WithTimeout(q.ctx, a.timeout)
		Report(ctx, a.next, q.entry)
		cancel()
	}
}

// Record queues e. The request context keeps its values but not its
// cancellation, so an entry outlives the update that produced it.
func (a *AsyncSink) Record(ctx context.Context, e Entry) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	reason := a.enqueue(queuedEntry{ctx: context.WithoutCancel(ctx), entry: e})
	if reason == "" {
		return nil
	}
	logger.Warn(ctx, "audit", "audit.queue_bypass",
		slog.String("op", e.Action),
		slog.String("reason", reason),
	)
	return LogSink{}.Record(ctx, e)
}

func (a *AsyncSink) enqueue(q queuedEntry) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return "closed"
	}
	select {
	case a.queue <- q:
		return ""
	default:
		return "queue_full"
	}
}

// Close stops accepting entries and waits until the queued ones are written.
func (a *AsyncSink) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
	return nil
}
