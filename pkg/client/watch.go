package client

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultPollInterval is how often a Watch queries the job status.
const DefaultPollInterval = 2 * time.Second

var errMissingResult = errors.New("completed job has no result")

// Callbacks receives watch events. OnProgress may fire many times while the
// job is processing; exactly one of OnDone / OnError fires after that, and
// nothing fires once the watch is stopped.
//
// OnError receives an *AnalysisError when the job itself failed and a
// *ConnectivityError (or ErrNotFound) when the status query failed; tell them
// apart with errors.As / errors.Is.
type Callbacks struct {
	OnProgress func(stage string)
	OnDone     func(Result)
	OnError    func(err error)
}

type WatchOption func(*Watch)

func WithInterval(d time.Duration) WatchOption {
	return func(w *Watch) {
		if d > 0 {
			w.interval = d
		}
	}
}

// Watch is a polling session for one job. All queries run on a single
// goroutine, so ticks are serialized: a query slower than the interval simply
// delays the next tick, and a stale response can never arrive after a newer
// one. A query failure ends the watch; retrying is the caller's policy.
type Watch struct {
	client   *Client
	jobID    string
	cb       Callbacks
	interval time.Duration

	mu      sync.Mutex
	stopped bool

	cancel context.CancelFunc
	donech chan struct{}
}

// Watch starts polling jobID until a terminal status or a query failure, then
// stops itself. The returned handle cancels the session early.
func (c *Client) Watch(jobID string, cb Callbacks, opts ...WatchOption) *Watch {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watch{
		client:   c,
		jobID:    jobID,
		cb:       cb,
		interval: DefaultPollInterval,
		cancel:   cancel,
		donech:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	go w.run(ctx)
	return w
}

// Stop cancels the watch. After Stop returns, no callback will begin; one
// already in progress may finish.
func (w *Watch) Stop() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	w.cancel()
}

// Done is closed when the watch has ended, by terminal state, query failure
// or Stop.
func (w *Watch) Done() <-chan struct{} { return w.donech }

func (w *Watch) run(ctx context.Context) {
	defer close(w.donech)
	defer w.cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := w.tick(ctx); done {
				return
			}
		}
	}
}

// tick issues one status query and dispatches callbacks. It reports whether
// the watch is finished.
func (w *Watch) tick(ctx context.Context) bool {
	job, err := w.client.GetJob(ctx, w.jobID)
	if err != nil {
		if ctx.Err() != nil {
			// cancelled mid-query; Stop already suppressed callbacks
			return true
		}
		w.deliver(func() {
			if w.cb.OnError != nil {
				w.cb.OnError(err)
			}
		})
		return true
	}

	switch job.Status {
	case StatusProcessing:
		w.deliver(func() {
			if w.cb.OnProgress != nil {
				w.cb.OnProgress("Analyzing repository and generating diagrams...")
			}
		})
		return false
	case StatusCompleted:
		w.deliver(func() {
			if job.Result == nil {
				// a completed job always carries a result; a missing one is
				// a broken response, not a success
				if w.cb.OnError != nil {
					w.cb.OnError(&ConnectivityError{Err: errMissingResult})
				}
				return
			}
			if w.cb.OnDone != nil {
				w.cb.OnDone(*job.Result)
			}
		})
		return true
	case StatusFailed:
		w.deliver(func() {
			if w.cb.OnError != nil {
				msg := "analysis failed"
				if job.Error != nil {
					msg = *job.Error
				}
				w.cb.OnError(&AnalysisError{Message: msg})
			}
		})
		return true
	default:
		// queued: nothing to report yet
		return false
	}
}

// deliver runs a callback unless the watch was stopped. Holding the mutex
// across the stopped check and the callback means Stop cannot return while a
// new callback is about to start.
func (w *Watch) deliver(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	fn()
}
