package service

import (
	"context"
	"errors"
	"time"
)

// memoryQueue is the in-process queue used when the server runs workers in the
// same binary (no Redis configured). Delivery is at-most-once: there is no
// processing list to reap, the worker either finishes the job or the job stays
// queued in the store until the process restarts.
type memoryQueue struct {
	ch chan string
}

func NewMemoryQueue(capacity int) Queue {
	if capacity <= 0 {
		capacity = 256
	}
	return &memoryQueue{ch: make(chan string, capacity)}
}

func (q *memoryQueue) Enqueue(ctx context.Context, jobID string) error {
	select {
	case q.ch <- jobID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("queue full")
	}
}

func (q *memoryQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case id := <-q.ch:
		return id, nil
	case <-timer.C:
		return "", ErrQueueEmpty
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *memoryQueue) Ack(ctx context.Context, jobID string) error { return nil }

func (q *memoryQueue) RequeueStale(ctx context.Context, max int64) (int64, error) { return 0, nil }
