// Package queue holds the bounded queue between the inbox watcher and the import worker.
package queue

import (
	"context"
	"io"
	"sync"
	"time"

	"warnboard/internal/core/ports"
)

var _ ports.ImportQueue = (*MemoryQueue)(nil)

// MemoryQueue is a bounded FIFO of import batches. Producers never block.
type MemoryQueue struct {
	items  chan ports.ImportBatch
	mu     sync.RWMutex
	closed bool
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	return &MemoryQueue{items: make(chan ports.ImportBatch, max(capacity, 1))}
}

// Enqueue drops the batch when the queue is full or closed.
func (q *MemoryQueue) Enqueue(batch ports.ImportBatch) ports.EnqueueResult {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ports.EnqueueDropped
	}
	if batch.Queued.IsZero() {
		batch.Queued = time.Now()
	}
	select {
	case q.items <- batch:
		return ports.EnqueueAccepted
	default:
		return ports.EnqueueDropped
	}
}

// DequeueBatch waits up to wait for a first batch (wait <= 0 does not wait), then takes
// whatever else is ready, up to maxItems. A closed queue returns io.EOF once drained,
// together with the last batches it still held.
func (q *MemoryQueue) DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]ports.ImportBatch, error) {
	first, err := q.first(ctx, wait)
	if err != nil || first == nil {
		return nil, err
	}

	out := make([]ports.ImportBatch, 0, max(maxItems, 1))
	out = append(out, *first)
	for len(out) < cap(out) {
		select {
		case b, ok := <-q.items:
			if !ok {
				return out, io.EOF
			}
			out = append(out, b)
		default:
			return out, nil
		}
	}
	return out, nil
}

func (q *MemoryQueue) first(ctx context.Context, wait time.Duration) (*ports.ImportBatch, error) {
	take := func(b ports.ImportBatch, ok bool) (*ports.ImportBatch, error) {
		if !ok {
			return nil, io.EOF
		}
		return &b, nil
	}

	if wait <= 0 {
		select {
		case b, ok := <-q.items:
			return take(b, ok)
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			return nil, nil
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case b, ok := <-q.items:
		return take(b, ok)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	}
}

// Close rejects further batches; queued ones can still be dequeued.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.items)
	}
	return nil
}

func (q *MemoryQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}
