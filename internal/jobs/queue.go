package jobs

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/repodoc/internal/errors"
)

// Handler processes one dequeued task. Acknowledgement semantics are up to
// the queue implementation; handlers must be safe to call concurrently.
type Handler func(ctx context.Context, task Task)

// Queue distributes submitted tasks to workers.
type Queue interface {
	// Enqueue places a task on the queue.
	Enqueue(ctx context.Context, task Task) error

	// Consume blocks, delivering tasks to the handler until the context
	// is cancelled.
	Consume(ctx context.Context, handler Handler) error

	// Depth returns the number of tasks waiting, or -1 if unknown.
	Depth() int

	// Close stops the queue. Enqueue after Close fails.
	Close() error
}

// MemoryQueue is a channel-backed queue for single-binary deployments where
// the API and workers share a process.
type MemoryQueue struct {
	tasks  chan Task
	mu     sync.Mutex
	closed bool
}

// NewMemoryQueue creates an in-process queue with the given capacity.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryQueue{tasks: make(chan Task, capacity)}
}

// Enqueue places the task on the channel without blocking; a full queue is
// reported as a queue error so the caller can reject the submission.
func (q *MemoryQueue) Enqueue(ctx context.Context, task Task) error {
	// The lock is held across the send so Close cannot close the channel
	// between the closed check and the send.
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.QueueError("enqueue", errors.New(errors.CategoryQueue, errors.SeverityError, "queue is closed"))
	}

	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return errors.QueueError("enqueue", ctx.Err())
	default:
		return errors.QueueError("enqueue", errors.New(errors.CategoryQueue, errors.SeverityError, "queue is full"))
	}
}

// Consume delivers tasks to the handler until the context ends or the queue
// is closed and drained.
func (q *MemoryQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task, ok := <-q.tasks:
			if !ok {
				return nil
			}
			handler(ctx, task)
		}
	}
}

// Depth returns the number of buffered tasks.
func (q *MemoryQueue) Depth() int {
	return len(q.tasks)
}

// Close closes the channel; pending tasks are still delivered.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	return nil
}
