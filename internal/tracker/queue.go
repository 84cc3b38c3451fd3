package tracker

import (
	"context"
	"sync"
)

type task func(ctx context.Context)

// taskQueue is an unbounded FIFO drained by a single worker.
type taskQueue struct {
	mu     sync.Mutex
	items  []task
	signal chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{signal: make(chan struct{}, 1)}
}

// push appends t and returns the new depth.
func (q *taskQueue) push(t task) int {
	q.mu.Lock()
	q.items = append(q.items, t)
	n := len(q.items)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return n
}

// pop removes the oldest task. The second result is false when empty.
func (q *taskQueue) pop() (task, bool, int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false, 0
	}
	t := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return t, true, len(q.items)
}
