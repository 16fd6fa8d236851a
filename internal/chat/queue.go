package chat

import (
	"sync"
)

// responseQueue is the bounded single-producer/single-consumer chunk
// buffer of a queue-mode turn: a primary buffer of capPrimary plus an
// overflow buffer of capOverflow. Writes spill into overflow when the
// primary is full; reads rebalance overflow back into primary. With both
// buffers full the producer blocks until the consumer frees space.
type responseQueue struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	primary     []string
	overflow    []string
	capPrimary  int
	capOverflow int

	closed bool
	err    error
}

func newResponseQueue(capPrimary, capOverflow int) *responseQueue {
	if capPrimary <= 0 {
		capPrimary = 25
	}
	if capOverflow <= 0 {
		capOverflow = 45
	}
	q := &responseQueue{capPrimary: capPrimary, capOverflow: capOverflow}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Put appends a chunk, blocking while both buffers are full.
func (q *responseQueue) Put(chunk string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.closed && len(q.primary) >= q.capPrimary && len(q.overflow) >= q.capOverflow {
		q.notFull.Wait()
	}
	if q.closed {
		return ErrQueueClosed
	}
	if len(q.primary) < q.capPrimary {
		q.primary = append(q.primary, chunk)
	} else {
		q.overflow = append(q.overflow, chunk)
	}
	q.notEmpty.Signal()
	return nil
}

// Get removes the next chunk. ok=false signals EOF: the queue is closed
// and drained; err then carries the turn's failure, if any.
func (q *responseQueue) Get() (chunk string, ok bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.primary) == 0 && len(q.overflow) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	q.rebalanceLocked()
	if len(q.primary) > 0 {
		chunk = q.primary[0]
		q.primary = q.primary[1:]
		q.notFull.Signal()
		return chunk, true, nil
	}
	return "", false, q.err
}

// rebalanceLocked drains overflow into the primary buffer while it has
// room. Caller holds the lock.
func (q *responseQueue) rebalanceLocked() {
	for len(q.overflow) > 0 && len(q.primary) < q.capPrimary {
		q.primary = append(q.primary, q.overflow[0])
		q.overflow = q.overflow[1:]
	}
	if len(q.overflow) < q.capOverflow {
		q.notFull.Signal()
	}
}

// Close posts EOF. Pending chunks remain readable; err surfaces to the
// consumer after the drain. Idempotent; the first error wins.
func (q *responseQueue) Close(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.err = err
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Pending returns the number of buffered chunks.
func (q *responseQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.primary) + len(q.overflow)
}
