package reconcile

import "sync"

type command struct {
	name string
	run  func()
}

// queue is an unbounded FIFO of commands with one consumer. Unbounded so a
// running command can enqueue follow-up work without blocking the worker.
type queue struct {
	mu     sync.Mutex
	items  []command
	closed bool
	wake   chan struct{}
}

func newQueue() *queue {
	return &queue{wake: make(chan struct{}, 1)}
}

// push appends c. Returns false once the queue is closed.
func (q *queue) push(c command) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, c)
	q.mu.Unlock()

	q.signal()
	return true
}

// next blocks until a command is available. ok is false once the queue is
// closed and drained.
func (q *queue) next() (c command, ok bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			c = q.items[0]
			q.items[0] = command{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return c, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return command{}, false
		}
		<-q.wake
	}
}

// close rejects further pushes. Already queued commands still drain.
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
