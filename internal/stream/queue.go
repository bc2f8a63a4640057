package stream

import (
	"context"
	"io"
	"sync"
)

// compactThreshold is the consumed-prefix length past which the queue resets
// its backing slice once fully drained.
const compactThreshold = 256

// Queue adapts push-delivered events into a pull sequence for one consumer.
// When the consumer is blocked in Next and the buffer is empty, a push hands
// the value over directly instead of buffering, so a keeping-pace consumer
// holds no backlog. Order is never altered.
type Queue struct {
	mu       sync.Mutex
	items    []Event
	head     int
	finished bool
	finErr   error
	waiter   chan waitResult
}

type waitResult struct {
	ev  Event
	err error
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends one event. Pushes after Finish or Fail are dropped.
func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	if q.finished {
		q.mu.Unlock()
		return
	}
	if q.waiter != nil && q.head == len(q.items) {
		w := q.waiter
		q.waiter = nil
		q.mu.Unlock()
		w <- waitResult{ev: ev}
		return
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()
}

// Finish marks the end of the sequence. Buffered events still drain before
// the consumer observes completion.
func (q *Queue) Finish() {
	q.close(nil)
}

// Fail ends the sequence with an error the consumer receives after draining.
func (q *Queue) Fail(err error) {
	q.close(err)
}

func (q *Queue) close(err error) {
	q.mu.Lock()
	if q.finished {
		q.mu.Unlock()
		return
	}
	q.finished = true
	q.finErr = err
	w := q.waiter
	q.waiter = nil
	q.mu.Unlock()

	if w != nil {
		// A waiter implies an empty buffer, so completion is immediate.
		res := waitResult{err: io.EOF}
		if err != nil {
			res.err = err
		}
		w <- res
	}
}

// Next returns the next event in push order. It blocks until an event is
// available, the sequence ends (io.EOF), the sequence fails, or ctx is done.
// The queue is single-consumer; Next must not be called concurrently.
func (q *Queue) Next(ctx context.Context) (Event, error) {
	q.mu.Lock()
	if q.head < len(q.items) {
		ev := q.items[q.head]
		q.head++
		q.compactLocked()
		q.mu.Unlock()
		return ev, nil
	}
	if q.finished {
		err := q.finErr
		q.mu.Unlock()
		if err != nil {
			return Event{}, err
		}
		return Event{}, io.EOF
	}

	w := make(chan waitResult, 1)
	q.waiter = w
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		q.mu.Lock()
		if q.waiter == w {
			q.waiter = nil
		}
		q.mu.Unlock()
		return Event{}, ctx.Err()
	case res := <-w:
		return res.ev, res.err
	}
}

// Len reports how many events are currently buffered and unconsumed.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// compactLocked drops the consumed prefix once the buffer is fully drained
// and the prefix has grown past the threshold. Capacity is kept for reuse.
func (q *Queue) compactLocked() {
	if q.head == len(q.items) && q.head >= compactThreshold {
		q.items = q.items[:0]
		q.head = 0
	}
}
