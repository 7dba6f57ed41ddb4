package recognition

import "time"

// latestChan is a bounded queue that always keeps the freshest items.
// When the queue is full, the oldest item is dropped (with a callback so
// owners can release resources) to make room for the new one.
type latestChan[T any] struct {
	ch     chan T
	onDrop func(T)
}

func newLatestChan[T any](size int, onDrop func(T)) *latestChan[T] {
	if size < 1 {
		size = 1
	}
	return &latestChan[T]{ch: make(chan T, size), onDrop: onDrop}
}

// send enqueues v, evicting stale items if needed. Never blocks.
func (q *latestChan[T]) send(v T) {
	for {
		select {
		case q.ch <- v:
			return
		default:
			select {
			case stale := <-q.ch:
				if q.onDrop != nil {
					q.onDrop(stale)
				}
			default:
			}
		}
	}
}

// recv waits up to timeout for an item.
func (q *latestChan[T]) recv(timeout time.Duration) (T, bool) {
	var zero T
	select {
	case v := <-q.ch:
		return v, true
	case <-time.After(timeout):
		return zero, false
	}
}

// drain empties the queue, running the drop callback for each item.
func (q *latestChan[T]) drain() {
	for {
		select {
		case stale := <-q.ch:
			if q.onDrop != nil {
				q.onDrop(stale)
			}
		default:
			return
		}
	}
}
