// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package actionqueue implements an unbounded FIFO channel: Push never
// blocks on queue depth (only transiently on the internal dispatcher
// goroutine being busy), and Pop/Close behave like an ordinary Go channel.
// Go channels are fixed-capacity by construction, so an actually-unbounded
// mpsc queue needs a backing store plus a pump goroutine — the same
// goroutine-pump idiom transport.blockingAdapter uses to bridge a blocking
// primitive into a non-blocking one, applied here to bridge a bounded
// channel into an unbounded one.
package actionqueue

import (
	"context"

	"github.com/eapache/queue"
)

// Queue is an unbounded FIFO of values of type T.
type Queue[T any] struct {
	in   chan T
	out  chan T
	done chan struct{}
}

// New starts a Queue and its backing dispatcher goroutine.
func New[T any]() *Queue[T] {
	q := &Queue[T]{
		in:   make(chan T),
		out:  make(chan T),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue[T]) run() {
	defer close(q.out)
	buf := queue.New()
	for {
		if buf.Length() == 0 {
			select {
			case v := <-q.in:
				buf.Add(v)
			case <-q.done:
				return
			}
			continue
		}
		select {
		case v := <-q.in:
			buf.Add(v)
		case q.out <- buf.Peek().(T):
			buf.Remove()
		case <-q.done:
			return
		}
	}
}

// Push enqueues v. It returns false if the queue has been closed.
func (q *Queue[T]) Push(v T) bool {
	select {
	case q.in <- v:
		return true
	case <-q.done:
		return false
	}
}

// Pop dequeues the next value in FIFO order, blocking until one is
// available, the queue is closed (ok == false), or ctx is done.
func (q *Queue[T]) Pop(ctx context.Context) (v T, ok bool) {
	select {
	case v, ok = <-q.out:
		return v, ok
	case <-ctx.Done():
		return v, false
	}
}

// Close stops the dispatcher goroutine. Any values still buffered are
// dropped; pending and future Push calls return false.
func (q *Queue[T]) Close() {
	select {
	case <-q.done:
	default:
		close(q.done)
	}
}
