// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"sync"
)

// DefaultInMemoryCapacity is the default number of pending chunks the
// in-memory carrier's internal channel buffers before TryWrite starts
// returning ErrWouldBlock.
const DefaultInMemoryCapacity = 64

// inMemoryCarrier is a bounded-channel-backed Carrier used by tests and by
// any in-process client/server wiring that doesn't need a real socket. It
// never supports Reconnect.
type inMemoryCarrier struct {
	out    chan []byte
	in     chan []byte
	closed sync.Once

	pending []byte // leftover from a partial read of the last chunk off `in`
}

// NewInMemoryPair returns two Carriers, a and b, wired so that writes on one
// are readable on the other.
func NewInMemoryPair(capacity int) (a, b Carrier) {
	if capacity <= 0 {
		capacity = DefaultInMemoryCapacity
	}
	c1 := make(chan []byte, capacity)
	c2 := make(chan []byte, capacity)
	ca := &inMemoryCarrier{out: c1, in: c2}
	cb := &inMemoryCarrier{out: c2, in: c1}
	return ca, cb
}

func (c *inMemoryCarrier) TryRead(buf []byte) (int, error) {
	if len(c.pending) > 0 {
		n := copy(buf, c.pending)
		c.pending = c.pending[n:]
		return n, nil
	}
	select {
	case chunk, ok := <-c.in:
		if !ok {
			return 0, nil
		}
		n := copy(buf, chunk)
		if n < len(chunk) {
			c.pending = chunk[n:]
		}
		return n, nil
	default:
		return 0, ErrWouldBlock
	}
}

func (c *inMemoryCarrier) TryWrite(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	select {
	case c.out <- cp:
		return len(buf), nil
	default:
		return 0, ErrWouldBlock
	}
}

func (c *inMemoryCarrier) Ready(ctx context.Context, interest Interest) (ReadyState, error) {
	for {
		var state ReadyState
		if interest&InterestReadable != 0 && (len(c.pending) > 0 || len(c.in) > 0) {
			state |= Readable
		}
		if interest&InterestWritable != 0 && len(c.out) < cap(c.out) {
			state |= Writable
		}
		if state != 0 {
			return state, nil
		}
		if err := sleepOrDone(ctx); err != nil {
			return state, err
		}
	}
}

func (c *inMemoryCarrier) Reconnect(ctx context.Context) error {
	return ErrUnsupported
}

// Close closes the write side, so the peer observes EOF (TryRead returning
// (0, nil)) once it has drained whatever was already sent.
func (c *inMemoryCarrier) Close() error {
	c.closed.Do(func() { close(c.out) })
	return nil
}
