// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"time"
)

// Dialer reconnects a connCarrier. Returns ErrUnsupported-compatible nil to
// disable reconnect (see connCarrier.Reconnect).
type Dialer func(ctx context.Context) (net.Conn, error)

// connCarrier adapts a blocking net.Conn to the non-blocking Carrier
// interface using zero-duration read/write deadlines as a non-blocking
// probe, the same trick net/http's connection pool and most userspace
// non-blocking-over-blocking adapters use.
type connCarrier struct {
	conn   net.Conn
	dial   Dialer
	closed bool
}

// NewConnCarrier wraps conn as a Carrier. If dial is nil, Reconnect returns
// ErrUnsupported.
func NewConnCarrier(conn net.Conn, dial Dialer) Carrier {
	return &connCarrier{conn: conn, dial: dial}
}

func (c *connCarrier) TryRead(buf []byte) (int, error) {
	if err := c.conn.SetReadDeadline(time.Now()); err != nil {
		return 0, err
	}
	n, err := c.conn.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, ErrWouldBlock
		}
		return n, err
	}
	return n, nil
}

func (c *connCarrier) TryWrite(buf []byte) (int, error) {
	if err := c.conn.SetWriteDeadline(time.Now()); err != nil {
		return 0, err
	}
	n, err := c.conn.Write(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, ErrWouldBlock
		}
		return n, err
	}
	return n, nil
}

// Ready polls TryRead/TryWrite with zero-length probe buffers until one of
// the requested interests is satisfied or ctx is done. net.Conn offers no
// portable edge-triggered readiness notification, so polling with the
// package's standard 1ms back-off is the carrier-level equivalent of the
// epoll/kqueue wait a production carrier would use.
func (c *connCarrier) Ready(ctx context.Context, interest Interest) (ReadyState, error) {
	for {
		var state ReadyState
		if interest&InterestReadable != 0 {
			n, err := c.TryRead(nil)
			switch {
			case err == nil && n == 0:
				state |= Readable | ReadClosed
			case err == nil:
				state |= Readable
			case errors.Is(err, ErrWouldBlock):
			default:
				return state, err
			}
		}
		if interest&InterestWritable != 0 {
			// net.Conn offers no portable "would a write block" probe that
			// doesn't itself send bytes, so the writable side is treated as
			// always ready; TryWrite on the actual payload is where
			// backpressure and peer-close are observed.
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

func (c *connCarrier) Reconnect(ctx context.Context) error {
	if c.dial == nil {
		return ErrUnsupported
	}
	_ = c.conn.Close()
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}
