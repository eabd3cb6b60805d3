// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package transport defines the readiness-based duplex byte carrier
// abstraction that every framed transport is built on, plus the derived
// read_exact/write_all/read_to_end contracts layered on top of it.
package transport

import (
	"context"
	"errors"
	"io"
	"time"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock is returned by TryRead/TryWrite when no progress can be made
// without waiting. It is re-exported from iox so callers never need to
// import it directly.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrUnsupported is returned by Reconnect on carriers that cannot
// reconnect (in-memory carriers, most notably).
var ErrUnsupported = errors.New("transport: reconnect unsupported")

// Interest is a bitmask of readiness conditions a caller wants to wait for.
type Interest uint8

const (
	InterestReadable Interest = 1 << iota
	InterestWritable
)

// ReadyState is a bitmask of readiness conditions observed on a carrier.
type ReadyState uint8

const (
	Readable ReadyState = 1 << iota
	Writable
	ReadClosed
	WriteClosed
)

// Has reports whether s contains all bits of other.
func (s ReadyState) Has(other ReadyState) bool { return s&other == other }

// Carrier is a readiness-signalled duplex byte channel: the minimal surface
// a framed transport needs from a concrete network or in-memory connection.
type Carrier interface {
	// TryRead performs one non-blocking read attempt. It returns
	// (n, ErrWouldBlock) when no data is currently available, (0, nil) on a
	// clean EOF, or (n, nil)/( n, err) otherwise.
	TryRead(buf []byte) (int, error)

	// TryWrite performs one non-blocking write attempt. It returns
	// (n, ErrWouldBlock) when the carrier cannot currently accept more
	// bytes, (0, nil) when the peer has closed its read side, or
	// (n, nil)/(n, err) otherwise.
	TryWrite(buf []byte) (int, error)

	// Ready blocks until at least one of the requested interests holds (or
	// ctx is done), returning the full observed state.
	Ready(ctx context.Context, interest Interest) (ReadyState, error)

	// Reconnect attempts to re-establish the underlying connection,
	// returning ErrUnsupported if the carrier does not support it.
	Reconnect(ctx context.Context) error
}

// ReadExact reads exactly len(buf) bytes from c, sleeping briefly on
// ErrWouldBlock and returning io.ErrUnexpectedEOF on a premature clean EOF.
func ReadExact(ctx context.Context, c Carrier, buf []byte) error {
	got := 0
	for got < len(buf) {
		n, err := c.TryRead(buf[got:])
		got += n
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				if werr := sleepOrDone(ctx); werr != nil {
					return werr
				}
				continue
			}
			return err
		}
		if n == 0 {
			return io.ErrUnexpectedEOF
		}
	}
	return nil
}

// WriteAll writes all of buf to c, sleeping briefly on ErrWouldBlock and
// returning io.ErrShortWrite on a premature peer-close.
func WriteAll(ctx context.Context, c Carrier, buf []byte) error {
	sent := 0
	for sent < len(buf) {
		n, err := c.TryWrite(buf[sent:])
		sent += n
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				if werr := sleepOrDone(ctx); werr != nil {
					return werr
				}
				continue
			}
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}

// ReadToEnd reads from c until EOF, tolerating ErrWouldBlock transparently
// by retrying after a brief sleep (it never surfaces ErrWouldBlock to the
// caller).
func ReadToEnd(ctx context.Context, c Carrier) ([]byte, error) {
	var out []byte
	buf := make([]byte, 32*1024)
	for {
		n, err := c.TryRead(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				if werr := sleepOrDone(ctx); werr != nil {
					return out, werr
				}
				continue
			}
			return out, err
		}
		if n == 0 {
			return out, nil
		}
	}
}

// retryBackoff is the 1ms back-off used between readiness checks: long
// enough to prevent busy-spin between WouldBlock results, short enough to
// add no real latency to the common case.
const retryBackoff = time.Millisecond

func sleepOrDone(ctx context.Context) error {
	if ctx == nil {
		time.Sleep(retryBackoff)
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retryBackoff):
		return nil
	}
}
