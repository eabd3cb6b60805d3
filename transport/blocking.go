// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"io"
	"sync"
)

// blockingAdapter exposes a blocking io.ReadWriteCloser (such as a Windows
// named pipe handle wrapped in *os.File, which has no portable non-blocking
// mode) as a Carrier by running its blocking Read/Write calls on dedicated
// goroutines and relaying results through buffered channels.
//
// This is the standard pattern for bridging blocking OS primitives into a
// readiness-based API when the platform offers no non-blocking mode for
// that primitive.
type blockingAdapter struct {
	rwc io.ReadWriteCloser

	readReq  chan []byte
	readRes  chan ioResult
	writeReq chan []byte
	writeRes chan ioResult

	closeOnce sync.Once
}

type ioResult struct {
	n   int
	err error
}

// newBlockingAdapter starts the reader/writer pump goroutines for rwc.
func newBlockingAdapter(rwc io.ReadWriteCloser) *blockingAdapter {
	a := &blockingAdapter{
		rwc:      rwc,
		readReq:  make(chan []byte),
		readRes:  make(chan ioResult, 1),
		writeReq: make(chan []byte),
		writeRes: make(chan ioResult, 1),
	}
	go a.readPump()
	go a.writePump()
	return a
}

func (a *blockingAdapter) readPump() {
	for buf := range a.readReq {
		n, err := a.rwc.Read(buf)
		a.readRes <- ioResult{n, err}
	}
}

func (a *blockingAdapter) writePump() {
	for buf := range a.writeReq {
		n, err := a.rwc.Write(buf)
		a.writeRes <- ioResult{n, err}
	}
}

// TryRead returns ErrWouldBlock if the background read has not completed
// yet; callers are expected to retry, matching the Carrier contract.
func (a *blockingAdapter) TryRead(buf []byte) (int, error) {
	select {
	case a.readReq <- buf:
	default:
		return 0, ErrWouldBlock
	}
	res := <-a.readRes
	if res.err == io.EOF {
		return 0, nil
	}
	return res.n, res.err
}

// TryWrite mirrors TryRead for the write direction.
func (a *blockingAdapter) TryWrite(buf []byte) (int, error) {
	select {
	case a.writeReq <- buf:
	default:
		return 0, ErrWouldBlock
	}
	res := <-a.writeRes
	return res.n, res.err
}

// Ready reports every requested interest as ready at once; it sends no
// probe to the pumps and does not wait on ctx.
func (a *blockingAdapter) Ready(ctx context.Context, interest Interest) (ReadyState, error) {
	var state ReadyState
	if interest&InterestReadable != 0 {
		state |= Readable
	}
	if interest&InterestWritable != 0 {
		state |= Writable
	}
	return state, nil
}

func (a *blockingAdapter) Reconnect(ctx context.Context) error {
	return ErrUnsupported
}

func (a *blockingAdapter) Close() error {
	var err error
	a.closeOnce.Do(func() {
		err = a.rwc.Close()
		close(a.readReq)
		close(a.writeReq)
	})
	return err
}
