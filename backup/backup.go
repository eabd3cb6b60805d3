// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package backup tracks the bounded history of frames a framed transport has
// sent, so that a reconnect can replay whatever the peer did not yet
// acknowledge.
package backup

import (
	"github.com/eapache/queue"

	"code.hybscloud.com/relaynet/frame"
)

// DefaultMaxSize is the default byte-size cap on the backup's retained
// frames.
const DefaultMaxSize int64 = 256 * 1024 * 1024

// Backup is an ordered FIFO of owned frames bounded by a byte-size cap, plus
// sent/received counters used to resynchronize a peer after reconnect.
//
// Backup is not safe for concurrent use. Per the transport's ownership
// model, exactly one goroutine — the framed transport's own task — ever
// touches a given Backup.
//
// Note: MaxSize bounds only the sum of frame item bytes (frame.Frame.Len()),
// not the 8-byte header overhead each frame also costs on the wire, so the
// actual retained byte footprint is slightly larger than MaxSize.
type Backup struct {
	frames      *queue.Queue
	currentSize int64
	maxSize     int64
	sentCnt     uint64
	receivedCnt uint64
	frozen      bool
}

// New returns an empty Backup capped at DefaultMaxSize.
func New() *Backup {
	return NewWithMaxSize(DefaultMaxSize)
}

// NewWithMaxSize returns an empty Backup capped at maxSize bytes.
func NewWithMaxSize(maxSize int64) *Backup {
	return &Backup{frames: queue.New(), maxSize: maxSize}
}

// Len returns the number of frames currently retained.
func (b *Backup) Len() int { return b.frames.Length() }

// CurrentSize returns the cumulative item-byte size of retained frames.
func (b *Backup) CurrentSize() int64 { return b.currentSize }

// MaxSize returns the configured byte-size cap.
func (b *Backup) MaxSize() int64 { return b.maxSize }

// SentCount returns the number of frames pushed via Push since creation or
// the last Clear.
func (b *Backup) SentCount() uint64 { return b.sentCnt }

// ReceivedCount returns the number of times IncrementReceived was called
// since creation or the last Clear.
func (b *Backup) ReceivedCount() uint64 { return b.receivedCnt }

// Frozen reports whether mutating operations are currently no-ops.
func (b *Backup) Frozen() bool { return b.frozen }

// Freeze suspends all mutating operations. Used while a reconnect replay is
// in flight so the replay itself does not re-grow the backup.
func (b *Backup) Freeze() { b.frozen = true }

// Unfreeze resumes normal mutation.
func (b *Backup) Unfreeze() { b.frozen = false }

// Push appends a sent frame to the tail, evicting from the head as needed to
// stay within MaxSize, and increments the sent counter. A no-op while
// frozen.
func (b *Backup) Push(f frame.Frame) {
	if b.frozen {
		return
	}
	owned := f.IntoOwned()
	b.frames.Add(owned)
	b.currentSize += int64(owned.Len())
	b.sentCnt++
	for b.currentSize > b.maxSize && b.frames.Length() > 0 {
		evicted := b.frames.Remove().(frame.Frame)
		b.currentSize -= int64(evicted.Len())
	}
}

// IncrementReceived bumps the received counter. A no-op while frozen.
func (b *Backup) IncrementReceived() {
	if b.frozen {
		return
	}
	b.receivedCnt++
}

// Frames returns the retained frames in send order (oldest first). The
// returned slice is a snapshot; mutating it does not affect the Backup.
func (b *Backup) Frames() []frame.Frame {
	out := make([]frame.Frame, b.frames.Length())
	for i := range out {
		out[i] = b.frames.Get(i).(frame.Frame)
	}
	return out
}

// TruncateFront pops frames from the head until at most n remain. Unlike
// the other mutations it is not gated by Freeze: the reconnect driver must
// drop peer-acknowledged frames while the backup is frozen for replay, and
// shrinking retained history can never re-grow what Freeze protects
// against.
func (b *Backup) TruncateFront(n int) {
	for b.frames.Length() > n {
		evicted := b.frames.Remove().(frame.Frame)
		b.currentSize -= int64(evicted.Len())
	}
}

// Clear removes all retained frames and resets the sent/received counters
// to zero. A no-op while frozen. Counters are otherwise monotonic: Clear is
// the only operation that rewinds them.
func (b *Backup) Clear() {
	if b.frozen {
		return
	}
	for b.frames.Length() > 0 {
		b.frames.Remove()
	}
	b.currentSize = 0
	b.sentCnt = 0
	b.receivedCnt = 0
}

// SetMaxSize updates the byte-size cap, evicting from the head immediately
// if the new cap is smaller than the current size. A no-op while frozen.
func (b *Backup) SetMaxSize(maxSize int64) {
	if b.frozen {
		return
	}
	b.maxSize = maxSize
	for b.currentSize > b.maxSize && b.frames.Length() > 0 {
		evicted := b.frames.Remove().(frame.Frame)
		b.currentSize -= int64(evicted.Len())
	}
}
