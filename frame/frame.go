// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package frame implements the wire-level framing primitive shared by every
// transport in this module: an opaque byte item preceded by an 8-byte
// big-endian length header.
//
// Framing never fails. Read only ever reports whether a complete frame was
// present in src; a partial frame is left untouched so the caller can top up
// its buffer and try again.
package frame

import "encoding/binary"

// HeaderSize is the length, in bytes, of the big-endian length prefix.
const HeaderSize = 8

// Frame is a length-prefixed byte container. The zero value is an empty
// frame. A Frame may borrow its item from a caller-owned buffer (as returned
// by Read) or own it (as returned by New or IntoOwned); callers that need to
// retain a Frame past the lifetime of the buffer it was read from must call
// IntoOwned.
type Frame struct {
	item []byte
}

// New wraps item as an owned Frame. The slice is not copied; callers must not
// mutate it afterwards if they intend to retain the Frame.
func New(item []byte) Frame {
	return Frame{item: item}
}

// Item returns the frame's payload bytes.
func (f Frame) Item() []byte { return f.item }

// Len returns the payload length in bytes.
func (f Frame) Len() int { return len(f.item) }

// IntoOwned returns a Frame holding a fresh copy of the payload, safe to
// retain beyond the lifetime of whatever buffer f currently borrows from.
func (f Frame) IntoOwned() Frame {
	owned := make([]byte, len(f.item))
	copy(owned, f.item)
	return Frame{item: owned}
}

// Write appends the framed encoding of item (8-byte big-endian length plus
// the item itself) to dst, returning the extended slice.
func Write(dst []byte, item []byte) []byte {
	var hdr [HeaderSize]byte
	binary.BigEndian.PutUint64(hdr[:], uint64(len(item)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, item...)
	return dst
}

// Available reports whether src contains a complete frame without consuming
// it. It never mutates src.
func Available(src []byte) bool {
	_, n, ok := Read(src)
	_ = n
	return ok
}

// Read attempts to parse a single frame from the head of src.
//
// It returns the parsed frame, the number of bytes consumed from src, and
// whether a frame was available. When ok is false, src is left completely
// unconsumed — the caller should read more bytes and retry.
//
// Deliberate wire-compat quirk: a buffer holding exactly a
// zero-length-frame header (len(src) == HeaderSize, declared length 0) is
// treated as incomplete, not as a legal empty frame. The read only succeeds
// once at least one byte beyond the header is present — len(src) must be
// strictly greater than HeaderSize. This looks like it could be a bug, but
// both peers agree on it, so "fixing" one side would desynchronize empty
// frames at the boundary.
func Read(src []byte) (f Frame, n int, ok bool) {
	if len(src) <= HeaderSize {
		return Frame{}, 0, false
	}
	declared := int64(binary.BigEndian.Uint64(src[:HeaderSize]))
	if declared < 0 {
		return Frame{}, 0, false
	}
	total := int64(HeaderSize) + declared
	if int64(len(src)) < total {
		return Frame{}, 0, false
	}
	item := src[HeaderSize:total]
	return Frame{item: item}, int(total), true
}
