// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package message defines the typed envelopes carried over a framed
// transport — Request and Response — and their wire codec.
//
// Wire shape: Request encodes as a 2- or 3-element array ([id, payload] or
// [header, id, payload]); Response encodes as a 3- or 4-element array
// ([id, origin_id, payload] or [header, id, origin_id, payload]). The
// header element is omitted entirely, never encoded as an empty map,
// whenever the header is empty.
package message

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"
)

// Header carries arbitrary out-of-band metadata alongside a request or
// response.
type Header map[string]any

// Request is a typed request envelope.
type Request[T any] struct {
	Header  Header
	ID      string
	Payload T
}

// NewRequest returns a Request with a fresh random id and no header.
func NewRequest[T any](payload T) Request[T] {
	return Request[T]{ID: NewID(), Payload: payload}
}

// Response is a typed response envelope. OriginID MUST equal the ID of the
// request this response answers.
type Response[T any] struct {
	Header   Header
	ID       string
	OriginID string
	Payload  T
}

// NewResponse returns a Response with a fresh random id, answering originID.
func NewResponse[T any](originID string, payload T) Response[T] {
	return Response[T]{ID: NewID(), OriginID: originID, Payload: payload}
}

// NewID returns a fresh request/response id: the decimal form of a random,
// non-negative 64-bit integer.
func NewID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	v := binary.BigEndian.Uint64(b[:]) &^ (1 << 63) // keep it representable as int64 too
	return strconv.FormatUint(v, 10)
}
