// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package message

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// RawMessage captures an encoded msgpack value without decoding it, so a
// forwarder can relay a request/response payload it does not understand.
type RawMessage = msgpack.RawMessage

// RawRequest is a request whose payload is left encoded, for components
// (chiefly the manager connection runtime) that only need to inspect id and
// header, not decode the payload.
type RawRequest = Request[RawMessage]

// RawResponse mirrors RawRequest for responses.
type RawResponse = Response[RawMessage]

// MarshalMsgpack implements msgpack.CustomEncoder, writing the array-of-2-
// or-3 wire shape: [header?, id, payload].
func (r Request[T]) MarshalMsgpack() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	hasHeader := len(r.Header) > 0
	n := 2
	if hasHeader {
		n = 3
	}
	if err := enc.EncodeArrayLen(n); err != nil {
		return nil, err
	}
	if hasHeader {
		if err := enc.Encode(map[string]any(r.Header)); err != nil {
			return nil, err
		}
	}
	if err := enc.EncodeString(r.ID); err != nil {
		return nil, err
	}
	if err := enc.Encode(r.Payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalMsgpack implements msgpack.CustomDecoder, accepting both the
// 2-element (no header) and 3-element (with header) wire forms.
func (r *Request[T]) UnmarshalMsgpack(data []byte) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	switch n {
	case 2:
		r.Header = nil
	case 3:
		var h map[string]any
		if err := dec.Decode(&h); err != nil {
			return err
		}
		r.Header = h
	default:
		return fmt.Errorf("message: invalid request array length %d", n)
	}
	if err := dec.Decode(&r.ID); err != nil {
		return err
	}
	return dec.Decode(&r.Payload)
}

// MarshalMsgpack implements msgpack.CustomEncoder, writing the array-of-3-
// or-4 wire shape: [header?, id, origin_id, payload].
func (r Response[T]) MarshalMsgpack() ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	hasHeader := len(r.Header) > 0
	n := 3
	if hasHeader {
		n = 4
	}
	if err := enc.EncodeArrayLen(n); err != nil {
		return nil, err
	}
	if hasHeader {
		if err := enc.Encode(map[string]any(r.Header)); err != nil {
			return nil, err
		}
	}
	if err := enc.EncodeString(r.ID); err != nil {
		return nil, err
	}
	if err := enc.EncodeString(r.OriginID); err != nil {
		return nil, err
	}
	if err := enc.Encode(r.Payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalMsgpack implements msgpack.CustomDecoder, accepting both the
// 3-element (no header) and 4-element (with header) wire forms.
func (r *Response[T]) UnmarshalMsgpack(data []byte) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	switch n {
	case 3:
		r.Header = nil
	case 4:
		var h map[string]any
		if err := dec.Decode(&h); err != nil {
			return err
		}
		r.Header = h
	default:
		return fmt.Errorf("message: invalid response array length %d", n)
	}
	if err := dec.Decode(&r.ID); err != nil {
		return err
	}
	if err := dec.Decode(&r.OriginID); err != nil {
		return err
	}
	return dec.Decode(&r.Payload)
}

// Encode marshals v (a Request[T] or Response[T]) to its wire bytes.
func Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Decode unmarshals wire bytes into v (a pointer to Request[T] or
// Response[T]).
func Decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
