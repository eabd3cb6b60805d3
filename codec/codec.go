// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package codec implements the per-frame transform chain applied by a framed
// transport: identity, compression, authenticated encryption, and their
// composition.
package codec

import (
	"errors"

	"code.hybscloud.com/relaynet/frame"
)

// ErrInvalidData indicates a frame failed to decode: corrupted compressed
// data, a forged or truncated ciphertext, or any other codec-level integrity
// failure.
var ErrInvalidData = errors.New("codec: invalid data")

// ErrInvalidInput indicates a codec was misconfigured: an unknown codec
// kind, or a key of the wrong length.
var ErrInvalidInput = errors.New("codec: invalid input")

// Codec is a pure per-frame transform pair. Encode and Decode must be
// inverses of each other for any frame produced by a correctly configured
// codec; Decode may additionally be called on attacker-controlled input and
// must fail with ErrInvalidData rather than panic.
type Codec interface {
	Encode(f frame.Frame) (frame.Frame, error)
	Decode(f frame.Frame) (frame.Frame, error)
}

// Plain is the identity codec.
type Plain struct{}

// Encode returns f unchanged.
func (Plain) Encode(f frame.Frame) (frame.Frame, error) { return f, nil }

// Decode returns f unchanged.
func (Plain) Decode(f frame.Frame) (frame.Frame, error) { return f, nil }

// Chain composes codecs sequentially. Encode runs outer-to-inner (index 0
// first); Decode runs inner-to-outer (reverse order). By convention, the
// handshake composes encryption outermost and compression inside, so Chain
// is typically constructed as Chain(encryption, compression).
type Chain []Codec

// NewChain returns a Codec that applies codecs in order on Encode and in
// reverse order on Decode.
func NewChain(codecs ...Codec) Chain { return Chain(codecs) }

// Encode applies each codec in order.
func (c Chain) Encode(f frame.Frame) (frame.Frame, error) {
	var err error
	for _, codec := range c {
		f, err = codec.Encode(f)
		if err != nil {
			return frame.Frame{}, err
		}
	}
	return f, nil
}

// Decode applies each codec in reverse order.
func (c Chain) Decode(f frame.Frame) (frame.Frame, error) {
	var err error
	for i := len(c) - 1; i >= 0; i-- {
		f, err = c[i].Decode(f)
		if err != nil {
			return frame.Frame{}, err
		}
	}
	return f, nil
}
