// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"code.hybscloud.com/relaynet/frame"
)

// CompressionType selects the algorithm used by a compression Codec.
//
// Unknown is never instantiated at runtime; it exists so the handshake can
// represent "no such algorithm" as a value during negotiation rather than an
// error.
type CompressionType uint8

const (
	Deflate CompressionType = iota + 1
	Gzip
	Zlib
	UnknownCompression CompressionType = 0
)

// String implements fmt.Stringer.
func (t CompressionType) String() string {
	switch t {
	case Deflate:
		return "deflate"
	case Gzip:
		return "gzip"
	case Zlib:
		return "zlib"
	default:
		return "unknown"
	}
}

// DefaultCompressionLevel matches the algorithms' own "default" constant (6
// for deflate/gzip/zlib).
const DefaultCompressionLevel = 6

// Compression is a per-frame compression codec. Empty input round-trips to
// empty output; corrupted input fails Decode with ErrInvalidData.
type Compression struct {
	typ   CompressionType
	level int
}

// NewCompression returns a Compression codec for typ at level (0-9; values
// outside that range are replaced by DefaultCompressionLevel). Returns
// ErrInvalidInput for an unknown or UnknownCompression type.
func NewCompression(typ CompressionType, level int) (*Compression, error) {
	switch typ {
	case Deflate, Gzip, Zlib:
	default:
		return nil, ErrInvalidInput
	}
	if level < 0 || level > 9 {
		level = DefaultCompressionLevel
	}
	return &Compression{typ: typ, level: level}, nil
}

// Encode compresses f's item.
func (c *Compression) Encode(f frame.Frame) (frame.Frame, error) {
	if f.Len() == 0 {
		return frame.New(nil), nil
	}
	var buf bytes.Buffer
	w, err := c.newWriter(&buf)
	if err != nil {
		return frame.Frame{}, err
	}
	if _, err := w.Write(f.Item()); err != nil {
		return frame.Frame{}, ErrInvalidData
	}
	if err := w.Close(); err != nil {
		return frame.Frame{}, ErrInvalidData
	}
	return frame.New(buf.Bytes()), nil
}

// Decode decompresses f's item, failing with ErrInvalidData on corrupted
// input.
func (c *Compression) Decode(f frame.Frame) (frame.Frame, error) {
	if f.Len() == 0 {
		return frame.New(nil), nil
	}
	r, err := c.newReader(bytes.NewReader(f.Item()))
	if err != nil {
		return frame.Frame{}, ErrInvalidData
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return frame.Frame{}, ErrInvalidData
	}
	return frame.New(out), nil
}

func (c *Compression) newWriter(dst *bytes.Buffer) (io.WriteCloser, error) {
	switch c.typ {
	case Deflate:
		return flate.NewWriter(dst, c.level)
	case Gzip:
		return gzip.NewWriterLevel(dst, c.level)
	case Zlib:
		return zlib.NewWriterLevel(dst, c.level)
	default:
		return nil, ErrInvalidInput
	}
}

func (c *Compression) newReader(src io.Reader) (io.ReadCloser, error) {
	switch c.typ {
	case Deflate:
		return flate.NewReader(src), nil
	case Gzip:
		return gzip.NewReader(src)
	case Zlib:
		return zlib.NewReader(src)
	default:
		return nil, ErrInvalidInput
	}
}
