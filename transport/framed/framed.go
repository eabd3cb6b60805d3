// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package framed wraps a transport.Carrier with frame.Frame boundaries, a
// codec.Codec transform, and a backup.Backup history, and runs the
// handshake that negotiates and installs that codec.
package framed

import (
	"context"
	"errors"
	"io"

	"code.hybscloud.com/relaynet/backup"
	"code.hybscloud.com/relaynet/codec"
	"code.hybscloud.com/relaynet/frame"
	"code.hybscloud.com/relaynet/transport"
)

// Transport is a framed, codec-wrapped, backup-tracked carrier. It is not
// safe for concurrent use by multiple goroutines; per the concurrency model,
// exactly one goroutine owns reads and exactly one (possibly the same one)
// owns writes, with callers serializing through that goroutine's own input
// queue.
type Transport struct {
	carrier transport.Carrier
	codec   codec.Codec
	backup  *backup.Backup

	incoming []byte
}

// New wraps carrier with codec and a fresh backup history.
func New(carrier transport.Carrier, c codec.Codec) *Transport {
	return &Transport{carrier: carrier, codec: c, backup: backup.New()}
}

// Carrier returns the underlying carrier, primarily so a reconnect driver
// can call Reconnect on it.
func (t *Transport) Carrier() transport.Carrier { return t.carrier }

// Backup returns the transport's send history, primarily so a reconnect
// driver can freeze/replay it.
func (t *Transport) Backup() *backup.Backup { return t.backup }

// SetCodec installs a new codec, as done after a successful handshake.
func (t *Transport) SetCodec(c codec.Codec) { t.codec = c }

// WriteFrame encodes payload via the installed codec, frames it, pushes the
// encoded frame into the backup, and writes it to the carrier.
func (t *Transport) WriteFrame(ctx context.Context, payload []byte) error {
	encoded, err := t.codec.Encode(frame.New(payload))
	if err != nil {
		return err
	}
	wire := frame.Write(nil, encoded.Item())
	t.backup.Push(encoded)
	return transport.WriteAll(ctx, t.carrier, wire)
}

// ReadFrame reads one frame from the carrier (filling the internal buffer
// as needed), decodes it via the installed codec, and increments the
// backup's received counter. It returns io.EOF only at a clean message
// boundary and io.ErrUnexpectedEOF if the peer closes mid-frame.
func (t *Transport) ReadFrame(ctx context.Context) ([]byte, error) {
	for {
		f, n, ok := frame.Read(t.incoming)
		if ok {
			t.incoming = t.incoming[n:]
			decoded, err := t.codec.Decode(f)
			if err != nil {
				return nil, err
			}
			t.backup.IncrementReceived()
			return decoded.Item(), nil
		}

		buf := make([]byte, 32*1024)
		rn, err := t.carrier.TryRead(buf)
		if rn > 0 {
			t.incoming = append(t.incoming, buf[:rn]...)
			continue
		}
		if err != nil {
			if errors.Is(err, transport.ErrWouldBlock) {
				if werr := waitReadable(ctx, t.carrier); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, err
		}
		// rn == 0, err == nil: clean EOF from the carrier.
		if len(t.incoming) > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, io.EOF
	}
}

func waitReadable(ctx context.Context, c transport.Carrier) error {
	_, err := c.Ready(ctx, transport.InterestReadable)
	return err
}
