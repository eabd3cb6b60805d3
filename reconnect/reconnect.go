// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package reconnect implements the seven-step driver that recovers a framed
// transport after its carrier reports a peer-close or read error: freeze,
// redial, re-handshake, resynchronize counters, replay unacknowledged
// frames, unfreeze.
package reconnect

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"code.hybscloud.com/relaynet/frame"
	"code.hybscloud.com/relaynet/transport"
	"code.hybscloud.com/relaynet/transport/framed"
)

// StepError names which of the seven steps failed. The reconnect driver
// never retries on its own; a caller's retry policy decides what to do
// with it.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("reconnect: %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// Result summarizes a successful reconnect.
type Result struct {
	PeerReceived uint64
	Replayed     int
}

// Reconnect runs the driver over t. cfg.Initiator determines which side
// redoes the handshake first and which side sends its received counter
// first, exactly mirroring the original connection's initiator/responder
// roles. On any step's failure the backup is left frozen — the transport is
// considered failed, and Reconnect does not retry.
func Reconnect(ctx context.Context, t *framed.Transport, cfg framed.HandshakeConfig) (*Result, error) {
	t.Backup().Freeze()

	if err := t.Carrier().Reconnect(ctx); err != nil {
		return nil, &StepError{"carrier_reconnect", err}
	}

	if err := framed.Handshake(ctx, t, cfg); err != nil {
		return nil, &StepError{"handshake", err}
	}

	ourReceived := t.Backup().ReceivedCount()
	var peerReceived uint64
	var err error
	if cfg.Initiator {
		if err = sendCounter(ctx, t, ourReceived); err != nil {
			return nil, &StepError{"send_counter", err}
		}
		if peerReceived, err = recvCounter(ctx, t); err != nil {
			return nil, &StepError{"recv_counter", err}
		}
	} else {
		if peerReceived, err = recvCounter(ctx, t); err != nil {
			return nil, &StepError{"recv_counter", err}
		}
		if err = sendCounter(ctx, t, ourReceived); err != nil {
			return nil, &StepError{"send_counter", err}
		}
	}

	// TruncateFront is deliberately not gated by the freeze: the backup
	// stays frozen here so the counter exchange and replay don't record
	// anything, while peer-acknowledged frames still get dropped.
	sent := t.Backup().SentCount()
	unacked := int64(0)
	if sent > peerReceived {
		unacked = int64(sent - peerReceived)
	}
	t.Backup().TruncateFront(int(unacked))

	frames := t.Backup().Frames()
	for _, f := range frames {
		wire := frame.Write(nil, f.Item())
		if err := transport.WriteAll(ctx, t.Carrier(), wire); err != nil {
			return nil, &StepError{"replay", err}
		}
	}

	t.Backup().Unfreeze()
	return &Result{PeerReceived: peerReceived, Replayed: len(frames)}, nil
}

type counterMsg struct {
	Received uint64 `msgpack:"received"`
}

func sendCounter(ctx context.Context, t *framed.Transport, received uint64) error {
	payload, err := msgpack.Marshal(counterMsg{Received: received})
	if err != nil {
		return err
	}
	return t.WriteFrame(ctx, payload)
}

func recvCounter(ctx context.Context, t *framed.Transport) (uint64, error) {
	payload, err := t.ReadFrame(ctx)
	if err != nil {
		return 0, err
	}
	var m counterMsg
	if err := msgpack.Unmarshal(payload, &m); err != nil {
		return 0, err
	}
	return m.Received, nil
}
