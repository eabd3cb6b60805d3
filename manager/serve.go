// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package manager

import (
	"context"
	"errors"
	"io"

	"code.hybscloud.com/relaynet/internal/actionqueue"
	"code.hybscloud.com/relaynet/internal/log"
	"code.hybscloud.com/relaynet/message"
	"code.hybscloud.com/relaynet/transport/framed"
)

// Serve exposes m over t: each inbound envelope carrying a manager Request
// is dispatched and answered with an envelope whose origin id is the
// request's id. Responses streaming in on a channel opened by a request
// are written with that request's id as their origin, so the remote
// client's mailbox for the open_channel request receives the channel's
// whole response stream.
//
// Serve returns nil on clean EOF from the peer and the first transport
// error otherwise. All writes (immediate replies and streamed channel
// traffic) are serialized through one writer, since a framed transport's
// write half must be owned by a single goroutine.
func Serve(ctx context.Context, t *framed.Transport, m *Manager) error {
	entry := log.For("manager.serve")
	out := actionqueue.New[message.Response[Response]]()
	defer out.Close()

	writeErr := make(chan error, 1)
	go func() {
		for {
			resp, ok := out.Pop(ctx)
			if !ok {
				writeErr <- nil
				return
			}
			data, err := message.Encode(resp)
			if err != nil {
				entry.WithError(err).Debug("dropping unencodable response")
				continue
			}
			if err := t.WriteFrame(ctx, data); err != nil {
				writeErr <- err
				return
			}
		}
	}()

	for {
		data, err := t.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var env message.Request[Request]
		if err := message.Decode(data, &env); err != nil {
			entry.WithError(err).Debug("dropping undecodable request")
			continue
		}

		originID := env.ID
		emit := func(r Response) {
			out.Push(message.NewResponse(originID, r))
		}
		reply := m.Handle(ctx, env.Payload, emit)
		if !out.Push(message.NewResponse(originID, reply)) {
			select {
			case err := <-writeErr:
				return err
			default:
				return nil
			}
		}
	}
}
