// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package manager

import (
	"context"
	"sync/atomic"

	"code.hybscloud.com/relaynet/message"
)

// Channel is a downstream consumer's view of one multiplexed slice of a
// manager Connection's upstream id space.
type Channel struct {
	id     uint64
	conn   *Connection
	sink   chan Response
	closed atomic.Bool
}

// ID returns this channel's allocated id.
func (c *Channel) ID() uint64 { return c.id }

// Send forwards req upstream, rewriting its id under the hood. It fails
// with ErrBrokenPipe once Close has been called or the connection's action
// queue has been closed.
func (c *Channel) Send(req message.RawRequest) error {
	if c.closed.Load() {
		return ErrBrokenPipe
	}
	if !c.conn.actions.Push(actionWrite{channelID: c.id, req: req}) {
		return ErrBrokenPipe
	}
	return nil
}

// Recv blocks for the next response addressed to this channel, delivered
// as a ResponseChannel-typed Response wrapping the upstream reply, or
// until the channel is closed (ok == false) or ctx is done.
func (c *Channel) Recv(ctx context.Context) (resp Response, ok bool, err error) {
	select {
	case resp, ok = <-c.sink:
		return resp, ok, nil
	case <-ctx.Done():
		return Response{}, false, ctx.Err()
	}
}

// Close unregisters the channel. It is idempotent: calling it more than
// once, or concurrently with Send, never panics — subsequent Sends simply
// observe ErrBrokenPipe.
func (c *Channel) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.conn.actions.Push(actionUnregister{channelID: c.id})
}
