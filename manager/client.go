// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package manager implements the manager connection runtime: one upstream
// typed client multiplexed into many downstream channels, each getting its
// own slice of the id space via an "{channel_id}_{req_id}" prefix.
package manager

import (
	"context"
	"sync"

	"code.hybscloud.com/relaynet/message"
	"code.hybscloud.com/relaynet/transport/framed"
)

// UpstreamClient is the collaborator a Connection multiplexes: something
// that can write a request and yield a stream of responses.
type UpstreamClient interface {
	Write(ctx context.Context, req message.RawRequest) error
	Responses() <-chan message.RawResponse
	Close() error
}

// TransportClient is the concrete UpstreamClient backed by a framed
// transport: requests are msgpack-encoded and written as frames; a
// background pump decodes incoming frames into the response channel, the
// manager's equivalent of "the upstream client's default mailbox".
type TransportClient struct {
	t         *framed.Transport
	responses chan message.RawResponse
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewTransportClient wraps t and starts its response pump.
func NewTransportClient(t *framed.Transport) *TransportClient {
	ctx, cancel := context.WithCancel(context.Background())
	c := &TransportClient{
		t:         t,
		responses: make(chan message.RawResponse, 64),
		ctx:       ctx,
		cancel:    cancel,
	}
	go c.pump()
	return c
}

func (c *TransportClient) pump() {
	defer close(c.responses)
	for {
		data, err := c.t.ReadFrame(c.ctx)
		if err != nil {
			return
		}
		var resp message.RawResponse
		if err := message.Decode(data, &resp); err != nil {
			continue
		}
		select {
		case c.responses <- resp:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *TransportClient) Write(ctx context.Context, req message.RawRequest) error {
	data, err := message.Encode(req)
	if err != nil {
		return err
	}
	return c.t.WriteFrame(ctx, data)
}

func (c *TransportClient) Responses() <-chan message.RawResponse { return c.responses }

func (c *TransportClient) Close() error {
	c.closeOnce.Do(c.cancel)
	return nil
}
