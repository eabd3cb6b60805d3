// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reconnect_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/relaynet/codec"
	"code.hybscloud.com/relaynet/reconnect"
	"code.hybscloud.com/relaynet/transport"
	"code.hybscloud.com/relaynet/transport/framed"
)

// hub hands out a fresh in-memory carrier pair to whichever of two sides
// calls Reconnect first, and the matching other half to whichever calls
// second, so both ends of the test transport advance together the way two
// independent reconnecting peers would.
type hub struct {
	mu    sync.Mutex
	cond  *sync.Cond
	gen   [2]int // last generation handed to each side
	pairs map[int][2]transport.Carrier
	owner int // which side is currently generating the next pair, -1 if none
}

func newHub() *hub {
	h := &hub{pairs: make(map[int][2]transport.Carrier), owner: -1}
	h.cond = sync.NewCond(&h.mu)
	return h
}

func (h *hub) next(side int) transport.Carrier {
	h.mu.Lock()
	defer h.mu.Unlock()
	target := h.gen[side] + 1
	for {
		if pair, ok := h.pairs[target]; ok {
			h.gen[side] = target
			return pair[side]
		}
		if h.owner == -1 {
			h.owner = side
			a, b := transport.NewInMemoryPair(64)
			h.pairs[target] = [2]transport.Carrier{a, b}
			h.gen[side] = target
			h.owner = -1
			h.cond.Broadcast()
			return h.pairs[target][side]
		}
		h.cond.Wait()
	}
}

// hubCarrier wraps transport.Carrier, swapping its active delegate through
// hub on Reconnect.
type hubCarrier struct {
	mu     sync.Mutex
	active transport.Carrier
	hub    *hub
	side   int
}

func (c *hubCarrier) delegate() transport.Carrier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *hubCarrier) TryRead(p []byte) (int, error)  { return c.delegate().TryRead(p) }
func (c *hubCarrier) TryWrite(p []byte) (int, error) { return c.delegate().TryWrite(p) }
func (c *hubCarrier) Ready(ctx context.Context, interest transport.Interest) (transport.ReadyState, error) {
	return c.delegate().Ready(ctx, interest)
}

func (c *hubCarrier) Reconnect(ctx context.Context) error {
	newCarrier := c.hub.next(c.side)
	c.mu.Lock()
	c.active = newCarrier
	c.mu.Unlock()
	return nil
}

func newHubPair() (a, b *hubCarrier) {
	h := newHub()
	initA, initB := transport.NewInMemoryPair(64)
	return &hubCarrier{active: initA, hub: h, side: 0}, &hubCarrier{active: initB, hub: h, side: 1}
}

func TestReconnectFailsWhenCarrierUnsupportsReconnect(t *testing.T) {
	ca, _ := transport.NewInMemoryPair(64)
	tr := framed.New(ca, codec.Plain{})

	_, err := reconnect.Reconnect(context.Background(), tr, framed.HandshakeConfig{Initiator: true})
	require.Error(t, err)

	var stepErr *reconnect.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "carrier_reconnect", stepErr.Step)
	assert.True(t, tr.Backup().Frozen())
}

func TestReconnectReplaysUnacknowledgedFrames(t *testing.T) {
	clientCarrier, serverCarrier := newHubPair()
	client := framed.New(clientCarrier, codec.Plain{})
	server := framed.New(serverCarrier, codec.Plain{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientCfg := framed.HandshakeConfig{Initiator: true}
	serverCfg := framed.HandshakeConfig{Initiator: false}

	errCh := make(chan error, 2)
	go func() { errCh <- framed.Handshake(ctx, client, clientCfg) }()
	go func() { errCh <- framed.Handshake(ctx, server, serverCfg) }()
	require.NoError(t, <-errCh)
	require.NoError(t, <-errCh)

	// Client sends two frames; server only reads the first before the link
	// "drops" (simulated by simply not reading the second before reconnect).
	require.NoError(t, client.WriteFrame(ctx, []byte("frame-1")))
	got, err := server.ReadFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, "frame-1", string(got))

	require.NoError(t, client.WriteFrame(ctx, []byte("frame-2")))

	// Both sides independently observe the link is gone and reconnect.
	var clientResult *reconnect.Result
	var serverResult *reconnect.Result
	var clientErr, serverErr error
	go func() {
		clientResult, clientErr = reconnect.Reconnect(ctx, client, clientCfg)
		errCh <- clientErr
	}()
	go func() {
		serverResult, serverErr = reconnect.Reconnect(ctx, server, serverCfg)
		errCh <- serverErr
	}()
	require.NoError(t, <-errCh)
	require.NoError(t, <-errCh)

	require.NoError(t, clientErr)
	require.NoError(t, serverErr)
	require.NotNil(t, clientResult)
	assert.Equal(t, uint64(1), clientResult.PeerReceived)
	assert.Equal(t, 1, clientResult.Replayed)
	assert.False(t, client.Backup().Frozen())

	// The replayed frame-2 should now be readable on the server.
	got, err = server.ReadFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, "frame-2", string(got))
	_ = serverResult
}
