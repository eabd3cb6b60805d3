// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package manager_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/relaynet/codec"
	"code.hybscloud.com/relaynet/manager"
	"code.hybscloud.com/relaynet/message"
	"code.hybscloud.com/relaynet/transport"
	"code.hybscloud.com/relaynet/transport/framed"
)

// startEchoServer reads RawRequests off serverTransport and writes back a
// RawResponse with OriginID set to the request's id and the same payload,
// standing in for the manager's actual upstream peer.
func startEchoServer(t *testing.T, serverTransport *framed.Transport) {
	t.Helper()
	go func() {
		ctx := context.Background()
		for {
			data, err := serverTransport.ReadFrame(ctx)
			if err != nil {
				return
			}
			var req message.RawRequest
			if err := message.Decode(data, &req); err != nil {
				continue
			}
			resp := message.NewResponse(req.ID, req.Payload)
			out, err := message.Encode(resp)
			if err != nil {
				continue
			}
			if err := serverTransport.WriteFrame(ctx, out); err != nil {
				return
			}
		}
	}()
}

func newEchoConnection(t *testing.T) *manager.Connection {
	t.Helper()
	clientCarrier, serverCarrier := transport.NewInMemoryPair(64)
	clientTransport := framed.New(clientCarrier, codec.Plain{})
	serverTransport := framed.New(serverCarrier, codec.Plain{})
	startEchoServer(t, serverTransport)

	client := manager.NewTransportClient(clientTransport)
	return manager.NewConnection(context.Background(), client)
}

func rawRequestWithPayload(t *testing.T, payload string) message.RawRequest {
	t.Helper()
	typed := message.NewRequest(payload)
	data, err := message.Encode(typed)
	require.NoError(t, err)
	var raw message.RawRequest
	require.NoError(t, message.Decode(data, &raw))
	return raw
}

func TestChannelSendRecvRoundTrip(t *testing.T) {
	conn := newEchoConnection(t)
	defer conn.Close()

	ch := conn.OpenChannel(4)
	defer ch.Close()

	req := rawRequestWithPayload(t, "hello")
	require.NoError(t, ch.Send(req))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, ok, err := ch.Recv(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, manager.ResponseChannel, resp.Type)
	assert.Equal(t, ch.ID(), resp.ChannelID)
	require.NotNil(t, resp.Payload)
	assert.Equal(t, req.ID, resp.Payload.OriginID)

	var payload string
	require.NoError(t, message.Decode(resp.Payload.Payload, &payload))
	assert.Equal(t, "hello", payload)
}

func TestTwoChannelsDoNotCrossDeliver(t *testing.T) {
	conn := newEchoConnection(t)
	defer conn.Close()

	chA := conn.OpenChannel(4)
	defer chA.Close()
	chB := conn.OpenChannel(4)
	defer chB.Close()

	reqA := rawRequestWithPayload(t, "from-a")
	reqB := rawRequestWithPayload(t, "from-b")
	require.NoError(t, chA.Send(reqA))
	require.NoError(t, chB.Send(reqB))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	respA, ok, err := chA.Recv(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, respA.Payload)
	var payloadA string
	require.NoError(t, message.Decode(respA.Payload.Payload, &payloadA))
	assert.Equal(t, "from-a", payloadA)

	respB, ok, err := chB.Recv(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, respB.Payload)
	var payloadB string
	require.NoError(t, message.Decode(respB.Payload.Payload, &payloadB))
	assert.Equal(t, "from-b", payloadB)
}

func TestGetRegistered(t *testing.T) {
	conn := newEchoConnection(t)
	defer conn.Close()

	ch := conn.OpenChannel(4)
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.Eventually(t, func() bool {
		ids, err := conn.GetRegistered(ctx)
		return err == nil && len(ids) == 1 && ids[0] == ch.ID()
	}, time.Second, 10*time.Millisecond)
}

func TestSendAfterCloseIsBrokenPipe(t *testing.T) {
	conn := newEchoConnection(t)
	defer conn.Close()

	ch := conn.OpenChannel(4)
	ch.Close()
	ch.Close() // idempotent

	err := ch.Send(rawRequestWithPayload(t, "too-late"))
	assert.ErrorIs(t, err, manager.ErrBrokenPipe)
}

func TestConnectionCloseStopsTasks(t *testing.T) {
	conn := newEchoConnection(t)
	ch := conn.OpenChannel(4)
	require.NoError(t, ch.Send(rawRequestWithPayload(t, "hi")))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, ok, err := ch.Recv(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Wait())
}
