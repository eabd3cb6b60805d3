// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mailbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/relaynet/mailbox"
	"code.hybscloud.com/relaynet/message"
)

func rawFor(t *testing.T, originID string, payload any) message.RawResponse {
	t.Helper()
	typed := message.NewResponse(originID, payload)
	data, err := message.Encode(typed)
	require.NoError(t, err)
	var raw message.RawResponse
	require.NoError(t, message.Decode(data, &raw))
	return raw
}

func TestDeliverAndRecv(t *testing.T) {
	po := mailbox.New()
	mb := mailbox.MakeMailbox[string](po, "req-1", 4)

	ok := po.Deliver(rawFor(t, "req-1", "hello"))
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, open, err := mb.Recv(ctx)
	require.NoError(t, err)
	require.True(t, open)
	assert.Equal(t, "hello", resp.Payload)
	assert.Equal(t, "req-1", resp.OriginID)
}

func TestDeliverUnknownOriginIsDropped(t *testing.T) {
	po := mailbox.New()
	_ = mailbox.MakeMailbox[string](po, "req-1", 4)

	ok := po.Deliver(rawFor(t, "req-999", "hello"))
	assert.False(t, ok)
}

func TestDeliverFullMailboxIsDropped(t *testing.T) {
	po := mailbox.New()
	_ = mailbox.MakeMailbox[string](po, "req-1", 1)

	assert.True(t, po.Deliver(rawFor(t, "req-1", "a")))
	assert.False(t, po.Deliver(rawFor(t, "req-1", "b")))
}

func TestClearMailboxesClosesAll(t *testing.T) {
	po := mailbox.New()
	mb := mailbox.MakeMailbox[string](po, "req-1", 4)

	po.ClearMailboxes()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, open, err := mb.Recv(ctx)
	require.NoError(t, err)
	assert.False(t, open)
	assert.Equal(t, 0, po.Len())
}

func TestPruneMailboxesRemovesClosedConsumers(t *testing.T) {
	po := mailbox.New()
	mb := mailbox.MakeMailbox[string](po, "req-1", 4)
	mb.Close()

	require.Equal(t, 1, po.Len())
	po.PruneMailboxes()
	assert.Equal(t, 0, po.Len())

	assert.False(t, po.Deliver(rawFor(t, "req-1", "too-late")))
}

func TestTryRecvNonBlocking(t *testing.T) {
	po := mailbox.New()
	mb := mailbox.MakeMailbox[int](po, "req-1", 4)

	_, ok, closed, err := mb.TryRecv()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, closed)

	require.True(t, po.Deliver(rawFor(t, "req-1", 7)))
	resp, ok, closed, err := mb.TryRecv()
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, closed)
	assert.Equal(t, 7, resp.Payload)
}
