// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/relaynet/message"
)

func TestSplitOriginID(t *testing.T) {
	tests := []struct {
		name       string
		originID   string
		wantID     uint64
		wantSuffix string
		wantOK     bool
	}{
		{"numeric prefix", "42_req-1", 42, "req-1", true},
		{"suffix keeps later separators", "7_a_b", 7, "a_b", true},
		{"no separator", "req-1", 0, "", false},
		{"unparsable prefix", "abc_req-1", 0, "", false},
		{"negative prefix", "-1_req-1", 0, "", false},
		{"empty prefix", "_req-1", 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, suffix, ok := splitOriginID(tt.originID)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, id)
				assert.Equal(t, tt.wantSuffix, suffix)
			}
		})
	}
}

// stubUpstream records written requests and exposes a controllable response
// stream, so the three tasks can be driven without a real transport.
type stubUpstream struct {
	written   chan message.RawRequest
	responses chan message.RawResponse
}

func newStubUpstream() *stubUpstream {
	return &stubUpstream{
		written:   make(chan message.RawRequest, 8),
		responses: make(chan message.RawResponse, 8),
	}
}

func (u *stubUpstream) Write(_ context.Context, req message.RawRequest) error {
	u.written <- req
	return nil
}

func (u *stubUpstream) Responses() <-chan message.RawResponse { return u.responses }
func (u *stubUpstream) Close() error                          { return nil }

func TestRequestTaskPrefixesNumericChannelID(t *testing.T) {
	upstream := newStubUpstream()
	conn := NewConnection(context.Background(), upstream)
	defer conn.Close()

	conn.actions.Push(actionWrite{channelID: 42, req: message.RawRequest{ID: "req-1"}})

	select {
	case got := <-upstream.written:
		assert.Equal(t, "42_req-1", got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for upstream write")
	}
}

func TestActionReadRestoresOriginAndRoutesByNumericID(t *testing.T) {
	upstream := newStubUpstream()
	conn := NewConnection(context.Background(), upstream)
	defer conn.Close()

	sink := make(chan Response, 1)
	conn.actions.Push(actionRegister{channelID: 42, sink: sink})

	upstream.responses <- message.RawResponse{ID: "srv-1", OriginID: "42_req-1"}

	select {
	case got := <-sink:
		require.Equal(t, ResponseChannel, got.Type)
		assert.Equal(t, uint64(42), got.ChannelID)
		require.NotNil(t, got.Payload)
		assert.Equal(t, "req-1", got.Payload.OriginID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel delivery")
	}
}

func TestActionReadDropsUnroutableOrigins(t *testing.T) {
	upstream := newStubUpstream()
	conn := NewConnection(context.Background(), upstream)
	defer conn.Close()

	sink := make(chan Response, 4)
	conn.actions.Push(actionRegister{channelID: 42, sink: sink})

	// No separator, unparsable prefix, and an unregistered channel: all
	// dropped silently. The valid one after them is the only delivery.
	upstream.responses <- message.RawResponse{OriginID: "req-1"}
	upstream.responses <- message.RawResponse{OriginID: "abc_req-1"}
	upstream.responses <- message.RawResponse{OriginID: "7_req-1"}
	upstream.responses <- message.RawResponse{OriginID: "42_req-1"}

	select {
	case got := <-sink:
		require.NotNil(t, got.Payload)
		assert.Equal(t, "req-1", got.Payload.OriginID)
		assert.Equal(t, uint64(42), got.ChannelID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel delivery")
	}
	assert.Empty(t, sink)
}
