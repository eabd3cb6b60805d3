// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package message_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/relaynet/message"
)

func TestRequestRoundTripNoHeader(t *testing.T) {
	req := message.NewRequest("payload-string")
	data, err := message.Encode(req)
	require.NoError(t, err)

	var decoded message.Request[string]
	require.NoError(t, message.Decode(data, &decoded))
	assert.Equal(t, req.ID, decoded.ID)
	assert.Equal(t, req.Payload, decoded.Payload)
	assert.Empty(t, decoded.Header)
}

func TestRequestRoundTripWithHeader(t *testing.T) {
	req := message.NewRequest(42)
	req.Header = message.Header{"trace": "abc"}
	data, err := message.Encode(req)
	require.NoError(t, err)

	var decoded message.Request[int]
	require.NoError(t, message.Decode(data, &decoded))
	assert.Equal(t, "abc", decoded.Header["trace"])
	assert.Equal(t, 42, decoded.Payload)
}

func TestResponseRoundTrip(t *testing.T) {
	resp := message.NewResponse("req-1", []byte("bytes"))
	data, err := message.Encode(resp)
	require.NoError(t, err)

	var decoded message.Response[[]byte]
	require.NoError(t, message.Decode(data, &decoded))
	assert.Equal(t, "req-1", decoded.OriginID)
	assert.Equal(t, resp.Payload, decoded.Payload)
}

func TestUntypedForwarding(t *testing.T) {
	req := message.NewRequest(struct {
		Name string `msgpack:"name"`
	}{Name: "hi"})
	data, err := message.Encode(req)
	require.NoError(t, err)

	var raw message.RawRequest
	require.NoError(t, message.Decode(data, &raw))
	assert.Equal(t, req.ID, raw.ID)

	reencoded, err := message.Encode(raw)
	require.NoError(t, err)

	var final struct {
		Name string `msgpack:"name"`
	}
	var typed message.Request[struct {
		Name string `msgpack:"name"`
	}]
	require.NoError(t, message.Decode(reencoded, &typed))
	final = typed.Payload
	assert.Equal(t, "hi", final.Name)
}

func TestErrorKindUnknownFallback(t *testing.T) {
	e := message.Error{Kind: message.ErrorKind("some_future_kind"), Description: "oops"}
	data, err := message.Encode(e)
	require.NoError(t, err)

	var decoded message.Error
	require.NoError(t, message.Decode(data, &decoded))
	assert.Equal(t, message.ErrorKindUnknown, decoded.Kind)
	assert.Equal(t, "oops", decoded.Description)
}

func TestErrorKindKnownRoundTrips(t *testing.T) {
	e := message.Error{Kind: message.ErrorKindBrokenPipe, Description: "pipe gone"}
	data, err := message.Encode(e)
	require.NoError(t, err)

	var decoded message.Error
	require.NoError(t, message.Decode(data, &decoded))
	assert.Equal(t, message.ErrorKindBrokenPipe, decoded.Kind)
}

func TestIDsAreDecimalUint64(t *testing.T) {
	id := message.NewID()
	assert.Regexp(t, `^[0-9]+$`, id)
}
