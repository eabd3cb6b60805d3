// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package manager

import (
	"code.hybscloud.com/relaynet/auth"
	"code.hybscloud.com/relaynet/message"
)

// RequestType tags which manager operation a Request asks for.
type RequestType string

const (
	RequestCapabilities RequestType = "capabilities"
	RequestLaunch       RequestType = "launch"
	RequestConnect      RequestType = "connect"
	RequestAuthenticate RequestType = "authenticate"
	RequestOpenChannel  RequestType = "open_channel"
	RequestChannel      RequestType = "channel"
	RequestCloseChannel RequestType = "close_channel"
	RequestInfo         RequestType = "info"
	RequestList         RequestType = "list"
	RequestKill         RequestType = "kill"
)

// Request is the manager's own wire request: what a downstream client asks
// the manager process to do on its behalf. Like auth.Message it encodes as
// a plain tagged msgpack map, with only the fields its Type uses set.
type Request struct {
	Type RequestType `msgpack:"type"`

	// RequestLaunch / RequestConnect
	Destination string            `msgpack:"destination,omitempty"`
	Options     map[string]string `msgpack:"options,omitempty"`

	// RequestAuthenticate: a user-supplied answer routed back to the
	// authentication exchange registered under AuthID.
	AuthID string        `msgpack:"auth_id,omitempty"`
	Auth   *auth.Message `msgpack:"msg,omitempty"`

	// RequestOpenChannel / RequestInfo / RequestKill
	ConnectionID uint64 `msgpack:"connection_id,omitempty"`

	// RequestChannel / RequestCloseChannel
	ChannelID uint64              `msgpack:"channel_id,omitempty"`
	Payload   *message.RawRequest `msgpack:"request,omitempty"` // RequestChannel
}

// ResponseType tags which manager reply a Response carries.
type ResponseType string

const (
	ResponseCapabilities  ResponseType = "capabilities"
	ResponseLaunched      ResponseType = "launched"
	ResponseConnected     ResponseType = "connected"
	ResponseAuthenticated ResponseType = "authenticated"
	ResponseChannelOpened ResponseType = "channel_opened"
	ResponseChannel       ResponseType = "channel"
	ResponseChannelClosed ResponseType = "channel_closed"
	ResponseInfo          ResponseType = "info"
	ResponseList          ResponseType = "list"
	ResponseKilled        ResponseType = "killed"
	ResponseError         ResponseType = "error"
)

// ConnectionInfo describes one upstream connection a manager holds.
type ConnectionInfo struct {
	ID          uint64            `msgpack:"id"`
	Destination string            `msgpack:"destination"`
	Options     map[string]string `msgpack:"options,omitempty"`
}

// Response is the manager's own wire reply. ResponseChannel values also
// flow in-process: they are what a Channel's reply sink observes, wrapping
// the upstream response together with the channel id it belongs to.
type Response struct {
	Type ResponseType `msgpack:"type"`

	// ResponseCapabilities: supported request kinds, keyed by kind name.
	Capabilities map[string]string `msgpack:"capabilities,omitempty"`

	// ResponseLaunched: the destination the launched server can now be
	// connected to.
	Destination string `msgpack:"destination,omitempty"`

	// ResponseConnected / ResponseKilled
	ConnectionID uint64 `msgpack:"connection_id,omitempty"`

	// ResponseChannelOpened / ResponseChannel / ResponseChannelClosed
	ChannelID uint64               `msgpack:"channel_id,omitempty"`
	Payload   *message.RawResponse `msgpack:"response,omitempty"` // ResponseChannel

	// ResponseInfo / ResponseList
	Info *ConnectionInfo `msgpack:"info,omitempty"`
	List []uint64        `msgpack:"list,omitempty"`

	// ResponseError
	Error *message.Error `msgpack:"error,omitempty"`
}

// NewChannelResponse wraps an upstream response for delivery to the channel
// it belongs to.
func NewChannelResponse(channelID uint64, res message.RawResponse) Response {
	return Response{Type: ResponseChannel, ChannelID: channelID, Payload: &res}
}

// NewErrorResponse wraps err as a wire-transportable manager error reply.
func NewErrorResponse(kind message.ErrorKind, description string) Response {
	return Response{Type: ResponseError, Error: &message.Error{Kind: kind, Description: description}}
}
