// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package manager

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"code.hybscloud.com/relaynet/auth"
	"code.hybscloud.com/relaynet/internal/log"
	"code.hybscloud.com/relaynet/message"
)

// LaunchHandler starts a fresh server for destination and returns the
// destination the started server can then be connected to. One handler is
// registered per URL scheme.
type LaunchHandler interface {
	Launch(ctx context.Context, destination string, options map[string]string) (string, error)
}

// ConnectHandler dials destination and produces the upstream client a
// Connection will multiplex. One handler is registered per URL scheme.
type ConnectHandler interface {
	Connect(ctx context.Context, destination string, options map[string]string) (UpstreamClient, error)
}

// LaunchFunc adapts a function to the LaunchHandler interface.
type LaunchFunc func(ctx context.Context, destination string, options map[string]string) (string, error)

func (f LaunchFunc) Launch(ctx context.Context, destination string, options map[string]string) (string, error) {
	return f(ctx, destination, options)
}

// ConnectFunc adapts a function to the ConnectHandler interface.
type ConnectFunc func(ctx context.Context, destination string, options map[string]string) (UpstreamClient, error)

func (f ConnectFunc) Connect(ctx context.Context, destination string, options map[string]string) (UpstreamClient, error) {
	return f(ctx, destination, options)
}

// managed is the manager's bookkeeping for one upstream connection.
type managed struct {
	info ConnectionInfo
	conn *Connection
}

// openChannel is the manager's bookkeeping for one channel a downstream
// consumer holds open; cancel stops its response pump.
type openChannel struct {
	connectionID uint64
	ch           *Channel
	cancel       context.CancelFunc
}

// randomID mints a random 64-bit id, shared by the connection and channel
// id spaces (both are sparse enough that collisions are not a practical
// concern, matching the decimal-random-uint64 request id scheme).
func randomID() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint64(b[:])
}

// Manager brokers downstream manager Requests against a set of upstream
// connections: launching and dialing per URL scheme, holding the
// connection registry, multiplexing channels, and routing authentication
// answers back to their pending exchanges.
type Manager struct {
	mu         sync.Mutex
	launchers  map[string]LaunchHandler
	connectors map[string]ConnectHandler
	conns      map[uint64]*managed
	channels   map[uint64]*openChannel

	router *auth.Router
}

// New returns an empty Manager with no handlers registered.
func New() *Manager {
	return &Manager{
		launchers:  make(map[string]LaunchHandler),
		connectors: make(map[string]ConnectHandler),
		conns:      make(map[uint64]*managed),
		channels:   make(map[uint64]*openChannel),
		router:     auth.NewRouter(),
	}
}

// RegisterLauncher installs h as the launch handler for scheme.
func (m *Manager) RegisterLauncher(scheme string, h LaunchHandler) {
	m.mu.Lock()
	m.launchers[scheme] = h
	m.mu.Unlock()
}

// RegisterConnector installs h as the connect handler for scheme.
func (m *Manager) RegisterConnector(scheme string, h ConnectHandler) {
	m.mu.Lock()
	m.connectors[scheme] = h
	m.mu.Unlock()
}

// Router exposes the auth_id registry pairing server prompts with
// user-supplied answers routed through RequestAuthenticate.
func (m *Manager) Router() *auth.Router { return m.router }

// Capabilities enumerates the request kinds this manager supports.
func (m *Manager) Capabilities() map[string]string {
	return map[string]string{
		string(RequestCapabilities): "list supported request kinds",
		string(RequestLaunch):       "launch a server for a destination",
		string(RequestConnect):      "connect to a destination",
		string(RequestAuthenticate): "answer a pending authentication exchange",
		string(RequestOpenChannel):  "open a channel on a connection",
		string(RequestChannel):      "forward a request over an open channel",
		string(RequestCloseChannel): "close an open channel",
		string(RequestInfo):         "describe a connection",
		string(RequestList):         "list connection ids",
		string(RequestKill):         "kill a connection",
	}
}

// Launch resolves destination's scheme to a registered launch handler and
// runs it, returning the destination the launched server listens on.
func (m *Manager) Launch(ctx context.Context, destination string, options map[string]string) (string, error) {
	scheme, err := schemeOf(destination)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	h, ok := m.launchers[scheme]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("manager: no launch handler for scheme %q", scheme)
	}
	return h.Launch(ctx, destination, options)
}

// Connect resolves destination's scheme to a registered connect handler,
// dials it, and wraps the produced upstream client in a new Connection
// registered under a fresh random id.
func (m *Manager) Connect(ctx context.Context, destination string, options map[string]string) (uint64, error) {
	scheme, err := schemeOf(destination)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	h, ok := m.connectors[scheme]
	m.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("manager: no connect handler for scheme %q", scheme)
	}
	upstream, err := h.Connect(ctx, destination, options)
	if err != nil {
		return 0, err
	}

	// The connection's lifetime is the manager's, not the Connect request's.
	conn := NewConnection(context.Background(), upstream)
	id := randomID()
	m.mu.Lock()
	m.conns[id] = &managed{
		info: ConnectionInfo{ID: id, Destination: destination, Options: options},
		conn: conn,
	}
	m.mu.Unlock()
	log.For("manager").WithField(log.FieldConnID, id).Info("connected upstream")
	return id, nil
}

// Info describes the connection registered under id.
func (m *Manager) Info(id uint64) (ConnectionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.conns[id]
	if !ok {
		return ConnectionInfo{}, fmt.Errorf("manager: no connection %d", id)
	}
	return mc.info, nil
}

// List returns the ids of every registered connection, ascending.
func (m *Manager) List() []uint64 {
	m.mu.Lock()
	ids := make([]uint64, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Kill closes the connection registered under id, closing every channel
// open on it first.
func (m *Manager) Kill(id uint64) error {
	m.mu.Lock()
	mc, ok := m.conns[id]
	if ok {
		delete(m.conns, id)
		for chID, oc := range m.channels {
			if oc.connectionID == id {
				oc.cancel()
				oc.ch.Close()
				delete(m.channels, chID)
			}
		}
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("manager: no connection %d", id)
	}
	return mc.conn.Close()
}

// OpenChannel opens a channel on the connection registered under
// connectionID. Responses arriving on the channel are pushed to emit as
// ResponseChannel values until the channel closes.
func (m *Manager) OpenChannel(connectionID uint64, emit func(Response)) (uint64, error) {
	m.mu.Lock()
	mc, ok := m.conns[connectionID]
	m.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("manager: no connection %d", connectionID)
	}

	ch := mc.conn.OpenChannel(0)
	pumpCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.channels[ch.ID()] = &openChannel{connectionID: connectionID, ch: ch, cancel: cancel}
	m.mu.Unlock()

	go func() {
		for {
			resp, ok, err := ch.Recv(pumpCtx)
			if !ok || err != nil {
				return
			}
			emit(resp)
		}
	}()
	return ch.ID(), nil
}

// Send forwards req over the channel registered under channelID.
func (m *Manager) Send(channelID uint64, req message.RawRequest) error {
	m.mu.Lock()
	oc, ok := m.channels[channelID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("manager: no channel %d", channelID)
	}
	return oc.ch.Send(req)
}

// CloseChannel closes the channel registered under channelID.
func (m *Manager) CloseChannel(channelID uint64) error {
	m.mu.Lock()
	oc, ok := m.channels[channelID]
	if ok {
		delete(m.channels, channelID)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("manager: no channel %d", channelID)
	}
	oc.cancel()
	oc.ch.Close()
	return nil
}

// Authenticate routes a user-supplied answer back to the pending exchange
// registered under authID. A false return means no exchange was pending,
// which the caller reports as an error reply.
func (m *Manager) Authenticate(authID string, msg auth.Message) bool {
	return m.router.Deliver(authID, msg)
}

// Close kills every connection.
func (m *Manager) Close() {
	for _, id := range m.List() {
		_ = m.Kill(id)
	}
}

// Handle dispatches one manager Request and returns its immediate reply.
// Channel traffic that continues after the reply (responses streaming in
// on a channel opened here) is delivered through emit.
func (m *Manager) Handle(ctx context.Context, req Request, emit func(Response)) Response {
	if emit == nil {
		emit = func(Response) {}
	}
	switch req.Type {
	case RequestCapabilities:
		return Response{Type: ResponseCapabilities, Capabilities: m.Capabilities()}
	case RequestLaunch:
		destination, err := m.Launch(ctx, req.Destination, req.Options)
		if err != nil {
			return NewErrorResponse(message.ErrorKindInvalidInput, err.Error())
		}
		return Response{Type: ResponseLaunched, Destination: destination}
	case RequestConnect:
		id, err := m.Connect(ctx, req.Destination, req.Options)
		if err != nil {
			return NewErrorResponse(message.ErrorKindConnectionRefused, err.Error())
		}
		return Response{Type: ResponseConnected, ConnectionID: id}
	case RequestAuthenticate:
		if req.Auth == nil || !m.Authenticate(req.AuthID, *req.Auth) {
			return NewErrorResponse(message.ErrorKindInvalidInput, "no pending authentication exchange")
		}
		return Response{Type: ResponseAuthenticated}
	case RequestOpenChannel:
		id, err := m.OpenChannel(req.ConnectionID, emit)
		if err != nil {
			return NewErrorResponse(message.ErrorKindNotConnected, err.Error())
		}
		return Response{Type: ResponseChannelOpened, ChannelID: id}
	case RequestChannel:
		if req.Payload == nil {
			return NewErrorResponse(message.ErrorKindInvalidInput, "channel request carries no payload")
		}
		if err := m.Send(req.ChannelID, *req.Payload); err != nil {
			return NewErrorResponse(message.ErrorKindBrokenPipe, err.Error())
		}
		return Response{Type: ResponseChannel, ChannelID: req.ChannelID}
	case RequestCloseChannel:
		if err := m.CloseChannel(req.ChannelID); err != nil {
			return NewErrorResponse(message.ErrorKindBrokenPipe, err.Error())
		}
		return Response{Type: ResponseChannelClosed, ChannelID: req.ChannelID}
	case RequestInfo:
		info, err := m.Info(req.ConnectionID)
		if err != nil {
			return NewErrorResponse(message.ErrorKindNotConnected, err.Error())
		}
		return Response{Type: ResponseInfo, Info: &info}
	case RequestList:
		return Response{Type: ResponseList, List: m.List()}
	case RequestKill:
		if err := m.Kill(req.ConnectionID); err != nil {
			return NewErrorResponse(message.ErrorKindNotConnected, err.Error())
		}
		return Response{Type: ResponseKilled, ConnectionID: req.ConnectionID}
	default:
		return NewErrorResponse(message.ErrorKindInvalidInput, "unrecognized request type: "+string(req.Type))
	}
}

func schemeOf(destination string) (string, error) {
	u, err := url.Parse(destination)
	if err != nil {
		return "", fmt.Errorf("manager: parse destination: %w", err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("manager: destination %q has no scheme", destination)
	}
	return u.Scheme, nil
}
