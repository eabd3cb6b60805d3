// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package manager

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"code.hybscloud.com/relaynet/internal/actionqueue"
	"code.hybscloud.com/relaynet/internal/log"
)

// ErrBrokenPipe is returned by Channel.Send once the channel, or the
// connection it belongs to, has been closed.
var ErrBrokenPipe = fmt.Errorf("manager: broken pipe")

// Connection wraps one UpstreamClient and exposes any number of Channels to
// downstream consumers, multiplexed over the upstream's single id space by
// prefixing every request id with its channel id.
type Connection struct {
	upstream UpstreamClient

	actions  *actionqueue.Queue[action]
	requests *actionqueue.Queue[actionWrite]

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewConnection starts a manager connection's three cooperating tasks over
// upstream. Canceling the returned Connection's context (via Close) aborts
// all three; the upstream client is closed as part of that teardown so it
// doesn't linger holding a lonely-shutdown timer.
func NewConnection(ctx context.Context, upstream UpstreamClient) *Connection {
	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)

	conn := &Connection{
		upstream: upstream,
		actions:  actionqueue.New[action](),
		requests: actionqueue.New[actionWrite](),
		ctx:      ctx,
		cancel:   cancel,
		group:    group,
	}

	group.Go(func() error { return conn.requestTask(gctx) })
	group.Go(func() error { return conn.responseTask(gctx) })
	group.Go(func() error { return conn.actionTask(gctx) })

	return conn
}

// requestTask reads Write actions off the request queue, rewrites the
// request id to "{channel_id}_{req_id}", and fires it on the upstream
// client.
func (conn *Connection) requestTask(ctx context.Context) error {
	entry := log.For("manager.request_task")
	for {
		w, ok := conn.requests.Pop(ctx)
		if !ok {
			return nil
		}
		w.req.ID = strconv.FormatUint(w.channelID, 10) + "_" + w.req.ID
		if err := conn.upstream.Write(ctx, w.req); err != nil {
			entry.WithField(log.FieldChannelID, w.channelID).WithError(err).Debug("upstream write failed")
			continue
		}
	}
}

// responseTask polls the upstream client's response stream and pushes each
// arrival onto the action queue as an actionRead, the only place a response
// is correlated back to a channel.
func (conn *Connection) responseTask(ctx context.Context) error {
	for {
		select {
		case res, ok := <-conn.upstream.Responses():
			if !ok {
				return nil
			}
			conn.actions.Push(actionRead{res: res})
		case <-ctx.Done():
			return nil
		}
	}
}

// actionTask is the sole mutator of the channel registry.
func (conn *Connection) actionTask(ctx context.Context) error {
	entry := log.For("manager.action_task")
	registry := make(map[uint64]chan Response)
	for {
		a, ok := conn.actions.Pop(ctx)
		if !ok {
			for _, sink := range registry {
				close(sink)
			}
			return nil
		}
		switch act := a.(type) {
		case actionRegister:
			registry[act.channelID] = act.sink
		case actionUnregister:
			if sink, ok := registry[act.channelID]; ok {
				close(sink)
				delete(registry, act.channelID)
			}
		case actionGetRegistered:
			ids := make([]uint64, 0, len(registry))
			for id := range registry {
				ids = append(ids, id)
			}
			act.reply <- ids
		case actionWrite:
			conn.requests.Push(act)
		case actionRead:
			channelID, suffix, ok := splitOriginID(act.res.OriginID)
			if !ok {
				entry.WithField(log.FieldReqID, act.res.OriginID).Debug("dropping response with malformed or unparsable origin id")
				continue
			}
			sink, ok := registry[channelID]
			if !ok {
				entry.WithField(log.FieldChannelID, channelID).Debug("dropping response for unregistered channel")
				continue
			}
			act.res.OriginID = suffix
			select {
			case sink <- NewChannelResponse(channelID, act.res):
			default:
				entry.WithField(log.FieldChannelID, channelID).Debug("dropping response: channel mailbox full")
			}
		}
	}
}

// splitOriginID splits "{channel_id}_{req_id}" on the first underscore and
// parses the prefix as a numeric channel id. A missing separator or a
// prefix that doesn't parse both report ok == false; either way the caller
// drops the response, the same as for an unregistered channel.
func splitOriginID(originID string) (channelID uint64, suffix string, ok bool) {
	idx := strings.IndexByte(originID, '_')
	if idx < 0 {
		return 0, "", false
	}
	channelID, err := strconv.ParseUint(originID[:idx], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return channelID, originID[idx+1:], true
}

// OpenChannel allocates a random numeric channel id, registers it, and
// returns a handle for sending requests and receiving that channel's
// responses.
func (conn *Connection) OpenChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = 16
	}
	id := randomID()
	sink := make(chan Response, capacity)
	conn.actions.Push(actionRegister{channelID: id, sink: sink})
	return &Channel{id: id, conn: conn, sink: sink}
}

// GetRegistered returns a snapshot of currently open channel ids.
func (conn *Connection) GetRegistered(ctx context.Context) ([]uint64, error) {
	reply := make(chan []uint64, 1)
	conn.actions.Push(actionGetRegistered{reply: reply})
	select {
	case ids := <-reply:
		return ids, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close aborts all three tasks and closes the upstream client. It does not
// block for the tasks to fully unwind; callers that need that should use
// Wait.
func (conn *Connection) Close() error {
	conn.cancel()
	conn.actions.Close()
	conn.requests.Close()
	return conn.upstream.Close()
}

// Wait blocks until all three tasks have exited, returning the first
// non-nil error any of them returned.
func (conn *Connection) Wait() error {
	return conn.group.Wait()
}
