// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mailbox

import (
	"context"
	"errors"
	"io"
	"time"

	"code.hybscloud.com/relaynet/internal/log"
	"code.hybscloud.com/relaynet/message"
	"code.hybscloud.com/relaynet/transport/framed"
)

// ErrTimedOut is returned by the timeout variants of Send and Recv when
// the deadline expires before a reply arrives.
var ErrTimedOut = errors.New("mailbox: timed out")

// PruneInterval is how often a Client's background loop reclaims
// registrations whose consumer closed their mailbox.
const PruneInterval = 60 * time.Second

// Client ties a framed transport to a PostOffice: a background dispatcher
// reads inbound frames, decodes them as responses, and delivers each to
// the mailbox registered under its origin id. The write half stays with
// the caller — one goroutine at a time, per the framed transport's
// ownership rule.
type Client struct {
	t      *framed.Transport
	office *PostOffice
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient wraps t and starts its dispatcher and prune loops. The client
// owns t's read half from here on.
func NewClient(t *framed.Transport) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		t:      t,
		office: New(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.dispatch(ctx)
	go c.prune(ctx)
	return c
}

// Office exposes the client's post office, for callers that register
// mailboxes directly.
func (c *Client) Office() *PostOffice { return c.office }

func (c *Client) dispatch(ctx context.Context) {
	defer close(c.done)
	defer c.office.ClearMailboxes()
	entry := log.For("mailbox.client")
	for {
		payload, err := c.t.ReadFrame(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				entry.WithError(err).Debug("dispatcher stopping")
			}
			return
		}
		var resp message.RawResponse
		if err := message.Decode(payload, &resp); err != nil {
			entry.WithError(err).Debug("dropping undecodable response")
			continue
		}
		c.office.Deliver(resp)
	}
}

func (c *Client) prune(ctx context.Context) {
	ticker := time.NewTicker(PruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.office.PruneMailboxes()
		case <-ctx.Done():
			return
		}
	}
}

// Close stops the dispatcher; every open mailbox observes close.
func (c *Client) Close() {
	c.cancel()
	<-c.done
}

// Fire writes req with no interest in a reply. Any response the peer
// sends anyway is dropped by the post office.
func Fire[T any](ctx context.Context, c *Client, req message.Request[T]) error {
	data, err := message.Encode(req)
	if err != nil {
		return err
	}
	return c.t.WriteFrame(ctx, data)
}

// Mail writes req and returns the mailbox its replies will arrive on —
// the streaming "mail" semantics. The caller iterates Recv until ok is
// false and should Close the mailbox when done so the prune loop can
// reclaim it.
func Mail[T, R any](ctx context.Context, c *Client, req message.Request[T], capacity int) (*Mailbox[R], error) {
	box := MakeMailbox[R](c.office, req.ID, capacity)
	if err := Fire(ctx, c, req); err != nil {
		box.Close()
		return nil, err
	}
	return box, nil
}

// Send writes req and blocks for the first reply — the one-shot "send"
// semantics. The mailbox is closed afterwards; later replies to the same
// id are dropped by the prune cycle.
func Send[T, R any](ctx context.Context, c *Client, req message.Request[T]) (message.Response[R], error) {
	box, err := Mail[T, R](ctx, c, req, 1)
	if err != nil {
		return message.Response[R]{}, err
	}
	defer box.Close()
	resp, ok, err := box.Recv(ctx)
	if err != nil {
		return message.Response[R]{}, err
	}
	if !ok {
		return message.Response[R]{}, io.ErrUnexpectedEOF
	}
	return resp, nil
}

// SendTimeout is Send bounded by a deadline; expiry surfaces as
// ErrTimedOut.
func SendTimeout[T, R any](ctx context.Context, c *Client, req message.Request[T], timeout time.Duration) (message.Response[R], error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := Send[T, R](ctx, c, req)
	if errors.Is(err, context.DeadlineExceeded) {
		return message.Response[R]{}, ErrTimedOut
	}
	return resp, err
}

// RecvTimeout is Mailbox.Recv bounded by a deadline; expiry surfaces as
// ErrTimedOut.
func (m *Mailbox[T]) RecvTimeout(ctx context.Context, timeout time.Duration) (message.Response[T], bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, ok, err := m.Recv(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return message.Response[T]{}, false, ErrTimedOut
	}
	return resp, ok, err
}
