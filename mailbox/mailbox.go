// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mailbox

import (
	"context"

	"code.hybscloud.com/relaynet/message"
)

// Mailbox is the consumer-facing, typed view of a registration in a
// PostOffice. Replies matching its id arrive as undecoded RawResponse values
// from the post office and are decoded into T lazily, on Recv.
type Mailbox[T any] struct {
	id     string
	office *PostOffice
	raw    *entry
}

// MakeMailbox registers a new mailbox for id with the given office and
// buffer capacity (DefaultCapacity if capacity <= 0). id is normally the id
// of the outbound request this mailbox expects replies to.
func MakeMailbox[T any](office *PostOffice, id string, capacity int) *Mailbox[T] {
	return &Mailbox[T]{id: id, office: office, raw: office.register(id, capacity)}
}

// ID returns the id this mailbox was registered under.
func (m *Mailbox[T]) ID() string { return m.id }

// Recv blocks until a reply arrives, the mailbox is closed (ok == false), or
// ctx is done. A decode failure on an arrived reply is returned as err with
// ok == true, since the mailbox itself is still open.
func (m *Mailbox[T]) Recv(ctx context.Context) (resp message.Response[T], ok bool, err error) {
	select {
	case raw, open := <-m.raw.ch:
		if !open {
			return message.Response[T]{}, false, nil
		}
		resp.Header = raw.Header
		resp.ID = raw.ID
		resp.OriginID = raw.OriginID
		if decodeErr := message.Decode(raw.Payload, &resp.Payload); decodeErr != nil {
			return resp, true, decodeErr
		}
		return resp, true, nil
	case <-ctx.Done():
		return message.Response[T]{}, false, ctx.Err()
	}
}

// TryRecv is the non-blocking variant of Recv: ok is false if no reply is
// currently buffered (distinct from a closed mailbox, signaled by closed).
func (m *Mailbox[T]) TryRecv() (resp message.Response[T], ok bool, closed bool, err error) {
	select {
	case raw, open := <-m.raw.ch:
		if !open {
			return message.Response[T]{}, false, true, nil
		}
		resp.Header = raw.Header
		resp.ID = raw.ID
		resp.OriginID = raw.OriginID
		if decodeErr := message.Decode(raw.Payload, &resp.Payload); decodeErr != nil {
			return resp, true, false, decodeErr
		}
		return resp, true, false, nil
	default:
		return message.Response[T]{}, false, false, nil
	}
}

// Close marks this mailbox's consumer side as done. The post office's next
// PruneMailboxes pass drops the registration and closes the channel; Close
// itself never touches the channel, since only the post office is allowed to
// close it.
func (m *Mailbox[T]) Close() {
	m.raw.consumerClosed.Store(true)
}
