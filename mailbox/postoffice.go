// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mailbox implements the post office: a correlation table mapping a
// response's origin_id to the mailbox waiting for it, turning a duplex byte
// stream into a many-to-many request/response bus.
package mailbox

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/relaynet/message"
)

// DefaultCapacity is used by MakeMailbox callers that don't need a specific
// buffer depth.
const DefaultCapacity = 16

// entry is the post-office-owned side of one registered mailbox. The post
// office is the only writer on ch; closing it is therefore always safe from
// here, never from the consumer side.
type entry struct {
	ch             chan message.RawResponse
	dead           atomic.Bool // set once delivery should stop entirely
	consumerClosed atomic.Bool // set by Mailbox.Close; observed by PruneMailboxes
}

// PostOffice correlates inbound responses (by OriginID) with the mailbox
// registered for that id. A response with no registered mailbox is dropped
// silently — this is normal fire-and-forget behavior, not an error.
type PostOffice struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New returns an empty PostOffice.
func New() *PostOffice {
	return &PostOffice{entries: make(map[string]*entry)}
}

// register creates and stores the post-office side of a mailbox for id,
// overwriting any previous registration under the same id (callers are
// expected to use unique request ids; a collision silently supersedes the
// prior mailbox, matching the post office's "last registration wins"
// simplicity — there is no protocol-level guarantee ids are never reused
// within a process lifetime).
func (p *PostOffice) register(id string, capacity int) *entry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	e := &entry{ch: make(chan message.RawResponse, capacity)}
	p.mu.Lock()
	p.entries[id] = e
	p.mu.Unlock()
	return e
}

// Deliver routes resp to the mailbox registered under resp.OriginID. It
// returns true if the message was handed off, false if there was no
// mailbox, the mailbox is full, or the mailbox has been closed — in every
// false case the message is simply dropped.
func (p *PostOffice) Deliver(resp message.RawResponse) bool {
	p.mu.RLock()
	e, ok := p.entries[resp.OriginID]
	p.mu.RUnlock()
	if !ok || e.dead.Load() {
		return false
	}
	select {
	case e.ch <- resp:
		return true
	default:
		return false
	}
}

// ClearMailboxes closes every registered mailbox, as done when the
// underlying transport dies. Every consumer currently or later calling Recv
// observes a closed mailbox.
func (p *PostOffice) ClearMailboxes() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, e := range p.entries {
		if !e.dead.Swap(true) {
			close(e.ch)
		}
		delete(p.entries, id)
	}
}

// PruneMailboxes removes registrations whose consumer side has called
// Mailbox.Close (Go's closest equivalent to "the consumer dropped its
// receiver", since the runtime has no reliable way to observe an abandoned
// channel without an explicit signal). Call periodically; Client runs it
// every 60s.
func (p *PostOffice) PruneMailboxes() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, e := range p.entries {
		if e.consumerClosed.Load() {
			if !e.dead.Swap(true) {
				close(e.ch)
			}
			delete(p.entries, id)
		}
	}
}

// Len reports the number of currently registered mailboxes, primarily for
// tests and diagnostics.
func (p *PostOffice) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}
