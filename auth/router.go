// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"sync"

	"github.com/google/uuid"
)

// Router lets a multiplexing manager sit between a server authenticator and
// a remote client: it holds a registry of auth_id to one-shot reply sink,
// so a challenge routed out to an interactive user can come back in and be
// paired with the prompt that produced it.
type Router struct {
	mu    sync.Mutex
	sinks map[string]chan Message
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{sinks: make(map[string]chan Message)}
}

// NewAuthID returns a fresh, globally unique authentication id.
func NewAuthID() string {
	return uuid.NewString()
}

// Register creates a one-shot reply sink for authID. The returned channel
// receives exactly one Message, then is closed.
func (r *Router) Register(authID string) <-chan Message {
	ch := make(chan Message, 1)
	r.mu.Lock()
	r.sinks[authID] = ch
	r.mu.Unlock()
	return ch
}

// Deliver hands msg to the sink registered under authID, if any, and
// unregisters it. It returns false if no sink was registered (the reply
// arrived after the registration was pruned, or was never registered).
func (r *Router) Deliver(authID string, msg Message) bool {
	r.mu.Lock()
	ch, ok := r.sinks[authID]
	if ok {
		delete(r.sinks, authID)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	ch <- msg
	close(ch)
	return true
}

// Cancel unregisters authID without delivering anything, closing its sink
// so a waiting receiver observes a closed channel rather than blocking
// forever.
func (r *Router) Cancel(authID string) {
	r.mu.Lock()
	ch, ok := r.sinks[authID]
	if ok {
		delete(r.sinks, authID)
	}
	r.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Len reports the number of pending registrations.
func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sinks)
}
