// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package keychain implements a concurrent secret store keyed by id, used to
// authenticate reconnecting clients without keeping plaintext passwords
// around any longer than the comparison requires.
package keychain

import (
	"crypto/subtle"
	"sync"
)

// RemoveResult is the outcome of RemoveIfHasKey.
type RemoveResult int

const (
	// InvalidID means no entry existed under the given id.
	InvalidID RemoveResult = iota
	// InvalidKey means an entry existed but the supplied key did not match.
	InvalidKey
	// Removed means the entry existed, the key matched, and it was removed.
	Removed
)

type entry[T any] struct {
	secret []byte
	data   T
}

// Keychain is a concurrency-safe map from id to a secret plus arbitrary
// associated data. Key comparisons run in constant time so timing cannot
// leak how many leading bytes of a guessed key were correct.
type Keychain[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
}

// New returns an empty Keychain.
func New[T any]() *Keychain[T] {
	return &Keychain[T]{entries: make(map[string]entry[T])}
}

// Insert stores secret and data under id, replacing any existing entry.
func (k *Keychain[T]) Insert(id string, secret []byte, data T) {
	cp := make([]byte, len(secret))
	copy(cp, secret)
	k.mu.Lock()
	k.entries[id] = entry[T]{secret: cp, data: data}
	k.mu.Unlock()
}

// HasID reports whether an entry exists under id.
func (k *Keychain[T]) HasID(id string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.entries[id]
	return ok
}

// HasKey reports whether id exists and its stored secret matches key,
// comparing in constant time.
func (k *Keychain[T]) HasKey(id string, key []byte) bool {
	k.mu.RLock()
	e, ok := k.entries[id]
	k.mu.RUnlock()
	if !ok {
		return false
	}
	return constantTimeEqual(e.secret, key)
}

// Get returns the data stored under id, if any.
func (k *Keychain[T]) Get(id string) (data T, ok bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	e, ok := k.entries[id]
	if !ok {
		return data, false
	}
	return e.data, true
}

// Remove deletes the entry under id unconditionally.
func (k *Keychain[T]) Remove(id string) {
	k.mu.Lock()
	delete(k.entries, id)
	k.mu.Unlock()
}

// RemoveIfHasKey removes the entry under id only if key matches its stored
// secret, reporting which of InvalidID, InvalidKey, or Removed occurred. On
// Removed, data holds the entry's associated value.
func (k *Keychain[T]) RemoveIfHasKey(id string, key []byte) (data T, result RemoveResult) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[id]
	if !ok {
		return data, InvalidID
	}
	if !constantTimeEqual(e.secret, key) {
		return data, InvalidKey
	}
	delete(k.entries, id)
	return e.data, Removed
}

// Len reports the number of stored entries.
func (k *Keychain[T]) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.entries)
}

// constantTimeEqual compares a and b in constant time with respect to their
// contents. Slices of differing lengths return false at once, so the timing
// reveals only whether the lengths match; equal-length slices are compared
// with subtle.ConstantTimeCompare.
func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
