// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package credential supplements the transport with pre-shared key
// generation/encoding and a persisted, single-line credential file format
// ("host:port:hexkey"), plus an ephemeral port range helper for launch
// collaborators. Neither piece is part of the core transport invariant
// surface; both exist because the manager's launch/connect collaborator
// interface needs concrete, testable helpers.
package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// SecretKeySize is the only key length this module generates or accepts:
// 32 bytes, matching the XChaCha20-Poly1305 codec's key requirement.
const SecretKeySize = 32

// ErrInvalidKey is returned when a key fails to parse or has the wrong
// length.
var ErrInvalidKey = fmt.Errorf("credential: invalid secret key")

// SecretKey32 is a fixed-size 256-bit secret key.
type SecretKey32 [SecretKeySize]byte

// GenerateSecretKey32 returns a new random key sourced from crypto/rand.
func GenerateSecretKey32() (SecretKey32, error) {
	var k SecretKey32
	if _, err := rand.Read(k[:]); err != nil {
		return SecretKey32{}, fmt.Errorf("credential: generate key: %w", err)
	}
	return k, nil
}

// String hex-encodes the key. Matches the Rust original's Display impl,
// which renders the key as lowercase hex for inclusion in connection
// strings and credential files.
func (k SecretKey32) String() string {
	return hex.EncodeToString(k[:])
}

// ParseSecretKey32 decodes a hex string into a 32-byte key, failing if the
// decoded length is anything other than 32 bytes.
func ParseSecretKey32(s string) (SecretKey32, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return SecretKey32{}, ErrInvalidKey
	}
	if len(b) != SecretKeySize {
		return SecretKey32{}, ErrInvalidKey
	}
	var k SecretKey32
	copy(k[:], b)
	return k, nil
}

// Equal compares two keys in constant time.
func (k SecretKey32) Equal(other SecretKey32) bool {
	return subtle.ConstantTimeCompare(k[:], other[:]) == 1
}

// Bytes returns the key's bytes as a slice, e.g. for use as a codec key.
func (k SecretKey32) Bytes() []byte {
	return k[:]
}
