// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"

	"code.hybscloud.com/relaynet/frame"
)

// EncryptionType selects the AEAD algorithm used by an Encryption codec.
//
// Unknown is never instantiated at runtime; it exists so the handshake can
// represent "no such algorithm" during negotiation.
type EncryptionType uint8

const (
	XChaCha20Poly1305 EncryptionType = iota + 1
	UnknownEncryption EncryptionType = 0
)

// String implements fmt.Stringer.
func (t EncryptionType) String() string {
	if t == XChaCha20Poly1305 {
		return "xchacha20poly1305"
	}
	return "unknown"
}

// nonceSize is the XChaCha20-Poly1305 extended nonce length.
const nonceSize = chacha20poly1305.NonceSizeX

// Encryption is a per-frame XChaCha20-Poly1305 AEAD codec. Encode prepends a
// fresh random 24-byte nonce to the ciphertext (which itself carries a
// 16-byte trailing authentication tag); Decode requires at least
// nonceSize+1 bytes of input.
type Encryption struct {
	aead cipherAEAD
}

// cipherAEAD is the subset of cipher.AEAD this package depends on; kept as
// an interface purely to make the codec testable against fakes without
// pulling crypto/cipher into the exported API.
type cipherAEAD interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

// NewEncryption returns an Encryption codec for typ using key (must be
// chacha20poly1305.KeySize == 32 bytes). Returns ErrInvalidInput for an
// unknown type or a key of the wrong length.
func NewEncryption(typ EncryptionType, key []byte) (*Encryption, error) {
	if typ != XChaCha20Poly1305 {
		return nil, ErrInvalidInput
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidInput
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, ErrInvalidInput
	}
	return &Encryption{aead: aead}, nil
}

// Encode seals f's item under a fresh random nonce, returning
// nonce||ciphertext||tag as the new frame item.
func (e *Encryption) Encode(f frame.Frame) (frame.Frame, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return frame.Frame{}, err
	}
	sealed := e.aead.Seal(nonce, nonce, f.Item(), nil)
	return frame.New(sealed), nil
}

// Decode splits the leading nonce from f's item and opens the remainder,
// failing with ErrInvalidData on a too-short input or an authentication
// failure (forged or corrupted ciphertext, or decryption under the wrong
// key).
func (e *Encryption) Decode(f frame.Frame) (frame.Frame, error) {
	item := f.Item()
	if len(item) <= nonceSize {
		return frame.Frame{}, ErrInvalidData
	}
	nonce, ciphertext := item[:nonceSize], item[nonceSize:]
	plain, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return frame.Frame{}, ErrInvalidData
	}
	return frame.New(plain), nil
}
