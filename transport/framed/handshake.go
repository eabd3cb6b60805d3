// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package framed

import (
	"context"
	"crypto/rand"
	"errors"

	"github.com/vmihailenco/msgpack/v5"

	"code.hybscloud.com/relaynet/codec"
	"code.hybscloud.com/relaynet/frame"
)

// ErrHandshakeFailed is codec.ErrInvalidData. A negotiation message that
// fails to decode is reported joined with it; transport, key-generation and
// codec errors during the handshake are returned as they are.
var ErrHandshakeFailed = codec.ErrInvalidData

// HandshakeConfig controls what a handshake offers (initiator) or is
// willing to accept (responder).
type HandshakeConfig struct {
	// Initiator is true for the side that opens the connection; it offers
	// codec parameters and generates the session key.
	Initiator bool

	// PresharedKey encrypts the session key in transit. Required whenever
	// OfferEncryption != codec.UnknownEncryption. Producing this key is an
	// external collaborator's responsibility (credential package / a
	// keychain lookup); the handshake only consumes it.
	PresharedKey []byte

	OfferCompression codec.CompressionType
	CompressionLevel int
	OfferEncryption  codec.EncryptionType
}

// negotiation is the unencrypted, self-describing wire message exchanged
// before any codec is installed.
type negotiation struct {
	CompressionType uint8 `msgpack:"compression_type"`
	CompressionLvl  int   `msgpack:"compression_level"`
	EncryptionType  uint8 `msgpack:"encryption_type"`
}

// Handshake negotiates compression and encryption over t (which must start
// with a codec.Plain codec installed) and installs the agreed composed
// codec (encryption outermost, compression inside) on success.
//
// The backup is frozen for the duration (restoring its prior state after),
// so negotiation traffic is never recorded: the sent/received counters and
// retained frames cover data frames only, which is what the reconnect
// counter exchange resynchronizes on.
func Handshake(ctx context.Context, t *Transport, cfg HandshakeConfig) error {
	wasFrozen := t.Backup().Frozen()
	t.Backup().Freeze()
	defer func() {
		if !wasFrozen {
			t.Backup().Unfreeze()
		}
	}()

	if cfg.Initiator {
		return handshakeInitiator(ctx, t, cfg)
	}
	return handshakeResponder(ctx, t, cfg)
}

func handshakeInitiator(ctx context.Context, t *Transport, cfg HandshakeConfig) error {
	offer := negotiation{
		CompressionType: uint8(cfg.OfferCompression),
		CompressionLvl:  cfg.CompressionLevel,
		EncryptionType:  uint8(cfg.OfferEncryption),
	}
	if err := sendNegotiation(ctx, t, offer); err != nil {
		return err
	}
	accepted, err := recvNegotiation(ctx, t)
	if err != nil {
		return err
	}

	var sessionKey []byte
	if codec.EncryptionType(accepted.EncryptionType) != codec.UnknownEncryption {
		sessionKey = make([]byte, 32)
		if _, err := rand.Read(sessionKey); err != nil {
			return err
		}
		if err := sendEncryptedKey(ctx, t, cfg.PresharedKey, sessionKey); err != nil {
			return err
		}
	}
	return installCodec(t, accepted, sessionKey)
}

func handshakeResponder(ctx context.Context, t *Transport, cfg HandshakeConfig) error {
	offer, err := recvNegotiation(ctx, t)
	if err != nil {
		return err
	}

	accepted := negotiation{CompressionType: offer.CompressionType, CompressionLvl: offer.CompressionLvl}
	if codec.CompressionType(offer.CompressionType) != cfg.OfferCompression {
		accepted.CompressionType = uint8(codec.UnknownCompression)
	}
	if codec.EncryptionType(offer.EncryptionType) == cfg.OfferEncryption && cfg.OfferEncryption != codec.UnknownEncryption {
		accepted.EncryptionType = uint8(cfg.OfferEncryption)
	} else {
		accepted.EncryptionType = uint8(codec.UnknownEncryption)
	}
	if err := sendNegotiation(ctx, t, accepted); err != nil {
		return err
	}

	var sessionKey []byte
	if codec.EncryptionType(accepted.EncryptionType) != codec.UnknownEncryption {
		sessionKey, err = recvEncryptedKey(ctx, t, cfg.PresharedKey)
		if err != nil {
			return err
		}
	}
	return installCodec(t, accepted, sessionKey)
}

func installCodec(t *Transport, n negotiation, sessionKey []byte) error {
	var codecs []codec.Codec
	if codec.EncryptionType(n.EncryptionType) != codec.UnknownEncryption {
		enc, err := codec.NewEncryption(codec.EncryptionType(n.EncryptionType), sessionKey)
		if err != nil {
			return err
		}
		codecs = append(codecs, enc)
	}
	if codec.CompressionType(n.CompressionType) != codec.UnknownCompression {
		comp, err := codec.NewCompression(codec.CompressionType(n.CompressionType), n.CompressionLvl)
		if err != nil {
			return err
		}
		codecs = append(codecs, comp)
	}
	if len(codecs) == 0 {
		t.SetCodec(codec.Plain{})
		return nil
	}
	t.SetCodec(codec.NewChain(codecs...))
	return nil
}

func sendNegotiation(ctx context.Context, t *Transport, n negotiation) error {
	payload, err := msgpack.Marshal(n)
	if err != nil {
		return err
	}
	return t.WriteFrame(ctx, payload)
}

func recvNegotiation(ctx context.Context, t *Transport) (negotiation, error) {
	payload, err := t.ReadFrame(ctx)
	if err != nil {
		return negotiation{}, err
	}
	var n negotiation
	if err := msgpack.Unmarshal(payload, &n); err != nil {
		return negotiation{}, errors.Join(ErrHandshakeFailed, err)
	}
	return n, nil
}

func sendEncryptedKey(ctx context.Context, t *Transport, presharedKey, sessionKey []byte) error {
	keyCodec, err := codec.NewEncryption(codec.XChaCha20Poly1305, presharedKey)
	if err != nil {
		return err
	}
	wrapped, err := keyCodec.Encode(frame.New(sessionKey))
	if err != nil {
		return err
	}
	return t.WriteFrame(ctx, wrapped.Item())
}

func recvEncryptedKey(ctx context.Context, t *Transport, presharedKey []byte) ([]byte, error) {
	keyCodec, err := codec.NewEncryption(codec.XChaCha20Poly1305, presharedKey)
	if err != nil {
		return nil, err
	}
	payload, err := t.ReadFrame(ctx)
	if err != nil {
		return nil, err
	}
	decoded, err := keyCodec.Decode(frame.New(payload))
	if err != nil {
		return nil, err
	}
	return decoded.Item(), nil
}
