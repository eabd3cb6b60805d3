// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command relaynet-probe is a smoke-test harness, not a control-plane CLI:
// it wires an in-memory client and server together over the full stack
// (carrier, framed transport, handshake, envelopes, post office) and runs
// one request/response round trip, printing what happened at each stage.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"code.hybscloud.com/relaynet/codec"
	"code.hybscloud.com/relaynet/credential"
	"code.hybscloud.com/relaynet/internal/log"
	"code.hybscloud.com/relaynet/mailbox"
	"code.hybscloud.com/relaynet/message"
	"code.hybscloud.com/relaynet/op"
	"code.hybscloud.com/relaynet/transport"
	"code.hybscloud.com/relaynet/transport/framed"
)

func main() {
	if err := run(os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "relaynet-probe:", err)
		os.Exit(1)
	}
}

func run(out io.Writer) error {
	logger := log.For("probe")

	presharedKey, err := credential.GenerateSecretKey32()
	if err != nil {
		return fmt.Errorf("generate preshared key: %w", err)
	}
	logger.WithField("key", presharedKey.String()[:8]+"...").Info("generated preshared key")

	clientCarrier, serverCarrier := transport.NewInMemoryPair(0)
	clientTransport := framed.New(clientCarrier, codec.Plain{})
	serverTransport := framed.New(serverCarrier, codec.Plain{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	handshakeCfg := func(initiator bool) framed.HandshakeConfig {
		return framed.HandshakeConfig{
			Initiator:        initiator,
			PresharedKey:     presharedKey.Bytes(),
			OfferCompression: codec.Zlib,
			CompressionLevel: codec.DefaultCompressionLevel,
			OfferEncryption:  codec.XChaCha20Poly1305,
		}
	}

	handshakeErr := make(chan error, 1)
	go func() {
		handshakeErr <- framed.Handshake(ctx, serverTransport, handshakeCfg(false))
	}()
	if err := framed.Handshake(ctx, clientTransport, handshakeCfg(true)); err != nil {
		return fmt.Errorf("client handshake: %w", err)
	}
	if err := <-handshakeErr; err != nil {
		return fmt.Errorf("server handshake: %w", err)
	}
	logger.Info("handshake complete: zlib + xchacha20poly1305 installed")

	serverDone := make(chan error, 1)
	go serveOnce(ctx, serverTransport, serverDone)

	client := mailbox.NewClient(clientTransport)
	defer client.Close()

	req := message.NewRequest[op.Op](op.SystemInfo())
	logger.WithField("req_id", req.ID).Info("sending system_info request")
	resp, err := mailbox.Send[op.Op, op.Result](ctx, client, req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	if resp.OriginID != req.ID {
		return fmt.Errorf("origin_id mismatch: got %q, want %q", resp.OriginID, req.ID)
	}

	if err := <-serverDone; err != nil {
		return fmt.Errorf("server loop: %w", err)
	}

	fmt.Fprintf(out, "round trip ok: origin_id=%s kind=%s family=%s hostname=%s arch=%s\n",
		resp.OriginID, resp.Payload.Kind, resp.Payload.Family, resp.Payload.Hostname, resp.Payload.Arch)
	fmt.Fprintf(out, "backup: sent=%d received=%d\n",
		clientTransport.Backup().SentCount(), clientTransport.Backup().ReceivedCount())
	return nil
}

// serveOnce reads exactly one request off t, dispatches it through an
// op.LocalHandler, and writes back exactly one response. A real server
// loops; the probe only needs one round trip to prove the stack works.
func serveOnce(ctx context.Context, t *framed.Transport, done chan<- error) {
	payload, err := t.ReadFrame(ctx)
	if err != nil {
		done <- fmt.Errorf("server read frame: %w", err)
		return
	}
	var req message.RawRequest
	if err := message.Decode(payload, &req); err != nil {
		done <- fmt.Errorf("server decode request: %w", err)
		return
	}
	var o op.Op
	if err := message.Decode(req.Payload, &o); err != nil {
		done <- fmt.Errorf("server decode op: %w", err)
		return
	}

	handler := op.NewLocalHandler(nil)
	defer handler.Close()
	result := handler.Handle(ctx, o)
	resp := message.NewResponse(req.ID, result)
	wire, err := message.Encode(resp)
	if err != nil {
		done <- fmt.Errorf("server encode response: %w", err)
		return
	}
	done <- t.WriteFrame(ctx, wire)
}
