// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"fmt"

	"code.hybscloud.com/relaynet/transport/framed"
)

// ErrPermissionDenied is returned by RunClient when the server emits a
// Fatal-kind Error: a fatal authentication error always terminates the
// handshake as permission-denied.
var ErrPermissionDenied = fmt.Errorf("auth: permission denied")

// Handler implements the consumer side of the authentication state
// machine: each callback answers one server prompt. OnInfo, OnError,
// OnStartMethod, and OnFinished return nothing because those message types
// expect no reply.
type Handler interface {
	// OnInitialization receives the methods the server offers and returns
	// the subset this client is willing to attempt.
	OnInitialization(methods []string) (chosen []string)
	OnStartMethod(method string)
	OnChallenge(questions []Question, options map[string]string) (answers []string)
	OnVerification(kind, text string) (valid bool)
	OnInfo(text string)
	OnError(kind ErrorKind, text string)
	OnFinished()
}

// RunClient drives the client side of the authentication loop over t,
// dispatching each received Message to the matching Handler callback and
// replying where the state machine calls for a response. It returns nil on
// Finished, ErrPermissionDenied on a Fatal error, or the first transport/
// decode error encountered.
func RunClient(ctx context.Context, t *framed.Transport, h Handler) error {
	for {
		msg, err := recv(ctx, t)
		if err != nil {
			return err
		}
		switch msg.Type {
		case TypeInitialization:
			chosen := h.OnInitialization(msg.Methods)
			if err := send(ctx, t, NewInitializationResponse(msg.AuthID, chosen)); err != nil {
				return err
			}
		case TypeStartMethod:
			h.OnStartMethod(msg.Method)
		case TypeChallenge:
			answers := h.OnChallenge(msg.Questions, msg.Options)
			if err := send(ctx, t, NewChallengeResponse(msg.AuthID, answers)); err != nil {
				return err
			}
		case TypeVerification:
			valid := h.OnVerification(msg.Kind, msg.Text)
			if err := send(ctx, t, NewVerificationResponse(msg.AuthID, valid)); err != nil {
				return err
			}
		case TypeInfo:
			h.OnInfo(msg.Text)
		case TypeError:
			kind := ErrorKind(msg.Kind)
			h.OnError(kind, msg.Text)
			if kind == ErrorKindFatal {
				return ErrPermissionDenied
			}
		case TypeFinished:
			h.OnFinished()
			return nil
		default:
			return fmt.Errorf("auth: unexpected message type %q", msg.Type)
		}
	}
}

func send(ctx context.Context, t *framed.Transport, m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	return t.WriteFrame(ctx, data)
}

func recv(ctx context.Context, t *framed.Transport) (Message, error) {
	data, err := t.ReadFrame(ctx)
	if err != nil {
		return Message{}, err
	}
	return Decode(data)
}
