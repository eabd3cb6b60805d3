// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"fmt"

	"code.hybscloud.com/relaynet/transport/framed"
)

// Session is the server side's handle for driving one authentication
// method's exchange with the client, scoped to a single auth_id.
type Session struct {
	t      *framed.Transport
	authID string
}

// Challenge sends a Challenge message and waits for the matching
// ChallengeResponse, returning the client's answers.
func (s *Session) Challenge(ctx context.Context, questions []Question, options map[string]string) ([]string, error) {
	if err := send(ctx, s.t, NewChallenge(s.authID, questions, options)); err != nil {
		return nil, err
	}
	msg, err := recv(ctx, s.t)
	if err != nil {
		return nil, err
	}
	if msg.Type != TypeChallengeResponse {
		return nil, fmt.Errorf("auth: expected challenge_response, got %q", msg.Type)
	}
	return msg.Answers, nil
}

// Verify sends a Verification message and waits for the matching
// VerificationResponse, returning whether the client reported the prompt
// valid.
func (s *Session) Verify(ctx context.Context, kind, text string) (bool, error) {
	if err := send(ctx, s.t, NewVerification(s.authID, kind, text)); err != nil {
		return false, err
	}
	msg, err := recv(ctx, s.t)
	if err != nil {
		return false, err
	}
	if msg.Type != TypeVerificationResponse {
		return false, fmt.Errorf("auth: expected verification_response, got %q", msg.Type)
	}
	return msg.Valid, nil
}

// Info sends an informational message with no expected reply.
func (s *Session) Info(ctx context.Context, text string) error {
	return send(ctx, s.t, NewInfo(s.authID, text))
}

// Method is a server-side authentication method: given a Session it drives
// zero or more Challenge/Verification/Info exchanges and returns nil on
// success. An error aborts the whole handshake with a Fatal Error message.
type Method interface {
	Name() string
	Authenticate(ctx context.Context, session *Session) error
}

// RunServer drives the server side of the authentication loop: it offers
// the names of every registered method, negotiates which the client is
// willing to attempt, then runs each in turn. The first method error aborts
// the handshake with Fatal; completing every chosen method sends Finished.
func RunServer(ctx context.Context, t *framed.Transport, authID string, methods []Method) error {
	byName := make(map[string]Method, len(methods))
	names := make([]string, 0, len(methods))
	for _, m := range methods {
		byName[m.Name()] = m
		names = append(names, m.Name())
	}

	if err := send(ctx, t, NewInitialization(authID, names)); err != nil {
		return err
	}
	msg, err := recv(ctx, t)
	if err != nil {
		return err
	}
	if msg.Type != TypeInitializationResponse {
		return fmt.Errorf("auth: expected initialization_response, got %q", msg.Type)
	}

	for _, name := range msg.Methods {
		method, ok := byName[name]
		if !ok {
			if err := send(ctx, t, NewError(authID, ErrorKindFatal, "unknown method: "+name)); err != nil {
				return err
			}
			return ErrPermissionDenied
		}
		if err := send(ctx, t, NewStartMethod(authID, name)); err != nil {
			return err
		}
		session := &Session{t: t, authID: authID}
		if err := method.Authenticate(ctx, session); err != nil {
			_ = send(ctx, t, NewError(authID, ErrorKindFatal, err.Error()))
			return err
		}
	}

	return send(ctx, t, NewFinished(authID))
}
