// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"fmt"
)

// PasswordMethod is a minimal server-side Method: it challenges the client
// for a password and fails the handshake if it doesn't match.
type PasswordMethod struct {
	Password string
}

func (PasswordMethod) Name() string { return "password" }

func (m PasswordMethod) Authenticate(ctx context.Context, session *Session) error {
	answers, err := session.Challenge(ctx, []Question{{Label: "password", Text: "Password:"}}, nil)
	if err != nil {
		return err
	}
	if len(answers) != 1 || answers[0] != m.Password {
		return fmt.Errorf("auth: password mismatch")
	}
	return nil
}

// StaticHandler is a client-side Handler driven entirely by fixed answers,
// useful for tests and for non-interactive clients that already hold
// credentials out of band.
type StaticHandler struct {
	// Answer is returned for every Challenge, regardless of its questions.
	Answer []string
	// AcceptVerifications, if true, answers every Verification as valid.
	AcceptVerifications bool

	Infos  []string
	Errors []struct {
		Kind ErrorKind
		Text string
	}
	Finished bool
}

func (h *StaticHandler) OnInitialization(methods []string) []string { return methods }
func (h *StaticHandler) OnStartMethod(string)                       {}
func (h *StaticHandler) OnChallenge([]Question, map[string]string) []string {
	return h.Answer
}
func (h *StaticHandler) OnVerification(string, string) bool { return h.AcceptVerifications }
func (h *StaticHandler) OnInfo(text string)                 { h.Infos = append(h.Infos, text) }
func (h *StaticHandler) OnError(kind ErrorKind, text string) {
	h.Errors = append(h.Errors, struct {
		Kind ErrorKind
		Text string
	}{kind, text})
}
func (h *StaticHandler) OnFinished() { h.Finished = true }
