// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package auth implements the post-handshake authentication state machine:
// a server-side authenticator drives typed frames across the framed
// transport, and a client-side Handler answers them. A manager process
// sitting between the two routes challenge/response pairs through an
// auth_id-keyed Router.
package auth

import "github.com/vmihailenco/msgpack/v5"

// MsgType tags which authentication message a Message value represents.
// Unlike message.Request/Response, these encode as ordinary msgpack maps
// with "type" as the literal discriminator field.
type MsgType string

const (
	TypeInitialization         MsgType = "auth_initialization"
	TypeInitializationResponse MsgType = "auth_initialization_response"
	TypeStartMethod            MsgType = "auth_start_method"
	TypeChallenge              MsgType = "auth_challenge"
	TypeChallengeResponse      MsgType = "auth_challenge_response"
	TypeVerification           MsgType = "auth_verification"
	TypeVerificationResponse   MsgType = "auth_verification_response"
	TypeInfo                   MsgType = "auth_info"
	TypeError                  MsgType = "auth_error"
	TypeFinished               MsgType = "auth_finished"
)

// ErrorKind distinguishes a recoverable authentication error from one that
// terminates the handshake.
type ErrorKind string

const (
	// ErrorKindError is logged and reported to the application, but the
	// authentication loop continues.
	ErrorKindError ErrorKind = "error"
	// ErrorKindFatal terminates the handshake with permission-denied.
	ErrorKindFatal ErrorKind = "fatal"
)

// Question is one challenge prompt: a label, the prompt text, and any
// method-specific options (e.g. whether input should be echoed).
type Question struct {
	Label   string            `msgpack:"label"`
	Text    string            `msgpack:"text"`
	Options map[string]string `msgpack:"options,omitempty"`
}

// Message is the single wire shape for every authentication frame. Only the
// fields relevant to Type are populated; Kind is overloaded between
// Verification's method-specific kind string and Error's ErrorKind, since
// the two never appear on the same message.
type Message struct {
	Type   MsgType `msgpack:"type"`
	AuthID string  `msgpack:"auth_id,omitempty"`

	Methods []string `msgpack:"methods,omitempty"` // Initialization, InitializationResponse
	Method  string   `msgpack:"method,omitempty"`  // StartMethod

	Questions []Question        `msgpack:"questions,omitempty"` // Challenge
	Options   map[string]string `msgpack:"options,omitempty"`   // Challenge
	Answers   []string          `msgpack:"answers,omitempty"`   // ChallengeResponse

	Kind string `msgpack:"kind,omitempty"` // Verification.kind, or Error.kind (ErrorKindError/ErrorKindFatal)
	Text string `msgpack:"text,omitempty"` // Verification, Info, Error

	Valid bool `msgpack:"valid,omitempty"` // VerificationResponse
}

func NewInitialization(authID string, methods []string) Message {
	return Message{Type: TypeInitialization, AuthID: authID, Methods: methods}
}

func NewInitializationResponse(authID string, methods []string) Message {
	return Message{Type: TypeInitializationResponse, AuthID: authID, Methods: methods}
}

func NewStartMethod(authID, method string) Message {
	return Message{Type: TypeStartMethod, AuthID: authID, Method: method}
}

func NewChallenge(authID string, questions []Question, options map[string]string) Message {
	return Message{Type: TypeChallenge, AuthID: authID, Questions: questions, Options: options}
}

func NewChallengeResponse(authID string, answers []string) Message {
	return Message{Type: TypeChallengeResponse, AuthID: authID, Answers: answers}
}

func NewVerification(authID, kind, text string) Message {
	return Message{Type: TypeVerification, AuthID: authID, Kind: kind, Text: text}
}

func NewVerificationResponse(authID string, valid bool) Message {
	return Message{Type: TypeVerificationResponse, AuthID: authID, Valid: valid}
}

func NewInfo(authID, text string) Message {
	return Message{Type: TypeInfo, AuthID: authID, Text: text}
}

func NewError(authID string, kind ErrorKind, text string) Message {
	return Message{Type: TypeError, AuthID: authID, Kind: string(kind), Text: text}
}

func NewFinished(authID string) Message {
	return Message{Type: TypeFinished, AuthID: authID}
}

// Encode marshals a Message to its wire bytes.
func Encode(m Message) ([]byte, error) {
	return msgpack.Marshal(m)
}

// Decode unmarshals wire bytes into a Message.
func Decode(data []byte) (Message, error) {
	var m Message
	err := msgpack.Unmarshal(data, &m)
	return m, err
}
