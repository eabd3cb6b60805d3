// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package message

// ErrorKind is a closed taxonomy of error categories that can cross the
// wire. It is serialized by name (ErrorKindUnknown as the catch-all), so
// that a receiver running an older version of this module never fails to
// decode a response carrying a kind it doesn't recognize yet — it just maps
// the unrecognized name to ErrorKindUnknown. This forward-compatibility
// behavior MUST be preserved; do not make unmarshaling a new kind an error.
type ErrorKind string

const (
	ErrorKindNotConnected      ErrorKind = "not_connected"
	ErrorKindConnectionRefused ErrorKind = "connection_refused"
	ErrorKindConnectionReset   ErrorKind = "connection_reset"
	ErrorKindConnectionAborted ErrorKind = "connection_aborted"
	ErrorKindBrokenPipe        ErrorKind = "broken_pipe"

	ErrorKindInvalidData  ErrorKind = "invalid_data"
	ErrorKindInvalidInput ErrorKind = "invalid_input"

	ErrorKindUnexpectedEOF ErrorKind = "unexpected_eof"
	ErrorKindTimedOut      ErrorKind = "timed_out"
	ErrorKindInterrupted   ErrorKind = "interrupted"
	ErrorKindWouldBlock    ErrorKind = "would_block"

	ErrorKindLoop          ErrorKind = "loop"
	ErrorKindTaskCancelled ErrorKind = "task_cancelled"
	ErrorKindTaskPanicked  ErrorKind = "task_panicked"

	// ErrorKindUnknown is the fallback for any kind name this version of
	// the module does not recognize.
	ErrorKindUnknown ErrorKind = "unknown"
)

var knownErrorKinds = map[ErrorKind]struct{}{
	ErrorKindNotConnected:      {},
	ErrorKindConnectionRefused: {},
	ErrorKindConnectionReset:   {},
	ErrorKindConnectionAborted: {},
	ErrorKindBrokenPipe:        {},
	ErrorKindInvalidData:       {},
	ErrorKindInvalidInput:      {},
	ErrorKindUnexpectedEOF:     {},
	ErrorKindTimedOut:          {},
	ErrorKindInterrupted:       {},
	ErrorKindWouldBlock:        {},
	ErrorKindLoop:              {},
	ErrorKindTaskCancelled:     {},
	ErrorKindTaskPanicked:      {},
	ErrorKindUnknown:           {},
}

// NormalizeErrorKind maps any kind name this version of the module does not
// recognize to ErrorKindUnknown, rather than failing to decode.
func NormalizeErrorKind(k ErrorKind) ErrorKind {
	if _, ok := knownErrorKinds[k]; ok {
		return k
	}
	return ErrorKindUnknown
}

// Error is a wire-transportable error: a kind plus a human-readable,
// round-tripping description.
type Error struct {
	Kind        ErrorKind `msgpack:"kind"`
	Description string    `msgpack:"description"`
}

func (e Error) Error() string { return string(e.Kind) + ": " + e.Description }

// UnmarshalMsgpack normalizes Kind through NormalizeErrorKind on decode.
func (e *Error) UnmarshalMsgpack(data []byte) error {
	type alias Error
	var a alias
	if err := Decode(data, &a); err != nil {
		return err
	}
	a.Kind = NormalizeErrorKind(a.Kind)
	*e = Error(a)
	return nil
}
