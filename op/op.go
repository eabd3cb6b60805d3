// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package op defines a representative request/response payload set carried
// inside message.Request/message.Response envelopes, plus a local handler
// executing them. It exists to exercise the transport end to end — it is
// not the full file/process/search/watch subsystem a complete control
// plane would ship, though it covers the same payload shapes.
package op

// Kind tags which variant of Op or Result a value holds. Op and Result are
// encoded as ordinary msgpack maps (not the envelope's positional array
// form): a kind discriminator plus the fields that variant uses, unset
// fields omitted. This is the same tagged-struct shape message.Error uses
// for its own single-variant payload, generalized to several variants.
type Kind string

const (
	KindFileRead   Kind = "file_read"
	KindFileWrite  Kind = "file_write"
	KindDirRead    Kind = "dir_read"
	KindExists     Kind = "exists"
	KindMetadata   Kind = "metadata"
	KindWatch      Kind = "watch"
	KindUnwatch    Kind = "unwatch"
	KindProcSpawn  Kind = "proc_spawn"
	KindProcStdin  Kind = "proc_stdin"
	KindProcKill   Kind = "proc_kill"
	KindSystemInfo Kind = "system_info"

	KindOk          Kind = "ok"
	KindError       Kind = "error"
	KindBlob        Kind = "blob"
	KindText        Kind = "text"
	KindDirEntries  Kind = "dir_entries"
	KindChanged     Kind = "changed"
	KindProcSpawned Kind = "proc_spawned"
	KindProcStdout  Kind = "proc_stdout"
	KindProcStderr  Kind = "proc_stderr"
	KindProcDone    Kind = "proc_done"
)

// Op is a request payload: exactly one of the Kind-tagged field groups below
// is populated, matching Kind.
type Op struct {
	Kind Kind `msgpack:"kind"`

	// KindFileRead / KindFileWrite / KindDirRead / KindExists /
	// KindMetadata / KindWatch / KindUnwatch
	Path string `msgpack:"path,omitempty"`
	Data []byte `msgpack:"data,omitempty"` // KindFileWrite only

	// KindDirRead: maximum traversal depth, 0 meaning unlimited.
	Depth int `msgpack:"depth,omitempty"`
	// KindMetadata: resolve the path through symlinks before inspecting.
	Canonicalize bool `msgpack:"canonicalize,omitempty"`
	// KindWatch: also watch subdirectories as they appear.
	Recursive bool `msgpack:"recursive,omitempty"`

	// KindProcSpawn
	Cmd  string            `msgpack:"cmd,omitempty"`
	Args []string          `msgpack:"args,omitempty"`
	Env  map[string]string `msgpack:"env,omitempty"`
	Cwd  string            `msgpack:"cwd,omitempty"`
	Pty  bool              `msgpack:"pty,omitempty"`

	// KindProcStdin / KindProcKill
	ProcID uint32 `msgpack:"proc_id,omitempty"`
	Stdin  []byte `msgpack:"stdin,omitempty"` // KindProcStdin only
}

// FileRead builds an Op requesting the contents of path.
func FileRead(path string) Op { return Op{Kind: KindFileRead, Path: path} }

// FileWrite builds an Op requesting path be overwritten with data.
func FileWrite(path string, data []byte) Op {
	return Op{Kind: KindFileWrite, Path: path, Data: data}
}

// DirRead builds an Op requesting a directory traversal of path down to
// depth levels (0 for unlimited).
func DirRead(path string, depth int) Op {
	return Op{Kind: KindDirRead, Path: path, Depth: depth}
}

// Exists builds an Op asking whether path exists.
func Exists(path string) Op { return Op{Kind: KindExists, Path: path} }

// Metadata builds an Op requesting filesystem metadata for path.
func Metadata(path string, canonicalize bool) Op {
	return Op{Kind: KindMetadata, Path: path, Canonicalize: canonicalize}
}

// Watch builds an Op subscribing to change notifications under path.
func Watch(path string, recursive bool) Op {
	return Op{Kind: KindWatch, Path: path, Recursive: recursive}
}

// Unwatch builds an Op cancelling a prior Watch of path.
func Unwatch(path string) Op { return Op{Kind: KindUnwatch, Path: path} }

// ProcSpawn builds an Op requesting cmd be started with args.
func ProcSpawn(cmd string, args ...string) Op {
	return Op{Kind: KindProcSpawn, Cmd: cmd, Args: args}
}

// ProcStdin builds an Op feeding data to a spawned process's stdin.
func ProcStdin(procID uint32, data []byte) Op {
	return Op{Kind: KindProcStdin, ProcID: procID, Stdin: data}
}

// ProcKill builds an Op terminating a spawned process.
func ProcKill(procID uint32) Op { return Op{Kind: KindProcKill, ProcID: procID} }

// SystemInfo builds an Op requesting basic host information.
func SystemInfo() Op { return Op{Kind: KindSystemInfo} }

// DirEntry is one entry produced by a KindDirRead traversal.
type DirEntry struct {
	Path     string `msgpack:"path"`
	FileType string `msgpack:"file_type"` // "dir", "file", or "symlink"
	Depth    int    `msgpack:"depth"`
}

// Result is a response payload, tagged the same way as Op.
type Result struct {
	Kind Kind `msgpack:"kind"`

	// KindError
	ErrorKind string `msgpack:"error_kind,omitempty"`
	Message   string `msgpack:"message,omitempty"`

	// KindBlob
	Blob []byte `msgpack:"blob,omitempty"`

	// KindText
	Text string `msgpack:"text,omitempty"`

	// KindDirEntries. Errors collects per-entry failures (permission,
	// symlink cycles) that did not abort the traversal as a whole.
	Entries []DirEntry `msgpack:"entries,omitempty"`
	Errors  []string   `msgpack:"errors,omitempty"`

	// KindExists
	Value bool `msgpack:"value,omitempty"`

	// KindMetadata
	FileType string `msgpack:"file_type,omitempty"`
	Len      uint64 `msgpack:"len,omitempty"`
	Readonly bool   `msgpack:"readonly,omitempty"`
	Modified int64  `msgpack:"modified,omitempty"` // unix seconds
	Resolved string `msgpack:"resolved,omitempty"` // canonicalized path, if requested

	// KindChanged
	ChangeKind string   `msgpack:"change_kind,omitempty"` // "create", "modify", "delete", "rename"
	Paths      []string `msgpack:"paths,omitempty"`

	// KindProcSpawned / KindProcStdout / KindProcStderr / KindProcDone
	ProcID     uint32 `msgpack:"proc_id,omitempty"`
	Chunk      []byte `msgpack:"chunk,omitempty"`       // stdout/stderr
	Success    bool   `msgpack:"success,omitempty"`     // done
	ExitCode   int32  `msgpack:"exit_code,omitempty"`   // done
	ExitSignal string `msgpack:"exit_signal,omitempty"` // done, if killed by signal

	// KindSystemInfo
	Family   string `msgpack:"family,omitempty"`
	Hostname string `msgpack:"hostname,omitempty"`
	Arch     string `msgpack:"arch,omitempty"`
}

// Ok builds a bare success Result carrying no data.
func Ok() Result { return Result{Kind: KindOk} }

// ErrorResult builds a Result carrying an error kind name and message. kind
// is a string rather than message.ErrorKind so op stays decoupled from the
// message package's taxonomy; callers that want the taxonomy's
// forward-compatibility guarantee should route through message.Error
// instead of op.Result for error propagation.
func ErrorResult(kind, msg string) Result {
	return Result{Kind: KindError, ErrorKind: kind, Message: msg}
}

// Blob builds a Result carrying raw bytes (e.g. file contents).
func Blob(data []byte) Result { return Result{Kind: KindBlob, Blob: data} }

// Text builds a Result carrying a UTF-8 string.
func Text(s string) Result { return Result{Kind: KindText, Text: s} }

// DirEntries builds a Result carrying a traversal's entries and per-entry
// errors.
func DirEntries(entries []DirEntry, errs []string) Result {
	return Result{Kind: KindDirEntries, Entries: entries, Errors: errs}
}

// ExistsResult builds a Result answering an Exists op.
func ExistsResult(value bool) Result { return Result{Kind: KindExists, Value: value} }

// Changed builds a Result reporting a filesystem change event.
func Changed(changeKind string, paths ...string) Result {
	return Result{Kind: KindChanged, ChangeKind: changeKind, Paths: paths}
}

// ProcSpawned builds a Result acknowledging a spawned process.
func ProcSpawned(procID uint32) Result { return Result{Kind: KindProcSpawned, ProcID: procID} }

// ProcStdout builds a Result carrying a chunk of a process's stdout.
func ProcStdout(procID uint32, chunk []byte) Result {
	return Result{Kind: KindProcStdout, ProcID: procID, Chunk: chunk}
}

// ProcStderr builds a Result carrying a chunk of a process's stderr.
func ProcStderr(procID uint32, chunk []byte) Result {
	return Result{Kind: KindProcStderr, ProcID: procID, Chunk: chunk}
}

// ProcDone builds a Result reporting a process's exit.
func ProcDone(procID uint32, success bool, exitCode int32, exitSignal string) Result {
	return Result{Kind: KindProcDone, ProcID: procID, Success: success, ExitCode: exitCode, ExitSignal: exitSignal}
}

// SystemInfoResult builds a Result describing the local host.
func SystemInfoResult(family, hostname, arch string) Result {
	return Result{Kind: KindSystemInfo, Family: family, Hostname: hostname, Arch: arch}
}
