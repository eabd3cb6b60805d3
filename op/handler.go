// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package op

import (
	"context"
	"os"
	"runtime"
)

// Handler executes a single Op. The returned Result is the immediate
// answer; ops whose output continues after the call returns (a spawned
// process's stdout, a watch subscription's change events) deliver those
// later Results through the emit callback the handler was constructed
// with. Implementations never panic on malformed Op values; an
// unrecognized or inapplicable Kind is reported as an ErrorResult, not a
// Go error, since a handler's job is to produce wire-ready Results for
// whatever arrived.
type Handler interface {
	Handle(ctx context.Context, o Op) Result
}

// LocalHandler executes Ops directly against the local machine. File and
// metadata ops run synchronously; process and watch ops park their
// follow-on output on the emit callback, tagged so the caller can pair it
// with the originating request.
type LocalHandler struct {
	procs   *ProcessTable
	watcher *Watcher
}

// NewLocalHandler returns a LocalHandler whose asynchronous Results
// (process output, change events) are handed to emit. A nil emit drops
// them, which is only useful for tests exercising synchronous ops.
func NewLocalHandler(emit func(Result)) *LocalHandler {
	if emit == nil {
		emit = func(Result) {}
	}
	return &LocalHandler{
		procs:   NewProcessTable(emit),
		watcher: NewWatcher(emit),
	}
}

// Close releases every resource the handler holds: running processes are
// killed and watch subscriptions are cancelled.
func (h *LocalHandler) Close() error {
	h.procs.Shutdown()
	return h.watcher.Close()
}

func (h *LocalHandler) Handle(ctx context.Context, o Op) Result {
	switch o.Kind {
	case KindFileRead:
		data, err := os.ReadFile(o.Path)
		if err != nil {
			return errorFrom("read file", err)
		}
		return Blob(data)
	case KindFileWrite:
		if err := os.WriteFile(o.Path, o.Data, 0o644); err != nil {
			return errorFrom("write file", err)
		}
		return Ok()
	case KindDirRead:
		return readDir(o.Path, o.Depth)
	case KindExists:
		_, err := os.Lstat(o.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return ExistsResult(false)
			}
			return errorFrom("stat", err)
		}
		return ExistsResult(true)
	case KindMetadata:
		return metadata(o.Path, o.Canonicalize)
	case KindWatch:
		return h.watcher.Watch(o.Path, o.Recursive)
	case KindUnwatch:
		return h.watcher.Unwatch(o.Path)
	case KindProcSpawn:
		return h.procs.Spawn(o)
	case KindProcStdin:
		return h.procs.Stdin(o.ProcID, o.Stdin)
	case KindProcKill:
		return h.procs.Kill(o.ProcID)
	case KindSystemInfo:
		hostname, _ := os.Hostname()
		return SystemInfoResult(runtime.GOOS, hostname, runtime.GOARCH)
	default:
		return ErrorResult("invalid_input", "unrecognized op kind: "+string(o.Kind))
	}
}
