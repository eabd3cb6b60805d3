// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package op

import (
	"io"
	"os/exec"
	"sync"

	"github.com/pkg/errors"
)

// ProcessTable tracks the processes a handler has spawned, keyed by the
// ids it hands out. Output is streamed through the emit callback as
// ProcStdout/ProcStderr chunks followed by exactly one ProcDone.
type ProcessTable struct {
	emit func(Result)

	mu     sync.Mutex
	nextID uint32
	procs  map[uint32]*process
}

type process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// NewProcessTable returns an empty table whose asynchronous Results go to
// emit.
func NewProcessTable(emit func(Result)) *ProcessTable {
	return &ProcessTable{emit: emit, procs: make(map[uint32]*process)}
}

// Spawn starts o.Cmd and returns ProcSpawned with the allocated id. The
// process's stdout and stderr are pumped to the table's emit callback in
// chunks as they arrive, and its exit is reported as ProcDone. The process
// outlives the request that spawned it; its lifetime is managed through
// the table (Kill/Shutdown), not a request context. Pty allocation is a
// platform subsystem this handler does not carry; a Pty request is refused
// rather than silently degraded to pipes.
func (t *ProcessTable) Spawn(o Op) Result {
	if o.Pty {
		return ErrorResult("invalid_input", "pty allocation is not supported by this handler")
	}

	cmd := exec.Command(o.Cmd, o.Args...)
	cmd.Dir = o.Cwd
	if len(o.Env) > 0 {
		env := make([]string, 0, len(o.Env))
		for k, v := range o.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return ErrorResult("invalid_input", errors.Wrap(err, "stdin pipe").Error())
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return ErrorResult("invalid_input", errors.Wrap(err, "stdout pipe").Error())
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return ErrorResult("invalid_input", errors.Wrap(err, "stderr pipe").Error())
	}

	if err := cmd.Start(); err != nil {
		return errorFrom("spawn process", err)
	}

	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.procs[id] = &process{cmd: cmd, stdin: stdin}
	t.mu.Unlock()

	var pumps sync.WaitGroup
	pumps.Add(2)
	go t.pump(&pumps, stdout, id, ProcStdout)
	go t.pump(&pumps, stderr, id, ProcStderr)
	go t.wait(&pumps, cmd, id)

	return ProcSpawned(id)
}

func (t *ProcessTable) pump(wg *sync.WaitGroup, r io.Reader, id uint32, wrap func(uint32, []byte) Result) {
	defer wg.Done()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			t.emit(wrap(id, chunk))
		}
		if err != nil {
			return
		}
	}
}

// wait reaps the process after both output pumps drain, so ProcDone is
// always the last Result emitted for an id.
func (t *ProcessTable) wait(pumps *sync.WaitGroup, cmd *exec.Cmd, id uint32) {
	pumps.Wait()
	err := cmd.Wait()

	t.mu.Lock()
	delete(t.procs, id)
	t.mu.Unlock()

	exitCode := int32(0)
	signal := ""
	success := err == nil
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = int32(exitErr.ExitCode())
			if exitErr.ExitCode() < 0 {
				signal = exitErr.String()
			}
		}
	}
	t.emit(ProcDone(id, success, exitCode, signal))
}

// Stdin writes data to the identified process's standard input.
func (t *ProcessTable) Stdin(id uint32, data []byte) Result {
	t.mu.Lock()
	p, ok := t.procs[id]
	t.mu.Unlock()
	if !ok {
		return ErrorResult("not_found", "no such process")
	}
	if _, err := p.stdin.Write(data); err != nil {
		return ErrorResult("broken_pipe", errors.Wrap(err, "write stdin").Error())
	}
	return Ok()
}

// Kill terminates the identified process. The resulting ProcDone arrives
// through the emit callback once the process is reaped, as for any other
// exit.
func (t *ProcessTable) Kill(id uint32) Result {
	t.mu.Lock()
	p, ok := t.procs[id]
	t.mu.Unlock()
	if !ok {
		return ErrorResult("not_found", "no such process")
	}
	if err := p.cmd.Process.Kill(); err != nil {
		return ErrorResult("invalid_input", errors.Wrap(err, "kill process").Error())
	}
	return Ok()
}

// Shutdown kills every tracked process.
func (t *ProcessTable) Shutdown() {
	t.mu.Lock()
	procs := make([]*process, 0, len(t.procs))
	for _, p := range t.procs {
		procs = append(procs, p)
	}
	t.mu.Unlock()
	for _, p := range procs {
		_ = p.cmd.Process.Kill()
	}
}
