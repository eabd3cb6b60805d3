// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package op_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/relaynet/message"
	"code.hybscloud.com/relaynet/op"
)

// collector gathers asynchronously emitted Results for assertions.
type collector struct {
	mu      sync.Mutex
	results []op.Result
}

func (c *collector) emit(r op.Result) {
	c.mu.Lock()
	c.results = append(c.results, r)
	c.mu.Unlock()
}

func (c *collector) snapshot() []op.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]op.Result, len(c.results))
	copy(out, c.results)
	return out
}

func (c *collector) waitFor(t *testing.T, pred func([]op.Result) bool) []op.Result {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if rs := c.snapshot(); pred(rs) {
			return rs
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for emitted results; have %v", c.snapshot())
	return nil
}

func TestOpRoundTripsThroughEnvelope(t *testing.T) {
	req := message.NewRequest(op.FileRead("/etc/hosts"))
	data, err := message.Encode(req)
	require.NoError(t, err)

	var decoded message.Request[op.Op]
	require.NoError(t, message.Decode(data, &decoded))
	assert.Equal(t, op.KindFileRead, decoded.Payload.Kind)
	assert.Equal(t, "/etc/hosts", decoded.Payload.Path)
}

func TestResultRoundTripsThroughEnvelope(t *testing.T) {
	resp := message.NewResponse("req-1", op.Blob([]byte("hello")))
	data, err := message.Encode(resp)
	require.NoError(t, err)

	var decoded message.Response[op.Result]
	require.NoError(t, message.Decode(data, &decoded))
	assert.Equal(t, op.KindBlob, decoded.Payload.Kind)
	assert.Equal(t, []byte("hello"), decoded.Payload.Blob)
}

func TestLocalHandlerFileReadWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greeting.txt")

	h := op.NewLocalHandler(nil)
	defer h.Close()
	ctx := context.Background()

	writeResult := h.Handle(ctx, op.FileWrite(path, []byte("hi there")))
	require.Equal(t, op.KindOk, writeResult.Kind)

	readResult := h.Handle(ctx, op.FileRead(path))
	require.Equal(t, op.KindBlob, readResult.Kind)
	assert.Equal(t, "hi there", string(readResult.Blob))
}

func TestLocalHandlerFileReadMissing(t *testing.T) {
	h := op.NewLocalHandler(nil)
	defer h.Close()
	result := h.Handle(context.Background(), op.FileRead("/nonexistent/path/does/not/exist"))
	assert.Equal(t, op.KindError, result.Kind)
	assert.Equal(t, "not_found", result.ErrorKind)
	assert.NotEmpty(t, result.Message)
}

func TestLocalHandlerExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	h := op.NewLocalHandler(nil)
	defer h.Close()
	ctx := context.Background()

	result := h.Handle(ctx, op.Exists(path))
	require.Equal(t, op.KindExists, result.Kind)
	assert.True(t, result.Value)

	result = h.Handle(ctx, op.Exists(filepath.Join(dir, "absent")))
	require.Equal(t, op.KindExists, result.Kind)
	assert.False(t, result.Value)
}

func TestLocalHandlerMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("12345"), 0o644))

	h := op.NewLocalHandler(nil)
	defer h.Close()

	result := h.Handle(context.Background(), op.Metadata(path, false))
	require.Equal(t, op.KindMetadata, result.Kind)
	assert.Equal(t, "file", result.FileType)
	assert.Equal(t, uint64(5), result.Len)
	assert.NotZero(t, result.Modified)
}

func TestLocalHandlerMetadataCanonicalize(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	require.NoError(t, os.Symlink(target, link))

	h := op.NewLocalHandler(nil)
	defer h.Close()

	result := h.Handle(context.Background(), op.Metadata(link, true))
	require.Equal(t, op.KindMetadata, result.Kind)
	assert.Equal(t, "file", result.FileType)

	resolved, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, resolved, result.Resolved)
}

func TestLocalHandlerDirRead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", "deeper"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("b"), 0o644))

	h := op.NewLocalHandler(nil)
	defer h.Close()

	result := h.Handle(context.Background(), op.DirRead(dir, 0))
	require.Equal(t, op.KindDirEntries, result.Kind)
	require.Empty(t, result.Errors)

	paths := make(map[string]string, len(result.Entries))
	for _, e := range result.Entries {
		paths[e.Path] = e.FileType
	}
	assert.Equal(t, "file", paths[filepath.Join(dir, "a.txt")])
	assert.Equal(t, "dir", paths[filepath.Join(dir, "sub")])
	assert.Equal(t, "file", paths[filepath.Join(dir, "sub", "b.txt")])
	assert.Equal(t, "dir", paths[filepath.Join(dir, "sub", "deeper")])
}

func TestLocalHandlerDirReadDepthLimit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", "deeper"), 0o755))

	h := op.NewLocalHandler(nil)
	defer h.Close()

	result := h.Handle(context.Background(), op.DirRead(dir, 1))
	require.Equal(t, op.KindDirEntries, result.Kind)
	for _, e := range result.Entries {
		assert.Equal(t, 1, e.Depth)
	}
}

func TestLocalHandlerDirReadSymlinkLoop(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// sub/back points at the traversal root, closing the cycle.
	require.NoError(t, os.Symlink(dir, filepath.Join(sub, "back")))

	h := op.NewLocalHandler(nil)
	defer h.Close()

	result := h.Handle(context.Background(), op.DirRead(dir, 0))
	require.Equal(t, op.KindDirEntries, result.Kind)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "loop")
}

func TestLocalHandlerSystemInfo(t *testing.T) {
	h := op.NewLocalHandler(nil)
	defer h.Close()
	result := h.Handle(context.Background(), op.SystemInfo())
	assert.Equal(t, op.KindSystemInfo, result.Kind)
	assert.NotEmpty(t, result.Family)
}

func TestLocalHandlerProcSpawnStreams(t *testing.T) {
	if _, err := os.Stat("/bin/echo"); err != nil {
		t.Skip("/bin/echo not available")
	}
	var c collector
	h := op.NewLocalHandler(c.emit)
	defer h.Close()

	result := h.Handle(context.Background(), op.ProcSpawn("/bin/echo", "hello"))
	require.Equal(t, op.KindProcSpawned, result.Kind)
	id := result.ProcID

	results := c.waitFor(t, func(rs []op.Result) bool {
		for _, r := range rs {
			if r.Kind == op.KindProcDone {
				return true
			}
		}
		return false
	})

	var sawStdout bool
	for _, r := range results {
		require.Equal(t, id, r.ProcID)
		switch r.Kind {
		case op.KindProcStdout:
			sawStdout = true
			assert.Contains(t, string(r.Chunk), "hello")
		case op.KindProcDone:
			assert.True(t, r.Success)
			assert.Equal(t, int32(0), r.ExitCode)
		}
	}
	assert.True(t, sawStdout)
	// ProcDone is the final result for the id.
	assert.Equal(t, op.KindProcDone, results[len(results)-1].Kind)
}

func TestLocalHandlerProcStdin(t *testing.T) {
	if _, err := os.Stat("/bin/cat"); err != nil {
		t.Skip("/bin/cat not available")
	}
	var c collector
	h := op.NewLocalHandler(c.emit)
	defer h.Close()

	result := h.Handle(context.Background(), op.ProcSpawn("/bin/cat"))
	require.Equal(t, op.KindProcSpawned, result.Kind)
	id := result.ProcID

	stdinResult := h.Handle(context.Background(), op.ProcStdin(id, []byte("echoed back\n")))
	require.Equal(t, op.KindOk, stdinResult.Kind)

	c.waitFor(t, func(rs []op.Result) bool {
		for _, r := range rs {
			if r.Kind == op.KindProcStdout {
				return true
			}
		}
		return false
	})

	killResult := h.Handle(context.Background(), op.ProcKill(id))
	require.Equal(t, op.KindOk, killResult.Kind)

	c.waitFor(t, func(rs []op.Result) bool {
		for _, r := range rs {
			if r.Kind == op.KindProcDone {
				return true
			}
		}
		return false
	})
}

func TestLocalHandlerProcKillUnknown(t *testing.T) {
	h := op.NewLocalHandler(nil)
	defer h.Close()
	result := h.Handle(context.Background(), op.ProcKill(9999))
	assert.Equal(t, op.KindError, result.Kind)
	assert.Equal(t, "not_found", result.ErrorKind)
}

func TestLocalHandlerProcSpawnPtyRefused(t *testing.T) {
	h := op.NewLocalHandler(nil)
	defer h.Close()
	o := op.ProcSpawn("/bin/echo")
	o.Pty = true
	result := h.Handle(context.Background(), o)
	assert.Equal(t, op.KindError, result.Kind)
}

func TestLocalHandlerWatch(t *testing.T) {
	dir := t.TempDir()
	var c collector
	h := op.NewLocalHandler(c.emit)
	defer h.Close()

	result := h.Handle(context.Background(), op.Watch(dir, false))
	require.Equal(t, op.KindOk, result.Kind)

	path := filepath.Join(dir, "created.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	c.waitFor(t, func(rs []op.Result) bool {
		for _, r := range rs {
			if r.Kind == op.KindChanged && len(r.Paths) == 1 && r.Paths[0] == path {
				return true
			}
		}
		return false
	})

	unwatch := h.Handle(context.Background(), op.Unwatch(dir))
	require.Equal(t, op.KindOk, unwatch.Kind)
}

func TestLocalHandlerUnwatchUnknown(t *testing.T) {
	h := op.NewLocalHandler(nil)
	defer h.Close()
	result := h.Handle(context.Background(), op.Unwatch("/never/watched"))
	assert.Equal(t, op.KindError, result.Kind)
	assert.Equal(t, "not_found", result.ErrorKind)
}

func TestLocalHandlerUnknownKind(t *testing.T) {
	h := op.NewLocalHandler(nil)
	defer h.Close()
	result := h.Handle(context.Background(), op.Op{Kind: op.Kind("bogus")})
	assert.Equal(t, op.KindError, result.Kind)
}
