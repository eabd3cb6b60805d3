// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package op

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher tracks filesystem watch subscriptions and turns notification
// events into Changed results on the emit callback. One fsnotify watcher
// backs every subscription; recursive watches are expanded to the
// directory tree at subscription time and extended as new directories
// appear underneath a recursive root.
type Watcher struct {
	emit func(Result)

	mu    sync.Mutex
	fsw   *fsnotify.Watcher
	roots map[string]bool // subscription root -> recursive
	done  chan struct{}
}

// NewWatcher returns a Watcher delivering change events to emit. The
// backing fsnotify watcher is created lazily on the first Watch call, so a
// handler that never watches anything costs no notification descriptor.
func NewWatcher(emit func(Result)) *Watcher {
	return &Watcher{emit: emit, roots: make(map[string]bool)}
}

// Watch subscribes to changes under path. With recursive set, every
// directory currently below path is watched too, and directories created
// later under path are added as their creation events arrive.
func (w *Watcher) Watch(path string, recursive bool) Result {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw == nil {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			return ErrorResult("invalid_input", "create watcher: "+err.Error())
		}
		w.fsw = fsw
		w.done = make(chan struct{})
		go w.run(fsw, w.done)
	}

	if err := w.fsw.Add(path); err != nil {
		return errorFrom("watch", err)
	}
	w.roots[path] = recursive

	if recursive {
		err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() || p == path {
				return nil
			}
			return w.fsw.Add(p)
		})
		if err != nil {
			return errorFrom("watch", err)
		}
	}
	return Ok()
}

// Unwatch cancels a subscription made by Watch. Only subscription roots
// can be unwatched; recursive sub-watches go away with their root.
func (w *Watcher) Unwatch(path string) Result {
	w.mu.Lock()
	defer w.mu.Unlock()

	recursive, ok := w.roots[path]
	if !ok {
		return ErrorResult("not_found", "no watch registered for "+path)
	}
	delete(w.roots, path)
	if err := w.fsw.Remove(path); err != nil {
		return errorFrom("unwatch", err)
	}
	if recursive {
		_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err == nil && d.IsDir() && p != path {
				if _, own := w.roots[p]; !own {
					_ = w.fsw.Remove(p)
				}
			}
			return nil
		})
	}
	return Ok()
}

func (w *Watcher) run(fsw *fsnotify.Watcher, done chan struct{}) {
	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case _, ok := <-fsw.Errors:
			if !ok {
				return
			}
		case <-done:
			return
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	kind := ""
	switch {
	case ev.Op.Has(fsnotify.Create):
		kind = "create"
		w.maybeExtendRecursive(ev.Name)
	case ev.Op.Has(fsnotify.Write):
		kind = "modify"
	case ev.Op.Has(fsnotify.Remove):
		kind = "delete"
	case ev.Op.Has(fsnotify.Rename):
		kind = "rename"
	case ev.Op.Has(fsnotify.Chmod):
		kind = "modify"
	default:
		return
	}
	w.emit(Changed(kind, ev.Name))
}

// maybeExtendRecursive adds a newly created directory to the watch set if
// it sits under a recursive subscription root.
func (w *Watcher) maybeExtendRecursive(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return
	}
	for root, recursive := range w.roots {
		if !recursive {
			continue
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator) {
			continue
		}
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			_ = w.fsw.Add(path)
		}
		return
	}
}

// Close tears down the backing watcher and every subscription.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return nil
	}
	close(w.done)
	err := w.fsw.Close()
	w.fsw = nil
	w.roots = make(map[string]bool)
	return err
}
