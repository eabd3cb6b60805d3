// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package op

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// errorFrom maps a Go filesystem/process error onto a wire-ready
// ErrorResult, classifying the common cases so remote callers can branch
// on kind without parsing the message text.
func errorFrom(op string, err error) Result {
	kind := "unknown"
	switch {
	case os.IsNotExist(err):
		kind = "not_found"
	case os.IsPermission(err):
		kind = "permission_denied"
	case os.IsTimeout(err):
		kind = "timed_out"
	}
	return ErrorResult(kind, errors.Wrap(err, op).Error())
}

// readDir traverses path down to maxDepth levels (0 meaning unlimited),
// following directory symlinks. A symlink cycle is reported in the
// result's Errors list with the "loop" kind prefix rather than aborting
// the traversal, so one cycle doesn't hide the rest of the tree.
func readDir(path string, maxDepth int) Result {
	root, err := filepath.EvalSymlinks(path)
	if err != nil {
		return errorFrom("read dir", err)
	}

	var entries []DirEntry
	var errs []string
	visited := map[string]struct{}{root: {}}
	walkDir(root, path, 1, maxDepth, visited, &entries, &errs)

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return DirEntries(entries, errs)
}

func walkDir(realDir, displayDir string, depth, maxDepth int, visited map[string]struct{}, entries *[]DirEntry, errs *[]string) {
	if maxDepth > 0 && depth > maxDepth {
		return
	}
	listing, err := os.ReadDir(realDir)
	if err != nil {
		*errs = append(*errs, err.Error())
		return
	}
	for _, d := range listing {
		display := filepath.Join(displayDir, d.Name())
		*entries = append(*entries, DirEntry{Path: display, FileType: fileTypeOf(d.Type()), Depth: depth})

		if !d.IsDir() && d.Type()&fs.ModeSymlink == 0 {
			continue
		}
		real, err := filepath.EvalSymlinks(filepath.Join(realDir, d.Name()))
		if err != nil {
			*errs = append(*errs, err.Error())
			continue
		}
		info, err := os.Stat(real)
		if err != nil || !info.IsDir() {
			continue
		}
		if _, seen := visited[real]; seen {
			*errs = append(*errs, "loop: symlink cycle at "+display)
			continue
		}
		visited[real] = struct{}{}
		walkDir(real, display, depth+1, maxDepth, visited, entries, errs)
	}
}

func fileTypeOf(m fs.FileMode) string {
	switch {
	case m&fs.ModeSymlink != 0:
		return "symlink"
	case m.IsDir():
		return "dir"
	default:
		return "file"
	}
}

// metadata inspects path without following symlinks unless canonicalize is
// set, in which case the resolved path is reported alongside the resolved
// target's metadata.
func metadata(path string, canonicalize bool) Result {
	resolved := ""
	statPath := path
	if canonicalize {
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			return errorFrom("canonicalize", err)
		}
		resolved = real
		statPath = real
	}
	info, err := os.Lstat(statPath)
	if err != nil {
		return errorFrom("metadata", err)
	}
	return Result{
		Kind:     KindMetadata,
		FileType: fileTypeOf(info.Mode()),
		Len:      uint64(info.Size()),
		Readonly: info.Mode().Perm()&0o200 == 0,
		Modified: info.ModTime().Unix(),
		Resolved: resolved,
	}
}
