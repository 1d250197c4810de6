// Package pathset expands a group's declared files and folders into the
// flat, deduplicated list of concrete file paths to track.
package pathset

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gistwatch/gistwatch/internal/domain"
	"github.com/gistwatch/gistwatch/internal/logger"
)

// TrackedPath is one concrete file produced by expansion, tagged with the
// declared folder it came from (empty for explicitly declared files).
type TrackedPath struct {
	// Path is the cleaned local path of the file
	Path string

	// Folder is the declared folder this path was discovered under,
	// or empty if the path was declared directly
	Folder string
}

// RemoteName resolves the file name this path uses inside the gist.
// Folder-derived paths become "basename(folder)/relative-path"; directly
// declared files map to their base name.
func (p TrackedPath) RemoteName() string {
	if p.Folder == "" {
		return filepath.Base(p.Path)
	}

	rel, err := filepath.Rel(p.Folder, p.Path)
	if err != nil {
		return filepath.Base(p.Path)
	}
	return filepath.Base(p.Folder) + "/" + filepath.ToSlash(rel)
}

// Enumerator expands groups into tracked paths
type Enumerator struct {
	log logger.Logger
}

// NewEnumerator creates an Enumerator
func NewEnumerator() *Enumerator {
	return &Enumerator{log: logger.With("component", "pathset")}
}

// Expand returns the group's tracked paths: declared files first in declared
// order, then for each declared folder (in declared order) every regular
// file found by a recursive walk in traversal order. The result is
// deduplicated by cleaned path; the first occurrence wins, so a file that is
// both declared and folder-derived keeps its direct declaration.
//
// Directories, symlinks, and unreadable entries are skipped, never errors.
// An unlistable folder is logged and skipped for this pass.
func (e *Enumerator) Expand(group domain.FileGroup) []TrackedPath {
	seen := make(map[string]struct{}, len(group.Files))
	out := make([]TrackedPath, 0, len(group.Files))

	for _, f := range group.Files {
		p := filepath.Clean(f)
		if _, dup := seen[p]; dup {
			continue
		}
		// A declared path that currently resolves to a directory or
		// symlink is not a trackable file. Missing files stay listed;
		// the detector skips them when they cannot be read.
		if fi, err := os.Lstat(p); err == nil && !fi.Mode().IsRegular() {
			e.log.Warn("declared file is not a regular file, skipping", "path", p)
			continue
		}
		seen[p] = struct{}{}
		out = append(out, TrackedPath{Path: p})
	}

	for _, folder := range group.Folders {
		root := filepath.Clean(folder)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable entry: skip it (and its subtree if it is
				// a directory) without failing the walk.
				e.log.Warn("skipping unreadable entry", "path", path, "error", err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if !d.Type().IsRegular() {
				// Symlinks and other special files are not tracked
				return nil
			}

			p := filepath.Clean(path)
			if _, dup := seen[p]; dup {
				return nil
			}
			seen[p] = struct{}{}
			out = append(out, TrackedPath{Path: p, Folder: root})
			return nil
		})
		if err != nil {
			e.log.Warn("skipping unlistable folder", "folder", root, "error", err)
		}
	}

	return out
}

// FolderFor returns the declared folder (cleaned) that contains path, or
// empty if the path is not under any of the group's folders. Used to resolve
// remote names for paths that arrive from filesystem events rather than from
// Expand.
func FolderFor(group domain.FileGroup, path string) string {
	return FolderOf(group.Folders, path)
}

// FolderOf is FolderFor over a bare folder list. The merge engine uses it
// with the union of the group's folders and the folders recorded in the
// remote metadata.
func FolderOf(folders []string, path string) string {
	p := filepath.Clean(path)
	for _, folder := range folders {
		root := filepath.Clean(folder)
		if isUnder(root, p) {
			return root
		}
	}
	return ""
}

// Contains reports whether path is tracked by the group: either declared
// directly or located under a declared folder.
func Contains(group domain.FileGroup, path string) bool {
	p := filepath.Clean(path)
	for _, f := range group.Files {
		if filepath.Clean(f) == p {
			return true
		}
	}
	return FolderFor(group, p) != ""
}

func isUnder(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
