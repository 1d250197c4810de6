package domain

import (
	"fmt"
	"strings"
	"time"
)

// FileGroup is a named set of local files and folders that is kept in sync
// with a single remote gist. Groups are created by explicit user action and
// mutated on every successful sync (FileHashes, and GistID exactly once).
type FileGroup struct {
	// Name is the unique identifier for this group.
	// Must not contain path separator characters.
	Name string `mapstructure:"name" yaml:"name"`

	// Description is free text, stored remotely as the gist description
	Description string `mapstructure:"description" yaml:"description,omitempty"`

	// Files are explicit file paths to track, in declared order
	Files []string `mapstructure:"files" yaml:"files,omitempty"`

	// Folders are directories whose regular files are tracked recursively.
	// Symlinks are not followed.
	Folders []string `mapstructure:"folders" yaml:"folders,omitempty"`

	// GistID identifies the remote gist once created; empty until then.
	// Set at most once for the lifetime of the group and never changed.
	GistID string `mapstructure:"gist_id" yaml:"gist_id,omitempty"`

	// FileHashes holds one entry per tracked path with its last synced
	// fingerprint. Present only when hash-based detection has run;
	// persisted across process restarts. A list rather than a map so the
	// config layer never case-folds path keys.
	FileHashes []FileHash `mapstructure:"file_hashes" yaml:"file_hashes,omitempty"`
}

// FileHash records the last synced fingerprint of one tracked path
type FileHash struct {
	// Path is the tracked path, matched by exact string
	Path string `mapstructure:"path" yaml:"path"`

	// Fingerprint is a hex-encoded digest of the file's exact bytes
	Fingerprint string `mapstructure:"fingerprint" yaml:"fingerprint"`

	// SyncedAt is when this fingerprint was last pushed
	SyncedAt time.Time `mapstructure:"synced_at" yaml:"synced_at"`
}

// HashFor looks up the recorded hash entry for path
func (g FileGroup) HashFor(path string) (FileHash, bool) {
	for _, h := range g.FileHashes {
		if h.Path == path {
			return h, true
		}
	}
	return FileHash{}, false
}

// SetHash supersedes the entry for h.Path in place, appending when the path
// was never hashed before
func (g *FileGroup) SetHash(h FileHash) {
	for i := range g.FileHashes {
		if g.FileHashes[i].Path == h.Path {
			g.FileHashes[i] = h
			return
		}
	}
	g.FileHashes = append(g.FileHashes, h)
}

// Validate checks that the group definition is usable.
// A group needs a name without path separators and at least one file or
// folder to track.
func (g FileGroup) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("%w: group name cannot be empty", ErrInvalidGroup)
	}
	if strings.ContainsAny(g.Name, `/\`) {
		return fmt.Errorf("%w: group name %q contains path separators", ErrInvalidGroup, g.Name)
	}
	if len(g.Files) == 0 && len(g.Folders) == 0 {
		return fmt.Errorf("%w: group %q tracks no files or folders", ErrInvalidGroup, g.Name)
	}
	return nil
}

// HasRemote reports whether the group has been created remotely
func (g FileGroup) HasRemote() bool {
	return g.GistID != ""
}

// Clone returns a deep copy of the group.
// The scheduler mutates FileHashes on its own copy before persisting, so
// callers handing groups across goroutines clone first.
func (g FileGroup) Clone() FileGroup {
	out := g
	out.Files = append([]string(nil), g.Files...)
	out.Folders = append([]string(nil), g.Folders...)
	out.FileHashes = append([]FileHash(nil), g.FileHashes...)
	return out
}
