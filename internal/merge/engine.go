// Package merge turns detected file changes into minimal updates of the
// remote gist, preserving remote files the tool does not manage.
package merge

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gistwatch/gistwatch/internal/core/pathset"
	"github.com/gistwatch/gistwatch/internal/domain"
	"github.com/gistwatch/gistwatch/internal/logger"
	"github.com/gistwatch/gistwatch/internal/progress"
)

// RemoteStore is the opaque multi-file document store the engine writes to.
// internal/gist implements it against the GitHub API; tests use an
// in-memory fake.
type RemoteStore interface {
	// Create makes a new document and returns its id
	Create(ctx context.Context, description string, public bool, files map[string]string) (string, error)

	// Get returns the document's files as name -> content
	Get(ctx context.Context, id string) (map[string]string, error)

	// Update edits files in one call; a nil content removes the file,
	// and a nil entry for an absent name is a no-op
	Update(ctx context.Context, id string, files map[string]*string) error

	// Delete removes the whole document
	Delete(ctx context.Context, id string) error
}

// Engine is the remote merge engine
type Engine struct {
	store    RemoteStore
	enum     *pathset.Enumerator
	log      logger.Logger
	now      func() time.Time
	reporter progress.Reporter
}

// NewEngine creates an Engine over the given store
func NewEngine(store RemoteStore) *Engine {
	return &Engine{
		store:    store,
		enum:     pathset.NewEnumerator(),
		log:      logger.With("component", "merge"),
		now:      time.Now,
		reporter: progress.NullReporter{},
	}
}

// SetReporter installs a progress reporter for initial uploads
func (e *Engine) SetReporter(r progress.Reporter) {
	if r == nil {
		r = progress.NullReporter{}
	}
	e.reporter = r
}

// CreateDocument uploads the group's full current file set as a new private
// gist: the metadata file, a marker file naming the group, and one remote
// file per tracked path. Unreadable paths are logged and skipped. On failure
// the group is not considered created and no id is returned.
func (e *Engine) CreateDocument(ctx context.Context, group domain.FileGroup) (string, error) {
	meta, err := encodeMetadata(newMetadata(group, e.now()))
	if err != nil {
		return "", err
	}

	files := map[string]string{
		MetadataFilename:           meta,
		MarkerFilename(group.Name): group.Name + "\n",
	}

	tracked := e.enum.Expand(group)
	e.reporter.SetTotal(len(tracked))
	for _, tp := range tracked {
		e.reporter.FileStart(tp.Path)
		data, err := os.ReadFile(tp.Path)
		if err != nil {
			e.log.Warn("skipping unreadable file on create", "path", tp.Path, "error", err)
			e.reporter.FileError(tp.Path, err)
			continue
		}
		files[tp.RemoteName()] = string(data)
		e.reporter.FileDone(tp.Path, int64(len(data)))
	}

	id, err := e.store.Create(ctx, group.Description, false, files)
	if err != nil {
		return "", fmt.Errorf("create document for group %s: %w", group.Name, err)
	}

	e.log.Info("created remote document", "group", group.Name, "gist", id, "files", len(files))
	return id, nil
}

// UpdateDocument merges the change batch into the remote document. It
// fetches the current remote file set so files outside this tool's
// management are carried forward unchanged, recovers the full watched-folder
// list from the remote metadata (a single batch may not reflect the whole
// watch set), rewrites the metadata with a fresh timestamp, and writes
// everything back in one call.
//
// No local state is mutated here; the caller persists new hashes only after
// this returns nil.
func (e *Engine) UpdateDocument(ctx context.Context, documentID string, group domain.FileGroup, changes []domain.FileChange) error {
	remote, err := e.store.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document %s: %w", documentID, err)
	}

	folders := append([]string(nil), group.Folders...)
	if raw, ok := remote[MetadataFilename]; ok {
		if prev, err := decodeMetadata(raw); err != nil {
			e.log.Warn("remote metadata is unparsable, rebuilding it", "gist", documentID, "error", err)
		} else {
			folders = unionFolders(folders, prev.WatchedFolders)
		}
	}

	meta, err := encodeMetadata(newMetadata(group, e.now()))
	if err != nil {
		return err
	}

	files := make(map[string]*string, len(remote)+len(changes)+1)
	files[MetadataFilename] = &meta

	for i := range changes {
		change := changes[i]
		tp := pathset.TrackedPath{
			Path:   change.Path,
			Folder: pathset.FolderOf(folders, change.Path),
		}
		files[tp.RemoteName()] = &change.Content
	}

	// Remote files this batch did not touch are carried forward unchanged
	for name := range remote {
		if _, touched := files[name]; touched {
			continue
		}
		content := remote[name]
		files[name] = &content
	}

	if err := e.store.Update(ctx, documentID, files); err != nil {
		return fmt.Errorf("update document %s: %w", documentID, err)
	}

	e.log.Info("updated remote document", "group", group.Name, "gist", documentID, "changed", len(changes))
	return nil
}

// DeleteDocument removes the remote document. Best effort: the caller logs
// failures and proceeds with local removal regardless.
func (e *Engine) DeleteDocument(ctx context.Context, documentID string) error {
	if err := e.store.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	return nil
}

// GetMetadata reads and decodes the document's metadata file. A missing or
// unparsable metadata file returns (nil, nil): "no metadata yet" is an
// ordinary initial condition, not a failure.
func (e *Engine) GetMetadata(ctx context.Context, documentID, groupName string) (*domain.RemoteMetadata, error) {
	remote, err := e.store.Get(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document %s: %w", documentID, err)
	}

	if _, ok := remote[MarkerFilename(groupName)]; !ok {
		e.log.Debug("document carries no marker for group", "gist", documentID, "group", groupName)
	}

	raw, ok := remote[MetadataFilename]
	if !ok {
		return nil, nil
	}

	meta, err := decodeMetadata(raw)
	if err != nil {
		e.log.Warn("remote metadata is unparsable", "gist", documentID, "error", err)
		return nil, nil
	}
	return meta, nil
}

// unionFolders merges two folder lists, keeping first-seen order
func unionFolders(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, f := range list {
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}
