package detect

import (
	"os"

	"github.com/gistwatch/gistwatch/internal/core/pathset"
	"github.com/gistwatch/gistwatch/internal/domain"
	"github.com/gistwatch/gistwatch/internal/logger"
)

// Snapshot holds the last observed content of each tracked path for one
// watch session. It guards against filesystems with unreliable mtime or
// event granularity by comparing actual content against a process-local
// baseline. Never persisted.
//
// Not safe for concurrent use; the scheduler serializes access per group.
type Snapshot struct {
	enum     *pathset.Enumerator
	contents map[string]string
	log      logger.Logger
}

// NewSnapshot creates an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{
		enum:     pathset.NewEnumerator(),
		contents: make(map[string]string),
		log:      logger.With("component", "snapshot"),
	}
}

// Seed records the current content of every tracked path as the baseline,
// so the first interval tick only reports changes made after the watch
// started. Unreadable paths are logged and skipped.
func (s *Snapshot) Seed(group domain.FileGroup) {
	for _, tp := range s.enum.Expand(group) {
		data, err := os.ReadFile(tp.Path)
		if err != nil {
			s.log.Warn("cannot seed snapshot for file", "path", tp.Path, "error", err)
			continue
		}
		s.contents[tp.Path] = string(data)
	}
}

// Detect compares every tracked path's current content against the last
// observed content and returns the differing files. Any difference counts,
// including the first observation of a path that was not seeded. The
// snapshot is updated to the new content as a side effect. A path that
// disappeared since the last pass is no change, not an error.
func (s *Snapshot) Detect(group domain.FileGroup) []domain.FileChange {
	var changes []domain.FileChange

	for _, tp := range s.enum.Expand(group) {
		data, err := os.ReadFile(tp.Path)
		if err != nil {
			s.log.Warn("skipping unreadable file", "path", tp.Path, "error", err)
			continue
		}

		content := string(data)
		prev, seen := s.contents[tp.Path]
		if seen && prev == content {
			continue
		}

		s.contents[tp.Path] = content
		changes = append(changes, domain.FileChange{Path: tp.Path, Content: content})
	}

	return changes
}
