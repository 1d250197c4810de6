// Package detect decides which tracked files changed since the last known
// state. Two interchangeable strategies exist: the hash-based Detector,
// whose state persists across runs inside the group's FileHashes, and the
// snapshot-based Snapshot, whose state lives only for the process lifetime.
package detect

import (
	"bytes"
	"context"
	"os"
	"strings"
	"time"

	"github.com/gistwatch/gistwatch/internal/core/checksum"
	"github.com/gistwatch/gistwatch/internal/core/pathset"
	"github.com/gistwatch/gistwatch/internal/domain"
	"github.com/gistwatch/gistwatch/internal/logger"
)

// Result is the outcome of one hash-based detection pass
type Result struct {
	// Changes lists the files whose bytes differ from the last sync,
	// with their current content
	Changes []domain.FileChange

	// Hashes is the full replacement hash table: one entry per tracked
	// path, changed or not, in enumeration order. Entries for unchanged
	// paths are carried forward verbatim so their timestamps are not
	// refreshed.
	Hashes []domain.FileHash
}

// Detector runs hash-based change detection
type Detector struct {
	enum *pathset.Enumerator
	calc checksum.Calculator
	algo checksum.Algorithm
	log  logger.Logger
	now  func() time.Time
}

// NewDetector creates a Detector with the default SHA-256 calculator
func NewDetector() *Detector {
	return &Detector{
		enum: pathset.NewEnumerator(),
		calc: checksum.NewDefaultCalculator(),
		algo: checksum.SHA256,
		log:  logger.With("component", "detect"),
		now:  time.Now,
	}
}

// DetectAndUpdate compares every tracked path against the group's persisted
// fingerprints and returns the changed files plus the full new hash table.
// Unreadable paths (including files that vanished between enumeration and
// read) are logged and skipped; they never fail the pass. The group itself
// is not mutated; the caller persists the returned table only after the
// remote push succeeds.
func (d *Detector) DetectAndUpdate(ctx context.Context, group domain.FileGroup) (Result, error) {
	tracked := d.enum.Expand(group)

	res := Result{
		Hashes: make([]domain.FileHash, 0, len(tracked)),
	}

	for _, tp := range tracked {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		data, err := os.ReadFile(tp.Path)
		if err != nil {
			d.log.Warn("skipping unreadable file", "path", tp.Path, "error", err)
			continue
		}

		fp, err := d.calc.Sum(ctx, bytes.NewReader(data), d.algo)
		if err != nil {
			d.log.Warn("skipping unhashable file", "path", tp.Path, "error", err)
			continue
		}

		prev, known := group.HashFor(tp.Path)
		if known && prev.Fingerprint == fp {
			res.Hashes = append(res.Hashes, prev)
			continue
		}

		res.Changes = append(res.Changes, domain.FileChange{
			Path:    tp.Path,
			Content: string(data),
		})
		res.Hashes = append(res.Hashes, domain.FileHash{
			Path:        tp.Path,
			Fingerprint: fp,
			SyncedAt:    d.now(),
		})
	}

	return res, nil
}

// FingerprintContent computes the fingerprint of in-memory content, so a
// caller that already read the file does not read it twice
func (d *Detector) FingerprintContent(ctx context.Context, content string) (string, error) {
	return d.calc.Sum(ctx, strings.NewReader(content), d.algo)
}
