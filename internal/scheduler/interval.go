package scheduler

import (
	"context"
	"time"

	"github.com/gistwatch/gistwatch/internal/core/detect"
	"github.com/gistwatch/gistwatch/internal/domain"
)

// tickerSource adapts a time.Ticker to the changeSource interface
type tickerSource struct {
	ticker *time.Ticker
}

func (ts *tickerSource) stop() {
	ts.ticker.Stop()
}

// armInterval seeds the group's in-memory snapshot with current content and
// arms a repeating timer that runs the snapshot detector on every tick
func (s *Scheduler) armInterval(gw *groupWatch, interval time.Duration) error {
	snap := detect.NewSnapshot()
	snap.Seed(gw.group)

	ticker := time.NewTicker(interval)

	gw.mu.Lock()
	gw.snapshot = snap
	gw.source = &tickerSource{ticker: ticker}
	gw.state = IntervalPolling
	gw.mu.Unlock()

	gw.wg.Add(1)
	go s.pollLoop(gw, ticker)

	s.log.Info("polling group on interval", "group", gw.group.Name, "interval", interval)
	return nil
}

func (s *Scheduler) pollLoop(gw *groupWatch, ticker *time.Ticker) {
	defer gw.wg.Done()

	for {
		select {
		case <-gw.done:
			return
		case <-ticker.C:
			s.runSnapshotPass(gw)
		}
	}
}

// runSnapshotPass runs the snapshot detector once and pushes any changes.
// On success the persisted hash table is refreshed for the changed paths,
// so a later restart into hash-based mode stays consistent.
func (s *Scheduler) runSnapshotPass(gw *groupWatch) {
	gw.mu.Lock()
	defer gw.mu.Unlock()

	if gw.stopped || gw.snapshot == nil {
		return
	}

	ctx := context.Background()
	start := time.Now()

	changes := gw.snapshot.Detect(gw.group)
	if len(changes) == 0 {
		return
	}

	if err := s.engine.UpdateDocument(ctx, gw.group.GistID, gw.group, changes); err != nil {
		s.log.Error("push failed", "group", gw.group.Name, "error", err)
		s.notifyPush(gw.group.Name, start, len(changes), err)
		return
	}

	now := time.Now()
	for _, change := range changes {
		fp, err := s.detector.FingerprintContent(ctx, change.Content)
		if err != nil {
			s.log.Warn("failed to fingerprint pushed content", "path", change.Path, "error", err)
			continue
		}
		gw.group.SetHash(domain.FileHash{Path: change.Path, Fingerprint: fp, SyncedAt: now})
	}

	if err := s.store.UpdateGroup(gw.group.Name, gw.group); err != nil {
		s.log.Error("failed to persist hash table", "group", gw.group.Name, "error", err)
	}
	s.notifyPush(gw.group.Name, start, len(changes), nil)
	s.log.Info("pushed changes", "group", gw.group.Name, "files", len(changes))
}
