package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gistwatch/gistwatch/internal/core/pathset"
	"github.com/gistwatch/gistwatch/internal/domain"
	"github.com/gistwatch/gistwatch/internal/watch"
)

// watchSource adapts watch.Watcher to the changeSource interface
type watchSource struct {
	watcher *watch.Watcher
}

func (ws *watchSource) stop() {
	ws.watcher.Close()
}

// armContinuous subscribes to filesystem events for the group's watch set
// and feeds qualifying events into the debounced handler
func (s *Scheduler) armContinuous(gw *groupWatch) error {
	// The event filter gets its own immutable copy of the declared lists:
	// gw.group is mutated under gw.mu on every flush, and the consumer
	// goroutine must not read it unguarded
	gw.mu.Lock()
	watchSet := domain.FileGroup{
		Name:    gw.group.Name,
		Files:   append([]string(nil), gw.group.Files...),
		Folders: append([]string(nil), gw.group.Folders...),
	}
	gw.mu.Unlock()

	watcher := watch.New()
	if err := watcher.Start(watchSet.Files, watchSet.Folders); err != nil {
		return err
	}

	gw.mu.Lock()
	gw.source = &watchSource{watcher: watcher}
	gw.state = ContinuousWatch
	gw.mu.Unlock()

	gw.wg.Add(1)
	go s.consumeEvents(gw, watcher, watchSet)

	s.log.Info("watching group continuously", "group", watchSet.Name)
	return nil
}

// consumeEvents filters raw events down to tracked paths and restarts the
// group's debounce timer for each qualifying one
func (s *Scheduler) consumeEvents(gw *groupWatch, watcher *watch.Watcher, watchSet domain.FileGroup) {
	defer gw.wg.Done()

	for {
		select {
		case <-gw.done:
			return
		case ev, ok := <-watcher.Events():
			if !ok {
				return
			}
			ev.Path = filepath.Clean(ev.Path)
			if !s.qualifies(watchSet, ev) {
				continue
			}
			s.restartDebounce(gw, ev.Path)
		}
	}
}

// qualifies applies the event filter: a modification of any tracked file,
// or a creation under a watched folder. Everything else is ignored.
func (s *Scheduler) qualifies(watchSet domain.FileGroup, ev watch.Event) bool {
	switch ev.Op {
	case watch.OpModify:
		return pathset.Contains(watchSet, ev.Path)
	case watch.OpCreate:
		return pathset.FolderFor(watchSet, ev.Path) != ""
	default:
		return false
	}
}

// restartDebounce cancels any pending timer and arms a fresh one for path.
// Only the most recent triggering path is pending: a burst of writes
// collapses into a single push of whichever file triggered last.
func (s *Scheduler) restartDebounce(gw *groupWatch, path string) {
	gw.timerMu.Lock()
	defer gw.timerMu.Unlock()

	gw.pendingPath = path
	if gw.timer != nil {
		gw.timer.Stop()
	}
	gw.timer = time.AfterFunc(s.debounce, func() {
		s.flushDebounce(gw)
	})
}

// flushDebounce runs when the debounce delay elapsed without a further
// qualifying event: push the triggering path's current content as a
// one-file change and refresh its persisted hash entry
func (s *Scheduler) flushDebounce(gw *groupWatch) {
	gw.timerMu.Lock()
	path := gw.pendingPath
	gw.timer = nil
	gw.timerMu.Unlock()

	gw.mu.Lock()
	defer gw.mu.Unlock()

	// The timer may fire between halt cancelling it and halt taking gw.mu
	if gw.stopped {
		return
	}

	ctx := context.Background()
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn("triggering file unreadable, skipping push", "group", gw.group.Name, "path", path, "error", err)
		return
	}
	content := string(data)

	change := domain.FileChange{Path: path, Content: content}
	if err := s.engine.UpdateDocument(ctx, gw.group.GistID, gw.group, []domain.FileChange{change}); err != nil {
		s.log.Error("push failed", "group", gw.group.Name, "path", path, "error", err)
		s.notifyPush(gw.group.Name, start, 1, err)
		return
	}

	fp, err := s.detector.FingerprintContent(ctx, content)
	if err != nil {
		s.log.Error("failed to fingerprint pushed content", "group", gw.group.Name, "path", path, "error", err)
		return
	}
	gw.group.SetHash(domain.FileHash{Path: path, Fingerprint: fp, SyncedAt: time.Now()})

	if err := s.store.UpdateGroup(gw.group.Name, gw.group); err != nil {
		s.log.Error("failed to persist hash table", "group", gw.group.Name, "error", err)
	}
	s.notifyPush(gw.group.Name, start, 1, nil)
	s.log.Info("pushed change", "group", gw.group.Name, "path", path)
}
