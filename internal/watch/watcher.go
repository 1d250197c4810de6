// Package watch subscribes to filesystem change notifications for a group's
// declared files and folders. Folders are watched recursively so nested
// files are observed; symlinks are not followed.
package watch

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rjeczalik/notify"

	"github.com/gistwatch/gistwatch/internal/logger"
)

const eventBufferSize = 64

// Op classifies a filesystem event
type Op int

const (
	// OpModify indicates an existing file was written
	OpModify Op = iota
	// OpCreate indicates a file appeared
	OpCreate
)

// String returns a human-readable representation of the operation
func (op Op) String() string {
	switch op {
	case OpModify:
		return "modify"
	case OpCreate:
		return "create"
	default:
		return "unknown"
	}
}

// Event is one observed filesystem change
type Event struct {
	Path string
	Op   Op
}

// Watcher forwards raw filesystem events for one group's watch set
type Watcher struct {
	raw    chan notify.EventInfo
	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
	log    logger.Logger

	mu      sync.Mutex
	started bool
}

// New creates a Watcher; Start must be called before events flow
func New() *Watcher {
	return &Watcher{
		raw:    make(chan notify.EventInfo, eventBufferSize),
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
		log:    logger.With("component", "watch"),
	}
}

// Start subscribes to the union of the declared files and folders. Folders
// get recursive subscriptions. Declared files are covered by watching their
// parent directory; the consumer filters events down to tracked paths.
// Permission errors on individual entries are logged and tolerated; Start
// fails only when not a single subscription could be armed.
func (w *Watcher) Start(files, folders []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("watcher already started")
	}

	points := make(map[string]struct{})
	for _, folder := range folders {
		points[filepath.Clean(folder)+"/..."] = struct{}{}
	}
	for _, file := range files {
		dir := filepath.Dir(filepath.Clean(file))
		// A recursive subscription on an ancestor already covers this file
		if covered(points, dir) {
			continue
		}
		points[dir] = struct{}{}
	}

	armed := 0
	for point := range points {
		if err := notify.Watch(point, w.raw, notify.Write, notify.Create, notify.Rename); err != nil {
			w.log.Warn("cannot watch path", "path", point, "error", err)
			continue
		}
		armed++
	}
	if armed == 0 {
		return fmt.Errorf("no watchable paths among %d declared entries", len(points))
	}

	w.started = true
	w.wg.Add(1)
	go w.loop()

	return nil
}

// Events returns the channel carrying observed changes.
// Closed when the watcher stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close stops the subscription and waits for the forwarding loop to exit.
// Idempotent.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.started = false

	close(w.done)
	notify.Stop(w.raw)
	w.wg.Wait()
	close(w.events)
}

// loop converts raw notifications into Events
func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case ei, ok := <-w.raw:
			if !ok {
				return
			}

			ev, keep := convert(ei)
			if !keep {
				continue
			}
			select {
			case w.events <- ev:
			case <-w.done:
				return
			}
		}
	}
}

// convert maps a notify event onto an Event. Writes are modifications;
// creates and renames-into-place are creations (editors often save through
// a rename). Removals are dropped.
func convert(ei notify.EventInfo) (Event, bool) {
	switch ei.Event() {
	case notify.Write:
		return Event{Path: ei.Path(), Op: OpModify}, true
	case notify.Create, notify.Rename:
		return Event{Path: ei.Path(), Op: OpCreate}, true
	default:
		return Event{}, false
	}
}

// covered reports whether dir is inside any folder already subscribed
// recursively
func covered(points map[string]struct{}, dir string) bool {
	for point := range points {
		root, recursive := strings.CutSuffix(point, "/...")
		if !recursive {
			continue
		}
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}
