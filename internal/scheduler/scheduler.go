// Package scheduler owns the per-group sync lifecycle: one initial
// detect-and-push pass on start, then either a debounced filesystem
// subscription or a fixed polling interval feeding the merge engine.
//
// Per group the state machine is
// Stopped -> Starting -> {ContinuousWatch | IntervalPolling} -> Stopped.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/gistwatch/gistwatch/internal/core/detect"
	"github.com/gistwatch/gistwatch/internal/domain"
	"github.com/gistwatch/gistwatch/internal/logger"
	"github.com/gistwatch/gistwatch/internal/merge"
)

// DebounceDelay is the quiet period after a filesystem event before the
// triggering file is pushed. Bursts of writes within the window collapse
// into one remote update.
const DebounceDelay = time.Second

// State is a group's position in the watch lifecycle
type State int

const (
	Stopped State = iota
	Starting
	ContinuousWatch
	IntervalPolling
)

// String returns a human-readable representation of the state
func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case ContinuousWatch:
		return "watching"
	case IntervalPolling:
		return "polling"
	default:
		return "unknown"
	}
}

// GroupStore persists group mutations (updated hash tables) between passes
type GroupStore interface {
	UpdateGroup(name string, group domain.FileGroup) error
}

// PushHook observes completed push attempts; used to record execution
// history. err is nil on success.
type PushHook func(group string, start, end time.Time, files int, err error)

// Scheduler arranges when change detection runs for each started group.
// Groups are independent: a slow remote call for one group never blocks
// another group's events or ticks.
type Scheduler struct {
	engine   *merge.Engine
	detector *detect.Detector
	store    GroupStore
	log      logger.Logger

	mu       sync.Mutex
	groups   map[string]*groupWatch
	disposed bool

	debounce time.Duration
	pushHook PushHook
}

// groupWatch is the owned state of one started group
type groupWatch struct {
	// mu serializes detect -> push -> persist for this group, so a new
	// event's handler cannot interleave with an in-flight update of the
	// same group's hash table
	mu    sync.Mutex
	group domain.FileGroup
	state State

	// stopped is set under mu as the first act of halt. A debounce flush
	// that fired before the timer was cancelled re-checks it after taking
	// mu, so no new remote call starts once a stop or dispose has begun.
	stopped bool

	source   changeSource
	snapshot *detect.Snapshot

	// Debounce state (continuous mode): at most one pending timer;
	// restarting replaces, never stacks
	timerMu     sync.Mutex
	timer       *time.Timer
	pendingPath string

	done chan struct{}
	wg   sync.WaitGroup
}

// changeSource is whichever ongoing mechanism feeds a started group:
// a filesystem subscription or an interval ticker
type changeSource interface {
	stop()
}

// New creates a Scheduler pushing through engine and persisting through
// store
func New(engine *merge.Engine, store GroupStore) *Scheduler {
	return &Scheduler{
		engine:   engine,
		detector: detect.NewDetector(),
		store:    store,
		log:      logger.With("component", "scheduler"),
		groups:   make(map[string]*groupWatch),
		debounce: DebounceDelay,
	}
}

// SetDebounce overrides the debounce delay (tests only)
func (s *Scheduler) SetDebounce(d time.Duration) {
	s.debounce = d
}

// SetPushHook installs an observer for completed push attempts
func (s *Scheduler) SetPushHook(hook PushHook) {
	s.pushHook = hook
}

// Start begins watching a group. It always runs one hash-based
// detect-and-update pass synchronously first, pushing any drift accumulated
// while the tool was not running. Then it arms the ongoing mechanism:
// an interval ticker when interval > 0, otherwise a filesystem
// subscription with debouncing.
//
// Fails with domain.ErrNoRemoteDocument when the group has no gist yet and
// with domain.ErrAlreadyWatching when the group is already started. A
// failing initial push is logged, leaves persisted state untouched, and
// does not prevent arming; the next detection pass retries the same drift.
func (s *Scheduler) Start(ctx context.Context, group domain.FileGroup, interval time.Duration) error {
	if err := group.Validate(); err != nil {
		return err
	}
	if !group.HasRemote() {
		return domain.ErrNoRemoteDocument
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return domain.ErrSchedulerDisposed
	}
	if _, exists := s.groups[group.Name]; exists {
		s.mu.Unlock()
		return domain.ErrAlreadyWatching
	}
	gw := &groupWatch{
		group: group.Clone(),
		state: Starting,
		done:  make(chan struct{}),
	}
	s.groups[group.Name] = gw
	s.mu.Unlock()

	// Initial pass, synchronous: catch drift since the last sync
	gw.mu.Lock()
	s.runHashPass(ctx, gw)
	gw.mu.Unlock()

	var err error
	if interval > 0 {
		err = s.armInterval(gw, interval)
	} else {
		err = s.armContinuous(gw)
	}
	if err != nil {
		s.mu.Lock()
		delete(s.groups, group.Name)
		s.mu.Unlock()
		return err
	}

	return nil
}

// Stop halts watching for the named group, cancelling its timer or closing
// its subscription and discarding in-memory snapshot state. Idempotent:
// stopping an unstarted group is a no-op.
func (s *Scheduler) Stop(groupName string) {
	s.mu.Lock()
	gw, ok := s.groups[groupName]
	if ok {
		delete(s.groups, groupName)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	s.halt(gw)
	s.log.Info("stopped watching group", "group", groupName)
}

// DisposeAll stops every armed group and refuses further starts. Called on
// process shutdown so no timers or subscriptions dangle; in-flight remote
// calls finish, but no new ones start after dispose begins.
func (s *Scheduler) DisposeAll() {
	s.mu.Lock()
	s.disposed = true
	stopped := make([]*groupWatch, 0, len(s.groups))
	for name, gw := range s.groups {
		stopped = append(stopped, gw)
		delete(s.groups, name)
	}
	s.mu.Unlock()

	for _, gw := range stopped {
		s.halt(gw)
	}
	s.log.Info("scheduler disposed", "groups", len(stopped))
}

// Status returns the group's lifecycle state; Stopped when unknown
func (s *Scheduler) Status(groupName string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	gw, ok := s.groups[groupName]
	if !ok {
		return Stopped
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return gw.state
}

// Watched returns the names of all started groups
func (s *Scheduler) Watched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.groups))
	for name := range s.groups {
		names = append(names, name)
	}
	return names
}

// halt tears down one groupWatch: pending debounce timer, change source,
// background goroutines. Taking gw.mu to set stopped also waits out any
// in-flight push, so when halt returns no remote call is running and none
// can start.
func (s *Scheduler) halt(gw *groupWatch) {
	gw.mu.Lock()
	gw.stopped = true
	gw.mu.Unlock()

	gw.timerMu.Lock()
	if gw.timer != nil {
		gw.timer.Stop()
		gw.timer = nil
	}
	gw.timerMu.Unlock()

	close(gw.done)
	if gw.source != nil {
		gw.source.stop()
	}
	gw.wg.Wait()

	gw.mu.Lock()
	gw.state = Stopped
	gw.snapshot = nil
	gw.mu.Unlock()
}

// runHashPass executes one hash-based detect-and-update pass for the group
// and persists the new hash table only when the push succeeded.
// Caller holds gw.mu.
func (s *Scheduler) runHashPass(ctx context.Context, gw *groupWatch) {
	start := time.Now()

	res, err := s.detector.DetectAndUpdate(ctx, gw.group)
	if err != nil {
		s.log.Error("detection pass failed", "group", gw.group.Name, "error", err)
		return
	}

	if len(res.Changes) == 0 {
		s.log.Debug("no drift detected", "group", gw.group.Name)
		return
	}

	if err := s.engine.UpdateDocument(ctx, gw.group.GistID, gw.group, res.Changes); err != nil {
		// Leave persisted state unchanged so the next pass re-attempts
		// the same changes
		s.log.Error("push failed", "group", gw.group.Name, "error", err)
		s.notifyPush(gw.group.Name, start, len(res.Changes), err)
		return
	}

	gw.group.FileHashes = res.Hashes
	if err := s.store.UpdateGroup(gw.group.Name, gw.group); err != nil {
		s.log.Error("failed to persist hash table", "group", gw.group.Name, "error", err)
	}
	s.notifyPush(gw.group.Name, start, len(res.Changes), nil)
	s.log.Info("pushed drift", "group", gw.group.Name, "files", len(res.Changes))
}

func (s *Scheduler) notifyPush(group string, start time.Time, files int, err error) {
	if s.pushHook != nil {
		s.pushHook(group, start, time.Now(), files, err)
	}
}
