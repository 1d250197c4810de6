// Package service orchestrates the tool's operations across the config
// store, the merge engine, the scheduler, and the push history.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gistwatch/gistwatch/internal/config"
	"github.com/gistwatch/gistwatch/internal/core/detect"
	"github.com/gistwatch/gistwatch/internal/domain"
	"github.com/gistwatch/gistwatch/internal/logger"
	"github.com/gistwatch/gistwatch/internal/merge"
	"github.com/gistwatch/gistwatch/internal/progress"
	"github.com/gistwatch/gistwatch/internal/scheduler"
	"github.com/gistwatch/gistwatch/internal/state"
)

// SyncService ties the pieces together for the CLI commands
type SyncService struct {
	store    *config.Store
	engine   *merge.Engine
	sched    *scheduler.Scheduler
	detector *detect.Detector
	history  *state.Manager
	log      logger.Logger
}

// New creates a SyncService. history may be nil, in which case push attempts
// are not recorded.
func New(store *config.Store, engine *merge.Engine, history *state.Manager) *SyncService {
	s := &SyncService{
		store:    store,
		engine:   engine,
		sched:    scheduler.New(engine, store),
		detector: detect.NewDetector(),
		history:  history,
		log:      logger.With("component", "service"),
	}
	if history != nil {
		s.sched.SetPushHook(s.recordPush)
	}
	return s
}

// Scheduler exposes the underlying scheduler for shutdown handling
func (s *SyncService) Scheduler() *scheduler.Scheduler {
	return s.sched
}

// SetReporter installs a progress reporter for initial uploads
func (s *SyncService) SetReporter(r progress.Reporter) {
	s.engine.SetReporter(r)
}

// CreateGroup uploads the group's current file set as a new remote document
// and persists the group with the returned id. When persisting fails the
// just-created remote document is deleted again, best effort.
func (s *SyncService) CreateGroup(ctx context.Context, group domain.FileGroup) (domain.FileGroup, error) {
	if err := group.Validate(); err != nil {
		return domain.FileGroup{}, err
	}

	id, err := s.engine.CreateDocument(ctx, group)
	if err != nil {
		return domain.FileGroup{}, err
	}
	group.GistID = id

	if err := s.store.AddGroup(group); err != nil {
		if delErr := s.engine.DeleteDocument(ctx, id); delErr != nil {
			s.log.Error("failed to roll back remote document", "gist", id, "error", delErr)
		}
		return domain.FileGroup{}, err
	}

	s.log.Info("group created", "group", group.Name, "gist", id)
	return group, nil
}

// RemoveGroup deletes the group's remote document and its local definition.
// A failing remote delete is logged and does not block local removal; the
// group may simply never have had a remote, or it was deleted out of band.
func (s *SyncService) RemoveGroup(ctx context.Context, name string) error {
	group, err := s.store.GetGroup(name)
	if err != nil {
		return err
	}

	s.sched.Stop(name)

	if group.HasRemote() {
		if err := s.engine.DeleteDocument(ctx, group.GistID); err != nil {
			s.log.Warn("failed to delete remote document, removing group anyway",
				"group", name, "gist", group.GistID, "error", err)
		}
	}

	return s.store.RemoveGroup(name)
}

// Push runs one hash-based detect-and-update pass for the group and returns
// how many files were pushed. Zero with a nil error means the group was
// already in sync.
func (s *SyncService) Push(ctx context.Context, name string) (int, error) {
	group, err := s.store.GetGroup(name)
	if err != nil {
		return 0, err
	}
	if !group.HasRemote() {
		return 0, domain.ErrNoRemoteDocument
	}

	start := time.Now()
	res, err := s.detector.DetectAndUpdate(ctx, group)
	if err != nil {
		return 0, err
	}
	if len(res.Changes) == 0 {
		return 0, nil
	}

	if err := s.engine.UpdateDocument(ctx, group.GistID, group, res.Changes); err != nil {
		s.recordPush(name, start, time.Now(), len(res.Changes), err)
		return 0, err
	}

	group.FileHashes = res.Hashes
	if err := s.store.UpdateGroup(name, group); err != nil {
		return len(res.Changes), fmt.Errorf("push succeeded but persisting hashes failed: %w", err)
	}

	s.recordPush(name, start, time.Now(), len(res.Changes), nil)
	return len(res.Changes), nil
}

// Watch starts continuous or interval watching for the group.
// interval <= 0 means continuous filesystem watching.
func (s *SyncService) Watch(ctx context.Context, name string, interval time.Duration) error {
	group, err := s.store.GetGroup(name)
	if err != nil {
		return err
	}
	return s.sched.Start(ctx, group, interval)
}

// Unwatch stops watching the group; a no-op when it is not watched
func (s *SyncService) Unwatch(name string) {
	s.sched.Stop(name)
}

// Groups returns all defined groups
func (s *SyncService) Groups() ([]domain.FileGroup, error) {
	cfg, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	return cfg.Groups, nil
}

// RemoteMetadata fetches the group's remote metadata; nil when the remote
// document carries none
func (s *SyncService) RemoteMetadata(ctx context.Context, name string) (*domain.RemoteMetadata, error) {
	group, err := s.store.GetGroup(name)
	if err != nil {
		return nil, err
	}
	if !group.HasRemote() {
		return nil, domain.ErrNoRemoteDocument
	}
	return s.engine.GetMetadata(ctx, group.GistID, group.Name)
}

// recordPush writes one push attempt into the history database
func (s *SyncService) recordPush(group string, start, end time.Time, files int, pushErr error) {
	if s.history == nil {
		return
	}

	record := state.PushRecord{
		Group:  group,
		Start:  start,
		End:    end,
		Status: state.StatusSuccess,
		Files:  files,
	}
	if pushErr != nil {
		record.Status = state.StatusFailed
		record.Error = pushErr.Error()
	}

	if err := s.history.RecordPush(record); err != nil {
		s.log.Warn("failed to record push history", "group", group, "error", err)
	}
}
