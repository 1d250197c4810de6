package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gistwatch/gistwatch/internal/config"
	"github.com/gistwatch/gistwatch/internal/domain"
	"github.com/gistwatch/gistwatch/internal/merge"
	"github.com/gistwatch/gistwatch/internal/state"
	"github.com/gistwatch/gistwatch/internal/testutil"
)

func newTestService(t *testing.T) (*SyncService, *testutil.FakeStore, *config.Store, *state.Manager) {
	t.Helper()

	dir := t.TempDir()
	store, err := config.NewStore(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	history, err := state.NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { history.Close() })

	fake := testutil.NewFakeStore()
	svc := New(store, merge.NewEngine(fake), history)
	t.Cleanup(svc.Scheduler().DisposeAll)

	return svc, fake, store, history
}

// TestCreateGroup tests the create flow: remote document first, then the
// group persisted with the returned id
func TestCreateGroup(t *testing.T) {
	svc, fake, store, _ := newTestService(t)

	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "a.txt", []byte("hello"))

	created, err := svc.CreateGroup(context.Background(), domain.FileGroup{
		Name:  "docs",
		Files: []string{a},
	})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if created.GistID == "" {
		t.Fatal("created group carries no gist id")
	}

	files := fake.Files(created.GistID)
	if files["a.txt"] != "hello" {
		t.Errorf("remote a.txt = %q, want 'hello'", files["a.txt"])
	}
	if _, ok := files[merge.MetadataFilename]; !ok {
		t.Error("remote document carries no metadata file")
	}

	persisted, err := store.GetGroup("docs")
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if persisted.GistID != created.GistID {
		t.Errorf("persisted gist id = %q, want %q", persisted.GistID, created.GistID)
	}
}

// TestCreateGroupRollsBackOnPersistFailure tests that a remote document
// created for a group that cannot be persisted is deleted again
func TestCreateGroupRollsBackOnPersistFailure(t *testing.T) {
	svc, fake, store, _ := newTestService(t)

	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "a.txt", []byte("hello"))
	group := domain.FileGroup{Name: "docs", Files: []string{a}}

	// Occupy the name so AddGroup fails after the remote create
	if err := store.AddGroup(group); err != nil {
		t.Fatalf("AddGroup failed: %v", err)
	}

	_, err := svc.CreateGroup(context.Background(), group)
	if !errors.Is(err, domain.ErrGroupExists) {
		t.Fatalf("err = %v, want ErrGroupExists", err)
	}
	if fake.DeleteCalls != 1 {
		t.Errorf("remote document was not rolled back (delete calls = %d)", fake.DeleteCalls)
	}
}

// TestRemoveGroup tests that removal deletes the remote document and the
// local definition
func TestRemoveGroup(t *testing.T) {
	svc, fake, store, _ := newTestService(t)

	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "a.txt", []byte("hello"))
	created, err := svc.CreateGroup(context.Background(), domain.FileGroup{Name: "docs", Files: []string{a}})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	if err := svc.RemoveGroup(context.Background(), "docs"); err != nil {
		t.Fatalf("RemoveGroup failed: %v", err)
	}

	if fake.Files(created.GistID) != nil {
		t.Error("remote document still exists")
	}
	if _, err := store.GetGroup("docs"); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Errorf("GetGroup err = %v, want ErrGroupNotFound", err)
	}
}

// TestRemoveGroupSurvivesRemoteFailure tests that a failing remote delete
// does not block local removal
func TestRemoveGroupSurvivesRemoteFailure(t *testing.T) {
	svc, fake, store, _ := newTestService(t)

	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "a.txt", []byte("hello"))
	if _, err := svc.CreateGroup(context.Background(), domain.FileGroup{Name: "docs", Files: []string{a}}); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	fake.FailDelete = errors.New("remote unavailable")
	if err := svc.RemoveGroup(context.Background(), "docs"); err != nil {
		t.Fatalf("RemoveGroup failed: %v", err)
	}
	if _, err := store.GetGroup("docs"); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Errorf("group still defined locally after remove")
	}
}

// TestPush tests the one-shot push: changed files go up, hashes persist, a
// second push finds nothing, and history records the attempt
func TestPush(t *testing.T) {
	svc, fake, store, history := newTestService(t)

	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "a.txt", []byte("hello"))
	created, err := svc.CreateGroup(context.Background(), domain.FileGroup{Name: "docs", Files: []string{a}})
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	testutil.WriteFile(t, dir, "a.txt", []byte("changed"))

	n, err := svc.Push(context.Background(), "docs")
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if n != 1 {
		t.Errorf("pushed %d files, want 1", n)
	}
	if got := fake.Files(created.GistID)["a.txt"]; got != "changed" {
		t.Errorf("remote a.txt = %q, want 'changed'", got)
	}

	persisted, err := store.GetGroup("docs")
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if _, ok := persisted.HashFor(a); !ok {
		t.Error("pushed file has no persisted hash entry")
	}

	// Nothing changed since: push is a no-op
	n, err = svc.Push(context.Background(), "docs")
	if err != nil {
		t.Fatalf("second Push failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second push reported %d files, want 0", n)
	}

	records, err := history.History("docs", 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("history has %d records, want 1", len(records))
	}
	if records[0].Status != state.StatusSuccess || records[0].Files != 1 {
		t.Errorf("history record = %+v", records[0])
	}
}

// TestPushFailureIsRecorded tests that a failing push lands in history as
// failed and does not advance the persisted hashes
func TestPushFailureIsRecorded(t *testing.T) {
	svc, fake, store, history := newTestService(t)

	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "a.txt", []byte("hello"))
	if _, err := svc.CreateGroup(context.Background(), domain.FileGroup{Name: "docs", Files: []string{a}}); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	fake.FailUpdate = errors.New("remote unavailable")

	if _, err := svc.Push(context.Background(), "docs"); err == nil {
		t.Fatal("Push succeeded against a failing remote")
	}

	persisted, _ := store.GetGroup("docs")
	if len(persisted.FileHashes) != 0 {
		t.Error("hashes were persisted despite failed push")
	}

	records, err := history.History("docs", 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(records) != 1 || records[0].Status != state.StatusFailed {
		t.Errorf("history records = %+v", records)
	}
}

// TestPushWithoutRemote tests pushing a group that was never created
// remotely
func TestPushWithoutRemote(t *testing.T) {
	svc, _, store, _ := newTestService(t)

	if err := store.AddGroup(domain.FileGroup{Name: "docs", Files: []string{"/tmp/a"}}); err != nil {
		t.Fatalf("AddGroup failed: %v", err)
	}

	_, err := svc.Push(context.Background(), "docs")
	if !errors.Is(err, domain.ErrNoRemoteDocument) {
		t.Errorf("err = %v, want ErrNoRemoteDocument", err)
	}
}

// TestWatchUnknownGroup tests watching a group that is not defined
func TestWatchUnknownGroup(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	err := svc.Watch(context.Background(), "ghost", 0)
	if !errors.Is(err, domain.ErrGroupNotFound) {
		t.Errorf("err = %v, want ErrGroupNotFound", err)
	}
}
