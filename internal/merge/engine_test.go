package merge_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gistwatch/gistwatch/internal/domain"
	"github.com/gistwatch/gistwatch/internal/merge"
	"github.com/gistwatch/gistwatch/internal/testutil"
	"github.com/gistwatch/gistwatch/internal/version"
)

// TestCreateDocumentRoundTrip tests that create followed by GetMetadata
// yields the group's declared lists and the tool version
func TestCreateDocumentRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "a.txt", []byte("hello"))
	sub := filepath.Join(dir, "d")
	testutil.WriteFile(t, sub, "x.txt", []byte("x"))

	store := testutil.NewFakeStore()
	engine := merge.NewEngine(store)
	ctx := context.Background()

	group := domain.FileGroup{
		Name:        "docs",
		Description: "my docs",
		Files:       []string{a},
		Folders:     []string{sub},
	}

	id, err := engine.CreateDocument(ctx, group)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	files := store.Files(id)
	if files == nil {
		t.Fatal("document was not stored")
	}
	if files["a.txt"] != "hello" {
		t.Errorf("a.txt content = %q, want hello", files["a.txt"])
	}
	if files["d/x.txt"] != "x" {
		t.Errorf("d/x.txt content = %q, want x", files["d/x.txt"])
	}
	if _, ok := files[merge.MarkerFilename("docs")]; !ok {
		t.Error("marker file missing")
	}

	meta, err := engine.GetMetadata(ctx, id, "docs")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if meta == nil {
		t.Fatal("metadata absent after create")
	}
	if meta.Version != version.Version {
		t.Errorf("metadata version = %q, want %q", meta.Version, version.Version)
	}
	if len(meta.WatchedFiles) != 1 || meta.WatchedFiles[0] != a {
		t.Errorf("watchedFiles = %v, want [%s]", meta.WatchedFiles, a)
	}
	if len(meta.WatchedFolders) != 1 || meta.WatchedFolders[0] != sub {
		t.Errorf("watchedFolders = %v, want [%s]", meta.WatchedFolders, sub)
	}
	if meta.UploadDate.IsZero() {
		t.Error("uploadDate is zero")
	}
}

// TestCreateDocumentPropagatesFailure tests that a store failure yields no id
func TestCreateDocumentPropagatesFailure(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "a.txt", []byte("hello"))

	store := testutil.NewFakeStore()
	store.FailCreate = domain.ErrUnauthorized
	engine := merge.NewEngine(store)

	_, err := engine.CreateDocument(context.Background(), domain.FileGroup{
		Name:  "docs",
		Files: []string{a},
	})
	if err == nil {
		t.Fatal("expected create failure to propagate")
	}
}

// TestUpdateDocumentPreservesForeignFiles tests that remote files outside the
// watched set survive an update
func TestUpdateDocumentPreservesForeignFiles(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "a.txt", []byte("hello"))

	store := testutil.NewFakeStore()
	engine := merge.NewEngine(store)
	ctx := context.Background()

	group := domain.FileGroup{Name: "docs", Files: []string{a}}
	id, err := engine.CreateDocument(ctx, group)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	// Someone added an unrelated file to the gist by hand
	foreign := "notes.md"
	content := "do not lose me"
	if err := store.Update(ctx, id, map[string]*string{foreign: &content}); err != nil {
		t.Fatalf("failed to plant foreign file: %v", err)
	}

	err = engine.UpdateDocument(ctx, id, group, []domain.FileChange{
		{Path: a, Content: "hello v2"},
	})
	if err != nil {
		t.Fatalf("UpdateDocument failed: %v", err)
	}

	files := store.Files(id)
	if files[foreign] != content {
		t.Errorf("foreign file clobbered: %q", files[foreign])
	}
	if files["a.txt"] != "hello v2" {
		t.Errorf("a.txt = %q, want hello v2", files["a.txt"])
	}
}

// TestUpdateDocumentIdempotent tests that applying the same change batch
// twice leaves content identical after the second call
func TestUpdateDocumentIdempotent(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteFile(t, dir, "a.txt", []byte("hello"))

	store := testutil.NewFakeStore()
	engine := merge.NewEngine(store)
	ctx := context.Background()

	group := domain.FileGroup{Name: "docs", Files: []string{a}}
	id, err := engine.CreateDocument(ctx, group)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	changes := []domain.FileChange{{Path: a, Content: "same content"}}

	if err := engine.UpdateDocument(ctx, id, group, changes); err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	first := store.Files(id)

	if err := engine.UpdateDocument(ctx, id, group, changes); err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	second := store.Files(id)

	if len(first) != len(second) {
		t.Fatalf("file set size changed: %d vs %d", len(first), len(second))
	}
	for name := range first {
		if name == merge.MetadataFilename {
			// Metadata timestamp may differ; content equality is not required
			continue
		}
		if first[name] != second[name] {
			t.Errorf("file %s changed between identical updates", name)
		}
	}
}

// TestUpdateDocumentRecoversFoldersFromMetadata tests that a changed path is
// named using the folder list recorded remotely even when the local group
// definition no longer lists that folder
func TestUpdateDocumentRecoversFoldersFromMetadata(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "d")
	x := testutil.WriteFile(t, sub, "x.txt", []byte("x"))

	store := testutil.NewFakeStore()
	engine := merge.NewEngine(store)
	ctx := context.Background()

	full := domain.FileGroup{Name: "docs", Folders: []string{sub}}
	id, err := engine.CreateDocument(ctx, full)
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}

	// A drifted local definition that lost the folder list
	drifted := domain.FileGroup{Name: "docs", Files: []string{x}}

	err = engine.UpdateDocument(ctx, id, drifted, []domain.FileChange{
		{Path: x, Content: "x v2"},
	})
	if err != nil {
		t.Fatalf("UpdateDocument failed: %v", err)
	}

	files := store.Files(id)
	if files["d/x.txt"] != "x v2" {
		t.Errorf("folder-derived name lost: files = %v", files)
	}
}

// TestUpdateDocumentPropagatesFetchFailure tests that a failed fetch aborts
// the update
func TestUpdateDocumentPropagatesFetchFailure(t *testing.T) {
	store := testutil.NewFakeStore()
	store.FailGet = domain.ErrRateLimited
	engine := merge.NewEngine(store)

	err := engine.UpdateDocument(context.Background(), "gist-1", domain.FileGroup{Name: "docs"}, nil)
	if err == nil {
		t.Fatal("expected fetch failure to propagate")
	}
	if store.UpdateCalls != 0 {
		t.Errorf("update was attempted after failed fetch")
	}
}

// TestDeleteDocumentNotFound tests that deleting an unknown id reports the
// error for the caller to log and ignore
func TestDeleteDocumentNotFound(t *testing.T) {
	store := testutil.NewFakeStore()
	engine := merge.NewEngine(store)

	err := engine.DeleteDocument(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected not-found error")
	}
}

// TestGetMetadataAbsent tests that missing or unparsable metadata is absent,
// not a failure
func TestGetMetadataAbsent(t *testing.T) {
	store := testutil.NewFakeStore()
	engine := merge.NewEngine(store)
	ctx := context.Background()

	// Document with no metadata file at all
	id, err := store.Create(ctx, "bare", false, map[string]string{"readme.md": "hi"})
	if err != nil {
		t.Fatalf("failed to create bare document: %v", err)
	}

	meta, err := engine.GetMetadata(ctx, id, "docs")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if meta != nil {
		t.Errorf("expected absent metadata, got %+v", meta)
	}

	// Unparsable metadata file
	bad := "{not json"
	if err := store.Update(ctx, id, map[string]*string{merge.MetadataFilename: &bad}); err != nil {
		t.Fatalf("failed to plant bad metadata: %v", err)
	}

	meta, err = engine.GetMetadata(ctx, id, "docs")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if meta != nil {
		t.Errorf("expected absent metadata for unparsable file, got %+v", meta)
	}
}
