package pathset

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/gistwatch/gistwatch/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create parent dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// TestExpandDeclaredFilesFirst tests ordering: declared files before
// folder-derived files
func TestExpandDeclaredFilesFirst(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "a")
	sub := filepath.Join(dir, "d")
	x := writeFile(t, sub, "x.txt", "x")

	e := NewEnumerator()
	got := e.Expand(domain.FileGroup{
		Name:    "g",
		Files:   []string{a},
		Folders: []string{sub},
	})

	if len(got) != 2 {
		t.Fatalf("expected 2 paths, got %d: %v", len(got), got)
	}
	if got[0].Path != a || got[0].Folder != "" {
		t.Errorf("first entry = %+v, want declared file %s with no folder", got[0], a)
	}
	if got[1].Path != x || got[1].Folder != sub {
		t.Errorf("second entry = %+v, want %s tagged with folder %s", got[1], x, sub)
	}
}

// TestExpandDeduplicates tests that a path both declared and folder-derived
// appears once, keeping the direct declaration
func TestExpandDeduplicates(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "a")

	e := NewEnumerator()
	got := e.Expand(domain.FileGroup{
		Name:    "g",
		Files:   []string{a},
		Folders: []string{dir},
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 path after dedup, got %d: %v", len(got), got)
	}
	if got[0].Folder != "" {
		t.Errorf("direct declaration should win, got folder tag %q", got[0].Folder)
	}
}

// TestExpandDeterministic tests that two expansions yield identical results
func TestExpandDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "b")
	writeFile(t, dir, "a.txt", "a")
	writeFile(t, dir, "sub/c.txt", "c")

	e := NewEnumerator()
	group := domain.FileGroup{Name: "g", Folders: []string{dir}}

	first := e.Expand(group)
	second := e.Expand(group)

	if len(first) != 3 {
		t.Fatalf("expected 3 paths, got %d", len(first))
	}
	if len(first) != len(second) {
		t.Fatalf("expansion not stable: %d vs %d entries", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("entry %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

// TestExpandSkipsDirectoriesAndSymlinks tests that only regular files come out
func TestExpandSkipsDirectoriesAndSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}

	dir := t.TempDir()
	real := writeFile(t, dir, "real.txt", "real")
	if err := os.Symlink(real, filepath.Join(dir, "link.txt")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	e := NewEnumerator()
	got := e.Expand(domain.FileGroup{Name: "g", Folders: []string{dir}})

	if len(got) != 1 {
		t.Fatalf("expected only the regular file, got %v", got)
	}
	if got[0].Path != real {
		t.Errorf("got %s, want %s", got[0].Path, real)
	}
}

// TestExpandMissingFolder tests that an unlistable folder is skipped, not fatal
func TestExpandMissingFolder(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "a")

	e := NewEnumerator()
	got := e.Expand(domain.FileGroup{
		Name:    "g",
		Files:   []string{a},
		Folders: []string{filepath.Join(dir, "gone")},
	})

	if len(got) != 1 || got[0].Path != a {
		t.Errorf("expected declared file to survive missing folder, got %v", got)
	}
}

// TestRemoteName tests remote name resolution for direct and folder-derived
// paths
func TestRemoteName(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "d")
	x := writeFile(t, sub, "x.txt", "x")
	nested := writeFile(t, sub, "inner/y.txt", "y")

	e := NewEnumerator()
	got := e.Expand(domain.FileGroup{Name: "g", Folders: []string{sub}})

	names := make(map[string]string, len(got))
	for _, p := range got {
		names[p.Path] = p.RemoteName()
	}

	if names[x] != "d/x.txt" {
		t.Errorf("remote name for %s = %q, want d/x.txt", x, names[x])
	}
	if names[nested] != "d/inner/y.txt" {
		t.Errorf("remote name for %s = %q, want d/inner/y.txt", nested, names[nested])
	}

	direct := TrackedPath{Path: "/tmp/a.txt"}
	if direct.RemoteName() != "a.txt" {
		t.Errorf("direct remote name = %q, want a.txt", direct.RemoteName())
	}
}

// TestContainsAndFolderFor tests event-path classification
func TestContainsAndFolderFor(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "watched")
	inside := writeFile(t, sub, "in.txt", "in")
	outside := writeFile(t, dir, "out.txt", "out")
	declared := writeFile(t, dir, "direct.txt", "direct")

	group := domain.FileGroup{
		Name:    "g",
		Files:   []string{declared},
		Folders: []string{sub},
	}

	if !Contains(group, inside) {
		t.Errorf("Contains(%s) = false, want true", inside)
	}
	if !Contains(group, declared) {
		t.Errorf("Contains(%s) = false, want true", declared)
	}
	if Contains(group, outside) {
		t.Errorf("Contains(%s) = true, want false", outside)
	}

	if got := FolderFor(group, inside); got != sub {
		t.Errorf("FolderFor(%s) = %q, want %q", inside, got, sub)
	}
	if got := FolderFor(group, declared); got != "" {
		t.Errorf("FolderFor(%s) = %q, want empty", declared, got)
	}
}
