package domain

import (
	"errors"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		group FileGroup
		ok    bool
	}{
		{"valid with files", FileGroup{Name: "docs", Files: []string{"/tmp/a"}}, true},
		{"valid with folders", FileGroup{Name: "docs", Folders: []string{"/tmp/d"}}, true},
		{"empty name", FileGroup{Files: []string{"/tmp/a"}}, false},
		{"slash in name", FileGroup{Name: "a/b", Files: []string{"/tmp/a"}}, false},
		{"backslash in name", FileGroup{Name: `a\b`, Files: []string{"/tmp/a"}}, false},
		{"nothing tracked", FileGroup{Name: "docs"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.group.Validate()
			if tc.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tc.ok {
				if !errors.Is(err, ErrInvalidGroup) {
					t.Errorf("Validate() = %v, want ErrInvalidGroup", err)
				}
			}
		})
	}
}

func TestHashForAndSetHash(t *testing.T) {
	g := FileGroup{Name: "docs", Files: []string{"/tmp/a"}}

	if _, ok := g.HashFor("/tmp/a"); ok {
		t.Error("HashFor found an entry in an empty table")
	}

	first := FileHash{Path: "/tmp/a", Fingerprint: "aaa", SyncedAt: time.Now()}
	g.SetHash(first)

	got, ok := g.HashFor("/tmp/a")
	if !ok || got != first {
		t.Fatalf("HashFor = %+v, %v; want %+v", got, ok, first)
	}

	// Superseding replaces in place rather than appending
	second := FileHash{Path: "/tmp/a", Fingerprint: "bbb", SyncedAt: time.Now()}
	g.SetHash(second)

	if len(g.FileHashes) != 1 {
		t.Fatalf("len(FileHashes) = %d, want 1", len(g.FileHashes))
	}
	if got, _ := g.HashFor("/tmp/a"); got != second {
		t.Errorf("HashFor after supersede = %+v, want %+v", got, second)
	}
}

func TestClone(t *testing.T) {
	g := FileGroup{
		Name:       "docs",
		Files:      []string{"/tmp/a"},
		Folders:    []string{"/tmp/d"},
		FileHashes: []FileHash{{Path: "/tmp/a", Fingerprint: "aaa"}},
	}

	c := g.Clone()
	c.Files[0] = "/tmp/other"
	c.SetHash(FileHash{Path: "/tmp/a", Fingerprint: "bbb"})

	if g.Files[0] != "/tmp/a" {
		t.Error("mutating clone's Files changed the original")
	}
	if got, _ := g.HashFor("/tmp/a"); got.Fingerprint != "aaa" {
		t.Error("mutating clone's FileHashes changed the original")
	}
}

func TestHasRemote(t *testing.T) {
	g := FileGroup{Name: "docs", Files: []string{"/tmp/a"}}
	if g.HasRemote() {
		t.Error("group without gist id reports a remote")
	}
	g.GistID = "abc123"
	if !g.HasRemote() {
		t.Error("group with gist id reports no remote")
	}
}
