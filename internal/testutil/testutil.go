// Package testutil provides shared helpers for package tests: file tree
// builders, a wait helper for asynchronous assertions, and an in-memory
// fake of the remote gist store.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteFile creates (or overwrites) a file under dir, creating parent
// directories as needed, and returns its path
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create parent dir: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	return path
}

// WaitForCondition polls condition until it returns true or the timeout
// elapses; returns whether the condition was met
func WaitForCondition(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		<-ticker.C
	}
}
