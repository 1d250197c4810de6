package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/gistwatch/gistwatch/internal/domain"
)

// FakeStore is an in-memory remote document store implementing the merge
// engine's RemoteStore interface. Safe for concurrent use.
type FakeStore struct {
	mu    sync.Mutex
	gists map[string]map[string]string
	next  int

	// Call counters for assertions
	CreateCalls int
	GetCalls    int
	UpdateCalls int
	DeleteCalls int

	// Forced failures; when set, the corresponding operation returns the
	// error without touching state
	FailCreate error
	FailGet    error
	FailUpdate error
	FailDelete error
}

// NewFakeStore creates an empty FakeStore
func NewFakeStore() *FakeStore {
	return &FakeStore{gists: make(map[string]map[string]string)}
}

// Create implements RemoteStore
func (s *FakeStore) Create(ctx context.Context, description string, public bool, files map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CreateCalls++
	if s.FailCreate != nil {
		return "", s.FailCreate
	}

	s.next++
	id := fmt.Sprintf("gist-%d", s.next)
	stored := make(map[string]string, len(files))
	for name, content := range files {
		stored[name] = content
	}
	s.gists[id] = stored
	return id, nil
}

// Get implements RemoteStore
func (s *FakeStore) Get(ctx context.Context, id string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.GetCalls++
	if s.FailGet != nil {
		return nil, s.FailGet
	}

	stored, ok := s.gists[id]
	if !ok {
		return nil, domain.ErrRemoteNotFound
	}
	out := make(map[string]string, len(stored))
	for name, content := range stored {
		out[name] = content
	}
	return out, nil
}

// Update implements RemoteStore: nil content removes an existing file and
// is a no-op for an absent one
func (s *FakeStore) Update(ctx context.Context, id string, files map[string]*string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.UpdateCalls++
	if s.FailUpdate != nil {
		return s.FailUpdate
	}

	stored, ok := s.gists[id]
	if !ok {
		return domain.ErrRemoteNotFound
	}
	for name, content := range files {
		if content == nil {
			delete(stored, name)
			continue
		}
		stored[name] = *content
	}
	return nil
}

// Delete implements RemoteStore
func (s *FakeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.DeleteCalls++
	if s.FailDelete != nil {
		return s.FailDelete
	}

	if _, ok := s.gists[id]; !ok {
		return domain.ErrRemoteNotFound
	}
	delete(s.gists, id)
	return nil
}

// UpdateCount returns the number of Update calls so far. Use this instead
// of reading UpdateCalls directly when the store is hit from another
// goroutine.
func (s *FakeStore) UpdateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.UpdateCalls
}

// Files returns a snapshot of the document's files, or nil if it does not
// exist
func (s *FakeStore) Files(id string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.gists[id]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(stored))
	for name, content := range stored {
		out[name] = content
	}
	return out
}
