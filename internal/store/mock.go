package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kilupskalvis/cgx/internal/models"
)

// MockStore is an in-memory Store for tests.
type MockStore struct {
	mu       sync.RWMutex
	commits  map[models.CommitID]*models.Commit
	branches map[string]models.CommitID

	// ResolveErr, when set, is returned by every Resolve call.
	ResolveErr error
}

// NewMockStore returns an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		commits:  make(map[models.CommitID]*models.Commit),
		branches: make(map[string]models.CommitID),
	}
}

func (s *MockStore) PutCommit(c *models.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.commits[c.ID]; ok {
		return nil
	}
	cp := *c
	s.commits[c.ID] = &cp
	return nil
}

func (s *MockStore) Resolve(id models.CommitID) (*models.Commit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ResolveErr != nil {
		return nil, s.ResolveErr
	}
	c, ok := s.commits[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id.Short())
	}
	cp := *c
	return &cp, nil
}

func (s *MockStore) ForEachCommit(fn func(*models.Commit) error) error {
	s.mu.RLock()
	ids := make([]models.CommitID, 0, len(s.commits))
	for id := range s.commits {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	for _, id := range ids {
		c, err := s.Resolve(id)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (s *MockStore) CountCommits() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.commits), nil
}

func (s *MockStore) SetBranch(name string, id models.CommitID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches[name] = id
	return nil
}

func (s *MockStore) ListBranches() ([]models.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	branches := make([]models.Branch, 0, len(s.branches))
	for name, id := range s.branches {
		branches = append(branches, models.Branch{Name: name, Commit: id})
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}

// Delete removes a commit, for simulating a store that lost an object.
func (s *MockStore) Delete(id models.CommitID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.commits, id)
}

func (s *MockStore) Close() error { return nil }
