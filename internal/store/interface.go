// Package store provides persistence for the commit object store backing
// the graph index. Two embedded backends are supported, bbolt and SQLite,
// behind a common interface; the index core only ever resolves commits,
// while acquisition additionally enumerates them.
package store

import (
	"errors"

	"github.com/kilupskalvis/cgx/internal/models"
)

// ErrNotFound is returned when a commit ID cannot be resolved.
var ErrNotFound = errors.New("commit not found")

// ObjectStore resolves commit IDs to parsed commit data. This is the only
// surface the graph builder and verifier depend on.
type ObjectStore interface {
	// Resolve returns the commit for id, or an error wrapping ErrNotFound.
	Resolve(id models.CommitID) (*models.Commit, error)
}

// CommitSource extends ObjectStore with the enumeration operations the
// acquisition strategies need.
type CommitSource interface {
	ObjectStore

	// ForEachCommit calls fn for every commit in the store, in unspecified
	// order. Iteration stops at the first error from fn.
	ForEachCommit(fn func(*models.Commit) error) error

	// ListBranches returns all named references.
	ListBranches() ([]models.Branch, error)
}

// Store is the full backend surface, including the write operations used
// to populate a repository.
type Store interface {
	CommitSource

	// PutCommit stores a commit. Idempotent: storing an existing ID is a no-op.
	PutCommit(c *models.Commit) error

	// SetBranch points a named reference at a commit.
	SetBranch(name string, id models.CommitID) error

	// CountCommits returns the number of commits in the store.
	CountCommits() (int, error)

	Close() error
}
