package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kilupskalvis/cgx/internal/models"
)

// Bucket names used by the bbolt backend.
var (
	bucketCommits  = []byte("commits")
	bucketBranches = []byte("branches")
)

// BoltStore is the bbolt-backed commit store. Commits are stored as JSON
// keyed by their raw 32-byte ID.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens or creates a bbolt database at the given path.
func OpenBolt(dbPath string) (*BoltStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &BoltStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketCommits, bucketBranches} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// PutCommit stores a commit. Idempotent: an existing ID is left untouched.
func (s *BoltStore) PutCommit(c *models.Commit) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCommits)
		if b.Get(c.ID[:]) != nil {
			return nil
		}
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal commit: %w", err)
		}
		if err := b.Put(c.ID[:], data); err != nil {
			return fmt.Errorf("store commit: %w", err)
		}
		return nil
	})
}

// Resolve returns the commit for id.
func (s *BoltStore) Resolve(id models.CommitID) (*models.Commit, error) {
	var c *models.Commit
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCommits).Get(id[:])
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id.Short())
		}
		c = &models.Commit{}
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("unmarshal commit %s: %w", id.Short(), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ForEachCommit calls fn for every commit in the store.
func (s *BoltStore) ForEachCommit(fn func(*models.Commit) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCommits).ForEach(func(k, v []byte) error {
			var c models.Commit
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("unmarshal commit %x: %w", k, err)
			}
			return fn(&c)
		})
	})
}

// CountCommits returns the number of commits in the store.
func (s *BoltStore) CountCommits() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketCommits).Stats().KeyN
		return nil
	})
	return n, err
}

// SetBranch points a named reference at a commit.
func (s *BoltStore) SetBranch(name string, id models.CommitID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		br := models.Branch{Name: name, Commit: id}
		data, err := json.Marshal(br)
		if err != nil {
			return fmt.Errorf("marshal branch: %w", err)
		}
		return tx.Bucket(bucketBranches).Put([]byte(name), data)
	})
}

// ListBranches returns all named references.
func (s *BoltStore) ListBranches() ([]models.Branch, error) {
	var branches []models.Branch
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBranches).ForEach(func(k, v []byte) error {
			var br models.Branch
			if err := json.Unmarshal(v, &br); err != nil {
				return fmt.Errorf("unmarshal branch %s: %w", k, err)
			}
			branches = append(branches, br)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return branches, nil
}
