package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kilupskalvis/cgx/internal/models"
)

// SQLiteStore is the SQLite-backed commit store.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initialize() error {
	schema := `
	-- Commit objects
	CREATE TABLE IF NOT EXISTS commits (
		id TEXT PRIMARY KEY,
		tree_id TEXT NOT NULL,
		parent_ids JSON NOT NULL,
		commit_time INTEGER NOT NULL,
		message TEXT NOT NULL DEFAULT ''
	);

	-- Branches (named references to commits)
	CREATE TABLE IF NOT EXISTS branches (
		name TEXT PRIMARY KEY,
		commit_id TEXT NOT NULL,
		FOREIGN KEY (commit_id) REFERENCES commits(id)
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// PutCommit stores a commit. Idempotent: an existing ID is left untouched.
func (s *SQLiteStore) PutCommit(c *models.Commit) error {
	parents, err := marshalParents(c.Parents)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO commits (id, tree_id, parent_ids, commit_time, message)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		c.ID.String(), c.TreeID.String(), parents, c.CommitTime, c.Message,
	)
	return err
}

// Resolve returns the commit for id.
func (s *SQLiteStore) Resolve(id models.CommitID) (*models.Commit, error) {
	var treeHex, parentsJSON, message string
	var commitTime int64

	err := s.db.QueryRow(`
		SELECT tree_id, parent_ids, commit_time, message
		FROM commits WHERE id = ?`, id.String()).Scan(
		&treeHex, &parentsJSON, &commitTime, &message,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id.Short())
	}
	if err != nil {
		return nil, err
	}

	return scanCommit(id.String(), treeHex, parentsJSON, commitTime, message)
}

// ForEachCommit calls fn for every commit in the store.
func (s *SQLiteStore) ForEachCommit(fn func(*models.Commit) error) error {
	rows, err := s.db.Query(`SELECT id, tree_id, parent_ids, commit_time, message FROM commits`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var idHex, treeHex, parentsJSON, message string
		var commitTime int64
		if err := rows.Scan(&idHex, &treeHex, &parentsJSON, &commitTime, &message); err != nil {
			return err
		}
		c, err := scanCommit(idHex, treeHex, parentsJSON, commitTime, message)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountCommits returns the number of commits in the store.
func (s *SQLiteStore) CountCommits() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM commits`).Scan(&n)
	return n, err
}

// SetBranch points a named reference at a commit.
func (s *SQLiteStore) SetBranch(name string, id models.CommitID) error {
	_, err := s.db.Exec(`
		INSERT INTO branches (name, commit_id) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET commit_id = excluded.commit_id`,
		name, id.String(),
	)
	return err
}

// ListBranches returns all named references.
func (s *SQLiteStore) ListBranches() ([]models.Branch, error) {
	rows, err := s.db.Query(`SELECT name, commit_id FROM branches ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []models.Branch
	for rows.Next() {
		var name, idHex string
		if err := rows.Scan(&name, &idHex); err != nil {
			return nil, err
		}
		id, err := models.ParseCommitID(idHex)
		if err != nil {
			return nil, fmt.Errorf("branch %s: %w", name, err)
		}
		branches = append(branches, models.Branch{Name: name, Commit: id})
	}
	return branches, rows.Err()
}

func marshalParents(parents []models.CommitID) (string, error) {
	hexes := make([]string, len(parents))
	for i, p := range parents {
		hexes[i] = p.String()
	}
	data, err := json.Marshal(hexes)
	if err != nil {
		return "", fmt.Errorf("marshal parent ids: %w", err)
	}
	return string(data), nil
}

func scanCommit(idHex, treeHex, parentsJSON string, commitTime int64, message string) (*models.Commit, error) {
	id, err := models.ParseCommitID(idHex)
	if err != nil {
		return nil, err
	}
	tree, err := models.ParseCommitID(treeHex)
	if err != nil {
		return nil, fmt.Errorf("commit %s tree: %w", id.Short(), err)
	}

	var hexes []string
	if err := json.Unmarshal([]byte(parentsJSON), &hexes); err != nil {
		return nil, fmt.Errorf("commit %s parents: %w", id.Short(), err)
	}
	parents := make([]models.CommitID, 0, len(hexes))
	for _, h := range hexes {
		p, err := models.ParseCommitID(h)
		if err != nil {
			return nil, fmt.Errorf("commit %s parent: %w", id.Short(), err)
		}
		parents = append(parents, p)
	}

	return &models.Commit{
		ID:         id,
		TreeID:     tree,
		Parents:    parents,
		CommitTime: commitTime,
		Message:    message,
	}, nil
}
