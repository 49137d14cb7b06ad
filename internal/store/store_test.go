package store

import (
	"crypto/sha256"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/cgx/internal/models"
)

func testID(s string) models.CommitID {
	return sha256.Sum256([]byte(s))
}

// eachBackend runs fn once per storage backend against a fresh database.
func eachBackend(t *testing.T, fn func(t *testing.T, st Store)) {
	t.Helper()
	backends := []string{BackendBolt, BackendSQLite}
	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			st, err := Open(backend, filepath.Join(t.TempDir(), "objects.db"))
			require.NoError(t, err)
			defer st.Close()
			fn(t, st)
		})
	}
}

func TestStore_PutResolveRoundTrip(t *testing.T) {
	eachBackend(t, func(t *testing.T, st Store) {
		parent := testID("parent")
		c := &models.Commit{
			ID:         testID("commit"),
			TreeID:     testID("tree"),
			Parents:    []models.CommitID{parent},
			CommitTime: 1700000123,
			Message:    "add index",
		}
		require.NoError(t, st.PutCommit(c))

		got, err := st.Resolve(c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.TreeID, got.TreeID)
		assert.Equal(t, c.Parents, got.Parents)
		assert.Equal(t, c.CommitTime, got.CommitTime)
		assert.Equal(t, c.Message, got.Message)
	})
}

func TestStore_PutIsIdempotent(t *testing.T) {
	eachBackend(t, func(t *testing.T, st Store) {
		c := &models.Commit{ID: testID("once"), TreeID: testID("tree"), CommitTime: 1}
		require.NoError(t, st.PutCommit(c))

		altered := *c
		altered.Message = "should not replace"
		require.NoError(t, st.PutCommit(&altered))

		got, err := st.Resolve(c.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Message)

		n, err := st.CountCommits()
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestStore_ResolveUnknownWrapsNotFound(t *testing.T) {
	eachBackend(t, func(t *testing.T, st Store) {
		_, err := st.Resolve(testID("absent"))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_ForEachCommitVisitsAll(t *testing.T) {
	eachBackend(t, func(t *testing.T, st Store) {
		want := map[models.CommitID]bool{}
		for _, name := range []string{"a", "b", "c", "d"} {
			id := testID(name)
			want[id] = true
			require.NoError(t, st.PutCommit(&models.Commit{ID: id, TreeID: testID("t" + name), CommitTime: 1}))
		}

		seen := map[models.CommitID]bool{}
		err := st.ForEachCommit(func(c *models.Commit) error {
			seen[c.ID] = true
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, want, seen)
	})
}

func TestStore_NoParentsRoundTrip(t *testing.T) {
	eachBackend(t, func(t *testing.T, st Store) {
		c := &models.Commit{ID: testID("root"), TreeID: testID("tree"), CommitTime: 9}
		require.NoError(t, st.PutCommit(c))

		got, err := st.Resolve(c.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Parents)
	})
}

func TestStore_BranchesListAndOverwrite(t *testing.T) {
	eachBackend(t, func(t *testing.T, st Store) {
		a, b := testID("a"), testID("b")
		require.NoError(t, st.PutCommit(&models.Commit{ID: a, TreeID: testID("ta"), CommitTime: 1}))
		require.NoError(t, st.PutCommit(&models.Commit{ID: b, TreeID: testID("tb"), CommitTime: 2}))

		require.NoError(t, st.SetBranch("main", a))
		require.NoError(t, st.SetBranch("dev", a))
		require.NoError(t, st.SetBranch("main", b))

		branches, err := st.ListBranches()
		require.NoError(t, err)
		require.Len(t, branches, 2)
		assert.Equal(t, "dev", branches[0].Name)
		assert.Equal(t, a, branches[0].Commit)
		assert.Equal(t, "main", branches[1].Name)
		assert.Equal(t, b, branches[1].Commit)
	})
}
