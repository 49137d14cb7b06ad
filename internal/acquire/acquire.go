// Package acquire implements the strategies that decide which commits a
// chain write indexes. Every strategy yields a closed set: each commit's
// ancestors are either in the set or already resolvable, so generation
// numbers never have unresolved dependencies.
package acquire

import (
	"fmt"

	"github.com/kilupskalvis/cgx/internal/models"
	"github.com/kilupskalvis/cgx/internal/store"
)

// Set is an acquired commit set. Complete means every ancestor of every
// member is also a member.
type Set struct {
	IDs      []models.CommitID
	Complete bool
}

// Everything enumerates every commit in the store.
func Everything(src store.CommitSource) (Set, error) {
	var ids []models.CommitID
	err := src.ForEachCommit(func(c *models.Commit) error {
		ids = append(ids, c.ID)
		return nil
	})
	if err != nil {
		return Set{}, fmt.Errorf("enumerate commits: %w", err)
	}
	return Set{IDs: ids, Complete: true}, nil
}

// Walk returns the ancestor closure of the seed commits, following parent
// pointers breadth-first. A parent the store cannot resolve fails the walk:
// an incomplete closure would leave generation numbers uncomputable.
func Walk(src store.CommitSource, seeds []models.CommitID) (Set, error) {
	seen := make(map[models.CommitID]bool, len(seeds))
	var ids []models.CommitID

	queue := append([]models.CommitID(nil), seeds...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true

		c, err := src.Resolve(id)
		if err != nil {
			return Set{}, fmt.Errorf("walk ancestors: %w", err)
		}
		ids = append(ids, id)
		queue = append(queue, c.Parents...)
	}

	return Set{IDs: ids, Complete: true}, nil
}

// Reachable returns the ancestor closure of every branch head.
func Reachable(src store.CommitSource) (Set, error) {
	branches, err := src.ListBranches()
	if err != nil {
		return Set{}, fmt.Errorf("list branches: %w", err)
	}

	seeds := make([]models.CommitID, 0, len(branches))
	for _, br := range branches {
		seeds = append(seeds, br.Commit)
	}
	return Walk(src, seeds)
}
