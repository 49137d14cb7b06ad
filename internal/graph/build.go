package graph

import (
	"fmt"
	"sort"

	"github.com/kilupskalvis/cgx/internal/models"
	"github.com/kilupskalvis/cgx/internal/store"
)

// GenerationSource supplies generation numbers for commits indexed by a
// prior chain, so an incremental build only computes the new commits.
type GenerationSource interface {
	Generation(id models.CommitID) (uint32, bool)
}

// Progress is an optional observational callback reporting phase and
// completion counts. It never affects outcomes.
type Progress func(phase string, done, total int)

func (p Progress) report(phase string, done, total int) {
	if p != nil {
		p(phase, done, total)
	}
}

// Visit states for the topological pass.
const (
	stateUnvisited = iota
	stateVisiting
	stateDone
)

// Build derives index records for the given commit set. Generation numbers
// are computed in parent-before-child order with an explicit stack, so
// history depth never grows the call stack; a cycle in the parent relation
// fails with ErrInvalidHistory instead of looping. Parents already indexed
// by the prior chain contribute their stored generation; a parent found in
// neither the input set nor the prior chain also fails with
// ErrInvalidHistory, since its generation cannot be known.
//
// The returned records are sorted by ID, ready for Encode.
func Build(ids []models.CommitID, st store.ObjectStore, prior GenerationSource, progress Progress) ([]models.CommitRecord, error) {
	commits := make(map[models.CommitID]*models.Commit, len(ids))
	for i, id := range ids {
		if _, ok := commits[id]; ok {
			continue
		}
		c, err := st.Resolve(id)
		if err != nil {
			return nil, fmt.Errorf("resolve commit %s: %w", id.Short(), err)
		}
		commits[id] = c
		progress.report("resolving commits", i+1, len(ids))
	}

	states := make(map[models.CommitID]int, len(commits))
	gens := make(map[models.CommitID]uint32, len(commits))

	done := 0
	for id := range commits {
		if states[id] == stateDone {
			continue
		}

		stack := []models.CommitID{id}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			if states[cur] == stateDone {
				stack = stack[:len(stack)-1]
				continue
			}
			states[cur] = stateVisiting

			c := commits[cur]
			var maxParent uint32
			ready := true
			for _, p := range c.Parents {
				if _, inSet := commits[p]; inSet {
					switch states[p] {
					case stateDone:
						if g := gens[p]; g > maxParent {
							maxParent = g
						}
					case stateVisiting:
						return nil, fmt.Errorf("%w: cycle through commit %s", ErrInvalidHistory, p.Short())
					default:
						stack = append(stack, p)
						ready = false
					}
					continue
				}
				if prior != nil {
					if g, ok := prior.Generation(p); ok {
						if g > maxParent {
							maxParent = g
						}
						continue
					}
				}
				return nil, fmt.Errorf("%w: commit %s has parent %s outside the input set and prior chain",
					ErrInvalidHistory, cur.Short(), p.Short())
			}
			if !ready {
				continue
			}

			gens[cur] = maxParent + 1
			states[cur] = stateDone
			stack = stack[:len(stack)-1]
			done++
			progress.report("computing generations", done, len(commits))
		}
	}

	records := make([]models.CommitRecord, 0, len(commits))
	for id, c := range commits {
		records = append(records, models.CommitRecord{
			ID:         id,
			TreeID:     c.TreeID,
			Parents:    c.Parents,
			Generation: gens[id],
			CommitTime: c.CommitTime,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID.Less(records[j].ID) })
	return records, nil
}
