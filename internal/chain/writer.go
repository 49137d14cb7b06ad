package chain

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilupskalvis/cgx/internal/graph"
	"github.com/kilupskalvis/cgx/internal/models"
	"github.com/kilupskalvis/cgx/internal/store"
)

// Result summarizes a successful chain write.
type Result struct {
	Files      []string // installed chain, base first
	Commits    int      // total commits in the installed chain
	NewCommits int      // commits indexed for the first time by this write
	Expired    int      // superseded files deleted by the sweep
}

// Write builds index records for the given commit set and installs a new
// chain under dir. Every graph file is durably written before the manifest
// is swapped in, so a failure at any point leaves the previously installed
// chain untouched and readable.
func Write(dir string, st store.ObjectStore, ids []models.CommitID, opts Options) (*Result, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create chain directory: %w", err)
	}

	prior, err := Load(dir)
	if err != nil {
		if opts.Append || opts.Split {
			return nil, fmt.Errorf("load installed chain: %w", err)
		}
		// A full rewrite does not depend on the old chain's contents.
		prior = &Chain{Dir: dir}
	}

	var (
		records  []models.CommitRecord
		retained []*File
		newCount int
	)

	if opts.Split {
		// Only commits not already indexed form the candidate tip.
		var fresh []models.CommitID
		for _, id := range ids {
			if !prior.Has(id) {
				fresh = append(fresh, id)
			}
		}
		if len(fresh) == 0 {
			res := &Result{Commits: prior.TotalCommits()}
			for _, f := range prior.Files {
				res.Files = append(res.Files, f.Name)
			}
			res.Expired = expireAfter(dir, res.Files, opts)
			return res, nil
		}
		newCount = len(fresh)

		candidate, err := graph.Build(fresh, st, prior, opts.Progress)
		if err != nil {
			return nil, err
		}

		sizes := make([]int, 0, len(prior.Files))
		for i := len(prior.Files) - 1; i >= 0; i-- {
			sizes = append(sizes, prior.Files[i].Graph.Len())
		}
		fold := Plan(len(candidate), sizes, opts)

		retained = prior.Files[:len(prior.Files)-fold]
		records = candidate
		for _, f := range prior.Files[len(prior.Files)-fold:] {
			records = append(records, f.Graph.Records...)
		}
		sort.Slice(records, func(i, j int) bool { return records[i].ID.Less(records[j].ID) })
	} else {
		buildIDs := append([]models.CommitID(nil), ids...)
		if opts.Append {
			seen := make(map[models.CommitID]bool, len(ids))
			for _, id := range ids {
				seen[id] = true
			}
			for _, id := range prior.IDs() {
				if !seen[id] {
					buildIDs = append(buildIDs, id)
				}
			}
		}
		for _, id := range buildIDs {
			if !prior.Has(id) {
				newCount++
			}
		}

		records, err = graph.Build(buildIDs, st, prior, opts.Progress)
		if err != nil {
			return nil, err
		}
	}

	data, err := graph.Encode(records)
	if err != nil {
		return nil, err
	}
	checksum, err := graph.Checksum(data)
	if err != nil {
		return nil, err
	}
	name := fileName(checksum)

	// Content-derived names make rewrites of identical content a no-op.
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeFileAtomic(dir, name, data); err != nil {
			return nil, fmt.Errorf("write graph file %s: %w", name, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat graph file %s: %w", name, err)
	}

	names := make([]string, 0, len(retained)+1)
	for _, f := range retained {
		names = append(names, f.Name)
	}
	names = append(names, name)

	if err := installManifest(dir, names); err != nil {
		return nil, err
	}

	res := &Result{
		Files:      names,
		NewCommits: newCount,
	}
	for _, f := range retained {
		res.Commits += f.Graph.Len()
	}
	res.Commits += len(records)
	res.Expired = expireAfter(dir, names, opts)
	return res, nil
}

func expireAfter(dir string, installed []string, opts Options) int {
	if opts.NoExpire {
		return 0
	}
	cutoff := opts.ExpireTime
	if cutoff.IsZero() {
		cutoff = time.Now()
	}
	referenced := make(map[string]bool, len(installed))
	for _, name := range installed {
		referenced[name] = true
	}
	return Expire(dir, referenced, cutoff)
}

// installManifest atomically replaces the chain manifest. The new manifest
// becomes visible in a single rename; readers either see the old chain or
// the new one, never a partial listing.
func installManifest(dir string, names []string) error {
	var buf []byte
	for _, name := range names {
		buf = append(buf, name...)
		buf = append(buf, '\n')
	}
	if err := writeFileAtomic(dir, ManifestName, buf); err != nil {
		return fmt.Errorf("install chain manifest: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a uniquely named temp file in dir, syncs
// it, and renames it into place.
func writeFileAtomic(dir, name string, data []byte) error {
	tmp := filepath.Join(dir, name+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
