// Package chain manages the on-disk sequence of immutable graph files,
// from the base file (oldest, largest) to the tip (newest). A manifest
// file names the installed chain; graph files are named after their own
// checksum, so identical content always lands on the same name and stale
// files are unambiguous. Installation is a single atomic manifest swap.
package chain

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilupskalvis/cgx/internal/graph"
	"github.com/kilupskalvis/cgx/internal/models"
)

const (
	// ManifestName is the file naming the installed chain, base first.
	ManifestName = "chain"

	filePrefix = "graph-"
	fileExt    = ".cgx"
)

// File is one decoded member of an installed chain.
type File struct {
	Name  string
	Graph *graph.GraphFile
}

// Chain is the installed sequence of graph files, base first. A commit's
// parents always resolve in the same file or an earlier one, never later.
type Chain struct {
	Dir   string
	Files []*File
}

// Load reads the installed chain under dir. A missing manifest yields an
// empty chain; a listed file that is missing or fails validation is an
// error wrapping graph.ErrCorrupt or the underlying I/O failure.
func Load(dir string) (*Chain, error) {
	names, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	c := &Chain{Dir: dir}
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read graph file %s: %w", name, err)
		}
		g, err := graph.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("graph file %s: %w", name, err)
		}
		c.Files = append(c.Files, &File{Name: name, Graph: g})
	}
	return c, nil
}

// ReadManifest returns the installed chain's file names, base first, or
// nil if no chain is installed.
func ReadManifest(dir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chain manifest: %w", err)
	}

	var names []string
	for _, line := range splitLines(data) {
		if line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

func splitLines(data []byte) []string {
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, string(data[start:i]))
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines
}

// TotalCommits returns the number of records across the whole chain.
func (c *Chain) TotalCommits() int {
	n := 0
	for _, f := range c.Files {
		n += f.Graph.Len()
	}
	return n
}

// Lookup finds a commit's record, searching from the tip back to the base,
// and reports the index of the file holding it.
func (c *Chain) Lookup(id models.CommitID) (*models.CommitRecord, int, bool) {
	for i := len(c.Files) - 1; i >= 0; i-- {
		if rec, ok := c.Files[i].Graph.Lookup(id); ok {
			return rec, i, true
		}
	}
	return nil, 0, false
}

// Has reports whether the chain indexes the commit.
func (c *Chain) Has(id models.CommitID) bool {
	_, _, ok := c.Lookup(id)
	return ok
}

// Generation returns the stored generation number for an indexed commit.
// It implements graph.GenerationSource.
func (c *Chain) Generation(id models.CommitID) (uint32, bool) {
	rec, _, ok := c.Lookup(id)
	if !ok {
		return 0, false
	}
	return rec.Generation, true
}

// IDs returns every indexed commit ID, tip-to-base union without duplicates.
func (c *Chain) IDs() []models.CommitID {
	seen := make(map[models.CommitID]bool, c.TotalCommits())
	var ids []models.CommitID
	for i := len(c.Files) - 1; i >= 0; i-- {
		for _, rec := range c.Files[i].Graph.Records {
			if !seen[rec.ID] {
				seen[rec.ID] = true
				ids = append(ids, rec.ID)
			}
		}
	}
	return ids
}

// fileName derives a graph file's name from its trailing checksum.
func fileName(checksum []byte) string {
	return fmt.Sprintf("%s%x%s", filePrefix, checksum, fileExt)
}
