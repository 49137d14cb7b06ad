// Package verify cross-checks an installed chain against the object store
// and the format's structural invariants. Verification is read-only and
// collects every finding instead of stopping at the first, so one pass
// diagnoses systemic corruption.
package verify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilupskalvis/cgx/internal/chain"
	"github.com/kilupskalvis/cgx/internal/graph"
	"github.com/kilupskalvis/cgx/internal/models"
	"github.com/kilupskalvis/cgx/internal/store"
)

// Options control a verification pass.
type Options struct {
	// Shallow restricts checking to the tip file. Structural checks still
	// run on the tip, but parents resolving into older files are skipped.
	Shallow bool

	Progress graph.Progress
}

// Chain verifies the chain installed under dir. The returned findings are
// empty when the chain is healthy; an error is returned only when the
// manifest itself cannot be read.
func Chain(dir string, st store.ObjectStore, opts Options) ([]models.Finding, error) {
	names, err := chain.ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}

	var findings []models.Finding

	// Decode leniently: a file that fails its checksum is still checked
	// record by record, so one flipped byte yields one precise finding.
	// Shallow coverage never touches the older files at all.
	files := make([]*graph.GraphFile, len(names))
	loadFailed := false
	for i, name := range names {
		if opts.Shallow && i < len(names)-1 {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			findings = append(findings, models.Finding{
				File: name, Kind: models.FindingCorrupt,
				Detail: fmt.Sprintf("unreadable: %v", err),
			})
			loadFailed = true
			continue
		}
		g, err := graph.DecodeRelaxed(data)
		if err != nil {
			findings = append(findings, models.Finding{
				File: name, Kind: models.FindingCorrupt, Detail: err.Error(),
			})
			loadFailed = true
			continue
		}
		if !g.ChecksumOK {
			findings = append(findings, models.Finding{
				File: name, Kind: models.FindingCorrupt, Detail: "checksum mismatch",
			})
		}
		files[i] = g
	}

	start := 0
	if opts.Shallow {
		start = len(files) - 1
	}

	total := 0
	for i := start; i < len(files); i++ {
		if files[i] != nil {
			total += files[i].Len()
		}
	}

	done := 0
	for i := start; i < len(files); i++ {
		g := files[i]
		if g == nil {
			continue
		}
		findings = append(findings, checkStructure(names[i], g)...)
		partial := opts.Shallow || loadFailed
		for r := range g.Records {
			findings = append(findings, checkRecord(names[i], i, &g.Records[r], files, st, partial)...)
			done++
			if opts.Progress != nil {
				opts.Progress("verifying commits", done, total)
			}
		}
	}

	return findings, nil
}

// checkStructure re-validates the sorted-order and fan-out invariants of a
// single file.
func checkStructure(name string, g *graph.GraphFile) []models.Finding {
	var findings []models.Finding

	for i := 1; i < len(g.Records); i++ {
		if g.Records[i-1].ID.Compare(g.Records[i].ID) >= 0 {
			findings = append(findings, models.Finding{
				File: name, Commit: g.Records[i].ID, Kind: models.FindingStructuralError,
				Detail: fmt.Sprintf("record %d out of order", i),
			})
		}
	}

	var want [256]uint32
	for i := range g.Records {
		want[g.Records[i].ID[0]]++
	}
	fanout := g.Fanout()
	var cum uint32
	for b := 0; b < 256; b++ {
		cum += want[b]
		if fanout[b] != cum {
			findings = append(findings, models.Finding{
				File: name, Kind: models.FindingStructuralError,
				Detail:   fmt.Sprintf("fan-out bucket %d inconsistent", b),
				Expected: fmt.Sprintf("%d", cum),
				Actual:   fmt.Sprintf("%d", fanout[b]),
			})
		}
	}

	return findings
}

// checkRecord cross-checks one record against the object store and the
// chain ordering invariant. partial means not every chain file is loaded,
// either shallow coverage or a file that failed decoding, so a parent that
// does not resolve is no evidence of a structural defect.
func checkRecord(name string, fileIdx int, rec *models.CommitRecord, files []*graph.GraphFile, st store.ObjectStore, partial bool) []models.Finding {
	var findings []models.Finding

	c, err := st.Resolve(rec.ID)
	if err != nil {
		kind := models.FindingMissingCommit
		if !errors.Is(err, store.ErrNotFound) {
			kind = models.FindingCorrupt
		}
		findings = append(findings, models.Finding{
			File: name, Commit: rec.ID, Kind: kind,
			Detail: fmt.Sprintf("object store: %v", err),
		})
		return findings
	}

	if c.TreeID != rec.TreeID {
		findings = append(findings, models.Finding{
			File: name, Commit: rec.ID, Kind: models.FindingTreeMismatch,
			Expected: c.TreeID.Short(), Actual: rec.TreeID.Short(),
		})
	}

	if !parentsEqual(c.Parents, rec.Parents) {
		findings = append(findings, models.Finding{
			File: name, Commit: rec.ID, Kind: models.FindingParentMismatch,
			Expected: joinIDs(c.Parents), Actual: joinIDs(rec.Parents),
		})
		return findings
	}

	// Recompute the generation from the parents' stored generations. The
	// chain invariant says every parent lives in the same or an earlier
	// file; a parent found only later in the chain is a structural defect.
	var maxParent uint32
	complete := true
	for _, p := range c.Parents {
		prec, idx, ok := lookupChain(files, p)
		if !ok {
			if partial {
				complete = false
				continue
			}
			findings = append(findings, models.Finding{
				File: name, Commit: rec.ID, Kind: models.FindingStructuralError,
				Detail: fmt.Sprintf("parent %s is not indexed anywhere in the chain", p.Short()),
			})
			complete = false
			continue
		}
		if idx > fileIdx {
			findings = append(findings, models.Finding{
				File: name, Commit: rec.ID, Kind: models.FindingStructuralError,
				Detail: fmt.Sprintf("parent %s resolves in a later chain file", p.Short()),
			})
		}
		if prec.Generation > maxParent {
			maxParent = prec.Generation
		}
	}
	if complete {
		if want := maxParent + 1; rec.Generation != want {
			findings = append(findings, models.Finding{
				File: name, Commit: rec.ID, Kind: models.FindingGenerationMismatch,
				Expected: fmt.Sprintf("%d", want), Actual: fmt.Sprintf("%d", rec.Generation),
			})
		}
	}

	return findings
}

// lookupChain searches every loaded file, tip first, for a commit record.
func lookupChain(files []*graph.GraphFile, id models.CommitID) (*models.CommitRecord, int, bool) {
	for i := len(files) - 1; i >= 0; i-- {
		if files[i] == nil {
			continue
		}
		if rec, ok := files[i].Lookup(id); ok {
			return rec, i, true
		}
	}
	return nil, 0, false
}

func parentsEqual(a, b []models.CommitID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func joinIDs(ids []models.CommitID) string {
	if len(ids) == 0 {
		return "(none)"
	}
	s := ""
	for i, id := range ids {
		if i > 0 {
			s += ","
		}
		s += id.Short()
	}
	return s
}
