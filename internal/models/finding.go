package models

import "fmt"

// FindingKind classifies a verifier finding.
type FindingKind string

const (
	FindingCorrupt            FindingKind = "corrupt"
	FindingStructuralError    FindingKind = "structural_error"
	FindingGenerationMismatch FindingKind = "generation_mismatch"
	FindingParentMismatch     FindingKind = "parent_mismatch"
	FindingTreeMismatch       FindingKind = "tree_mismatch"
	FindingMissingCommit      FindingKind = "missing_commit"
)

// Finding is one problem the verifier observed. Findings are collected,
// never raised as errors, so one verify pass surfaces every problem at once.
type Finding struct {
	File     string      // graph file name, empty for chain-level findings
	Commit   CommitID    // affected commit, zero for file-level findings
	Kind     FindingKind
	Detail   string
	Expected string
	Actual   string
}

func (f Finding) String() string {
	s := string(f.Kind)
	if f.File != "" {
		s = fmt.Sprintf("%s: %s", f.File, s)
	}
	if !f.Commit.IsZero() {
		s = fmt.Sprintf("%s: commit %s", s, f.Commit.Short())
	}
	if f.Detail != "" {
		s += ": " + f.Detail
	}
	if f.Expected != "" || f.Actual != "" {
		s += fmt.Sprintf(" (expected %s, got %s)", f.Expected, f.Actual)
	}
	return s
}
