package models

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// Commit is the parsed form of a commit object as the store hands it out.
type Commit struct {
	ID         CommitID   `json:"id"`
	TreeID     CommitID   `json:"tree_id"`
	Parents    []CommitID `json:"parent_ids,omitempty"`
	CommitTime int64      `json:"commit_time"`
	Message    string     `json:"message,omitempty"`
}

// IsMergeCommit returns true if this commit has more than one parent.
func (c *Commit) IsMergeCommit() bool {
	return len(c.Parents) > 1
}

// When returns the commit time as a time.Time.
func (c *Commit) When() time.Time {
	return time.Unix(c.CommitTime, 0).UTC()
}

// GenerateCommitID derives a content-addressable commit ID. The hash
// covers the tree, every parent in order, the timestamp and the message,
// so any two distinct commits get distinct IDs.
func GenerateCommitID(treeID CommitID, parents []CommitID, commitTime int64, message string) CommitID {
	var sb strings.Builder
	sb.WriteString(treeID.String())
	for _, p := range parents {
		sb.WriteString("|")
		sb.WriteString(p.String())
	}
	fmt.Fprintf(&sb, "|%d|%s", commitTime, message)
	return sha256.Sum256([]byte(sb.String()))
}

// CommitRecord is one indexed commit as held by a graph file: the commit's
// identity plus the derived generation number.
type CommitRecord struct {
	ID         CommitID
	TreeID     CommitID
	Parents    []CommitID
	Generation uint32
	CommitTime int64
}

// Branch is a named reference to a commit.
type Branch struct {
	Name   string   `json:"name"`
	Commit CommitID `json:"commit_id"`
}
