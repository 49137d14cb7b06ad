package chain

import (
	"time"

	"github.com/kilupskalvis/cgx/internal/graph"
)

// DefaultSizeMultiple is the merge threshold used when Options.SizeMultiple
// is unset: a candidate tip is merged into the existing tip whenever twice
// the candidate's size exceeds it.
const DefaultSizeMultiple = 2

// Options control a chain write.
type Options struct {
	// Append unions the new commit set with everything already indexed.
	Append bool

	// Split keeps the existing chain and adds the new commits as a tip
	// file, subject to the merge policy. Without Split the whole chain is
	// rewritten as a single file.
	Split bool

	// SizeMultiple is the merge threshold; zero means DefaultSizeMultiple.
	SizeMultiple int

	// MaxCommits, when positive, forces any candidate tip larger than it
	// to merge with the existing tip.
	MaxCommits int

	// ExpireTime is the cutoff for deleting superseded graph files after a
	// successful install; zero means the time of the write. Files modified
	// at or after the cutoff survive for the sake of concurrent readers.
	ExpireTime time.Time

	// NoExpire skips the expiration sweep entirely.
	NoExpire bool

	Progress graph.Progress
}

func (o Options) sizeMultiple() int {
	if o.SizeMultiple <= 0 {
		return DefaultSizeMultiple
	}
	return o.SizeMultiple
}

// Plan decides how many existing files, counted from the tip, a candidate
// tip of the given size must absorb. Sizes are ordered tip first. The
// decision cascades: each merge re-evaluates the grown candidate against
// the next older file. Pure function, no I/O.
func Plan(candidate int, existing []int, opts Options) int {
	fold := 0
	n := candidate
	for fold < len(existing) {
		m := existing[fold]
		if opts.MaxCommits > 0 && n > opts.MaxCommits {
			n += m
			fold++
			continue
		}
		if opts.sizeMultiple()*n > m {
			n += m
			fold++
			continue
		}
		break
	}
	return fold
}
