package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/cgx/internal/acquire"
	"github.com/kilupskalvis/cgx/internal/chain"
	"github.com/kilupskalvis/cgx/internal/graph"
	"github.com/kilupskalvis/cgx/internal/models"
)

var writeCmd = &cobra.Command{
	Use:   "write [commit-id...]",
	Short: "Build and install the commit-graph chain",
	Long: `Acquire a commit set, build index records, and atomically install a
new chain. Commit IDs given as arguments seed an ancestor walk; --reachable
walks from every branch head, --everything enumerates the whole store. The
modes are mutually exclusive.`,
	Run: runWrite,
}

var (
	writeReachable    bool
	writeEverything   bool
	writeAppend       bool
	writeSplit        bool
	writeSizeMultiple int
	writeMaxCommits   int
	writeExpire       string
	writeNoExpire     bool
	writeProgress     bool
)

func init() {
	writeCmd.Flags().BoolVar(&writeReachable, "reachable", false, "Index all commits reachable from branch heads")
	writeCmd.Flags().BoolVar(&writeEverything, "everything", false, "Index every commit in the store")
	writeCmd.Flags().BoolVar(&writeAppend, "append", false, "Union the new set with the installed chain")
	writeCmd.Flags().BoolVar(&writeSplit, "split", false, "Keep the chain and add a tip file instead of rewriting")
	writeCmd.Flags().IntVar(&writeSizeMultiple, "size-multiple", chain.DefaultSizeMultiple, "Merge the tip when size-multiple times the candidate exceeds it")
	writeCmd.Flags().IntVar(&writeMaxCommits, "max-commits", 0, "Force a merge when the candidate tip exceeds this many commits")
	writeCmd.Flags().StringVar(&writeExpire, "expire", "", "Expiry cutoff for superseded files (RFC3339, default: now)")
	writeCmd.Flags().BoolVar(&writeNoExpire, "no-expire", false, "Skip the expiration sweep")
	writeCmd.Flags().BoolVar(&writeProgress, "progress", false, "Report progress to stderr")
}

func runWrite(cmd *cobra.Command, args []string) {
	modes := 0
	if writeReachable {
		modes++
	}
	if writeEverything {
		modes++
	}
	if len(args) > 0 {
		modes++
	}
	if modes > 1 {
		exitError("--reachable, --everything and explicit commit ids are mutually exclusive")
	}
	if modes == 0 {
		exitError("nothing to index: give commit ids, --reachable, or --everything")
	}

	opts := chain.Options{
		Append:       writeAppend,
		Split:        writeSplit,
		SizeMultiple: writeSizeMultiple,
		MaxCommits:   writeMaxCommits,
		NoExpire:     writeNoExpire,
	}
	if writeExpire != "" {
		t, err := time.Parse(time.RFC3339, writeExpire)
		if err != nil {
			exitError("invalid --expire time: %v", err)
		}
		opts.ExpireTime = t
	}
	if writeProgress {
		opts.Progress = stderrProgress()
	}

	c := initContext()
	defer c.Close()

	var set acquire.Set
	var err error
	switch {
	case writeReachable:
		set, err = acquire.Reachable(c.Store)
	case writeEverything:
		set, err = acquire.Everything(c.Store)
	default:
		seeds := make([]models.CommitID, 0, len(args))
		for _, arg := range args {
			id, perr := models.ParseCommitID(arg)
			if perr != nil {
				exitError("%v", perr)
			}
			seeds = append(seeds, id)
		}
		set, err = acquire.Walk(c.Store, seeds)
	}
	if err != nil {
		exitError("%v", err)
	}

	res, err := chain.Write(c.Config.GraphPath(), c.Store, set.IDs, opts)
	if err != nil {
		exitError("%v", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("Installed chain of %d file(s), %d commits", len(res.Files), res.Commits)
	fmt.Printf(" (%d new", res.NewCommits)
	if res.Expired > 0 {
		fmt.Printf(", %d stale file(s) expired", res.Expired)
	}
	fmt.Println(")")
}

// stderrProgress prints phase transitions and a coarse percentage.
func stderrProgress() graph.Progress {
	lastPhase := ""
	lastPct := -1
	return func(phase string, done, total int) {
		pct := 100
		if total > 0 {
			pct = done * 100 / total
		}
		if phase != lastPhase || pct/10 != lastPct/10 {
			fmt.Fprintf(os.Stderr, "%s: %d%% (%d/%d)\n", phase, pct, done, total)
			lastPhase = phase
			lastPct = pct
		}
	}
}
