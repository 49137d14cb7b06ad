package cli

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/cgx/internal/chain"
	"github.com/kilupskalvis/cgx/internal/models"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show commits in the store",
	Long:  `Display the commits held by the store, newest first, with their indexed generation numbers when a chain is installed.`,
	Run:   runLog,
}

var logLimit int

func init() {
	logCmd.Flags().IntVarP(&logLimit, "n", "n", 0, "Limit the number of commits to show")
}

func runLog(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	var commits []*models.Commit
	err := c.Store.ForEachCommit(func(commit *models.Commit) error {
		commits = append(commits, commit)
		return nil
	})
	if err != nil {
		exitError("failed to list commits: %v", err)
	}

	if len(commits) == 0 {
		fmt.Println("No commits yet")
		return
	}

	sort.Slice(commits, func(i, j int) bool { return commits[i].CommitTime > commits[j].CommitTime })
	if logLimit > 0 && len(commits) > logLimit {
		commits = commits[:logLimit]
	}

	ch, _ := chain.Load(c.Config.GraphPath())

	yellow := color.New(color.FgYellow)
	magenta := color.New(color.FgMagenta)

	for _, commit := range commits {
		yellow.Printf("commit %s", commit.ID)
		if ch != nil {
			if gen, ok := ch.Generation(commit.ID); ok {
				magenta.Printf(" [gen %d]", gen)
			}
		}
		fmt.Println()
		fmt.Printf("Date:   %s\n", commit.When().Format("Mon Jan 2 15:04:05 2006"))
		if commit.Message != "" {
			fmt.Printf("\n    %s\n", commit.Message)
		}
		fmt.Printf("    (%d parents)\n\n", len(commit.Parents))
	}
}
