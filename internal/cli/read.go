package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/cgx/internal/chain"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Show a summary of the installed chain",
	Long:  `Load the installed chain and print its file and commit counts. No mutation.`,
	Run:   runRead,
}

func runRead(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	ch, err := chain.Load(c.Config.GraphPath())
	if err != nil {
		exitError("%v", err)
	}

	if len(ch.Files) == 0 {
		fmt.Println("No chain installed")
		return
	}

	cyan := color.New(color.FgCyan)
	cyan.Printf("%d file(s), %d commits\n", len(ch.Files), ch.TotalCommits())
	for i, f := range ch.Files {
		role := "base"
		if i == len(ch.Files)-1 {
			role = "tip"
		}
		if len(ch.Files) == 1 {
			role = "only"
		} else if i > 0 && i < len(ch.Files)-1 {
			role = "mid"
		}
		fmt.Printf("  %-4s %s  %d commits\n", role, f.Name, f.Graph.Len())
	}
}
