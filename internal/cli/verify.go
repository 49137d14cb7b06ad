package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/cgx/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Cross-check the installed chain against the object store",
	Long: `Verify every record of the installed chain: binary structure,
parent and tree ids against the object store, and recomputed generation
numbers. All findings are reported; the exit status is non-zero if any
exist.`,
	Run: runVerify,
}

var (
	verifyShallow  bool
	verifyProgress bool
)

func init() {
	verifyCmd.Flags().BoolVar(&verifyShallow, "shallow", false, "Check only the tip file of the chain")
	verifyCmd.Flags().BoolVar(&verifyProgress, "progress", false, "Report progress to stderr")
}

func runVerify(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	opts := verify.Options{Shallow: verifyShallow}
	if verifyProgress {
		opts.Progress = stderrProgress()
	}

	findings, err := verify.Chain(c.Config.GraphPath(), c.Store, opts)
	if err != nil {
		exitError("%v", err)
	}

	if len(findings) == 0 {
		if verifyShallow {
			fmt.Println("OK (tip file only)")
		} else {
			fmt.Println("OK")
		}
		return
	}

	red := color.New(color.FgRed)
	for _, f := range findings {
		red.Fprintln(os.Stderr, f.String())
	}
	c.Close()
	exitError("%d finding(s)", len(findings))
}
