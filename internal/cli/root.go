// Package cli implements the command-line interface for cgx.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/cgx/internal/config"
	"github.com/kilupskalvis/cgx/internal/store"
)

// cmdContext holds common resources for CLI commands.
type cmdContext struct {
	Config *config.Config
	Store  store.Store
}

// Close releases resources held by cmdContext.
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// initContext loads the repository config and opens the commit store.
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	st, err := store.Open(cfg.StoreBackend, cfg.DatabasePath())
	if err != nil {
		exitError("failed to open store: %v", err)
	}

	return &cmdContext{Config: cfg, Store: st}
}

var rootCmd = &cobra.Command{
	Use:   "cgx",
	Short: "Commit-graph index",
	Long: `cgx maintains a chained commit-graph index over a commit store.
The index records every commit's parents, tree and generation number in
immutable binary files, so history traversal never has to open and parse
commit objects. Chains extend incrementally and are verifiable against
the store at any time.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Colored output is for humans only.
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(logCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
