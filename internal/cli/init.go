package cli

import (
	"fmt"

	"github.com/kilupskalvis/cgx/internal/config"
	"github.com/kilupskalvis/cgx/internal/store"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new cgx repository",
	Long: `Initialize a new cgx repository in the current directory.
This creates a .cgx directory holding the commit store and the graph
chain directory.`,
	Run: runInit,
}

var initBackend string

func init() {
	initCmd.Flags().StringVar(&initBackend, "backend", store.BackendBolt, "Store backend (bbolt or sqlite)")
}

func runInit(cmd *cobra.Command, args []string) {
	// Check if already initialized
	if _, err := config.FindRoot(); err == nil {
		exitError("cgx repository already exists")
	}

	cfg, err := config.Initialize(initBackend)
	if err != nil {
		exitError("%v", err)
	}

	st, err := store.Open(cfg.StoreBackend, cfg.DatabasePath())
	if err != nil {
		exitError("failed to create store: %v", err)
	}
	defer st.Close()

	fmt.Printf("Initialized empty cgx repository in %s\n", cfg.Path())
}
