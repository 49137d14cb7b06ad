// Command cgx maintains a chained commit-graph index over a commit store.
package main

import (
	"os"

	"github.com/kilupskalvis/cgx/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
