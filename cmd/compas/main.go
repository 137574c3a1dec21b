// compas is the workflow coaching service: an HTTP API plus a local REPL
// for running coaching sessions from a terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set via ldflags at build time.
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "compas",
		Short:   "COMPAS Navigator - structured workflow coaching",
		Version: Version,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
