package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "livetree",
		Short: "Server-driven reactive UI over websockets",
		Long: `Livetree keeps the UI tree on the server and streams patches to
connected clients.

The server renders the application to a tree, diffs it against each
connection's last known tree, and sends the minimal patch list. Client
events flow back through a modifier pipeline: debounce, throttle,
optimistic feedback, response caching, and cross-component client state.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
