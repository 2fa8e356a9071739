// Command homesim simulates one occupant walking between the rooms of a smart
// home and serves the derived room settings over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "homesim",
		Short: "Single-occupant smart home simulation",
		Long: `homesim moves a simulated occupant between the rooms of a home along
curved paths. Each time the occupant reaches a room, the external conditions
are resampled and the room's temperature, lighting and music are looked up in
the environment mapping table.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newTableCmd(),
		newLookupCmd(),
	)
	return rootCmd
}
