package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "mrsbasis",
		Short: "MRS basis spectra - simulation, inspection and editing",
		Long: `mrsbasis drives the external MRS basis-spectra simulator and
visualiser, and edits the resulting basis sets.

It validates inputs before any tool runs, records every invocation in a
local run catalog, and ships native operations for inspecting, shifting,
scaling, combining and previewing basis spectra.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for scripting)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")

	// Add subcommands
	rootCmd.AddCommand(
		newVersionCmd(),
		newSimCmd(),
		newVisCmd(),
		newPreviewCmd(),
		newInfoCmd(),
		newRunsCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
		// Basis editing commands
		newAddCmd(),
		newShiftCmd(),
		newScaleCmd(),
		newDiffCmd(),
		newConjCmd(),
		newRemovePeakCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "mrsbasis version %s\n", version)
			}
		},
	}
}
