package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded simulator and visualiser runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			runs, err := e.catalog.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"runs":  runs,
					"count": len(runs),
				})
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Recorded runs (%d):\n\n", len(runs))
			for i, r := range runs {
				status := "ok"
				if r.ExitCode != 0 || r.Error != "" {
					status = fmt.Sprintf("failed (exit %d)", r.ExitCode)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d. [%s] %s %s\n",
					i+1, r.Kind, r.StartedAt.Local().Format(time.RFC3339), status)
				fmt.Fprintf(cmd.OutOrStdout(), "   ID:     %s\n", r.ID)
				if len(r.Metabolites) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "   Metabs: %s\n", strings.Join(r.Metabolites, ", "))
				}
				if r.OutputPath != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "   Output: %s\n", r.OutputPath)
				}
				if r.Error != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "   Error:  %s\n", r.Error)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to show, newest first (0 for all)")
	cmd.AddCommand(newRunsShowCmd())
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			run, err := e.catalog.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(run)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Run %s\n", run.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "  Kind:       %s\n", run.Kind)
			fmt.Fprintf(cmd.OutOrStdout(), "  Started:    %s\n", run.StartedAt.Local().Format(time.RFC3339))
			fmt.Fprintf(cmd.OutOrStdout(), "  Duration:   %s\n", run.Duration.Round(timeRound))
			fmt.Fprintf(cmd.OutOrStdout(), "  Tool:       %s", run.ToolPath)
			if run.ToolVersion != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (%s)", run.ToolVersion)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			if run.SequenceFile != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  Sequence:   %s (sha256 %s)\n", run.SequenceFile, run.SequenceSHA256)
			}
			if len(run.Metabolites) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  Metabs:     %s\n", strings.Join(run.Metabolites, ", "))
			}
			if run.MMFile != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  MM file:    %s\n", run.MMFile)
			}
			if run.OutputPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  Output:     %s\n", run.OutputPath)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  Argv:       %s\n", strings.Join(run.Argv, " "))
			fmt.Fprintf(cmd.OutOrStdout(), "  Exit code:  %d\n", run.ExitCode)
			if run.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  Error:      %s\n", run.Error)
			}
			return nil
		},
	}
}
