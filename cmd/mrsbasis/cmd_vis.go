package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spectra-tools/mrsbasis/internal/simrun"
)

func newVisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vis <basis>",
		Short: "Render a basis set with the external visualiser",
		Long: `Render simulated basis spectra to an image using the external
visualiser.

Examples:
  mrsbasis vis --save basis.png my_basis
  mrsbasis vis --save basis.png --ppmlim 0.2 4.2 my_basis`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			save, _ := cmd.Flags().GetString("save")
			ppmlim, _ := cmd.Flags().GetFloat64Slice("ppmlim")

			var low, high float64
			switch len(ppmlim) {
			case 0:
			case 2:
				low, high = ppmlim[0], ppmlim[1]
			default:
				return fmt.Errorf("--ppmlim takes exactly two values, got %d", len(ppmlim))
			}

			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			outcome, err := simrun.Visualise(ctx, simrun.VisRequest{
				Basis:   args[0],
				Save:    save,
				PPMLow:  low,
				PPMHigh: high,
			}, e.runOptions())
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"run_id":      outcome.RunID,
					"save":        outcome.Output,
					"duration_ms": outcome.Duration.Milliseconds(),
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s to %s (%s)\n",
				args[0], outcome.Output, outcome.Duration.Round(timeRound))
			return nil
		},
	}

	cmd.Flags().String("save", "", "Output image path (required)")
	cmd.Flags().Float64Slice("ppmlim", nil, "Plotted chemical-shift range as two values: low high")
	cmd.MarkFlagRequired("save")

	return cmd
}
