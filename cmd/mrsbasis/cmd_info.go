package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spectra-tools/mrsbasis/internal/basis"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <basis>",
		Short: "Show the shape and contents of a basis set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			set, err := basis.Read(args[0])
			if err != nil {
				return err
			}
			if err := set.Validate(); err != nil {
				return err
			}

			first := set.Spectra[0]

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"names":      set.Names(),
					"count":      set.Len(),
					"points":     first.Points(),
					"dwell_time": first.DwellTime,
					"bandwidth":  first.Bandwidth(),
					"centre_mhz": first.CentreMHz,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Basis: %s\n", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "  Spectra:           %d\n", set.Len())
			fmt.Fprintf(cmd.OutOrStdout(), "  Points per FID:    %d\n", first.Points())
			fmt.Fprintf(cmd.OutOrStdout(), "  Dwell time:        %g s\n", first.DwellTime)
			fmt.Fprintf(cmd.OutOrStdout(), "  Spectral width:    %g Hz\n", first.Bandwidth())
			fmt.Fprintf(cmd.OutOrStdout(), "  Central frequency: %g MHz\n", first.CentreMHz)
			fmt.Fprintln(cmd.OutOrStdout(), "  Metabolites:")
			for _, name := range set.Names() {
				fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", name)
			}
			return nil
		},
	}
}
