package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/spectra-tools/mrsbasis/internal/basis"
)

// The editing commands all follow the same shape: read a basis, apply
// one transform, save to a new location. The source basis is never
// modified in place.

func newShiftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shift <basis> <metabolite|all> <ppm> <output>",
		Short: "Frequency-shift one or all basis spectra",
		Long: `Shift a metabolite's resonances by a chemical-shift offset in ppm.
Use 'all' to shift every spectrum in the basis.

Examples:
  mrsbasis shift my_basis NAA 0.02 shifted_basis
  mrsbasis shift my_basis all -0.05 shifted_basis`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			overwrite, _ := cmd.Flags().GetBool("overwrite")

			shift, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid ppm shift %q: %w", args[2], err)
			}

			set, err := basis.Read(args[0])
			if err != nil {
				return err
			}
			if err := basis.Shift(set, args[1], shift); err != nil {
				return err
			}
			if err := basis.Save(set, args[3], overwrite); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Shifted %s by %g ppm, saved to %s\n", args[1], shift, args[3])
			return nil
		},
	}
	cmd.Flags().Bool("overwrite", false, "Replace an existing output")
	return cmd
}

func newScaleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scale <basis> <metabolite> <output>",
		Short: "Rescale a basis spectrum",
		Long: `Rescale a metabolite's FID. Without --target the spectrum is scaled
to the mean norm of the other spectra in the basis.

Examples:
  mrsbasis scale my_basis Mac scaled_basis
  mrsbasis scale my_basis Mac --target 100 scaled_basis`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			overwrite, _ := cmd.Flags().GetBool("overwrite")

			var target *float64
			if cmd.Flags().Changed("target") {
				v, _ := cmd.Flags().GetFloat64("target")
				target = &v
			}

			set, err := basis.Read(args[0])
			if err != nil {
				return err
			}
			if err := basis.Rescale(set, args[1], target); err != nil {
				return err
			}
			if err := basis.Save(set, args[2], overwrite); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Rescaled %s, saved to %s\n", args[1], args[2])
			return nil
		},
	}
	cmd.Flags().Float64("target", 0, "Scale to this norm instead of the mean of the other spectra")
	cmd.Flags().Bool("overwrite", false, "Replace an existing output")
	return cmd
}

func newConjCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conj <basis> <metabolite|all> <output>",
		Short: "Conjugate one or all basis spectra",
		Long: `Complex-conjugate a metabolite's FID, flipping its spectrum about
the carrier frequency. Use 'all' for every spectrum.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			overwrite, _ := cmd.Flags().GetBool("overwrite")

			set, err := basis.Read(args[0])
			if err != nil {
				return err
			}
			if err := basis.Conjugate(set, args[1]); err != nil {
				return err
			}
			if err := basis.Save(set, args[2], overwrite); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Conjugated %s, saved to %s\n", args[1], args[2])
			return nil
		},
	}
	cmd.Flags().Bool("overwrite", false, "Replace an existing output")
	return cmd
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <spectrum.json> <basis> <output>",
		Short: "Add a spectrum to a basis set",
		Long: `Add a single spectrum (e.g. a measured macromolecule baseline) to an
existing basis and save the combined set.

Examples:
  mrsbasis add mm.json my_basis combined_basis
  mrsbasis add --name Mac --scale --pad mm.json my_basis combined_basis`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			scale, _ := cmd.Flags().GetBool("scale")
			conj, _ := cmd.Flags().GetBool("conj")
			pad, _ := cmd.Flags().GetBool("pad")
			overwrite, _ := cmd.Flags().GetBool("overwrite")

			spec, err := basis.ReadSpectrum(args[0])
			if err != nil {
				return err
			}
			set, err := basis.Read(args[1])
			if err != nil {
				return err
			}

			if err := basis.Add(set, *spec, basis.AddOptions{
				Name:  name,
				Scale: scale,
				Conj:  conj,
				Pad:   pad,
			}); err != nil {
				return err
			}
			if err := basis.Save(set, args[2], overwrite); err != nil {
				return err
			}

			added := name
			if added == "" {
				added = spec.Name
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s, saved to %s\n", added, args[2])
			return nil
		},
	}
	cmd.Flags().String("name", "", "Name for the added spectrum (default: name from the file)")
	cmd.Flags().Bool("scale", false, "Scale the added FID to the mean norm of the basis")
	cmd.Flags().Bool("conj", false, "Conjugate the added FID")
	cmd.Flags().Bool("pad", false, "Zero-pad a shorter FID to the basis length")
	cmd.Flags().Bool("overwrite", false, "Replace an existing output")
	return cmd
}

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <basis1> <basis2> <output>",
		Short: "Combine two basis sets metabolite by metabolite",
		Long: `Form the difference (basis1 - basis2) of two basis sets, pairing
spectra by metabolite name. With --sum the spectra are added instead,
as in editing-sequence difference acquisitions.

Metabolites present in only one basis are an error unless
--missing ignore is given, which drops them.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, _ := cmd.Flags().GetBool("sum")
			missing, _ := cmd.Flags().GetString("missing")
			overwrite, _ := cmd.Flags().GetBool("overwrite")

			var policy basis.MissingPolicy
			switch missing {
			case "raise":
				policy = basis.MissingRaise
			case "ignore":
				policy = basis.MissingIgnore
			default:
				return fmt.Errorf("invalid --missing policy %q (valid: raise, ignore)", missing)
			}

			a, err := basis.Read(args[0])
			if err != nil {
				return err
			}
			b, err := basis.Read(args[1])
			if err != nil {
				return err
			}

			out, err := basis.Difference(a, b, !sum, policy)
			if err != nil {
				return err
			}
			if err := basis.Save(out, args[2], overwrite); err != nil {
				return err
			}

			op := "difference"
			if sum {
				op = "sum"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s of %d metabolites to %s\n", op, out.Len(), args[2])
			return nil
		},
	}
	cmd.Flags().Bool("sum", false, "Add the paired spectra instead of subtracting")
	cmd.Flags().String("missing", "raise", "Policy for unpaired metabolites: raise or ignore")
	cmd.Flags().Bool("overwrite", false, "Replace an existing output")
	return cmd
}

func newRemovePeakCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-peak <basis> <metabolite|all> <output>",
		Short: "Zero a spectral region of one or all basis spectra",
		Long: `Remove a peak by zeroing the spectrum inside a ppm window and
transforming back to the time domain. The default window covers the
region around the water-suppressed carrier.

Examples:
  mrsbasis remove-peak my_basis all cleaned_basis
  mrsbasis remove-peak --ppmlim 4.5 4.8 my_basis NAA cleaned_basis`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ppmlim, _ := cmd.Flags().GetFloat64Slice("ppmlim")
			overwrite, _ := cmd.Flags().GetBool("overwrite")

			low, high := -0.2, 0.2
			switch len(ppmlim) {
			case 0:
			case 2:
				low, high = ppmlim[0], ppmlim[1]
			default:
				return fmt.Errorf("--ppmlim takes exactly two values, got %d", len(ppmlim))
			}

			set, err := basis.Read(args[0])
			if err != nil {
				return err
			}
			if err := basis.RemovePeak(set, args[1], low, high); err != nil {
				return err
			}
			if err := basis.Save(set, args[2], overwrite); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed [%g, %g] ppm from %s, saved to %s\n",
				low, high, args[1], args[2])
			return nil
		},
	}
	cmd.Flags().Float64Slice("ppmlim", nil, "Zeroed chemical-shift window as two values: low high (default -0.2 0.2)")
	cmd.Flags().Bool("overwrite", false, "Replace an existing output")
	return cmd
}
