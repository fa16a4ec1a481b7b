package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/spectra-tools/mrsbasis/internal/basis"
	"github.com/spectra-tools/mrsbasis/internal/plot"
)

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <basis>",
		Short: "Preview a basis set in the browser without external tools",
		Long: `Render a basis set natively as SVG and serve it on a local HTTP
port. Unlike 'vis', this needs no external visualiser.

The server runs until interrupted with Ctrl+C. With --save the SVG is
written to a file instead and no server starts.

Examples:
  mrsbasis preview my_basis
  mrsbasis preview --ppmlim 0.5 4.0 --no-browser my_basis
  mrsbasis preview --save basis.svg my_basis`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ppmlim, _ := cmd.Flags().GetFloat64Slice("ppmlim")
			noBrowser, _ := cmd.Flags().GetBool("no-browser")
			savePath, _ := cmd.Flags().GetString("save")

			opts := plot.Options{Title: args[0]}
			switch len(ppmlim) {
			case 0:
			case 2:
				opts.PPMLow, opts.PPMHigh = ppmlim[0], ppmlim[1]
			default:
				return fmt.Errorf("--ppmlim takes exactly two values, got %d", len(ppmlim))
			}

			set, err := basis.Read(args[0])
			if err != nil {
				return err
			}
			if err := set.Validate(); err != nil {
				return err
			}

			// Render once up front so a bad window fails before the
			// server starts.
			svg, err := plot.Render(set, opts)
			if err != nil {
				return err
			}

			if savePath != "" {
				if err := os.WriteFile(savePath, svg, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", savePath, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", args[0], savePath)
				return nil
			}

			srv := plot.NewServer(set, opts)

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe(ctx) }()

			// Wait for the listener before announcing the URL.
			for srv.Addr() == "" {
				select {
				case err := <-errCh:
					return err
				case <-time.After(10 * time.Millisecond):
				}
			}

			url := "http://" + srv.Addr()
			fmt.Fprintf(cmd.OutOrStdout(), "Previewing %s at %s (Ctrl+C to stop)\n", args[0], url)

			if !noBrowser {
				if err := plot.OpenBrowser(url); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "could not open browser: %v\n", err)
				}
			}

			return <-errCh
		},
	}

	cmd.Flags().Float64Slice("ppmlim", nil, "Plotted chemical-shift range as two values: low high")
	cmd.Flags().Bool("no-browser", false, "Do not open the preview in a browser")
	cmd.Flags().String("save", "", "Write the SVG to this path instead of serving it")

	return cmd
}
