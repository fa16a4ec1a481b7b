package mcp

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/spectra-tools/mrsbasis/internal/basis"
	"github.com/spectra-tools/mrsbasis/internal/simrun"
)

// registerTools registers all mrsbasis MCP tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "basis_simulate",
		Description: "Simulate metabolite basis spectra for a pulse sequence using the external simulator",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "basis_info",
		Description: "Inspect a basis set: metabolite names, point count, dwell time, bandwidth and field strength",
	}, s.handleInfo)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "basis_runs",
		Description: "List recorded simulator and visualiser runs, newest first",
	}, s.handleRuns)

	return nil
}

func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (*sdk.CallToolResult, SimulateOutput, error) {
	outcome, err := simrun.Simulate(ctx, simrun.SimRequest{
		MetabFile:    args.MetabFile,
		Metabolites:  args.Metabolites,
		SequenceFile: args.SequenceFile,
		Output:       args.Output,
		EchoTime:     args.EchoTime,
		PhaseOffset:  args.PhaseOffset,
		MMFile:       args.MMFile,
		Overwrite:    args.Overwrite,
	}, simrun.Options{
		Config:  s.cfg,
		Catalog: s.catalog,
	})
	if err != nil {
		return nil, SimulateOutput{}, err
	}

	return nil, SimulateOutput{
		RunID:       outcome.RunID,
		Output:      outcome.Output,
		Metabolites: outcome.Metabolites,
		ToolVersion: outcome.ToolVersion,
		DurationMS:  outcome.Duration.Milliseconds(),
		Message: fmt.Sprintf("simulated %d basis spectra (%s) into %s",
			len(outcome.Metabolites), strings.Join(outcome.Metabolites, ", "), outcome.Output),
	}, nil
}

func (s *Server) handleInfo(ctx context.Context, req *sdk.CallToolRequest, args InfoInput) (*sdk.CallToolResult, InfoOutput, error) {
	if args.Basis == "" {
		return nil, InfoOutput{}, fmt.Errorf("basis path is required")
	}

	set, err := basis.Read(args.Basis)
	if err != nil {
		return nil, InfoOutput{}, err
	}
	if err := set.Validate(); err != nil {
		return nil, InfoOutput{}, err
	}

	out := InfoOutput{
		Names: set.Names(),
		Count: set.Len(),
	}
	if set.Len() > 0 {
		first := set.Spectra[0]
		out.Points = first.Points()
		out.DwellTime = first.DwellTime
		out.Bandwidth = first.Bandwidth()
		out.CentreMHz = first.CentreMHz
	}
	return nil, out, nil
}

func (s *Server) handleRuns(ctx context.Context, req *sdk.CallToolRequest, args RunsInput) (*sdk.CallToolResult, RunsOutput, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = 20
	}

	runs, err := s.catalog.List(ctx, limit)
	if err != nil {
		return nil, RunsOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}

	items := make([]RunListItem, 0, len(runs))
	for _, r := range runs {
		items = append(items, RunListItem{
			ID:          r.ID,
			Kind:        r.Kind,
			StartedAt:   r.StartedAt,
			DurationMS:  r.Duration.Milliseconds(),
			Metabolites: r.Metabolites,
			OutputPath:  r.OutputPath,
			ExitCode:    r.ExitCode,
			Error:       r.Error,
		})
	}

	return nil, RunsOutput{Runs: items, Count: len(items)}, nil
}
