// Package simrun orchestrates complete simulator and visualiser runs:
// input validation, tool discovery, execution, and catalog recording.
// Both the CLI commands and the MCP tools drive it.
package simrun

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spectra-tools/mrsbasis/internal/catalog"
	"github.com/spectra-tools/mrsbasis/internal/config"
	"github.com/spectra-tools/mrsbasis/internal/logging"
	"github.com/spectra-tools/mrsbasis/internal/metab"
	"github.com/spectra-tools/mrsbasis/internal/mm"
	"github.com/spectra-tools/mrsbasis/internal/sequence"
	"github.com/spectra-tools/mrsbasis/internal/simtool"
)

// Options carries the shared machinery a run needs. Catalog, Logger and
// Trace are all optional.
type Options struct {
	Config  *config.Config
	Catalog *catalog.Catalog
	Logger  *slog.Logger
	Trace   *logging.InvocationLogger

	// Stdout and Stderr, when set, stream the tool's output as it runs.
	Stdout io.Writer
	Stderr io.Writer
}

func (o *Options) config() *config.Config {
	if o.Config != nil {
		return o.Config
	}
	return config.Default()
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// SimRequest describes one simulation run.
type SimRequest struct {
	// MetabFile is a metabolite list file. Mutually exclusive with
	// Metabolites.
	MetabFile string

	// Metabolites lists names directly; a temporary list file is
	// written for the simulator.
	Metabolites []string

	// SequenceFile is the pulse-sequence description (JSON or YAML).
	SequenceFile string

	// Output is where the simulator writes the basis.
	Output string

	// EchoTime is the echo time in ms; zero uses the configured default.
	EchoTime float64

	// PhaseOffset is the receiver phase in degrees; zero uses the
	// configured default.
	PhaseOffset float64

	// MMFile optionally appends a macromolecule baseline to the basis.
	MMFile string

	// Overwrite allows replacing an existing output.
	Overwrite bool
}

// Outcome reports a completed run.
type Outcome struct {
	RunID       string
	Output      string
	Metabolites []string
	ToolPath    string
	ToolVersion string
	Duration    time.Duration
}

// Simulate validates the request, then invokes the external simulator.
// Validation failures return before any subprocess is started. The run
// is recorded in the catalog whether the simulator succeeds or fails.
func Simulate(ctx context.Context, req SimRequest, opts Options) (*Outcome, error) {
	cfg := opts.config()
	log := opts.logger()

	if req.SequenceFile == "" {
		return nil, fmt.Errorf("sequence file is required")
	}
	if req.Output == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if req.MetabFile != "" && len(req.Metabolites) > 0 {
		return nil, fmt.Errorf("metabolite file and inline metabolite list are mutually exclusive")
	}

	metabFile := req.MetabFile
	var list *metab.List
	var err error
	switch {
	case metabFile != "":
		list, err = metab.ParseFile(metabFile)
		if err != nil {
			return nil, err
		}
	case len(req.Metabolites) > 0:
		list, err = metab.ParseNames(req.Metabolites)
		if err != nil {
			return nil, err
		}
		tmp, err := os.CreateTemp("", "mrsbasis-metabs-*.txt")
		if err != nil {
			return nil, fmt.Errorf("failed to create metabolite list file: %w", err)
		}
		tmp.Close()
		defer os.Remove(tmp.Name())
		if err := list.WriteFile(tmp.Name()); err != nil {
			return nil, err
		}
		metabFile = tmp.Name()
	default:
		return nil, fmt.Errorf("no metabolites given: provide a list file or names")
	}

	for _, name := range list.Unknown {
		log.Warn("metabolite not in the stock spin-system set", "name", name)
	}

	seq, err := sequence.Load(req.SequenceFile)
	if err != nil {
		return nil, err
	}

	if req.MMFile != "" {
		mmSpec, err := mm.Load(req.MMFile)
		if err != nil {
			return nil, err
		}
		if err := mm.CheckAgainst(mmSpec, seq.RxPoints, seq.RxSW); err != nil {
			return nil, err
		}
	}

	if !req.Overwrite {
		if _, err := os.Stat(req.Output); err == nil {
			return nil, fmt.Errorf("%s already exists (use --overwrite to replace)", req.Output)
		}
	}

	echoTime := req.EchoTime
	if echoTime == 0 {
		echoTime = cfg.Sim.EchoTime
	}
	phase := req.PhaseOffset
	if phase == 0 {
		phase = cfg.Sim.PhaseOffset
	}

	tool, err := simtool.Find(ctx, simtool.SimToolName, simtool.FindOptions{
		Explicit:    cfg.Tools.SimPath,
		AllowedDirs: cfg.Tools.AllowedDirs,
	})
	if err != nil {
		return nil, err
	}

	seqHash, err := catalog.HashFile(req.SequenceFile)
	if err != nil {
		return nil, err
	}

	inv := simtool.SimInvocation{
		MetabFile:    metabFile,
		OutputBasis:  req.Output,
		PhaseOffset:  phase,
		MMFile:       req.MMFile,
		Overwrite:    req.Overwrite,
		EchoTime:     echoTime,
		SequenceFile: req.SequenceFile,
	}
	args := inv.Args()

	log.Info("running simulator",
		"tool", tool.Path,
		"sequence", seq.Name,
		"metabolites", len(list.Names),
		"output", req.Output)
	log.Debug("simulator argv", "args", args)

	runner := &simtool.Runner{
		Timeout: cfg.Tools.Timeout,
		Stdout:  opts.Stdout,
		Stderr:  opts.Stderr,
	}
	started := time.Now()
	res, runErr := runner.Run(ctx, tool.Path, args)

	run := catalog.Run{
		Kind:           "sim",
		StartedAt:      started,
		Duration:       res.Duration,
		SequenceFile:   req.SequenceFile,
		SequenceSHA256: seqHash,
		Metabolites:    list.Names,
		EchoTime:       echoTime,
		PhaseOffset:    phase,
		MMFile:         req.MMFile,
		OutputPath:     req.Output,
		ToolPath:       tool.Path,
		ToolVersion:    tool.Version,
		Argv:           args,
		ExitCode:       res.ExitCode,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	runID := record(ctx, opts, run, log)

	opts.Trace.Log(map[string]any{
		"kind": "sim", "tool": tool.Path, "argv": args,
		"exit_code": res.ExitCode, "duration_ms": res.Duration.Milliseconds(),
		"run_id": runID,
	})

	if runErr != nil {
		return nil, runErr
	}

	return &Outcome{
		RunID:       runID,
		Output:      req.Output,
		Metabolites: list.Names,
		ToolPath:    tool.Path,
		ToolVersion: tool.Version,
		Duration:    res.Duration,
	}, nil
}

// VisRequest describes one visualiser run.
type VisRequest struct {
	// Basis is the basis directory or file to render.
	Basis string

	// Save is the output image path.
	Save string

	// PPMLow and PPMHigh bound the plotted range; both zero uses the
	// configured window.
	PPMLow  float64
	PPMHigh float64
}

// Visualise invokes the external visualiser on a basis. The run is
// recorded in the catalog like a simulation run.
func Visualise(ctx context.Context, req VisRequest, opts Options) (*Outcome, error) {
	cfg := opts.config()
	log := opts.logger()

	if req.Basis == "" {
		return nil, fmt.Errorf("basis path is required")
	}
	if req.Save == "" {
		return nil, fmt.Errorf("save path is required")
	}
	if _, err := os.Stat(req.Basis); err != nil {
		return nil, fmt.Errorf("basis not found: %w", err)
	}
	if dir := filepath.Dir(req.Save); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("save directory not found: %w", err)
		}
	}

	low, high := req.PPMLow, req.PPMHigh
	if low == 0 && high == 0 {
		low, high = cfg.Vis.PPMLow, cfg.Vis.PPMHigh
	}
	if low >= high {
		return nil, fmt.Errorf("ppm window [%g, %g] is not increasing", low, high)
	}

	tool, err := simtool.Find(ctx, simtool.VisToolName, simtool.FindOptions{
		Explicit:    cfg.Tools.VisPath,
		AllowedDirs: cfg.Tools.AllowedDirs,
	})
	if err != nil {
		return nil, err
	}

	inv := simtool.VisInvocation{
		BasisPath: req.Basis,
		SavePath:  req.Save,
		PPMLow:    low,
		PPMHigh:   high,
	}
	args := inv.Args()

	log.Info("running visualiser", "tool", tool.Path, "basis", req.Basis, "save", req.Save)
	log.Debug("visualiser argv", "args", args)

	runner := &simtool.Runner{
		Timeout: cfg.Tools.Timeout,
		Stdout:  opts.Stdout,
		Stderr:  opts.Stderr,
	}
	started := time.Now()
	res, runErr := runner.Run(ctx, tool.Path, args)

	run := catalog.Run{
		Kind:        "vis",
		StartedAt:   started,
		Duration:    res.Duration,
		OutputPath:  req.Save,
		ToolPath:    tool.Path,
		ToolVersion: tool.Version,
		Argv:        args,
		ExitCode:    res.ExitCode,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	runID := record(ctx, opts, run, log)

	opts.Trace.Log(map[string]any{
		"kind": "vis", "tool": tool.Path, "argv": args,
		"exit_code": res.ExitCode, "duration_ms": res.Duration.Milliseconds(),
		"run_id": runID,
	})

	if runErr != nil {
		return nil, runErr
	}

	return &Outcome{
		RunID:       runID,
		Output:      req.Save,
		ToolPath:    tool.Path,
		ToolVersion: tool.Version,
		Duration:    res.Duration,
	}, nil
}

// record stores the run and syncs the JSONL export. Failures are logged,
// not returned: history must never mask the tool's own result.
func record(ctx context.Context, opts Options, run catalog.Run, log *slog.Logger) string {
	if opts.Catalog == nil {
		return ""
	}
	id, err := opts.Catalog.Record(ctx, run)
	if err != nil {
		log.Warn("failed to record run", "error", err)
		return ""
	}
	if err := opts.Catalog.Sync(ctx); err != nil {
		log.Warn("failed to export run history", "error", err)
	}
	return id
}
