// Package simtool locates and invokes the external simulation and
// visualisation programs. Both are treated as black boxes: this package
// owns finding the binaries, building their argument lists, and running
// them with timeouts and captured output.
package simtool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Default binary names looked up on PATH when no explicit path is
// configured.
const (
	SimToolName = "fsl_mrs_sim"
	VisToolName = "mrs_tools"
)

// probeTimeout bounds the --version check during discovery.
const probeTimeout = 5 * time.Second

// Tool is a located and validated external binary.
type Tool struct {
	// Path is the resolved absolute path of the binary.
	Path string

	// Version is the first line of the binary's --version output.
	Version string
}

// FindOptions configures tool discovery.
type FindOptions struct {
	// Explicit overrides PATH lookup with a configured binary path.
	Explicit string

	// AllowedDirs restricts discovery to binaries within these
	// directories. Empty means any directory (permissive default).
	AllowedDirs []string
}

// Find locates the named tool, checks it against the allowed-dir list,
// and probes it with --version. The returned error names everything
// that was tried.
func Find(ctx context.Context, name string, opts FindOptions) (*Tool, error) {
	var tried []string

	candidates := []string{name}
	if opts.Explicit != "" {
		candidates = []string{opts.Explicit}
	}

	for _, c := range candidates {
		path, err := exec.LookPath(c)
		if err != nil {
			tried = append(tried, c)
			continue
		}
		if !isAllowedPath(path, opts.AllowedDirs) {
			tried = append(tried, path+" (outside allowed directories)")
			continue
		}
		version, err := probeVersion(ctx, path)
		if err != nil {
			tried = append(tried, fmt.Sprintf("%s (%v)", path, err))
			continue
		}
		return &Tool{Path: path, Version: version}, nil
	}

	return nil, fmt.Errorf("%s not found (tried: %s)", name, strings.Join(tried, ", "))
}

// isAllowedPath checks that the binary resolves into one of the allowed
// directories. Returns true when no restriction is configured.
func isAllowedPath(path string, allowedDirs []string) bool {
	if len(allowedDirs) == 0 {
		return true
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return false
	}

	for _, dir := range allowedDirs {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if resolved == absDir || strings.HasPrefix(resolved, absDir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// probeVersion runs the binary with --version and returns the first
// output line.
func probeVersion(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "--version")
	cmd.Stdout = &stdout
	cmd.Stderr = io.Discard

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("--version probe failed: %w", err)
	}

	line, _, _ := strings.Cut(strings.TrimSpace(stdout.String()), "\n")
	return line, nil
}

// SimInvocation carries the arguments of one simulator run.
type SimInvocation struct {
	// MetabFile is the metabolite list file path (-m).
	MetabFile string

	// OutputBasis is the output basis directory/name (-o).
	OutputBasis string

	// PhaseOffset is the zero-order receiver phase in degrees (-p).
	PhaseOffset float64

	// MMFile is an optional macromolecule definition path (--MM).
	MMFile string

	// Overwrite allows replacing an existing output (--overwrite).
	Overwrite bool

	// EchoTime is the sequence echo time in ms (-e).
	EchoTime float64

	// SequenceFile is the pulse-sequence description path (positional).
	SequenceFile string
}

// Args builds the simulator's argument list.
func (inv SimInvocation) Args() []string {
	args := []string{
		"-m", inv.MetabFile,
		"-o", inv.OutputBasis,
		"-p", formatFloat(inv.PhaseOffset),
	}
	if inv.MMFile != "" {
		args = append(args, "--MM", inv.MMFile)
	}
	if inv.Overwrite {
		args = append(args, "--overwrite")
	}
	args = append(args, "-e", formatFloat(inv.EchoTime), inv.SequenceFile)
	return args
}

// VisInvocation carries the arguments of one visualiser run.
type VisInvocation struct {
	// BasisPath is the basis directory or file to render (positional).
	BasisPath string

	// SavePath is where the image is written (--save).
	SavePath string

	// PPMLow and PPMHigh bound the plotted range (--ppmlim); both zero
	// means the visualiser's default.
	PPMLow  float64
	PPMHigh float64
}

// Args builds the visualiser's argument list, including the "vis"
// subcommand.
func (inv VisInvocation) Args() []string {
	args := []string{"vis", "--save", inv.SavePath}
	if inv.PPMLow != 0 || inv.PPMHigh != 0 {
		args = append(args, "--ppmlim", formatFloat(inv.PPMLow), formatFloat(inv.PPMHigh))
	}
	return append(args, inv.BasisPath)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Result reports a completed (or failed) invocation.
type Result struct {
	// ExitCode is the process exit code; -1 when the process did not
	// run or was killed.
	ExitCode int

	// Duration is the wall-clock run time.
	Duration time.Duration

	// Stdout and Stderr hold captured output when the Runner was not
	// given writers to stream into.
	Stdout string
	Stderr string
}

// Runner executes external tools. A zero Runner streams nothing and
// applies no timeout.
type Runner struct {
	// Timeout bounds each invocation; zero means no limit beyond the
	// caller's context.
	Timeout time.Duration

	// Stdout and Stderr, when set, receive the tool's output as it is
	// produced. When nil, output is captured into the Result.
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes the tool at path with args. The returned Result is valid
// even when err is non-nil so callers can record failed runs.
func (r *Runner) Run(ctx context.Context, path string, args []string) (*Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	if r.Stdout != nil {
		cmd.Stdout = io.MultiWriter(r.Stdout, &stdout)
	} else {
		cmd.Stdout = &stdout
	}
	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(r.Stderr, &stderr)
	} else {
		cmd.Stderr = &stderr
	}

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		ExitCode: exitCode(cmd, err),
		Duration: time.Since(start),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return res, fmt.Errorf("%s timed out after %v", filepath.Base(path), r.Timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return res, fmt.Errorf("%s failed: %w (stderr: %s)", filepath.Base(path), err, tail(msg, 4))
		}
		return res, fmt.Errorf("%s failed: %w", filepath.Base(path), err)
	}
	return res, nil
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

// tail returns the last n lines of s, enough stderr to be useful in a
// wrapped error without swallowing pages of traceback.
func tail(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
