package simrun

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/spectra-tools/mrsbasis/internal/catalog"
	"github.com/spectra-tools/mrsbasis/internal/config"
)

const testSequence = `{
	"sequenceName": "press",
	"B0": 2.89,
	"centralShift": 4.65,
	"RX_Points": 64,
	"RX_SW": 1000,
	"RX_LW": 2,
	"blocks": [
		{"time": 0, "rf": {"time": 0.001, "frequencyOffset": 0, "phaseOffset": 0, "amp": [1, 1], "phase": [0, 0]}}
	]
}`

// writeFixtures creates a sequence file and metabolite list in dir.
func writeFixtures(t *testing.T, dir string) (seqFile, metabFile string) {
	t.Helper()
	seqFile = filepath.Join(dir, "press.json")
	if err := os.WriteFile(seqFile, []byte(testSequence), 0644); err != nil {
		t.Fatal(err)
	}
	metabFile = filepath.Join(dir, "metabs.txt")
	if err := os.WriteFile(metabFile, []byte("NAA\nCr\nPCh\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return seqFile, metabFile
}

// writeFakeTool creates an executable that answers the --version probe,
// touches a marker file on a real invocation, and exits with the given
// code.
func writeFakeTool(t *testing.T, dir, name, marker string, exit int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts are not portable to windows")
	}

	script := `#!/bin/sh
echo "` + name + ` 2.1.1"
if [ "$1" = "--version" ]; then exit 0; fi
touch "` + marker + `"
exit ` + strconv.Itoa(exit) + `
`
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func testOptions(t *testing.T, root, simPath, visPath string) Options {
	t.Helper()
	cfg := config.Default()
	cfg.Tools.SimPath = simPath
	cfg.Tools.VisPath = visPath

	cat, err := catalog.Open(root)
	if err != nil {
		t.Fatalf("catalog.Open failed: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	return Options{Config: cfg, Catalog: cat}
}

func TestSimulateRunsAndRecords(t *testing.T) {
	dir := t.TempDir()
	seqFile, metabFile := writeFixtures(t, dir)
	marker := filepath.Join(dir, "ran")
	simPath := writeFakeTool(t, dir, "fsl_mrs_sim", marker, 0)
	opts := testOptions(t, dir, simPath, "")

	outcome, err := Simulate(context.Background(), SimRequest{
		MetabFile:    metabFile,
		SequenceFile: seqFile,
		Output:       filepath.Join(dir, "out_basis"),
		EchoTime:     11,
	}, opts)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	if _, err := os.Stat(marker); err != nil {
		t.Error("simulator was not invoked")
	}
	if outcome.RunID == "" {
		t.Error("run was not recorded")
	}
	if len(outcome.Metabolites) != 3 {
		t.Errorf("Metabolites = %v, want 3 names", outcome.Metabolites)
	}
	if outcome.ToolVersion != "fsl_mrs_sim 2.1.1" {
		t.Errorf("ToolVersion = %q", outcome.ToolVersion)
	}

	run, err := opts.Catalog.Get(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("recorded run not found: %v", err)
	}
	if run.Kind != "sim" {
		t.Errorf("Kind = %q, want sim", run.Kind)
	}
	if run.SequenceSHA256 == "" {
		t.Error("sequence hash not recorded")
	}
	if run.EchoTime != 11 {
		t.Errorf("EchoTime = %f, want 11", run.EchoTime)
	}

	if _, err := os.Stat(filepath.Join(dir, ".mrsbasis", "runs.jsonl")); err != nil {
		t.Error("runs.jsonl not exported")
	}
}

func TestSimulateConfiguredDefaults(t *testing.T) {
	dir := t.TempDir()
	seqFile, metabFile := writeFixtures(t, dir)
	simPath := writeFakeTool(t, dir, "fsl_mrs_sim", filepath.Join(dir, "ran"), 0)
	opts := testOptions(t, dir, simPath, "")
	opts.Config.Sim.EchoTime = 30
	opts.Config.Sim.PhaseOffset = 90

	outcome, err := Simulate(context.Background(), SimRequest{
		MetabFile:    metabFile,
		SequenceFile: seqFile,
		Output:       filepath.Join(dir, "out_basis"),
	}, opts)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	run, err := opts.Catalog.Get(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("recorded run not found: %v", err)
	}
	if run.EchoTime != 30 {
		t.Errorf("EchoTime = %f, want configured default 30", run.EchoTime)
	}
	if run.PhaseOffset != 90 {
		t.Errorf("PhaseOffset = %f, want configured default 90", run.PhaseOffset)
	}
	argv := strings.Join(run.Argv, " ")
	if !strings.Contains(argv, "-p 90") {
		t.Errorf("argv = %q, want -p 90", argv)
	}
	if !strings.Contains(argv, "-e 30") {
		t.Errorf("argv = %q, want -e 30", argv)
	}
}

func TestSimulateExplicitPhaseWins(t *testing.T) {
	dir := t.TempDir()
	seqFile, metabFile := writeFixtures(t, dir)
	simPath := writeFakeTool(t, dir, "fsl_mrs_sim", filepath.Join(dir, "ran"), 0)
	opts := testOptions(t, dir, simPath, "")
	opts.Config.Sim.PhaseOffset = 90

	outcome, err := Simulate(context.Background(), SimRequest{
		MetabFile:    metabFile,
		SequenceFile: seqFile,
		Output:       filepath.Join(dir, "out_basis"),
		EchoTime:     11,
		PhaseOffset:  -45,
	}, opts)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	run, err := opts.Catalog.Get(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("recorded run not found: %v", err)
	}
	if run.PhaseOffset != -45 {
		t.Errorf("PhaseOffset = %f, want request value -45", run.PhaseOffset)
	}
}

func TestSimulateInlineMetabolites(t *testing.T) {
	dir := t.TempDir()
	seqFile, _ := writeFixtures(t, dir)
	marker := filepath.Join(dir, "ran")
	simPath := writeFakeTool(t, dir, "fsl_mrs_sim", marker, 0)
	opts := testOptions(t, dir, simPath, "")

	outcome, err := Simulate(context.Background(), SimRequest{
		Metabolites:  []string{"NAA", "Cr"},
		SequenceFile: seqFile,
		Output:       filepath.Join(dir, "out_basis"),
	}, opts)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if len(outcome.Metabolites) != 2 {
		t.Errorf("Metabolites = %v, want [NAA Cr]", outcome.Metabolites)
	}
}

func TestSimulateValidationFailsBeforeSubprocess(t *testing.T) {
	dir := t.TempDir()
	seqFile, metabFile := writeFixtures(t, dir)
	marker := filepath.Join(dir, "ran")
	simPath := writeFakeTool(t, dir, "fsl_mrs_sim", marker, 0)
	opts := testOptions(t, dir, simPath, "")

	// Existing output without overwrite must refuse before running.
	output := filepath.Join(dir, "existing_basis")
	if err := os.MkdirAll(output, 0755); err != nil {
		t.Fatal(err)
	}

	_, err := Simulate(context.Background(), SimRequest{
		MetabFile:    metabFile,
		SequenceFile: seqFile,
		Output:       output,
	}, opts)
	if err == nil {
		t.Fatal("expected overwrite refusal")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error = %v, want overwrite refusal", err)
	}
	if _, err := os.Stat(marker); err == nil {
		t.Error("simulator ran despite validation failure")
	}

	// Invalid sequence file refuses the same way.
	badSeq := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(badSeq, []byte(`{"sequenceName": "x"}`), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = Simulate(context.Background(), SimRequest{
		MetabFile:    metabFile,
		SequenceFile: badSeq,
		Output:       filepath.Join(dir, "out2"),
	}, opts)
	if err == nil {
		t.Fatal("expected sequence validation error")
	}
	if _, err := os.Stat(marker); err == nil {
		t.Error("simulator ran despite invalid sequence")
	}
}

func TestSimulateToolFailureRecorded(t *testing.T) {
	dir := t.TempDir()
	seqFile, metabFile := writeFixtures(t, dir)
	marker := filepath.Join(dir, "ran")
	simPath := writeFakeTool(t, dir, "fsl_mrs_sim", marker, 1)
	opts := testOptions(t, dir, simPath, "")

	_, err := Simulate(context.Background(), SimRequest{
		MetabFile:    metabFile,
		SequenceFile: seqFile,
		Output:       filepath.Join(dir, "out_basis"),
	}, opts)
	if err == nil {
		t.Fatal("expected error from failing simulator")
	}

	runs, listErr := opts.Catalog.List(context.Background(), 0)
	if listErr != nil {
		t.Fatalf("List failed: %v", listErr)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(runs))
	}
	if runs[0].ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", runs[0].ExitCode)
	}
	if runs[0].Error == "" {
		t.Error("failed run recorded without error message")
	}
}

func TestVisualiseRunsAndRecords(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")
	visPath := writeFakeTool(t, dir, "mrs_tools", marker, 0)
	opts := testOptions(t, dir, "", visPath)

	basisDir := filepath.Join(dir, "my_basis")
	if err := os.MkdirAll(basisDir, 0755); err != nil {
		t.Fatal(err)
	}

	outcome, err := Visualise(context.Background(), VisRequest{
		Basis: basisDir,
		Save:  filepath.Join(dir, "basis.png"),
	}, opts)
	if err != nil {
		t.Fatalf("Visualise failed: %v", err)
	}

	if _, err := os.Stat(marker); err != nil {
		t.Error("visualiser was not invoked")
	}

	run, err := opts.Catalog.Get(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("recorded run not found: %v", err)
	}
	if run.Kind != "vis" {
		t.Errorf("Kind = %q, want vis", run.Kind)
	}
	// Default window is applied when no limits are given.
	joined := strings.Join(run.Argv, " ")
	if !strings.Contains(joined, "--ppmlim 0.2 4.2") {
		t.Errorf("Argv = %v, want default ppm window", run.Argv)
	}
}

func TestVisualiseMissingBasis(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "ran")
	visPath := writeFakeTool(t, dir, "mrs_tools", marker, 0)
	opts := testOptions(t, dir, "", visPath)

	_, err := Visualise(context.Background(), VisRequest{
		Basis: filepath.Join(dir, "absent"),
		Save:  filepath.Join(dir, "basis.png"),
	}, opts)
	if err == nil {
		t.Fatal("expected error for missing basis")
	}
	if _, err := os.Stat(marker); err == nil {
		t.Error("visualiser ran despite missing basis")
	}
}
