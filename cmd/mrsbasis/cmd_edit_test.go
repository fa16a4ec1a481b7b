package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spectra-tools/mrsbasis/internal/basis"
)

func TestInfoCmd(t *testing.T) {
	tmpDir := t.TempDir()
	basisDir := writeBasisFixture(t, tmpDir, "NAA", "Cr", "PCh")

	out, err := runCommand(t, newInfoCmd(), "info", basisDir)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "Spectra:           3") {
		t.Errorf("output missing spectrum count:\n%s", out)
	}
	for _, name := range []string{"NAA", "Cr", "PCh"} {
		if !strings.Contains(out, name) {
			t.Errorf("output missing metabolite %s:\n%s", name, out)
		}
	}
}

func TestInfoCmdJSON(t *testing.T) {
	tmpDir := t.TempDir()
	basisDir := writeBasisFixture(t, tmpDir, "NAA", "Cr")

	out, err := runCommand(t, newInfoCmd(), "info", "--json", basisDir)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	var got struct {
		Names     []string `json:"names"`
		Count     int      `json:"count"`
		Points    int      `json:"points"`
		Bandwidth float64  `json:"bandwidth"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.Count != 2 || len(got.Names) != 2 {
		t.Errorf("count = %d, names = %v, want 2", got.Count, got.Names)
	}
	if got.Points != 64 {
		t.Errorf("points = %d, want 64", got.Points)
	}
	if got.Bandwidth != 1280 {
		t.Errorf("bandwidth = %g, want 1280", got.Bandwidth)
	}
}

func TestInfoCmdMissingBasis(t *testing.T) {
	_, err := runCommand(t, newInfoCmd(), "info", filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing basis")
	}
}

func TestShiftCmdRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	basisDir := writeBasisFixture(t, tmpDir, "NAA", "Cr")
	outDir := filepath.Join(tmpDir, "shifted")

	out, err := runCommand(t, newShiftCmd(), "shift", basisDir, "NAA", "0.05", outDir)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "Shifted NAA by 0.05 ppm") {
		t.Errorf("unexpected output: %q", out)
	}

	set, err := basis.Read(outDir)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if set.Len() != 2 {
		t.Errorf("Len() = %d, want 2", set.Len())
	}

	// Only the shifted spectrum changes.
	orig, _ := basis.Read(basisDir)
	if set.Get("NAA").FID[1] == orig.Get("NAA").FID[1] {
		t.Error("NAA FID unchanged after shift")
	}
	if set.Get("Cr").FID[1] != orig.Get("Cr").FID[1] {
		t.Error("Cr FID changed by a shift of NAA")
	}
}

func TestShiftCmdInvalidPPM(t *testing.T) {
	tmpDir := t.TempDir()
	basisDir := writeBasisFixture(t, tmpDir, "NAA")

	_, err := runCommand(t, newShiftCmd(), "shift", basisDir, "NAA", "abc", filepath.Join(tmpDir, "out"))
	if err == nil || !strings.Contains(err.Error(), "invalid ppm shift") {
		t.Errorf("error = %v, want invalid ppm shift", err)
	}
}

func TestScaleCmdExplicitTarget(t *testing.T) {
	tmpDir := t.TempDir()
	basisDir := writeBasisFixture(t, tmpDir, "NAA", "Mac")
	outDir := filepath.Join(tmpDir, "scaled")

	if _, err := runCommand(t, newScaleCmd(), "scale", "--target", "100", basisDir, "Mac", outDir); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	set, err := basis.Read(outDir)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	got := set.Get("Mac").Norm()
	if diff := got - 100; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Norm() = %g, want 100", got)
	}
}

func TestConjCmdRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	basisDir := writeBasisFixture(t, tmpDir, "NAA")
	outDir := filepath.Join(tmpDir, "conj")

	if _, err := runCommand(t, newConjCmd(), "conj", basisDir, "all", outDir); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	orig, _ := basis.Read(basisDir)
	set, err := basis.Read(outDir)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	want := complex(real(orig.Get("NAA").FID[1]), -imag(orig.Get("NAA").FID[1]))
	if got := set.Get("NAA").FID[1]; got != want {
		t.Errorf("FID[1] = %v, want conjugate %v", got, want)
	}
}

func TestDiffCmdSubtractAndSum(t *testing.T) {
	tmpDir := t.TempDir()
	basisDir := writeBasisFixture(t, tmpDir, "NAA", "Cr")

	diffDir := filepath.Join(tmpDir, "diffed")
	out, err := runCommand(t, newDiffCmd(), "diff", basisDir, basisDir, diffDir)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "difference of 2 metabolites") {
		t.Errorf("unexpected output: %q", out)
	}

	// basis minus itself is zero everywhere.
	set, err := basis.Read(diffDir)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	for _, s := range set.Spectra {
		if s.Norm() != 0 {
			t.Errorf("%s norm = %g after self-difference, want 0", s.Name, s.Norm())
		}
	}

	sumDir := filepath.Join(tmpDir, "summed")
	out, err = runCommand(t, newDiffCmd(), "diff", "--sum", basisDir, basisDir, sumDir)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "sum of 2 metabolites") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestDiffCmdInvalidMissingPolicy(t *testing.T) {
	tmpDir := t.TempDir()
	basisDir := writeBasisFixture(t, tmpDir, "NAA")

	_, err := runCommand(t, newDiffCmd(), "diff", "--missing", "explode",
		basisDir, basisDir, filepath.Join(tmpDir, "out"))
	if err == nil || !strings.Contains(err.Error(), "invalid --missing policy") {
		t.Errorf("error = %v, want invalid policy", err)
	}
}

func TestRemovePeakCmd(t *testing.T) {
	tmpDir := t.TempDir()
	// Fixture tone for the first metabolite sits at -300 Hz = 1.65 ppm.
	basisDir := writeBasisFixture(t, tmpDir, "NAA")
	outDir := filepath.Join(tmpDir, "cleaned")

	out, err := runCommand(t, newRemovePeakCmd(), "remove-peak",
		"--ppmlim", "1.5", "1.8", basisDir, "NAA", outDir)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "Removed [1.5, 1.8] ppm") {
		t.Errorf("unexpected output: %q", out)
	}

	set, err := basis.Read(outDir)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if norm := set.Get("NAA").Norm(); norm > 1e-6 {
		t.Errorf("norm = %g after removing the only resonance, want ~0", norm)
	}
}

func TestRemovePeakCmdBadWindow(t *testing.T) {
	tmpDir := t.TempDir()
	basisDir := writeBasisFixture(t, tmpDir, "NAA")

	_, err := runCommand(t, newRemovePeakCmd(), "remove-peak",
		"--ppmlim", "1.5", basisDir, "NAA", filepath.Join(tmpDir, "out"))
	if err == nil || !strings.Contains(err.Error(), "exactly two values") {
		t.Errorf("error = %v, want ppmlim arity error", err)
	}
}

func TestAddCmd(t *testing.T) {
	tmpDir := t.TempDir()
	basisDir := writeBasisFixture(t, tmpDir, "NAA", "Cr")
	mmBasis := writeBasisFixture(t, filepath.Join(tmpDir, "mm"), "Mac")
	mmFile := filepath.Join(mmBasis, "Mac.json")
	outDir := filepath.Join(tmpDir, "combined")

	out, err := runCommand(t, newAddCmd(), "add", mmFile, basisDir, outDir)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "Added Mac") {
		t.Errorf("unexpected output: %q", out)
	}

	set, err := basis.Read(outDir)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if set.Len() != 3 {
		t.Errorf("Len() = %d, want 3", set.Len())
	}
	if set.Get("Mac") == nil {
		t.Error("Mac missing from combined basis")
	}
}

func TestAddCmdRename(t *testing.T) {
	tmpDir := t.TempDir()
	basisDir := writeBasisFixture(t, tmpDir, "NAA")
	mmBasis := writeBasisFixture(t, filepath.Join(tmpDir, "mm"), "Mac")
	outDir := filepath.Join(tmpDir, "combined")

	_, err := runCommand(t, newAddCmd(), "add", "--name", "MM20",
		filepath.Join(mmBasis, "Mac.json"), basisDir, outDir)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	set, err := basis.Read(outDir)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if set.Get("MM20") == nil {
		t.Errorf("renamed spectrum missing, have %v", set.Names())
	}
}

func TestEditCmdsRefuseExistingOutput(t *testing.T) {
	tmpDir := t.TempDir()
	basisDir := writeBasisFixture(t, tmpDir, "NAA")
	outDir := writeBasisFixture(t, filepath.Join(tmpDir, "existing"), "NAA")

	_, err := runCommand(t, newConjCmd(), "conj", basisDir, "all", outDir)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error = %v, want overwrite refusal", err)
	}

	// With --overwrite the same invocation succeeds.
	if _, err := runCommand(t, newConjCmd(), "conj", "--overwrite", basisDir, "all", outDir); err != nil {
		t.Fatalf("Execute() with --overwrite error = %v", err)
	}
}
