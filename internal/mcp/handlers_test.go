package mcp

import (
	"context"
	"math"
	"math/cmplx"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spectra-tools/mrsbasis/internal/basis"
	"github.com/spectra-tools/mrsbasis/internal/catalog"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(&Config{
		Name:    "mrsbasis",
		Version: "test",
		Root:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

// writeTestBasis saves a small synthetic basis set and returns its path.
func writeTestBasis(t *testing.T, dir string, names ...string) string {
	t.Helper()
	const n = 64
	set := &basis.Set{}
	for i, name := range names {
		fid := make([]complex128, n)
		freq := -100.0 * float64(i+1)
		for k := range fid {
			ts := float64(k) / 1000
			fid[k] = cmplx.Exp(complex(0, 2*math.Pi*freq*ts))
		}
		set.Spectra = append(set.Spectra, basis.Spectrum{
			Name:      name,
			FID:       fid,
			DwellTime: 1.0 / 1000,
			CentreMHz: 123.2,
			Linewidth: 2,
		})
	}

	basisDir := filepath.Join(dir, "test_basis")
	if err := basis.Save(set, basisDir, false); err != nil {
		t.Fatalf("failed to save test basis: %v", err)
	}
	return basisDir
}

func TestHandleInfo(t *testing.T) {
	srv := newTestServer(t)
	basisDir := writeTestBasis(t, t.TempDir(), "Cr", "NAA")

	_, out, err := srv.handleInfo(context.Background(), nil, InfoInput{Basis: basisDir})
	if err != nil {
		t.Fatalf("handleInfo failed: %v", err)
	}

	if out.Count != 2 {
		t.Errorf("Count = %d, want 2", out.Count)
	}
	if len(out.Names) != 2 || out.Names[0] != "Cr" || out.Names[1] != "NAA" {
		t.Errorf("Names = %v, want [Cr NAA]", out.Names)
	}
	if out.Points != 64 {
		t.Errorf("Points = %d, want 64", out.Points)
	}
	if out.Bandwidth != 1000 {
		t.Errorf("Bandwidth = %f, want 1000", out.Bandwidth)
	}
	if out.CentreMHz != 123.2 {
		t.Errorf("CentreMHz = %f, want 123.2", out.CentreMHz)
	}
}

func TestHandleInfo_MissingPath(t *testing.T) {
	srv := newTestServer(t)

	if _, _, err := srv.handleInfo(context.Background(), nil, InfoInput{}); err == nil {
		t.Error("expected error for empty basis path")
	}
	if _, _, err := srv.handleInfo(context.Background(), nil, InfoInput{Basis: "/no/such/basis"}); err == nil {
		t.Error("expected error for nonexistent basis")
	}
}

func TestHandleRuns(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := srv.catalog.Record(ctx, catalog.Run{
			Kind:        "sim",
			StartedAt:   time.Date(2026, 8, 1, 12, i, 0, 0, time.UTC),
			ToolPath:    "/usr/local/bin/fsl_mrs_sim",
			Argv:        []string{"-m", "m.txt", "-o", "out", "-p", "0", "-e", "11", "seq.json"},
			Metabolites: []string{"NAA"},
			ExitCode:    0,
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	_, out, err := srv.handleRuns(ctx, nil, RunsInput{})
	if err != nil {
		t.Fatalf("handleRuns failed: %v", err)
	}
	if out.Count != 3 {
		t.Errorf("Count = %d, want 3", out.Count)
	}

	_, limited, err := srv.handleRuns(ctx, nil, RunsInput{Limit: 1})
	if err != nil {
		t.Fatalf("handleRuns with limit failed: %v", err)
	}
	if limited.Count != 1 {
		t.Errorf("Count = %d, want 1 with limit", limited.Count)
	}
	if limited.Runs[0].StartedAt.Minute() != 2 {
		t.Error("expected newest run first")
	}
}

func TestHandleRuns_Empty(t *testing.T) {
	srv := newTestServer(t)

	_, out, err := srv.handleRuns(context.Background(), nil, RunsInput{})
	if err != nil {
		t.Fatalf("handleRuns failed: %v", err)
	}
	if out.Count != 0 {
		t.Errorf("Count = %d, want 0", out.Count)
	}
}

func TestHandleSimulate_ValidationFailsBeforeToolLookup(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   SimulateInput
		wantErr string
	}{
		{
			name:    "missing sequence",
			input:   SimulateInput{Metabolites: []string{"NAA"}, Output: "out"},
			wantErr: "sequence file is required",
		},
		{
			name:    "missing output",
			input:   SimulateInput{Metabolites: []string{"NAA"}, SequenceFile: "seq.json"},
			wantErr: "output path is required",
		},
		{
			name:    "no metabolites",
			input:   SimulateInput{SequenceFile: "seq.json", Output: "out"},
			wantErr: "no metabolites",
		},
		{
			name: "bad metabolite name",
			input: SimulateInput{
				Metabolites:  []string{"../etc/passwd"},
				SequenceFile: "seq.json",
				Output:       "out",
			},
			wantErr: "invalid metabolite name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := srv.handleSimulate(ctx, nil, tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
