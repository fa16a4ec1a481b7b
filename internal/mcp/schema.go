// Package mcp provides an MCP (Model Context Protocol) server for mrsbasis.
package mcp

import (
	"time"
)

// SimulateInput defines the input for the basis_simulate tool.
type SimulateInput struct {
	MetabFile    string   `json:"metab_file,omitempty" jsonschema:"Path to a metabolite list file (one name per line)"`
	Metabolites  []string `json:"metabolites,omitempty" jsonschema:"Metabolite names to simulate (alternative to metab_file)"`
	SequenceFile string   `json:"sequence_file" jsonschema:"Path to the pulse sequence description (JSON or YAML)"`
	Output       string   `json:"output" jsonschema:"Output basis path"`
	EchoTime     float64  `json:"echo_time,omitempty" jsonschema:"Echo time in ms"`
	PhaseOffset  float64  `json:"phase_offset,omitempty" jsonschema:"Zero-order receiver phase in degrees"`
	MMFile       string   `json:"mm_file,omitempty" jsonschema:"Path to a macromolecule basis JSON to append"`
	Overwrite    bool     `json:"overwrite,omitempty" jsonschema:"Replace an existing output (default: false)"`
}

// SimulateOutput defines the output for the basis_simulate tool.
type SimulateOutput struct {
	RunID       string   `json:"run_id" jsonschema:"Catalog ID of the recorded run"`
	Output      string   `json:"output" jsonschema:"Path the simulator wrote the basis to"`
	Metabolites []string `json:"metabolites" jsonschema:"Metabolite names that were simulated"`
	ToolVersion string   `json:"tool_version,omitempty" jsonschema:"Simulator version string"`
	DurationMS  int64    `json:"duration_ms" jsonschema:"Wall-clock run time in milliseconds"`
	Message     string   `json:"message" jsonschema:"Human-readable result message"`
}

// InfoInput defines the input for the basis_info tool.
type InfoInput struct {
	Basis string `json:"basis" jsonschema:"Path to a basis directory or single basis JSON file"`
}

// InfoOutput defines the output for the basis_info tool.
type InfoOutput struct {
	Names     []string `json:"names" jsonschema:"Metabolite names in the basis"`
	Count     int      `json:"count" jsonschema:"Number of spectra"`
	Points    int      `json:"points" jsonschema:"Samples per FID"`
	DwellTime float64  `json:"dwell_time" jsonschema:"Dwell time in seconds"`
	Bandwidth float64  `json:"bandwidth" jsonschema:"Spectral width in Hz"`
	CentreMHz float64  `json:"centre_mhz" jsonschema:"Central frequency in MHz"`
}

// RunsInput defines the input for the basis_runs tool.
type RunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of runs to return, newest first (default: 20)"`
}

// RunsOutput defines the output for the basis_runs tool.
type RunsOutput struct {
	Runs  []RunListItem `json:"runs" jsonschema:"Recorded tool invocations"`
	Count int           `json:"count" jsonschema:"Number of runs returned"`
}

// RunListItem provides a list view of a recorded run.
type RunListItem struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	Metabolites []string  `json:"metabolites,omitempty"`
	OutputPath  string    `json:"output_path,omitempty"`
	ExitCode    int       `json:"exit_code"`
	Error       string    `json:"error,omitempty"`
}
