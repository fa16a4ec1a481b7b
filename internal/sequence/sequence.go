// Package sequence loads and validates pulse-sequence description files
// before they are handed to the external simulator. The schema itself is
// owned by the simulator; validation here is the subset needed to fail
// fast on files the simulator would reject anyway.
package sequence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Description is a pulse-sequence description. Field names mirror the
// simulator's JSON schema.
type Description struct {
	Name         string  `json:"sequenceName" yaml:"sequenceName"`
	Description  string  `json:"description,omitempty" yaml:"description,omitempty"`
	B0           float64 `json:"B0" yaml:"B0"`
	CentralShift float64 `json:"centralShift" yaml:"centralShift"`

	// Receiver settings.
	RxPoints int     `json:"RX_Points" yaml:"RX_Points"`
	RxSW     float64 `json:"RX_SW" yaml:"RX_SW"`
	RxLW     float64 `json:"RX_LW" yaml:"RX_LW"`
	RxPhase  float64 `json:"RX_Phase" yaml:"RX_Phase"`

	// Spatial extent of the simulated voxel grid, mm.
	X          []float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y          []float64 `json:"y,omitempty" yaml:"y,omitempty"`
	Z          []float64 `json:"z,omitempty" yaml:"z,omitempty"`
	Resolution []int     `json:"resolution,omitempty" yaml:"resolution,omitempty"`

	CoilCombination string `json:"CoilCombination,omitempty" yaml:"CoilCombination,omitempty"`
	RFUnits         string `json:"RFUnits,omitempty" yaml:"RFUnits,omitempty"`
	GradUnits       string `json:"GradUnits,omitempty" yaml:"GradUnits,omitempty"`
	SpaceUnits      string `json:"spaceUnits,omitempty" yaml:"spaceUnits,omitempty"`

	Blocks []Block `json:"blocks" yaml:"blocks"`
}

// Block is one RF/delay segment of the sequence.
type Block struct {
	Time         float64   `json:"time" yaml:"time"`
	RF           *Pulse    `json:"rf,omitempty" yaml:"rf,omitempty"`
	Delays       []float64 `json:"delays,omitempty" yaml:"delays,omitempty"`
	RephaseAreas []float64 `json:"rephaseAreas,omitempty" yaml:"rephaseAreas,omitempty"`
}

// Pulse is a shaped RF pulse.
type Pulse struct {
	Time            float64   `json:"time" yaml:"time"`
	FrequencyOffset float64   `json:"frequencyOffset" yaml:"frequencyOffset"`
	PhaseOffset     float64   `json:"phaseOffset" yaml:"phaseOffset"`
	Amp             []float64 `json:"amp" yaml:"amp"`
	Phase           []float64 `json:"phase" yaml:"phase"`
	Grad            []float64 `json:"grad,omitempty" yaml:"grad,omitempty"`
}

// CentralFrequencyMHz returns the proton frequency implied by B0.
func (d *Description) CentralFrequencyMHz() float64 {
	const gammaH = 42.576 // MHz/T
	return d.B0 * gammaH
}

// Load reads a sequence description from a JSON or YAML file. The format
// is chosen by extension, with JSON the default.
func Load(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sequence file: %w", err)
	}

	var d Description
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &d, nil
}

// Validate checks the fields the simulator cannot do without.
func (d *Description) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("sequenceName is required")
	}
	if d.B0 <= 0 {
		return fmt.Errorf("B0 must be positive, got %g", d.B0)
	}
	if d.RxPoints <= 0 {
		return fmt.Errorf("RX_Points must be positive, got %d", d.RxPoints)
	}
	if d.RxSW <= 0 {
		return fmt.Errorf("RX_SW must be positive, got %g", d.RxSW)
	}
	if d.RxLW < 0 {
		return fmt.Errorf("RX_LW must be non-negative, got %g", d.RxLW)
	}
	if len(d.Blocks) == 0 {
		return fmt.Errorf("sequence has no blocks")
	}

	for i, b := range d.Blocks {
		if b.Time < 0 {
			return fmt.Errorf("block %d: negative time %g", i, b.Time)
		}
		if b.RF != nil {
			if len(b.RF.Amp) == 0 {
				return fmt.Errorf("block %d: RF pulse has no amplitude samples", i)
			}
			if len(b.RF.Phase) != len(b.RF.Amp) {
				return fmt.Errorf("block %d: RF amp has %d samples, phase has %d",
					i, len(b.RF.Amp), len(b.RF.Phase))
			}
			if b.RF.Time <= 0 {
				return fmt.Errorf("block %d: RF pulse duration must be positive", i)
			}
		}
		for j, delay := range b.Delays {
			if delay < 0 {
				return fmt.Errorf("block %d: negative delay %g at index %d", i, delay, j)
			}
		}
	}

	for _, axis := range []struct {
		name string
		v    []float64
	}{{"x", d.X}, {"y", d.Y}, {"z", d.Z}} {
		if len(axis.v) != 0 && len(axis.v) != 2 {
			return fmt.Errorf("%s extent must have two values, got %d", axis.name, len(axis.v))
		}
		if len(axis.v) == 2 && axis.v[0] >= axis.v[1] {
			return fmt.Errorf("%s extent [%g, %g] is not increasing", axis.name, axis.v[0], axis.v[1])
		}
	}

	return nil
}
