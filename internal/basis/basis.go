// Package basis provides the FSL-format basis-set data model and the
// transforms the CLI exposes (shift, rescale, conjugate, difference,
// add, peak removal).
package basis

import (
	"encoding/json"
	"fmt"
	"math"
	"math/cmplx"
)

// Spectrum is a single simulated metabolite FID with its acquisition
// parameters.
type Spectrum struct {
	// Name is the metabolite name (e.g. "NAA").
	Name string

	// FID is the complex time-domain signal.
	FID []complex128

	// DwellTime is the sampling interval in seconds.
	DwellTime float64

	// CentreMHz is the spectrometer central frequency in MHz.
	CentreMHz float64

	// Linewidth is the basis linewidth in Hz.
	Linewidth float64

	// Seq is the raw sequence metadata block of the source file, carried
	// through edits unchanged.
	Seq json.RawMessage
}

// Points returns the number of FID samples.
func (s *Spectrum) Points() int {
	return len(s.FID)
}

// Bandwidth returns the spectral width in Hz.
func (s *Spectrum) Bandwidth() float64 {
	if s.DwellTime == 0 {
		return 0
	}
	return 1 / s.DwellTime
}

// Norm returns the l2 norm of the FID, used for rescaling.
func (s *Spectrum) Norm() float64 {
	var sum float64
	for _, v := range s.FID {
		sum += real(v)*real(v) + imag(v)*imag(v)
	}
	return math.Sqrt(sum)
}

// Copy returns a deep copy of the spectrum.
func (s *Spectrum) Copy() Spectrum {
	out := *s
	out.FID = make([]complex128, len(s.FID))
	copy(out.FID, s.FID)
	if s.Seq != nil {
		out.Seq = make(json.RawMessage, len(s.Seq))
		copy(out.Seq, s.Seq)
	}
	return out
}

// Validate checks the spectrum is usable.
func (s *Spectrum) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("spectrum has no name")
	}
	if len(s.FID) == 0 {
		return fmt.Errorf("spectrum %s has an empty FID", s.Name)
	}
	if s.DwellTime <= 0 {
		return fmt.Errorf("spectrum %s has non-positive dwell time %g", s.Name, s.DwellTime)
	}
	if s.CentreMHz <= 0 {
		return fmt.Errorf("spectrum %s has non-positive central frequency %g", s.Name, s.CentreMHz)
	}
	for i, v := range s.FID {
		if cmplx.IsNaN(v) || cmplx.IsInf(v) {
			return fmt.Errorf("spectrum %s has a non-finite sample at index %d", s.Name, i)
		}
	}
	return nil
}

// Set is an ordered collection of basis spectra.
type Set struct {
	Spectra []Spectrum
}

// Names returns the metabolite names in set order.
func (b *Set) Names() []string {
	names := make([]string, len(b.Spectra))
	for i, s := range b.Spectra {
		names[i] = s.Name
	}
	return names
}

// Get returns the spectrum with the given name, or nil if absent.
func (b *Set) Get(name string) *Spectrum {
	for i := range b.Spectra {
		if b.Spectra[i].Name == name {
			return &b.Spectra[i]
		}
	}
	return nil
}

// Len returns the number of spectra in the set.
func (b *Set) Len() int {
	return len(b.Spectra)
}

// Copy returns a deep copy of the set.
func (b *Set) Copy() *Set {
	out := &Set{Spectra: make([]Spectrum, len(b.Spectra))}
	for i := range b.Spectra {
		out.Spectra[i] = b.Spectra[i].Copy()
	}
	return out
}

// Validate checks every spectrum and that acquisition parameters agree
// across the set.
func (b *Set) Validate() error {
	if len(b.Spectra) == 0 {
		return fmt.Errorf("basis set is empty")
	}

	seen := make(map[string]bool, len(b.Spectra))
	first := &b.Spectra[0]
	for i := range b.Spectra {
		s := &b.Spectra[i]
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate metabolite %s in basis set", s.Name)
		}
		seen[s.Name] = true

		if s.Points() != first.Points() {
			return fmt.Errorf("spectrum %s has %d points, %s has %d",
				s.Name, s.Points(), first.Name, first.Points())
		}
		if !closeEnough(s.DwellTime, first.DwellTime) {
			return fmt.Errorf("spectrum %s dwell time %g disagrees with %s (%g)",
				s.Name, s.DwellTime, first.Name, first.DwellTime)
		}
		if !closeEnough(s.CentreMHz, first.CentreMHz) {
			return fmt.Errorf("spectrum %s central frequency %g disagrees with %s (%g)",
				s.Name, s.CentreMHz, first.Name, first.CentreMHz)
		}
	}
	return nil
}

// closeEnough compares acquisition parameters with a relative tolerance;
// values written through JSON survive only ~15 significant digits.
func closeEnough(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= 1e-9*scale
}
