// Package mm validates macromolecule baseline definitions before they
// are passed to the simulator. An MM file uses the same JSON payload as
// a basis spectrum, holding a measured or synthesised baseline FID.
package mm

import (
	"fmt"

	"github.com/spectra-tools/mrsbasis/internal/basis"
)

// Load reads an MM definition file.
func Load(path string) (*basis.Spectrum, error) {
	s, err := basis.ReadSpectrum(path)
	if err != nil {
		return nil, fmt.Errorf("macromolecule file: %w", err)
	}
	return s, nil
}

// CheckAgainst verifies the MM FID is compatible with the receiver
// settings the simulator will use: same point count and a dwell time
// matching the spectral width.
func CheckAgainst(s *basis.Spectrum, points int, spectralWidth float64) error {
	if s.Points() != points {
		return fmt.Errorf("macromolecule FID has %d points, sequence acquires %d", s.Points(), points)
	}

	wantDwell := 1 / spectralWidth
	if rel := (s.DwellTime - wantDwell) / wantDwell; rel > 1e-6 || rel < -1e-6 {
		return fmt.Errorf("macromolecule dwell time %g does not match spectral width %g Hz (want %g)",
			s.DwellTime, spectralWidth, wantDwell)
	}
	return nil
}
