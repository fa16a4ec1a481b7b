package basis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/spectra-tools/mrsbasis/internal/ppm"
)

// All selects every metabolite in a set for operations that accept a
// metabolite name.
const All = "all"

// ErrUnknownMetabolite is returned when a named metabolite is not present
// in the set.
var ErrUnknownMetabolite = errors.New("unknown metabolite")

// Shift frequency-shifts the named metabolite (or All) by ppmShift ppm.
// Positive values move peaks towards higher chemical shift.
func Shift(set *Set, name string, ppmShift float64) error {
	return forEach(set, name, func(s *Spectrum) error {
		shiftSpectrum(s, ppmShift)
		return nil
	})
}

func shiftSpectrum(s *Spectrum, ppmShift float64) {
	freqHz := ppmShift * ppm.HzPerPPM(s.CentreMHz)
	for n := range s.FID {
		t := float64(n) * s.DwellTime
		s.FID[n] *= cmplx.Exp(complex(0, 2*math.Pi*freqHz*t))
	}
}

// Rescale scales the named metabolite so its norm matches target. A nil
// target means the mean norm of the other spectra in the set, matching
// the behaviour expected by fitting tools that assume comparable
// amplitudes across the basis.
func Rescale(set *Set, name string, target *float64) error {
	s := set.Get(name)
	if s == nil {
		return fmt.Errorf("%w: %s", ErrUnknownMetabolite, name)
	}

	want := 0.0
	if target != nil {
		want = *target
	} else {
		if set.Len() < 2 {
			return fmt.Errorf("cannot rescale %s: no other spectra to average", name)
		}
		for i := range set.Spectra {
			if set.Spectra[i].Name == name {
				continue
			}
			want += set.Spectra[i].Norm()
		}
		want /= float64(set.Len() - 1)
	}

	norm := s.Norm()
	if norm == 0 {
		return fmt.Errorf("cannot rescale %s: zero norm", name)
	}

	factor := complex(want/norm, 0)
	for i := range s.FID {
		s.FID[i] *= factor
	}
	return nil
}

// Conjugate reverses the frequency axis of the named metabolite (or All)
// by conjugating its FID.
func Conjugate(set *Set, name string) error {
	return forEach(set, name, func(s *Spectrum) error {
		for i := range s.FID {
			s.FID[i] = cmplx.Conj(s.FID[i])
		}
		return nil
	})
}

// MissingPolicy controls how Difference treats metabolites present in
// only one of the two sets.
type MissingPolicy int

const (
	// MissingRaise errors on the first metabolite absent from either set.
	MissingRaise MissingPolicy = iota
	// MissingIgnore silently restricts the result to common metabolites.
	MissingIgnore
)

// Difference forms a new set from two basis sets: b subtracted from (or
// added to) a, metabolite by metabolite. Acquisition parameters of the
// two sets must agree.
func Difference(a, b *Set, subtract bool, policy MissingPolicy) (*Set, error) {
	if a.Len() == 0 || b.Len() == 0 {
		return nil, fmt.Errorf("difference requires two non-empty basis sets")
	}

	if policy == MissingRaise {
		for _, name := range a.Names() {
			if b.Get(name) == nil {
				return nil, fmt.Errorf("%w: %s missing from second basis", ErrUnknownMetabolite, name)
			}
		}
		for _, name := range b.Names() {
			if a.Get(name) == nil {
				return nil, fmt.Errorf("%w: %s missing from first basis", ErrUnknownMetabolite, name)
			}
		}
	}

	out := &Set{}
	for i := range a.Spectra {
		sa := &a.Spectra[i]
		sb := b.Get(sa.Name)
		if sb == nil {
			continue // policy is MissingIgnore
		}
		if sa.Points() != sb.Points() {
			return nil, fmt.Errorf("%s: %d points vs %d", sa.Name, sa.Points(), sb.Points())
		}
		if !closeEnough(sa.DwellTime, sb.DwellTime) || !closeEnough(sa.CentreMHz, sb.CentreMHz) {
			return nil, fmt.Errorf("%s: acquisition parameters disagree between sets", sa.Name)
		}

		d := sa.Copy()
		for n := range d.FID {
			if subtract {
				d.FID[n] -= sb.FID[n]
			} else {
				d.FID[n] += sb.FID[n]
			}
		}
		out.Spectra = append(out.Spectra, d)
	}

	if out.Len() == 0 {
		return nil, fmt.Errorf("no common metabolites between the two basis sets")
	}
	return out, nil
}

// AddOptions configures Add.
type AddOptions struct {
	// Name overrides the spectrum's own name when non-empty.
	Name string
	// Scale rescales the new spectrum to the mean norm of the target set.
	Scale bool
	// Conj conjugates the new spectrum before adding.
	Conj bool
	// Pad zero-pads a shorter FID to the target length.
	Pad bool
}

// Add appends a spectrum to the target set, applying the requested
// adjustments. The spectrum must match the target's dwell time and
// central frequency.
func Add(target *Set, s Spectrum, opts AddOptions) error {
	if opts.Name != "" {
		s.Name = opts.Name
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if target.Get(s.Name) != nil {
		return fmt.Errorf("metabolite %s already present in target basis", s.Name)
	}
	if target.Len() == 0 {
		return fmt.Errorf("target basis set is empty")
	}

	ref := &target.Spectra[0]
	if !closeEnough(s.DwellTime, ref.DwellTime) {
		return fmt.Errorf("dwell time %g does not match target (%g)", s.DwellTime, ref.DwellTime)
	}
	if !closeEnough(s.CentreMHz, ref.CentreMHz) {
		return fmt.Errorf("central frequency %g does not match target (%g)", s.CentreMHz, ref.CentreMHz)
	}

	s = s.Copy()

	switch {
	case s.Points() == ref.Points():
		// Nothing to do.
	case s.Points() < ref.Points() && opts.Pad:
		padded := make([]complex128, ref.Points())
		copy(padded, s.FID)
		s.FID = padded
	case s.Points() < ref.Points():
		return fmt.Errorf("FID has %d points, target has %d (use pad)", s.Points(), ref.Points())
	default:
		return fmt.Errorf("FID has %d points, more than the target's %d", s.Points(), ref.Points())
	}

	if opts.Conj {
		for i := range s.FID {
			s.FID[i] = cmplx.Conj(s.FID[i])
		}
	}

	if opts.Scale {
		var mean float64
		for i := range target.Spectra {
			mean += target.Spectra[i].Norm()
		}
		mean /= float64(target.Len())

		norm := s.Norm()
		if norm == 0 {
			return fmt.Errorf("cannot scale %s: zero norm", s.Name)
		}
		factor := complex(mean/norm, 0)
		for i := range s.FID {
			s.FID[i] *= factor
		}
	}

	target.Spectra = append(target.Spectra, s)
	return nil
}

// RemovePeak zeroes the [low, high] ppm region of the named metabolite
// (or All). The default TMS reference region is -0.2 to 0.2 ppm. A range
// outside the spectral window is a no-op.
func RemovePeak(set *Set, name string, low, high float64) error {
	return forEach(set, name, func(s *Spectrum) error {
		removePeakSpectrum(s, low, high)
		return nil
	})
}

func removePeakSpectrum(s *Spectrum, low, high float64) {
	n := s.Points()
	fft := fourier.NewCmplxFFT(n)

	coeffs := fft.Coefficients(nil, s.FID)
	mask := ppm.RangeMask(n, s.Bandwidth(), s.CentreMHz, low, high)
	for k, in := range mask {
		if in {
			coeffs[k] = 0
		}
	}

	seq := fft.Sequence(nil, coeffs)
	// gonum's transform pair is unnormalised.
	scale := complex(1/float64(n), 0)
	for i := range seq {
		s.FID[i] = seq[i] * scale
	}
}

// forEach applies fn to the named metabolite, or to every spectrum when
// name is All.
func forEach(set *Set, name string, fn func(*Spectrum) error) error {
	if name == All {
		for i := range set.Spectra {
			if err := fn(&set.Spectra[i]); err != nil {
				return err
			}
		}
		return nil
	}

	s := set.Get(name)
	if s == nil {
		return fmt.Errorf("%w: %s", ErrUnknownMetabolite, name)
	}
	return fn(s)
}
