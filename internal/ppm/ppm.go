// Package ppm provides chemical-shift axis conversions shared by the basis
// transforms and the spectrum plotter.
//
// Conventions: the receiver carrier sits on the water resonance at
// WaterShift ppm. A rotating-frame offset of f Hz maps to
// WaterShift + f/cf ppm, where cf is the central frequency in MHz
// (1 ppm = cf Hz).
package ppm

// WaterShift is the chemical shift of water in ppm, the reference point
// for all axis calculations.
const WaterShift = 4.65

// HzPerPPM returns the width of one ppm in Hz for a central frequency
// given in MHz.
func HzPerPPM(centreMHz float64) float64 {
	return centreMHz
}

// ToHz converts a chemical shift in ppm to a rotating-frame offset in Hz.
func ToHz(shift, centreMHz float64) float64 {
	return (shift - WaterShift) * centreMHz
}

// FromHz converts a rotating-frame offset in Hz to a chemical shift in ppm.
func FromHz(freq, centreMHz float64) float64 {
	return WaterShift + freq/centreMHz
}

// BinFrequencies returns the frequency in Hz of each DFT bin in standard
// (unshifted) coefficient order: bins 0..n/2-1 carry non-negative offsets,
// the upper half carries the negative offsets.
func BinFrequencies(n int, bandwidth float64) []float64 {
	freqs := make([]float64, n)
	for k := range freqs {
		if k <= (n-1)/2 {
			freqs[k] = float64(k) * bandwidth / float64(n)
		} else {
			freqs[k] = float64(k-n) * bandwidth / float64(n)
		}
	}
	return freqs
}

// ShiftedAxis returns the chemical-shift axis in ppm for an fft-shifted
// spectrum: index 0 is the most negative frequency offset, so the axis is
// monotonically increasing in ppm.
func ShiftedAxis(n int, bandwidth, centreMHz float64) []float64 {
	axis := make([]float64, n)
	for i := range axis {
		f := (float64(i) - float64(n)/2) * bandwidth / float64(n)
		axis[i] = FromHz(f, centreMHz)
	}
	return axis
}

// RangeMask returns, for each DFT bin in standard coefficient order,
// whether its chemical shift lies within [low, high] ppm.
func RangeMask(n int, bandwidth, centreMHz, low, high float64) []bool {
	if low > high {
		low, high = high, low
	}
	lowHz := ToHz(low, centreMHz)
	highHz := ToHz(high, centreMHz)
	mask := make([]bool, n)
	for k, f := range BinFrequencies(n, bandwidth) {
		mask[k] = f >= lowHz && f <= highHz
	}
	return mask
}
