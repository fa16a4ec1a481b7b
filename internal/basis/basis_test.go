package basis

import (
	"math"
	"math/cmplx"
	"testing"
)

// synthSpectrum builds a pure resonance at freqHz with n points.
func synthSpectrum(name string, n int, dwell, centreMHz, freqHz float64) Spectrum {
	fid := make([]complex128, n)
	for i := range fid {
		t := float64(i) * dwell
		fid[i] = cmplx.Exp(complex(0, 2*math.Pi*freqHz*t))
	}
	return Spectrum{
		Name:      name,
		FID:       fid,
		DwellTime: dwell,
		CentreMHz: centreMHz,
		Linewidth: 2,
	}
}

func TestSpectrumBandwidth(t *testing.T) {
	s := synthSpectrum("NAA", 64, 1.0/4000, 123.2, 0)
	if got := s.Bandwidth(); math.Abs(got-4000) > 1e-9 {
		t.Errorf("Bandwidth() = %v, want 4000", got)
	}
}

func TestSpectrumNorm(t *testing.T) {
	// A pure phase signal has unit magnitude at every sample.
	n := 100
	s := synthSpectrum("Cr", n, 1.0/4000, 123.2, 250)
	want := math.Sqrt(float64(n))
	if got := s.Norm(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Norm() = %v, want %v", got, want)
	}
}

func TestSpectrumValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Spectrum)
		wantErr bool
	}{
		{"valid", func(s *Spectrum) {}, false},
		{"no name", func(s *Spectrum) { s.Name = "" }, true},
		{"empty fid", func(s *Spectrum) { s.FID = nil }, true},
		{"zero dwell", func(s *Spectrum) { s.DwellTime = 0 }, true},
		{"negative centre", func(s *Spectrum) { s.CentreMHz = -1 }, true},
		{"nan sample", func(s *Spectrum) { s.FID[3] = complex(math.NaN(), 0) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := synthSpectrum("NAA", 32, 1.0/4000, 123.2, 100)
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetGet(t *testing.T) {
	set := &Set{Spectra: []Spectrum{
		synthSpectrum("NAA", 32, 1.0/4000, 123.2, 100),
		synthSpectrum("Cr", 32, 1.0/4000, 123.2, 200),
	}}

	if s := set.Get("Cr"); s == nil || s.Name != "Cr" {
		t.Errorf("Get(Cr) = %v", s)
	}
	if s := set.Get("Glu"); s != nil {
		t.Errorf("Get(Glu) = %v, want nil", s)
	}
}

func TestSetValidate(t *testing.T) {
	base := func() *Set {
		return &Set{Spectra: []Spectrum{
			synthSpectrum("NAA", 32, 1.0/4000, 123.2, 100),
			synthSpectrum("Cr", 32, 1.0/4000, 123.2, 200),
		}}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid set: %v", err)
	}

	empty := &Set{}
	if err := empty.Validate(); err == nil {
		t.Error("empty set validated")
	}

	dup := base()
	dup.Spectra[1].Name = "NAA"
	if err := dup.Validate(); err == nil {
		t.Error("duplicate names validated")
	}

	mismatch := base()
	mismatch.Spectra[1] = synthSpectrum("Cr", 64, 1.0/4000, 123.2, 200)
	if err := mismatch.Validate(); err == nil {
		t.Error("mismatched point counts validated")
	}

	dwell := base()
	dwell.Spectra[1].DwellTime *= 2
	if err := dwell.Validate(); err == nil {
		t.Error("mismatched dwell times validated")
	}
}

func TestSetCopyIsDeep(t *testing.T) {
	set := &Set{Spectra: []Spectrum{synthSpectrum("NAA", 16, 1.0/4000, 123.2, 100)}}
	cp := set.Copy()
	cp.Spectra[0].FID[0] = complex(99, 0)
	if set.Spectra[0].FID[0] == complex(99, 0) {
		t.Error("Copy() shares FID storage")
	}
}
