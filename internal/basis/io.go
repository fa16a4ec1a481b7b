package basis

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// payload is the on-disk JSON shape of a single basis spectrum. The field
// names are the FSL-MRS contract and must not change.
type payload struct {
	Re     []float64 `json:"basis_re"`
	Im     []float64 `json:"basis_im"`
	Dwell  float64   `json:"basis_dwell"`
	Centre float64   `json:"basis_centre"`
	Width  float64   `json:"basis_width"`
	Name   string    `json:"basis_name"`
}

// fileFormat is a basis file with the optional "basis" wrapper object and
// a sequence block preserved verbatim.
type fileFormat struct {
	Basis payload         `json:"basis"`
	Seq   json.RawMessage `json:"seq,omitempty"`
}

// Read loads a basis set from a directory of JSON files or a single JSON
// file. Files are read in name order so repeated reads produce the same
// set ordering.
func Read(path string) (*Set, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat basis path: %w", err)
	}

	if !info.IsDir() {
		s, err := ReadSpectrum(path)
		if err != nil {
			return nil, err
		}
		return &Set{Spectra: []Spectrum{*s}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read basis directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("no basis JSON files in %s", path)
	}

	set := &Set{}
	for _, name := range files {
		s, err := ReadSpectrum(filepath.Join(path, name))
		if err != nil {
			return nil, err
		}
		set.Spectra = append(set.Spectra, *s)
	}

	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("basis set %s: %w", path, err)
	}
	return set, nil
}

// ReadSpectrum loads a single basis spectrum from a JSON file. Both the
// wrapped ({"basis": {...}}) and bare payload forms are accepted; a
// missing basis_name falls back to the file name.
func ReadSpectrum(path string) (*Spectrum, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read basis file: %w", err)
	}

	p, seq, err := decodePayload(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), ".json")
	}

	s, err := fromPayload(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Seq = seq
	return s, nil
}

// decodePayload unwraps the optional "basis" object, returning the raw
// sequence block alongside so it survives a save.
func decodePayload(data []byte) (*payload, json.RawMessage, error) {
	var wrapped fileFormat
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Basis.Re) > 0 {
		return &wrapped.Basis, wrapped.Seq, nil
	}

	var bare payload
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, nil, err
	}
	if len(bare.Re) == 0 {
		return nil, nil, fmt.Errorf("no basis_re data")
	}
	return &bare, nil, nil
}

func fromPayload(p *payload) (*Spectrum, error) {
	if len(p.Im) != len(p.Re) {
		return nil, fmt.Errorf("basis_re has %d points, basis_im has %d", len(p.Re), len(p.Im))
	}

	fid := make([]complex128, len(p.Re))
	for i := range p.Re {
		fid[i] = complex(p.Re[i], p.Im[i])
	}

	s := &Spectrum{
		Name:      p.Name,
		FID:       fid,
		DwellTime: p.Dwell,
		CentreMHz: p.Centre,
		Linewidth: p.Width,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func toPayload(s *Spectrum) *payload {
	re := make([]float64, len(s.FID))
	im := make([]float64, len(s.FID))
	for i, v := range s.FID {
		re[i] = real(v)
		im[i] = imag(v)
	}
	return &payload{
		Re:     re,
		Im:     im,
		Dwell:  s.DwellTime,
		Centre: s.CentreMHz,
		Width:  s.Linewidth,
		Name:   s.Name,
	}
}

// Save writes the set to dir as one JSON file per metabolite, creating the
// directory if needed. Existing metabolite files are refused unless
// overwrite is set.
func Save(set *Set, dir string, overwrite bool) error {
	if err := set.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create basis directory: %w", err)
	}

	// Pre-flight the overwrite check so a refusal leaves the directory
	// untouched.
	if !overwrite {
		for i := range set.Spectra {
			path := filepath.Join(dir, set.Spectra[i].Name+".json")
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists (use overwrite to replace)", path)
			}
		}
	}

	for i := range set.Spectra {
		s := &set.Spectra[i]
		data, err := json.Marshal(fileFormat{Basis: *toPayload(s), Seq: s.Seq})
		if err != nil {
			return fmt.Errorf("marshal %s: %w", s.Name, err)
		}
		path := filepath.Join(dir, s.Name+".json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
