// Package plot renders basis sets as SVG spectra and serves an
// interactive preview over HTTP.
package plot

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/spectra-tools/mrsbasis/internal/basis"
	"github.com/spectra-tools/mrsbasis/internal/ppm"
)

// Options configures SVG rendering.
type Options struct {
	// PPMLow and PPMHigh bound the plotted chemical-shift window.
	PPMLow  float64
	PPMHigh float64

	// Width and Height are the image dimensions in pixels. Zero values
	// use defaults.
	Width  int
	Height int

	// Title is drawn above the traces when non-empty.
	Title string
}

const (
	defaultWidth  = 960
	defaultHeight = 640
	marginLeft    = 60
	marginRight   = 20
	marginTop     = 40
	marginBottom  = 50
)

// trace is one metabolite's real spectrum restricted to the plotted
// window, with its ppm axis.
type trace struct {
	name string
	axis []float64
	real []float64
}

// Render draws every spectrum in the set as a vertically stacked trace
// over a shared ppm axis and returns the SVG document.
func Render(set *basis.Set, opts Options) ([]byte, error) {
	if set == nil || set.Len() == 0 {
		return nil, fmt.Errorf("nothing to plot: empty basis set")
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	low, high := opts.PPMLow, opts.PPMHigh
	if low == 0 && high == 0 {
		low, high = 0.2, 4.2
	}
	if low > high {
		low, high = high, low
	}

	traces := make([]trace, 0, set.Len())
	maxAmp := 0.0
	for _, s := range set.Spectra {
		tr := spectrumTrace(&s, low, high)
		if len(tr.axis) == 0 {
			continue
		}
		for _, v := range tr.real {
			if a := math.Abs(v); a > maxAmp {
				maxAmp = a
			}
		}
		traces = append(traces, tr)
	}
	if len(traces) == 0 {
		return nil, fmt.Errorf("ppm window [%g, %g] contains no spectral points", low, high)
	}
	if maxAmp == 0 {
		maxAmp = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		width, height, width, height)
	b.WriteString(`<rect width="100%" height="100%" fill="white"/>` + "\n")

	if opts.Title != "" {
		fmt.Fprintf(&b, `<text x="%d" y="24" font-family="sans-serif" font-size="16" text-anchor="middle">%s</text>`+"\n",
			width/2, escapeXML(opts.Title))
	}

	plotW := float64(width - marginLeft - marginRight)
	plotH := float64(height - marginTop - marginBottom)
	rowH := plotH / float64(len(traces))

	// Chemical shift runs right to left by convention, so high ppm maps
	// to the left edge.
	xFor := func(p float64) float64 {
		return marginLeft + plotW*(high-p)/(high-low)
	}

	for i, tr := range traces {
		baseline := marginTop + rowH*float64(i) + rowH/2
		scale := (rowH / 2) * 0.9 / maxAmp

		var path strings.Builder
		for j, p := range tr.axis {
			x := xFor(p)
			y := baseline - tr.real[j]*scale
			if j == 0 {
				fmt.Fprintf(&path, "M%.2f %.2f", x, y)
			} else {
				fmt.Fprintf(&path, " L%.2f %.2f", x, y)
			}
		}
		fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="1"/>`+"\n",
			path.String(), traceColor(i))
		fmt.Fprintf(&b, `<text x="%d" y="%.2f" font-family="sans-serif" font-size="12" text-anchor="end">%s</text>`+"\n",
			marginLeft-8, baseline+4, escapeXML(tr.name))
	}

	writeAxis(&b, low, high, width, height, xFor)

	b.WriteString("</svg>\n")
	return []byte(b.String()), nil
}

// spectrumTrace converts a time-domain FID to its real frequency-domain
// trace over the requested ppm window, ordered low to high ppm.
func spectrumTrace(s *basis.Spectrum, low, high float64) trace {
	n := s.Points()
	fft := fourier.NewCmplxFFT(n)
	coeffs := fft.Coefficients(nil, s.FID)

	axis := ppm.ShiftedAxis(n, s.Bandwidth(), s.CentreMHz)

	// Coefficients come out in standard DFT bin order; reorder them to
	// match the monotonically increasing ppm axis.
	half := n / 2
	tr := trace{name: s.Name}
	for i := 0; i < n; i++ {
		// axis index i corresponds to negative frequencies first
		bin := i + half
		if bin >= n {
			bin -= n
		}
		p := axis[i]
		if p < low || p > high {
			continue
		}
		tr.axis = append(tr.axis, p)
		tr.real = append(tr.real, real(coeffs[bin]))
	}
	return tr
}

// writeAxis draws the ppm axis line and tick labels.
func writeAxis(b *strings.Builder, low, high float64, width, height int, xFor func(float64) float64) {
	axisY := height - marginBottom
	fmt.Fprintf(b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="black" stroke-width="1"/>`+"\n",
		marginLeft, axisY, width-marginRight, axisY)

	step := tickStep(high - low)
	start := math.Ceil(low/step) * step
	for p := start; p <= high+1e-9; p += step {
		x := xFor(p)
		fmt.Fprintf(b, `<line x1="%.2f" y1="%d" x2="%.2f" y2="%d" stroke="black" stroke-width="1"/>`+"\n",
			x, axisY, x, axisY+6)
		fmt.Fprintf(b, `<text x="%.2f" y="%d" font-family="sans-serif" font-size="12" text-anchor="middle">%s</text>`+"\n",
			x, axisY+22, formatTick(p))
	}

	fmt.Fprintf(b, `<text x="%d" y="%d" font-family="sans-serif" font-size="13" text-anchor="middle">Chemical shift (ppm)</text>`+"\n",
		marginLeft+(width-marginLeft-marginRight)/2, height-10)
}

func tickStep(span float64) float64 {
	switch {
	case span <= 1:
		return 0.1
	case span <= 2:
		return 0.25
	case span <= 5:
		return 0.5
	default:
		return 1
	}
}

func formatTick(p float64) string {
	s := fmt.Sprintf("%.2f", p)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func traceColor(i int) string {
	colors := []string{"#1f77b4", "#d62728", "#2ca02c", "#9467bd", "#ff7f0e", "#8c564b", "#17becf"}
	return colors[i%len(colors)]
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
