package peaks

import (
	"github.com/524D/peakfind/fit"
	"github.com/524D/peakfind/spectrum"
)

// Peaks are subtracted out to this many widths from their centre
const subtractWidths = 3

// RemovePeaks returns a copy of spectra with every peak's Gaussian
// subtracted within 3 widths of its centre. X must be ascending.
func RemovePeaks(spectra []spectrum.Spectrum, peaks []FittedPeak) []spectrum.Spectrum {
	out := make([]spectrum.Spectrum, len(spectra))
	for i, s := range spectra {
		out[i] = s.Clone()
	}
	for _, p := range peaks {
		if p.Spectrum < 0 || p.Spectrum >= len(out) || p.Width <= 0 {
			continue
		}
		subtractPeak(out[p.Spectrum], p)
	}
	return out
}

func subtractPeak(s spectrum.Spectrum, p FittedPeak) {
	lo := p.Centre - subtractWidths*p.Width
	hi := p.Centre + subtractWidths*p.Width
	for i := range s.Y {
		x := s.Centre(i)
		if x > hi {
			break
		}
		if x < lo {
			continue
		}
		s.Y[i] -= fit.Gaussian(x, p.Height, p.Centre, p.Width)
	}
}
