// Package preprocess turns a raw spectrum into the smoothed second
// difference S and its standard deviation F that the Mariscotti peak
// search works on.
package preprocess

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/524D/peakfind/spectrum"
)

// Smoothing passes the phi table below was computed for
const mariscottiZ = 5

// phi[w] is the sum of squared coefficients of five w-wide boxcar
// averages applied to the second difference, times w^10.
var phi = map[int]int{
	1:  6,
	3:  448,
	5:  5220,
	7:  27342,
	9:  95034,
	11: 257796,
	13: 592488,
	15: 1209410,
	17: 2258382,
	19: 3934824,
}

// Errors returned by the preprocessor
var (
	ErrInvalidWindow       = errors.New("smoothing window has no tabulated error constant")
	ErrSmoothingIterations = errors.New("smoothing iterations must be 5")
	ErrMissingCollaborator = errors.New("no smoother configured")
)

// Config holds the preprocessor settings
type Config struct {
	SmoothingIterations int
}

// DefaultConfig returns the only configuration the error table supports
func DefaultConfig() Config {
	return Config{SmoothingIterations: mariscottiZ}
}

// Signal is the smoothed second difference of one spectrum
type Signal struct {
	X []float64 // channel centres
	S []float64 // smoothed second difference
	F []float64 // standard deviation of S
}

// Len returns the number of channels
func (s Signal) Len() int {
	return len(s.S)
}

// Preprocessor computes Signals with an injected Smoother
type Preprocessor struct {
	smoother Smoother
	cfg      Config
}

// New creates a Preprocessor. The phi table is only valid for five
// smoothing passes, any other count is rejected.
func New(smoother Smoother, cfg Config) (*Preprocessor, error) {
	if smoother == nil {
		return nil, ErrMissingCollaborator
	}
	if cfg.SmoothingIterations != mariscottiZ {
		return nil, fmt.Errorf("%w: got %d", ErrSmoothingIterations, cfg.SmoothingIterations)
	}
	return &Preprocessor{smoother: smoother, cfg: cfg}, nil
}

// SecondDifference returns S[j] = y[j-1] - 2y[j] + y[j+1]. Both end
// channels are 0.
func SecondDifference(y []float64) []float64 {
	s := make([]float64, len(y))
	for j := 1; j < len(y)-1; j++ {
		s[j] = y[j-1] - 2*y[j] + y[j+1]
	}
	return s
}

// WindowWidth returns the smoothing window for a peak FWHM (in
// channels): 0.6*fwhm rounded down, bumped to the next odd number.
func WindowWidth(fwhm int) int {
	w := int(math.Floor(0.6 * float64(fwhm)))
	if w%2 == 0 {
		w++
	}
	return w
}

// Phi returns the tabulated error constant for window width w
func Phi(w int) (int, error) {
	p, ok := phi[w]
	if !ok {
		return 0, fmt.Errorf("%w: width %d (odd widths 1-19 supported)", ErrInvalidWindow, w)
	}
	return p, nil
}

// PropagateError returns the standard deviation of the five times smoothed
// second difference, given the raw errors e.
func PropagateError(e []float64, w int) ([]float64, error) {
	p, err := Phi(w)
	if err != nil {
		return nil, err
	}
	c := math.Sqrt(float64(p)) / math.Pow(float64(w), mariscottiZ)
	f := make([]float64, len(e))
	floats.ScaleTo(f, c, e)
	return f, nil
}

// Process computes the Signal of spec for the given FWHM
func (p *Preprocessor) Process(spec spectrum.Spectrum, fwhm int) (Signal, error) {
	w := WindowWidth(fwhm)
	f, err := PropagateError(spec.E, w)
	if err != nil {
		return Signal{}, err
	}
	s := SecondDifference(spec.Y)
	for i := 0; i < p.cfg.SmoothingIterations; i++ {
		s, err = p.smoother.Smooth(s, w)
		if err != nil {
			return Signal{}, fmt.Errorf("smoothing pass %d: %w", i+1, err)
		}
		if len(s) != len(spec.Y) {
			return Signal{}, fmt.Errorf("smoothing pass %d returned %d channels, expected %d",
				i+1, len(s), len(spec.Y))
		}
	}
	return Signal{X: spec.Centres(), S: s, F: f}, nil
}
