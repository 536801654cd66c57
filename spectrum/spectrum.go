// Package spectrum holds the per-detector X/Y/E data that the peak search
// reads from and the peak subtraction writes to.
package spectrum

import (
	"errors"
	"fmt"
	"math"
)

// ErrShape means the X, Y and E arrays of a spectrum do not fit together
var ErrShape = errors.New("spectrum: inconsistent array lengths")

// Spectrum is an ordered list of channels (x, y, e) for one detector.
// For histogram data X holds bin edges and is one longer than Y.
type Spectrum struct {
	X         []float64
	Y         []float64
	E         []float64
	Histogram bool
}

// Len returns the number of channels
func (s Spectrum) Len() int {
	return len(s.Y)
}

// Validate checks the array lengths against the histogram flag
func (s Spectrum) Validate() error {
	if len(s.E) != len(s.Y) {
		return fmt.Errorf("%w: %d y values, %d errors", ErrShape, len(s.Y), len(s.E))
	}
	want := len(s.Y)
	if s.Histogram {
		want++
	}
	if len(s.X) != want {
		return fmt.Errorf("%w: %d x values for %d channels (histogram=%t)",
			ErrShape, len(s.X), len(s.Y), s.Histogram)
	}
	return nil
}

// Centre returns the x coordinate of channel i: the bin centre for
// histogram data, the x value itself for point data.
func (s Spectrum) Centre(i int) float64 {
	if s.Histogram {
		return 0.5 * (s.X[i] + s.X[i+1])
	}
	return s.X[i]
}

// Centres returns the x coordinate of every channel
func (s Spectrum) Centres() []float64 {
	if !s.Histogram {
		c := make([]float64, len(s.X))
		copy(c, s.X)
		return c
	}
	c := make([]float64, len(s.Y))
	for i := range c {
		c[i] = s.Centre(i)
	}
	return c
}

// Clone makes a deep copy, so the copy can be modified without
// touching the caller's data
func (s Spectrum) Clone() Spectrum {
	return Spectrum{
		X:         append([]float64(nil), s.X...),
		Y:         append([]float64(nil), s.Y...),
		E:         append([]float64(nil), s.E...),
		Histogram: s.Histogram,
	}
}

// CountingErrors returns sqrt(y) error bars for counting data.
// Values below 1 get an error of 1, so empty channels still carry weight.
func CountingErrors(y []float64) []float64 {
	e := make([]float64, len(y))
	for i, v := range y {
		e[i] = math.Max(1.0, math.Sqrt(math.Abs(v)))
	}
	return e
}
