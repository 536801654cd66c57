package preprocess

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/conv"
)

// Smoother smooths a signal with an odd window width. Implementations
// must not modify y.
type Smoother interface {
	Smooth(y []float64, width int) ([]float64, error)
}

// MovingAverage is a centred boxcar smoother. Near the array ends the
// window is truncated and the average is taken over the channels that
// exist.
type MovingAverage struct{}

// Smooth implements Smoother
func (MovingAverage) Smooth(y []float64, width int) ([]float64, error) {
	if width <= 0 || width%2 == 0 {
		return nil, fmt.Errorf("smoothing width must be odd and > 0: %d", width)
	}
	n := len(y)
	if n == 0 {
		return []float64{}, nil
	}
	box := make([]float64, width)
	for i := range box {
		box[i] = 1
	}
	sums, err := conv.ConvolveMode(y, box, conv.ModeSame)
	if err != nil {
		return nil, fmt.Errorf("smooth: %w", err)
	}
	half := width / 2
	for i := range sums {
		count := min(i+half, n-1) - max(i-half, 0) + 1
		sums[i] /= float64(count)
	}
	return sums, nil
}
