package peaks

import "sync"

// Candidate is a peak found by the scanner, not yet fitted
type Candidate struct {
	Centre   int // centroid channel of the negative second difference (i0)
	Extremum int // channel of the second difference minimum (i4)
}

// FittedPeak is an accepted Gaussian fit
type FittedPeak struct {
	Spectrum            int
	Centre              float64
	Width               float64 // Gaussian sigma
	Height              float64
	BackgroundIntercept float64
	BackgroundSlope     float64
	FitStatus           string
	CostPerDOF          float64
	FitWidth            int // half width (channels/WindowFactor) of the window that succeeded
}

// Registry is an append only list of fitted peaks, in the order they
// were accepted. It is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	peaks []FittedPeak
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Append adds peaks at the end
func (r *Registry) Append(p ...FittedPeak) {
	r.mu.Lock()
	r.peaks = append(r.peaks, p...)
	r.mu.Unlock()
}

// Peaks returns a copy of all registered peaks
func (r *Registry) Peaks() []FittedPeak {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FittedPeak(nil), r.peaks...)
}

// Len returns the number of registered peaks
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peaks)
}
