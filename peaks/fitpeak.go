package peaks

import (
	"log"
	"math"

	"github.com/524D/peakfind/fit"
	"github.com/524D/peakfind/spectrum"
)

// CurveFitter fits a model to a data window. *fit.Fitter implements it.
type CurveFitter interface {
	Fit(m fit.Model, d fit.Data, init []float64) fit.Result
}

// peakFitter runs the widening window fits of one spectrum
type peakFitter struct {
	spec     spectrum.Spectrum
	specIdx  int
	centres  []float64
	fitter   CurveFitter
	model    fit.Model
	widths   []int
	factor   int
	logger   *log.Logger
	verbose  bool
	observer Observer
}

// window returns the channel range [lo,hi] of the fit for a half width,
// kept inside [1, N-2] so the 3-point edge sums exist
func window(i0, width, factor, n int) (int, int) {
	lo := max(i0-factor*width, 1)
	hi := min(i0+factor*width, n-2)
	return lo, hi
}

// initialGuess estimates the GaussianLinear parameters of a candidate
func (pf *peakFitter) initialGuess(c Candidate, width, lo, hi int) []float64 {
	y, x := pf.spec.Y, pf.spec.X
	lower := y[lo-1] + y[lo] + y[lo+1]
	upper := y[hi-1] + y[hi] + y[hi+1]
	bg0 := (lower + upper) / 6
	bg1 := 0.0
	if dx := x[hi] - x[lo]; dx != 0 {
		bg1 = (upper - lower) / (3 * dx)
	}
	sigma := x[min(c.Centre+width, len(x)-1)] - x[c.Centre]
	p := make([]float64, fit.GaussianLinear{}.NumParams())
	p[fit.ParBackground0] = bg0
	p[fit.ParBackground1] = bg1
	p[fit.ParCentre] = pf.spec.Centre(c.Centre)
	p[fit.ParSigma] = sigma
	p[fit.ParHeight] = y[c.Extremum] - bg0
	return p
}

// fitCandidate tries the configured widths in order and returns the first
// fit that converged with a positive height. Failed fits are not errors.
func (pf *peakFitter) fitCandidate(c Candidate) (FittedPeak, bool) {
	n := pf.spec.Len()
	if n < 3 {
		return FittedPeak{}, false
	}
	for _, width := range pf.widths {
		lo, hi := window(c.Centre, width, pf.factor, n)
		if hi < lo {
			continue
		}
		init := pf.initialGuess(c, width, lo, hi)
		d := fit.NewData(pf.centres[lo:hi+1], pf.spec.Y[lo:hi+1], pf.spec.E[lo:hi+1])
		res := pf.fitter.Fit(pf.model, d, init)
		ok := res.OK() && len(res.Params) == len(init) && res.Params[fit.ParHeight] > 0 &&
			!math.IsNaN(res.Params[fit.ParCentre]) && res.Params[fit.ParSigma] != 0
		pf.observer.FitAttempt(pf.specIdx, width, res.Status.String(), ok)
		if !ok {
			if pf.verbose {
				pf.logger.Printf("spectrum %d channel %d width %d: %s, height %g",
					pf.specIdx, c.Centre, width, res.Status, heightOf(res))
			}
			continue
		}
		p := res.Params
		return FittedPeak{
			Spectrum:            pf.specIdx,
			Centre:              p[fit.ParCentre],
			Width:               math.Abs(p[fit.ParSigma]),
			Height:              p[fit.ParHeight],
			BackgroundIntercept: p[fit.ParBackground0],
			BackgroundSlope:     p[fit.ParBackground1],
			FitStatus:           res.Status.String(),
			CostPerDOF:          res.CostPerDOF,
			FitWidth:            width,
		}, true
	}
	if pf.verbose {
		pf.logger.Printf("spectrum %d: candidate at channel %d dropped", pf.specIdx, c.Centre)
	}
	return FittedPeak{}, false
}

func heightOf(res fit.Result) float64 {
	if len(res.Params) <= fit.ParHeight {
		return math.NaN()
	}
	return res.Params[fit.ParHeight]
}
