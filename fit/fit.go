// Package fit does weighted nonlinear least squares fits of a Model to
// (x, y, sigma) data. Models with an analytic Jacobian are fitted with
// Levenberg-Marquardt, other models with the Nelder-Mead simplex method.
package fit

import (
	"fmt"
	"log"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"
)

// DefaultMaxIterations is the iteration limit used when none is given
const DefaultMaxIterations = 500

// Data is a window of measured points. Weights are 1/sigma.
type Data struct {
	X       []float64
	Y       []float64
	Weights []float64
}

// NewData creates fit data from points and their errors. A sigma that is
// not positive gets weight 1.
func NewData(x, y, sigma []float64) Data {
	w := make([]float64, len(sigma))
	for i, s := range sigma {
		if s > 0 && !math.IsInf(s, 0) {
			w[i] = 1 / s
		} else {
			w[i] = 1
		}
	}
	return Data{X: x, Y: y, Weights: w}
}

// Len returns the number of points
func (d Data) Len() int {
	return len(d.X)
}

func (d Data) valid() bool {
	return len(d.X) > 0 && len(d.Y) == len(d.X) && len(d.Weights) == len(d.X)
}

// Residuals stores (model(x)-y)/sigma in dst
func Residuals(m Model, dst, params []float64, d Data) {
	m.Eval(dst, params, d.X)
	floats.Sub(dst, d.Y)
	vecmath.MulBlockInPlace(dst, d.Weights)
}

// Status describes how a fit ended
type Status int

// Fit outcomes
const (
	StatusSuccess Status = iota
	StatusMaxIterations
	StatusNoProgress
	StatusNonFinite
	StatusInvalidInput
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusMaxIterations:
		return "exceeded maximum number of iterations"
	case StatusNoProgress:
		return "iteration is not making progress towards solution"
	case StatusNonFinite:
		return "non-finite residuals"
	case StatusInvalidInput:
		return "invalid input"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Method is the minimizer that produced a Result
type Method int

// Minimizers
const (
	LevenbergMarquardt Method = iota
	NelderMead
)

func (m Method) String() string {
	if m == NelderMead {
		return "nelder-mead"
	}
	return "levenberg-marquardt"
}

// Result of a fit
type Result struct {
	Params     []float64
	Chi2       float64
	CostPerDOF float64
	Status     Status
	Method     Method
	Iterations int
}

// OK reports whether the minimizer converged
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Fitter fits models. The zero value is not usable, create one with New.
type Fitter struct {
	MaxIterations int
	Logger        *log.Logger
}

// New returns a Fitter with the given iteration limit, logging to the
// standard logger. A limit below 1 selects DefaultMaxIterations.
func New(maxIterations int) *Fitter {
	if maxIterations < 1 {
		maxIterations = DefaultMaxIterations
	}
	return &Fitter{MaxIterations: maxIterations, Logger: log.Default()}
}

// Fit minimizes the weighted squared residuals of m on d, starting from
// init. Numerical problems are reported in the Result status, never as a
// panic or error.
func (f *Fitter) Fit(m Model, d Data, init []float64) Result {
	p := m.NumParams()
	res := Result{Params: append([]float64(nil), init...), Status: StatusInvalidInput}
	deriv := derivativeOf(m)
	if deriv == nil {
		res.Method = NelderMead
	}
	if !d.valid() || len(init) != p || !allFinite(init) {
		return res
	}
	n := d.Len()
	dof := n - p
	if dof < 1 {
		if n < p {
			f.logger().Printf("Warning: fitting %d parameters to %d points", p, n)
		}
		dof = 1
	}
	if deriv != nil {
		res = f.levenbergMarquardt(m, deriv, d, init)
	} else {
		res = f.nelderMead(m, d, init)
	}
	res.CostPerDOF = res.Chi2 / float64(dof)
	return res
}

func (f *Fitter) logger() *log.Logger {
	if f.Logger == nil {
		return log.Default()
	}
	return f.Logger
}

func (f *Fitter) maxIterations() int {
	if f.MaxIterations < 1 {
		return DefaultMaxIterations
	}
	return f.MaxIterations
}

// chi2 returns the sum of squared weighted residuals, using r as scratch
func chi2(m Model, r, params []float64, d Data) float64 {
	Residuals(m, r, params, d)
	return floats.Dot(r, r)
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
