package fit

import "gonum.org/v1/gonum/mat"

// Model is a function of x with a fixed number of parameters
type Model interface {
	NumParams() int
	ParamNames() []string
	// Eval stores the model value at every x in dst
	Eval(dst, params, x []float64)
	// HasAnalyticDerivative reports whether the model also implements
	// Derivative. Models that return false are fitted derivative free.
	HasAnalyticDerivative() bool
}

// Derivative is implemented by models with an analytic Jacobian
type Derivative interface {
	// Jacobian stores d model(x[i]) / d params[j] in dst (len(x) x NumParams)
	Jacobian(dst *mat.Dense, params, x []float64)
}

// derivativeOf returns the Jacobian provider of m, or nil if m can only be
// fitted without derivatives
func derivativeOf(m Model) Derivative {
	if !m.HasAnalyticDerivative() {
		return nil
	}
	d, ok := m.(Derivative)
	if !ok {
		return nil
	}
	return d
}
