package fit

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Parameter indices of GaussianLinear
const (
	ParBackground0 = iota
	ParBackground1
	ParCentre
	ParSigma
	ParHeight
	numGaussianLinearPars
)

var gaussianLinearNames = []string{"bg0", "bg1", "centre", "sigma", "height"}

// Gaussian returns h*exp(-0.5*((x-c)/s)^2)
func Gaussian(x, h, c, s float64) float64 {
	z := (x - c) / s
	return h * math.Exp(-0.5*z*z)
}

// GaussianLinear is a Gaussian peak on a linear background:
// bg0 + bg1*x + height*exp(-0.5*((x-centre)/sigma)^2)
type GaussianLinear struct{}

// NumParams implements Model
func (GaussianLinear) NumParams() int { return numGaussianLinearPars }

// ParamNames implements Model
func (GaussianLinear) ParamNames() []string {
	return append([]string(nil), gaussianLinearNames...)
}

// HasAnalyticDerivative implements Model
func (GaussianLinear) HasAnalyticDerivative() bool { return true }

// Eval implements Model
func (GaussianLinear) Eval(dst, p, x []float64) {
	for i, xi := range x {
		dst[i] = p[ParBackground0] + p[ParBackground1]*xi +
			Gaussian(xi, p[ParHeight], p[ParCentre], p[ParSigma])
	}
}

// Jacobian implements Derivative
func (GaussianLinear) Jacobian(dst *mat.Dense, p, x []float64) {
	c, s, h := p[ParCentre], p[ParSigma], p[ParHeight]
	for i, xi := range x {
		z := (xi - c) / s
		e := math.Exp(-0.5 * z * z)
		row := dst.RawRowView(i)
		row[ParBackground0] = 1
		row[ParBackground1] = xi
		row[ParCentre] = h * e * z / s
		row[ParSigma] = h * e * z * z / s
		row[ParHeight] = e
	}
}
