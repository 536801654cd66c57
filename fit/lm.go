package fit

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// Step convergence: |dx| < deltaAbs + deltaRel*|x| for every parameter
	deltaAbs = 1e-4
	deltaRel = 1e-4

	lambdaStart = 1e-3
	lambdaMin   = 1e-12
	lambdaMax   = 1e12
	// Damping increases tried per iteration before giving up
	maxDampingTries = 12
)

// testDelta is the step size convergence test of GSL's multifit solvers
func testDelta(dx, x []float64) bool {
	for i := range dx {
		if math.Abs(dx[i]) >= deltaAbs+deltaRel*math.Abs(x[i]) {
			return false
		}
	}
	return true
}

func (f *Fitter) levenbergMarquardt(m Model, deriv Derivative, d Data, init []float64) Result {
	n, p := d.Len(), m.NumParams()
	x := append([]float64(nil), init...)
	res := Result{Params: x, Method: LevenbergMarquardt}

	r := make([]float64, n)
	c := chi2(m, r, x, d)
	if !isFinite(c) {
		res.Status = StatusNonFinite
		res.Chi2 = c
		return res
	}

	jac := mat.NewDense(n, p, nil)
	var jtj mat.SymDense
	damped := mat.NewSymDense(p, nil)
	var chol mat.Cholesky
	grad := mat.NewVecDense(p, nil)
	step := mat.NewVecDense(p, nil)
	dx := make([]float64, p)
	xTry := make([]float64, p)
	rTry := make([]float64, n)
	lambda := lambdaStart

	for iter := 1; iter <= f.maxIterations(); iter++ {
		res.Iterations = iter

		// Weighted Jacobian and gradient of chi2/2
		deriv.Jacobian(jac, x, d.X)
		for i := 0; i < n; i++ {
			floats.Scale(d.Weights[i], jac.RawRowView(i))
		}
		jtj.SymOuterK(1, jac.T())
		grad.MulVec(jac.T(), mat.NewVecDense(n, r))

		improved, solved := false, false
		for try := 0; try < maxDampingTries; try++ {
			damped.CopySym(&jtj)
			for k := 0; k < p; k++ {
				dk := jtj.At(k, k)
				if dk <= 0 {
					dk = 1
				}
				damped.SetSym(k, k, jtj.At(k, k)+lambda*dk)
			}
			if !chol.Factorize(damped) {
				lambda = math.Min(lambda*10, lambdaMax)
				continue
			}
			if err := chol.SolveVecTo(step, grad); err != nil {
				lambda = math.Min(lambda*10, lambdaMax)
				continue
			}
			solved = true
			for k := 0; k < p; k++ {
				dx[k] = -step.AtVec(k)
			}
			floats.AddTo(xTry, x, dx)
			cTry := chi2(m, rTry, xTry, d)
			if isFinite(cTry) && cTry < c {
				copy(x, xTry)
				copy(r, rTry)
				c = cTry
				lambda = math.Max(lambda/10, lambdaMin)
				improved = true
				break
			}
			lambda = math.Min(lambda*10, lambdaMax)
		}

		res.Chi2 = c
		if !improved {
			// At a minimum the damped steps shrink below the tolerance
			if solved && testDelta(dx, x) {
				res.Status = StatusSuccess
			} else {
				res.Status = StatusNoProgress
			}
			return res
		}
		if testDelta(dx, x) {
			res.Status = StatusSuccess
			return res
		}
	}
	res.Status = StatusMaxIterations
	return res
}
