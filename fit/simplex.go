package fit

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

const (
	simplexStep = 1.0
	// Converged when the recent best vertices lie within this distance
	// of their centroid
	simplexSizeTol = 1e-2
)

// simplexSize approximates the characteristic size of the Nelder-Mead
// simplex from the last dim+1 distinct best vertices. gonum only reports
// the best vertex of each iteration, and once the simplex has contracted
// around the minimum these span it.
type simplexSize struct {
	dim      int
	vertices [][]float64
	lastF    float64
	stalled  int
}

func (s *simplexSize) Init(dim int) {
	s.dim = dim
	s.vertices = s.vertices[:0]
	s.stalled = 0
}

func (s *simplexSize) Converged(loc *optimize.Location) optimize.Status {
	if len(s.vertices) > 0 && loc.F == s.lastF {
		// Best vertex unchanged, the simplex is moving its other vertices
		s.stalled++
		if s.stalled >= 20*(s.dim+1) {
			return optimize.FunctionConvergence
		}
		return optimize.NotTerminated
	}
	s.stalled = 0
	s.lastF = loc.F
	s.vertices = append(s.vertices, append([]float64(nil), loc.X...))
	if len(s.vertices) > s.dim+1 {
		s.vertices = s.vertices[1:]
	}
	if len(s.vertices) < s.dim+1 {
		return optimize.NotTerminated
	}
	if s.size() < simplexSizeTol {
		return optimize.FunctionConvergence
	}
	return optimize.NotTerminated
}

// size is the mean distance of the vertices from their centroid
func (s *simplexSize) size() float64 {
	centroid := make([]float64, s.dim)
	for _, v := range s.vertices {
		floats.Add(centroid, v)
	}
	floats.Scale(1/float64(len(s.vertices)), centroid)
	sum := 0.0
	for _, v := range s.vertices {
		sum += floats.Distance(v, centroid, 2)
	}
	return sum / float64(len(s.vertices))
}

func (f *Fitter) nelderMead(m Model, d Data, init []float64) Result {
	r := make([]float64, d.Len())
	res := Result{Params: append([]float64(nil), init...), Method: NelderMead}
	if c := chi2(m, r, init, d); !isFinite(c) {
		res.Chi2 = c
		res.Status = StatusNonFinite
		return res
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return chi2(m, r, x, d)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: f.maxIterations(),
		Converger:       &simplexSize{},
	}
	result, err := optimize.Minimize(problem, init, settings, &optimize.NelderMead{SimplexSize: simplexStep})
	if result == nil {
		res.Status = StatusNoProgress
		return res
	}
	res.Params = append(res.Params[:0], result.X...)
	res.Chi2 = result.F
	res.Iterations = result.Stats.MajorIterations
	switch {
	case !isFinite(result.F):
		res.Status = StatusNonFinite
	case result.Status == optimize.IterationLimit || result.Status == optimize.FunctionEvaluationLimit:
		res.Status = StatusMaxIterations
	case err != nil:
		f.logger().Printf("Nelder-Mead: %v", err)
		res.Status = StatusNoProgress
	case result.Status == optimize.FunctionConvergence || result.Status == optimize.Success ||
		result.Status == optimize.MethodConverge:
		res.Status = StatusSuccess
	default:
		res.Status = StatusNoProgress
	}
	return res
}
