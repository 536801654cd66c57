package preprocess

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/524D/peakfind/spectrum"
)

// countingSmoother records how often it is called and delegates to
// MovingAverage
type countingSmoother struct {
	calls  int
	widths []int
}

func (c *countingSmoother) Smooth(y []float64, width int) ([]float64, error) {
	c.calls++
	c.widths = append(c.widths, width)
	return MovingAverage{}.Smooth(y, width)
}

type failingSmoother struct{}

func (failingSmoother) Smooth([]float64, int) ([]float64, error) {
	return nil, errors.New("boom")
}

func TestSecondDifferenceZeroSignal(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 100} {
		s := SecondDifference(make([]float64, n))
		if diff := cmp.Diff(make([]float64, n), s); diff != "" {
			t.Errorf("n=%d: second difference of zero signal not zero (-want +got):\n%s", n, diff)
		}
	}
}

func TestSecondDifference(t *testing.T) {
	got := SecondDifference([]float64{1, 4, 9, 16, 25})
	want := []float64{0, 2, 2, 2, 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SecondDifference mismatch (-want +got):\n%s", diff)
	}
}

func TestWindowWidthParity(t *testing.T) {
	for fwhm := 1; fwhm <= 200; fwhm++ {
		w := WindowWidth(fwhm)
		if w%2 != 1 {
			t.Errorf("WindowWidth(%d) = %d, expected odd", fwhm, w)
		}
	}
	if w := WindowWidth(7); w != 5 {
		t.Errorf("WindowWidth(7): expected 5, got %d", w)
	}
	if w := WindowWidth(10); w != 7 {
		t.Errorf("WindowWidth(10): expected 7, got %d", w)
	}
}

func TestPropagateErrorDomain(t *testing.T) {
	e := []float64{1, 2, 3}
	for w := -1; w <= 23; w++ {
		_, err := PropagateError(e, w)
		valid := w >= 1 && w <= 19 && w%2 == 1
		if valid && err != nil {
			t.Errorf("w=%d: unexpected error %v", w, err)
		}
		if !valid && !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("w=%d: expected ErrInvalidWindow, got %v", w, err)
		}
	}
	f, err := PropagateError(e, 3)
	if err != nil {
		t.Fatal(err)
	}
	c := math.Sqrt(448) / 243
	want := []float64{c, 2 * c, 3 * c}
	if diff := cmp.Diff(want, f, cmpopts.EquateApprox(1e-12, 0)); diff != "" {
		t.Errorf("PropagateError mismatch (-want +got):\n%s", diff)
	}
}

// The tabulated constant must equal the standard deviation of the
// smoothed second difference of unit-variance white noise, away from the
// truncated array ends.
func TestPhiMatchesLinearResponse(t *testing.T) {
	for w := 1; w <= 19; w += 2 {
		n := 12*w + 3
		mid := n / 2
		sumSq := 0.0
		// S at mid is linear in y, so its variance is the sum of the squared
		// responses to a unit impulse in each channel
		for k := 0; k < n; k++ {
			y := make([]float64, n)
			y[k] = 1
			s := SecondDifference(y)
			for i := 0; i < mariscottiZ; i++ {
				s, _ = MovingAverage{}.Smooth(s, w)
			}
			sumSq += s[mid] * s[mid]
		}
		p, err := Phi(w)
		if err != nil {
			t.Fatal(err)
		}
		want := float64(p) / math.Pow(float64(w), 2*mariscottiZ)
		if math.Abs(sumSq-want) > 1e-9*want {
			t.Errorf("w=%d: impulse response gives %g, table gives %g", w, sumSq, want)
		}
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, DefaultConfig()); !errors.Is(err, ErrMissingCollaborator) {
		t.Errorf("nil smoother: expected ErrMissingCollaborator, got %v", err)
	}
	if _, err := New(MovingAverage{}, Config{SmoothingIterations: 4}); !errors.Is(err, ErrSmoothingIterations) {
		t.Errorf("4 iterations: expected ErrSmoothingIterations, got %v", err)
	}
	if _, err := New(MovingAverage{}, DefaultConfig()); err != nil {
		t.Errorf("default config: unexpected error %v", err)
	}
}

func TestProcessCallsSmootherFiveTimes(t *testing.T) {
	cs := &countingSmoother{}
	p, err := New(cs, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	n := 50
	spec := spectrum.Spectrum{X: make([]float64, n), Y: make([]float64, n), E: make([]float64, n)}
	for i := range spec.X {
		spec.X[i] = float64(i)
		spec.Y[i] = float64(i % 7)
		spec.E[i] = 1
	}
	sig, err := p.Process(spec, 7)
	if err != nil {
		t.Fatal(err)
	}
	if cs.calls != 5 {
		t.Errorf("Expected 5 smoother calls, got %d", cs.calls)
	}
	if diff := cmp.Diff([]int{5, 5, 5, 5, 5}, cs.widths); diff != "" {
		t.Errorf("smoothing widths mismatch (-want +got):\n%s", diff)
	}
	if sig.Len() != n || len(sig.F) != n || len(sig.X) != n {
		t.Errorf("Expected %d channels, got S=%d F=%d X=%d", n, sig.Len(), len(sig.F), len(sig.X))
	}
}

func TestProcessSmootherFailure(t *testing.T) {
	p, err := New(failingSmoother{}, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	spec := spectrum.Spectrum{X: []float64{0, 1, 2}, Y: []float64{1, 2, 1}, E: []float64{1, 1, 1}}
	if _, err := p.Process(spec, 7); err == nil {
		t.Errorf("Expected smoother error to propagate")
	}
}

func TestMovingAverage(t *testing.T) {
	got, err := MovingAverage{}.Smooth([]float64{3, 6, 9, 12, 15}, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{4.5, 6, 9, 12, 13.5}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("MovingAverage mismatch (-want +got):\n%s", diff)
	}
	for _, w := range []int{0, -1, 2, 4} {
		if _, err := (MovingAverage{}).Smooth([]float64{1, 2, 3}, w); err == nil {
			t.Errorf("width %d: expected error", w)
		}
	}
}

// truncatedMean averages y over the part of [i-half, i+half] inside y
func truncatedMean(y []float64, i, half int) float64 {
	sum, count := 0.0, 0
	for j := max(i-half, 0); j <= min(i+half, len(y)-1); j++ {
		sum += y[j]
		count++
	}
	return sum / float64(count)
}

func TestMovingAverageTruncatedEnds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, n := range []int{1, 4, 200} {
		y := make([]float64, n)
		for i := range y {
			y[i] = 100 * rng.Float64()
		}
		orig := append([]float64(nil), y...)
		for _, w := range []int{1, 3, 5, 19, 71} {
			got, err := MovingAverage{}.Smooth(y, w)
			if err != nil {
				t.Fatalf("n=%d w=%d: error return %v", n, w, err)
			}
			want := make([]float64, n)
			for i := range want {
				want[i] = truncatedMean(orig, i, w/2)
			}
			if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("n=%d w=%d: mismatch (-want +got):\n%s", n, w, diff)
			}
		}
		if diff := cmp.Diff(orig, y); diff != "" {
			t.Errorf("n=%d: input modified (-want +got):\n%s", n, diff)
		}
	}
	got, err := MovingAverage{}.Smooth(nil, 5)
	if err != nil || len(got) != 0 {
		t.Errorf("empty input: %v, %v", got, err)
	}
}
