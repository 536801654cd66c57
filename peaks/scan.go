package peaks

import (
	"context"
	"math"

	"github.com/524D/peakfind/preprocess"
)

// Channels scanned between context checks
const cancelCheckInterval = 256

// Relative width of the negative second difference region of a peak,
// for five w=0.6*FWHM smoothing passes
const kz = 1.22

// Channel categories of the smoothed second difference
const (
	catSignificant = 1 // S > F
	catPositive    = 2 // 0 < S <= F
	catNonPositive = 3 // S <= 0
)

// landmarks of the Mariscotti flow chart. 0 means unset.
//
//	i1: start of the significant positive region left of the peak
//	i2: end of that region
//	i3: start of the negative region
//	i4: minimum of S in [i3,i5]
//	i5: end of the negative region
type landmarks struct {
	i1, i2, i3, i4, i5 int
}

func (l landmarks) complete() bool {
	return l.i1 != 0 && l.i2 != 0 && l.i3 != 0 && l.i5 != 0
}

// scanner walks the smoothed second difference of one spectrum
type scanner struct {
	sig       preprocess.Signal
	fwhm      int
	tolerance int
	n1        int
	lm        landmarks
}

func newScanner(sig preprocess.Signal, fwhm, tolerance int) *scanner {
	return &scanner{
		sig:       sig,
		fwhm:      fwhm,
		tolerance: tolerance,
		n1:        int(math.Round(kz * float64(fwhm))),
	}
}

func (s *scanner) category(i int) int {
	switch v := s.sig.S[i]; {
	case v > s.sig.F[i]:
		return catSignificant
	case v > 0:
		return catPositive
	}
	return catNonPositive
}

// step updates the landmarks for channel i (i >= 1) and reports a
// candidate when a complete peak passes all checks
func (s *scanner) step(i int) (Candidate, bool) {
	prev, cur := s.category(i-1), s.category(i)
	switch prev {
	case catSignificant:
		switch cur {
		case catNonPositive:
			s.lm.i3 = i
			s.lm.i2 = i - 1
		case catPositive:
			s.lm.i2 = i - 1
		}
	case catPositive:
		switch cur {
		case catNonPositive:
			s.lm.i3 = i
		case catSignificant:
			s.lm.i1 = i
		}
	default:
		if cur != catNonPositive {
			s.lm.i5 = i - 1
		}
	}
	if !s.lm.complete() {
		return Candidate{}, false
	}

	s.lm.i4 = s.extremum(s.lm.i3, s.lm.i5)
	if !(s.lm.i1 <= s.lm.i2 && s.lm.i2 <= s.lm.i3 && s.lm.i3 <= s.lm.i4 && s.lm.i5 > s.lm.i4) {
		// Only i5 is cleared, the left landmarks are kept
		s.lm.i5 = 0
		return Candidate{}, false
	}
	i0, ok := s.centroid(s.lm.i3, s.lm.i5)
	if !ok || !s.accept(i0) {
		s.lm.i5 = 0
		return Candidate{}, false
	}
	c := Candidate{Centre: i0, Extremum: s.lm.i4}
	s.lm = landmarks{}
	return c, true
}

// extremum returns the first channel in [from,to] with the lowest S
func (s *scanner) extremum(from, to int) int {
	best := from
	for j := from + 1; j <= to; j++ {
		if s.sig.S[j] < s.sig.S[best] {
			best = j
		}
	}
	return best
}

// centroid returns floor(sum(j*S[j]) / sum(S[j])) over [from,to]. It
// fails when the sum is zero or the result lies outside [from,to].
func (s *scanner) centroid(from, to int) (int, bool) {
	num, den := 0.0, 0.0
	for j := from; j <= to; j++ {
		num += float64(j) * s.sig.S[j]
		den += s.sig.S[j]
	}
	if den == 0 {
		return 0, false
	}
	c := math.Floor(num / den)
	if math.IsNaN(c) || c < float64(from) || c > float64(to) {
		return 0, false
	}
	return int(c), true
}

// accept applies the four Mariscotti criteria to the current landmarks
func (s *scanner) accept(i0 int) bool {
	l := s.lm
	S, F := s.sig.S, s.sig.F
	tol := float64(s.tolerance)
	n1 := float64(s.n1)

	// Significance of the extremum
	if math.Abs(S[l.i4]) < 2*F[l.i4] {
		return false
	}
	// Width of the negative region
	if math.Abs(float64(l.i5-l.i3+1-s.n1)) > tol {
		return false
	}
	if S[i0] == 0 {
		return false
	}
	r := F[i0] / S[i0]
	// Gap between the positive and negative regions
	n2 := math.Max(math.Abs(math.Round(0.5*r*(n1+tol))), math.Abs(math.Round(0.5*r*(n1-tol))))
	if float64(l.i3-l.i2-1) > math.Max(n2, 1) {
		return false
	}
	// Width of the positive region
	n3 := math.Min(math.Abs(math.Round((n1+tol)*(1-2*r))), math.Abs(math.Round((n1-tol)*(1-2*r))))
	return float64(l.i2-l.i1+1) >= n3
}

// scan runs the state machine over all channels and calls found for every
// accepted candidate, in channel order. It stops early with the context
// error when ctx is cancelled.
func (s *scanner) scan(ctx context.Context, found func(Candidate)) error {
	for i := 1; i < len(s.sig.S); i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if c, ok := s.step(i); ok {
			found(c)
		}
	}
	return ctx.Err()
}
