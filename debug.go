// This file contains code to help debugging, and is
// separated in from the rest in order not to litter
// the main code with debugging stuff

package main

import (
	"flag"
	"fmt"
	"math"

	"github.com/524D/peakfind/peaks"
)

var debugSpecs *string // Print debug output for given spectrum range

func init() {
	debugSpecs = flag.String("debug", "",
		"Print debug output for given spectrum `range` e.g. 3:6")
}

// debugLogSpec prints the fitted peaks of spectrum k (index i in the mzML
// file) and the channels where the smoothed second difference is
// significant
func debugLogSpec(k int, i int, res *peaks.Result) {
	if *debugSpecs == `` {
		return
	}
	debugMin, debugMax, _ := parseIntRange(*debugSpecs, 0, math.MaxInt32)
	if i < debugMin || i > debugMax {
		return
	}
	sig := res.Smoothed[k]
	if sig.Len() == 0 {
		fmt.Printf("Spectrum:%d not processed\n", i)
		return
	}
	significant := 0
	for j := range sig.S {
		if math.Abs(sig.S[j]) > sig.F[j] {
			significant++
		}
	}
	fmt.Printf("Spectrum:%d channels:%d significant:%d\n", i, sig.Len(), significant)
	n := 0
	for _, p := range res.Registry.Peaks() {
		if p.Spectrum != k {
			continue
		}
		fmt.Printf("%d centre:%f sigma:%f height:%f bg:%f%+f*x chi2/dof:%f fitwidth:%d\n",
			n, p.Centre, p.Width, p.Height, p.BackgroundIntercept, p.BackgroundSlope,
			p.CostPerDOF, p.FitWidth)
		n++
	}
}
