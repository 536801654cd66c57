package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/524D/peakfind/internal/mzml"
	"github.com/524D/peakfind/peaks"
)

// peakList is the JSON output of a run
type peakList struct {
	// Version of the peak list format, used when loading peak lists
	// written by different versions of the software
	PeakfindVersion string
	FormatVersion   string
	Settings        peakSettings
	Spectra         []specPeaks
}

type peakSettings struct {
	FWHM          int
	Tolerance     int
	MaxIterations int
	Widths        []int
	WindowFactor  int
}

// specPeaks holds the peaks of one spectrum. SpecIndex is the index of
// the spectrum in the mzML file.
type specPeaks struct {
	SpecIndex     int
	ScanID        string  `json:",omitempty"`
	RetentionTime float64 `json:",omitempty"` // seconds
	Peaks         []peakRecord
}

type peakRecord struct {
	Centre      float64
	Width       float64 // Gaussian sigma
	Height      float64
	Background0 float64
	Background1 float64
	CostPerDOF  float64
	FitWidth    int
}

func newPeakList(mzML *mzml.MzML, res *peaks.Result, specIdx []int, cfg peaks.Config) (peakList, error) {
	out := peakList{
		PeakfindVersion: progVersion,
		FormatVersion:   outputFormatVersion,
		Settings: peakSettings{
			FWHM:          cfg.FWHM,
			Tolerance:     cfg.Tolerance,
			MaxIterations: cfg.MaxIterations,
			Widths:        cfg.Widths,
			WindowFactor:  cfg.WindowFactor,
		},
	}
	bySpec := make([][]peakRecord, len(specIdx))
	for _, p := range res.Registry.Peaks() {
		bySpec[p.Spectrum] = append(bySpec[p.Spectrum], peakRecord{
			Centre:      p.Centre,
			Width:       p.Width,
			Height:      p.Height,
			Background0: p.BackgroundIntercept,
			Background1: p.BackgroundSlope,
			CostPerDOF:  p.CostPerDOF,
			FitWidth:    p.FitWidth,
		})
	}
	for k, i := range specIdx {
		if len(bySpec[k]) == 0 {
			continue
		}
		id, err := mzML.ScanID(i)
		if err != nil {
			return out, err
		}
		rt, err := mzML.RetentionTime(i)
		if err != nil {
			return out, err
		}
		out.Spectra = append(out.Spectra, specPeaks{
			SpecIndex:     i,
			ScanID:        id,
			RetentionTime: max(rt, 0),
			Peaks:         bySpec[k],
		})
	}
	return out, nil
}

func writePeaks(mzML *mzml.MzML, res *peaks.Result, specIdx []int, cfg peaks.Config, filename string) error {
	list, err := newPeakList(mzML, res, specIdx, cfg)
	if err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	e := json.NewEncoder(f)
	e.SetIndent(``, `  `) // Make output easier to read for humans
	if err := e.Encode(list); err != nil {
		return err
	}
	return f.Close()
}

// writeStrippedMzML replaces the intensities of all processed spectra by
// the intensities with the fitted peaks subtracted, adds our program to
// the software list and writes the result
func writeStrippedMzML(mzML *mzml.MzML, res *peaks.Result, specIdx []int, filename string) error {
	perSpec := make([]int, len(specIdx))
	for _, p := range res.Registry.Peaks() {
		perSpec[p.Spectrum]++
	}
	for k, i := range specIdx {
		if perSpec[k] == 0 {
			continue
		}
		if err := mzML.SetIntensities(i, res.Stripped[k].Y); err != nil {
			return err
		}
	}
	mzML.AppendSoftwareInfo(progName, progVersion)
	mzML.AppendDataProcessing(mzml.DataProcessing{
		ID: progName + "_peak_subtraction",
		ProcessingMethod: []mzml.ProcessingMethod{{
			Order:       1,
			SoftwareRef: progName,
			UserPar: []mzml.UserParam{
				{Name: "Gaussian peaks subtracted", Value: strconv.Itoa(res.Registry.Len()), Type: "xsd:int"},
			},
		}},
	})

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := mzML.Write(f); err != nil {
		return err
	}
	return f.Close()
}

// printSummary prints the number of peaks found and the mean and spread
// of their widths and fit quality
func printSummary(res *peaks.Result, numSpecs int) {
	found := res.Registry.Peaks()
	fmt.Fprintf(os.Stderr, "%d peaks in %d of %d spectra\n", len(found), res.Processed, numSpecs)
	if len(found) < 2 {
		return
	}
	widths := make([]float64, len(found))
	costs := make([]float64, len(found))
	for i, p := range found {
		widths[i] = p.Width
		costs[i] = p.CostPerDOF
	}
	wMean, wStd := stat.MeanStdDev(widths, nil)
	cMean, cStd := stat.MeanStdDev(costs, nil)
	fmt.Fprintf(os.Stderr, "  width (sigma): %g +- %g\n", wMean, wStd)
	fmt.Fprintf(os.Stderr, "  chi2/dof:      %g +- %g\n", cMean, cStd)
}
