// Package diagplot draws diagnostic PNG plots of a peak search: the
// spectrum with its fitted peaks and the smoothed second difference with
// its error band.
package diagplot

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/524D/peakfind/peaks"
	"github.com/524D/peakfind/preprocess"
	"github.com/524D/peakfind/spectrum"
)

var (
	colorData     = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	colorStripped = color.RGBA{R: 30, G: 110, B: 220, A: 255}
	colorPeak     = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	colorBand     = color.RGBA{R: 150, G: 150, B: 150, A: 255}
)

const (
	plotWidth  = 14 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// Plotter writes the plots of selected spectra to OutputDir
type Plotter struct {
	OutputDir string
}

// New creates a Plotter for dir, creating the directory when needed
func New(dir string) (*Plotter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}
	return &Plotter{OutputDir: dir}, nil
}

// Plot writes spectrum_NNNN.png and signal_NNNN.png for spectrum idx of a
// search result, NNNN being idx. label is used in the plot titles.
func (p *Plotter) Plot(idx int, label string, spec spectrum.Spectrum, res *peaks.Result) ([]string, error) {
	if idx < 0 || idx >= len(res.Smoothed) || idx >= len(res.Stripped) {
		return nil, fmt.Errorf("spectrum %d not in result", idx)
	}
	var found []peaks.FittedPeak
	for _, pk := range res.Registry.Peaks() {
		if pk.Spectrum == idx {
			found = append(found, pk)
		}
	}

	specFile := filepath.Join(p.OutputDir, fmt.Sprintf("spectrum_%04d.png", idx))
	if err := spectrumPlot(specFile, label, spec, res.Stripped[idx], found); err != nil {
		return nil, err
	}
	sigFile := filepath.Join(p.OutputDir, fmt.Sprintf("signal_%04d.png", idx))
	if err := signalPlot(sigFile, label, res.Smoothed[idx]); err != nil {
		return nil, err
	}
	return []string{specFile, sigFile}, nil
}

func xys(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i] = plotter.XY{X: x[i], Y: y[i]}
	}
	return pts
}

func addLine(p *plot.Plot, name string, pts plotter.XYs, c color.Color, dashed bool) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	line.Color = c
	line.Width = vg.Points(1)
	if dashed {
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	}
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}

func spectrumPlot(file, label string, spec, stripped spectrum.Spectrum, found []peaks.FittedPeak) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - %d peaks", label, len(found))
	p.X.Label.Text = "x"
	p.Y.Label.Text = "Intensity"

	x := spec.Centres()
	if err := addLine(p, "data", xys(x, spec.Y), colorData, false); err != nil {
		return err
	}
	if err := addLine(p, "peaks removed", xys(x, stripped.Y), colorStripped, false); err != nil {
		return err
	}

	if len(found) > 0 {
		tops := make(plotter.XYs, len(found))
		for i, pk := range found {
			tops[i] = plotter.XY{
				X: pk.Centre,
				Y: pk.Height + pk.BackgroundIntercept + pk.BackgroundSlope*pk.Centre,
			}
		}
		sc, err := plotter.NewScatter(tops)
		if err != nil {
			return fmt.Errorf("peak markers: %w", err)
		}
		sc.GlyphStyle.Color = colorPeak
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
		p.Legend.Add("fitted peaks", sc)
	}
	p.Legend.Top = true

	if err := p.Save(plotWidth, plotHeight, file); err != nil {
		return fmt.Errorf("save %s: %w", file, err)
	}
	return nil
}

func signalPlot(file, label string, sig preprocess.Signal) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - smoothed second difference", label)
	p.X.Label.Text = "x"
	p.Y.Label.Text = "S"

	n := sig.Len()
	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := 0; i < n; i++ {
		upper[i] = sig.F[i]
		lower[i] = -sig.F[i]
	}
	if err := addLine(p, "S", xys(sig.X, sig.S), colorData, false); err != nil {
		return err
	}
	if err := addLine(p, "+F", xys(sig.X, upper), colorBand, true); err != nil {
		return err
	}
	if err := addLine(p, "-F", xys(sig.X, lower), colorBand, true); err != nil {
		return err
	}
	p.Add(plotter.NewGrid())

	if err := p.Save(plotWidth, plotHeight, file); err != nil {
		return fmt.Errorf("save %s: %w", file, err)
	}
	return nil
}
