// Copyright 2018 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"syscall"
	"time"

	"github.com/524D/peakfind/fit"
	"github.com/524D/peakfind/internal/config"
	"github.com/524D/peakfind/internal/diagplot"
	"github.com/524D/peakfind/internal/metrics"
	"github.com/524D/peakfind/internal/mzml"
	"github.com/524D/peakfind/peaks"
	"github.com/524D/peakfind/preprocess"
	"github.com/524D/peakfind/spectrum"
)

// Program name and version, appended to software list in mzML output
const progName = "peakfind"

var progVersion = `Unknown`

// Format of the peak list, if it ever changes we should still be able
// to parse output from old versions
const outputFormatVersion = "1.0"

const (
	infoDefault = iota
	infoSilent
	infoVerbose
)

// ErrRangeSpec is returned for a malformed or empty range
var ErrRangeSpec = errors.New("invalid range specified")

// Command line parameters
type params struct {
	mzMLFilename    *string
	mzMLOutFilename *string // mzML with the fitted peaks subtracted
	peaksFilename   *string // JSON peak list
	configFilename  *string // optional YAML tuning file
	plotDir         *string // directory for diagnostic plots, empty for none
	plotSpecs       *string // range of spectrum indices to plot
	minPlotIdx      int
	maxPlotIdx      int
	metricsFilename *string // Prometheus text file, empty for none
	msLevel         *int
	specFilter      *string // range of spectrum indices to process
	minSpecIdx      int
	maxSpecIdx      int
	fwhm            *int
	tolerance       *int
	maxIter         *int
	workers         *int
	verbosity       int             // Verbosity of progress messages (infoDefault...)
	args            []string        // Additional values passed on the command line
	setFlags        map[string]bool // flags given explicitly, these override the tuning file
	startName       string          // input file name without extension
	settings        *config.Config
}

// Parse string like "-12:6" into 2 values, -12 and 6
// Parameters lo and hi are the "default" min/max values,
// when a value is not specified (e.g. "-12:"), the default is assigned
func parseIntRange(r string, lo int, hi int) (int, int, error) {
	re := regexp.MustCompile(`\s*(\-?\d*):(\-?\d*)`)
	m := re.FindStringSubmatch(r)
	loOut := lo
	hiOut := hi
	if len(m) >= 2 && m[1] != "" {
		loOut, _ = strconv.Atoi(m[1])
		if loOut < lo {
			loOut = lo
		}
	}
	if len(m) >= 3 && m[2] != "" {
		hiOut, _ = strconv.Atoi(m[2])
		if hiOut > hi {
			hiOut = hi
		}
	}
	var err error
	if loOut > hiOut {
		err = ErrRangeSpec
		loOut = hiOut
	}
	return loOut, hiOut, err
}

func newParams(fs *flag.FlagSet) *params {
	var par params
	par.mzMLOutFilename = fs.String("o",
		"",
		"`filename` of mzML with the fitted peaks subtracted")
	par.peaksFilename = fs.String("peaks",
		"",
		"`filename` for output of the fitted peaks (JSON)")
	par.configFilename = fs.String("config",
		"",
		"YAML tuning `file`"+`. Settings given on the command line take precedence.
Default is $PEAKFIND_CONFIG, if set`)
	par.plotDir = fs.String("plot",
		"",
		"write diagnostic plots (PNG) to `directory`")
	par.plotSpecs = fs.String("plotspecs",
		"0:9",
		"`range` of spectrum indices to plot")
	par.metricsFilename = fs.String("metrics",
		"",
		"write Prometheus metrics of the run to `filename`")
	par.msLevel = fs.Int("mslevel", 1,
		`MS level of the spectra to process`)
	par.specFilter = fs.String("specfilter",
		"",
		"`range`"+` of spectrum indices to process (e.g. 1000:2000).
Default is all spectra`)
	def := peaks.DefaultConfig()
	par.fwhm = fs.Int("fwhm", def.FWHM,
		`expected full width at half maximum of the peaks, in channels`)
	par.tolerance = fs.Int("tolerance", def.Tolerance,
		`width tolerance of the peak criteria, in channels`)
	par.maxIter = fs.Int("maxiter", def.MaxIterations,
		`maximum number of iterations per Gaussian fit`)
	par.workers = fs.Int("workers", def.Workers,
		`number of spectra processed concurrently`)
	return &par
}

// sanatizeParams does some checks on parameters, fills missing
// filenames and merges the tuning file
func sanatizeParams(par *params) error {
	if len(par.args) != 1 {
		return errors.New("last argument must be name of mzML file")
	}

	mzMLName := par.args[0]
	par.mzMLFilename = &mzMLName
	extension := filepath.Ext(mzMLName)
	par.startName = mzMLName[0 : len(mzMLName)-len(extension)]

	if *par.peaksFilename == "" {
		*par.peaksFilename = par.startName + "-peaks.json"
	}
	if *par.mzMLOutFilename == "" {
		*par.mzMLOutFilename = par.startName + "-stripped.mzML"
	}

	var err error
	par.minSpecIdx, par.maxSpecIdx, err = parseIntRange(*par.specFilter,
		0, math.MaxInt32)
	if err != nil {
		return fmt.Errorf("invalid value for parameter 'specfilter': %w", err)
	}
	par.minPlotIdx, par.maxPlotIdx, err = parseIntRange(*par.plotSpecs,
		0, math.MaxInt32)
	if err != nil {
		return fmt.Errorf("invalid value for parameter 'plotspecs': %w", err)
	}

	cfg, err := config.Load(*par.configFilename)
	if err != nil {
		return err
	}
	if par.setFlags["fwhm"] {
		cfg.Peaks.FWHM = *par.fwhm
	}
	if par.setFlags["tolerance"] {
		cfg.Peaks.Tolerance = *par.tolerance
	}
	if par.setFlags["maxiter"] {
		cfg.Peaks.MaxIterations = *par.maxIter
	}
	if par.setFlags["workers"] {
		cfg.Peaks.Workers = *par.workers
	}
	if par.setFlags["mslevel"] {
		cfg.Input.MSLevel = *par.msLevel
	}
	if par.setFlags["plot"] {
		cfg.Output.PlotDir = *par.plotDir
	}
	if par.setFlags["metrics"] {
		cfg.Output.MetricsFile = *par.metricsFilename
	}
	par.settings = cfg
	return nil
}

func usage() {
	exeName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr,
		`USAGE:
  %s [options] <mzMLfile>

  This program finds Gaussian peaks in the profile spectra of an mzML file
  with the second difference method of Mariscotti, fits each peak with a
  Gaussian on a linear background and subtracts the fitted peaks.

OPTIONS:
`, exeName)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr,
		`
ENVIRONMENT VARIABLES:
    PEAKFIND_CONFIG names a YAML tuning file. The settings in the file can be
    overridden with PEAKFIND_FWHM, PEAKFIND_TOLERANCE, PEAKFIND_MAX_ITERATIONS,
    PEAKFIND_WIDTHS, PEAKFIND_WINDOW_FACTOR, PEAKFIND_WORKERS, PEAKFIND_MS_LEVEL,
    PEAKFIND_PLOT_DIR and PEAKFIND_METRICS_FILE.

USAGE EXAMPLES:
  %s sample.mzML
    Find peaks in the MS1 profile spectra of sample.mzML, write the peaks to
    sample-peaks.json and the spectra without peaks to sample-stripped.mzML.

  %s -fwhm 11 -plot plots -plotspecs 100:110 sample.mzML
    Idem, for peaks of about 11 channels wide, and write diagnostic plots of
    spectra 100 to 110 to directory plots.

NOTES:
    Centroid spectra are skipped. The mzML file that is produced does not
    contain an index.
`, exeName, exeName)
}

// progress prints a stage message in verbose mode
func progress(par *params, format string, a ...any) {
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, format, a...)
	}
}

// readSpectra reads the mzML file and selects the profile spectra to
// process. It returns the spectra and their index in the file.
func readSpectra(par *params) (mzml.MzML, []spectrum.Spectrum, []int, error) {
	f, err := os.Open(*par.mzMLFilename)
	if err != nil {
		return mzml.MzML{}, nil, nil, err
	}
	defer f.Close()
	mzML, err := mzml.Read(f)
	if err != nil {
		return mzML, nil, nil, fmt.Errorf("mzml.Read: %w", err)
	}

	var specs []spectrum.Spectrum
	var specIdx []int
	skipped := 0
	last := min(par.maxSpecIdx, mzML.NumSpecs()-1)
	for i := par.minSpecIdx; i <= last; i++ {
		level, err := mzML.MSLevel(i)
		if err != nil {
			return mzML, nil, nil, err
		}
		if level != par.settings.Input.MSLevel {
			continue
		}
		centroid, err := mzML.Centroid(i)
		if err != nil {
			return mzML, nil, nil, err
		}
		if centroid {
			skipped++
			continue
		}
		mz, intensity, err := mzML.Profile(i)
		if err != nil {
			return mzML, nil, nil, err
		}
		specs = append(specs, spectrum.Spectrum{
			X: mz,
			Y: intensity,
			E: spectrum.CountingErrors(intensity),
		})
		specIdx = append(specIdx, i)
	}
	if skipped > 0 && par.verbosity != infoSilent {
		log.Printf("Skipped %d centroid spectra", skipped)
	}
	return mzML, specs, specIdx, nil
}

func run(ctx context.Context, par *params) error {
	cfg := par.settings
	t := time.Now()
	progress(par, "Reading MS data from %s: ", *par.mzMLFilename)
	mzML, specs, specIdx, err := readSpectra(par)
	if err != nil {
		return err
	}
	progress(par, "%s\n", time.Since(t))
	if len(specs) == 0 && par.verbosity != infoSilent {
		log.Printf("No MS%d profile spectra in %s", cfg.Input.MSLevel, *par.mzMLFilename)
	}

	fitter := fit.New(cfg.Peaks.MaxIterations)
	recorder := metrics.New()
	finder, err := peaks.NewFinder(
		peaks.DefaultConfig().Apply(cfg.PeakOptions()...),
		preprocess.MovingAverage{},
		fitter,
		peaks.WithVerbose(par.verbosity == infoVerbose),
		peaks.WithObserver(recorder),
	)
	if err != nil {
		return err
	}

	t = time.Now()
	progress(par, "Finding peaks in %d spectra: ", len(specs))
	res, err := finder.Find(ctx, specs)
	if err != nil {
		if res == nil || !res.Cancelled {
			return err
		}
		log.Printf("Interrupted after %d of %d spectra, writing partial results",
			res.Processed, len(specs))
	}
	progress(par, "%s\n", time.Since(t))

	for k, i := range specIdx {
		debugLogSpec(k, i, res)
	}
	if par.verbosity != infoSilent {
		printSummary(res, len(specs))
	}

	t = time.Now()
	progress(par, "Writing peaks to %s: ", *par.peaksFilename)
	if err := writePeaks(&mzML, res, specIdx, finder.Config(), *par.peaksFilename); err != nil {
		return fmt.Errorf("writePeaks: %w", err)
	}
	progress(par, "%s\n", time.Since(t))

	t = time.Now()
	progress(par, "Writing %s: ", *par.mzMLOutFilename)
	if err := writeStrippedMzML(&mzML, res, specIdx, *par.mzMLOutFilename); err != nil {
		return fmt.Errorf("writeStrippedMzML: %w", err)
	}
	progress(par, "%s\n", time.Since(t))

	if cfg.Output.PlotDir != "" {
		t = time.Now()
		progress(par, "Writing plots to %s: ", cfg.Output.PlotDir)
		if err := writePlots(&mzML, specs, specIdx, res, par); err != nil {
			return fmt.Errorf("writePlots: %w", err)
		}
		progress(par, "%s\n", time.Since(t))
	}
	if cfg.Output.MetricsFile != "" {
		if err := recorder.WriteFile(cfg.Output.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if res.Cancelled {
		return ctx.Err()
	}
	return nil
}

func writePlots(mzML *mzml.MzML, specs []spectrum.Spectrum, specIdx []int, res *peaks.Result, par *params) error {
	plotter, err := diagplot.New(par.settings.Output.PlotDir)
	if err != nil {
		return err
	}
	for k, i := range specIdx {
		if i < par.minPlotIdx || i > par.maxPlotIdx || res.Smoothed[k].Len() == 0 {
			continue
		}
		label, err := mzML.ScanID(i)
		if err != nil {
			return err
		}
		if _, err := plotter.Plot(k, label, specs[k], res); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	par := newParams(flag.CommandLine)
	version := flag.Bool("version", false,
		`Show software version`)
	verbose := flag.Bool("verbose", false,
		`Print more verbose progress information`)
	quiet := flag.Bool("quiet", false,
		`Don't print any output except for errors`)
	flag.Usage = usage
	flag.Parse()
	if *version {
		if progVersion == `Unknown` {
			progVersion = `Unknown
Please build this program with script 'build.sh' so that the git version is shown here.`
		}
		fmt.Fprintf(os.Stderr, "%s version %s\n", progName, progVersion)
		return
	}
	if *verbose {
		par.verbosity = infoVerbose
	}
	if *quiet {
		par.verbosity = infoSilent
	}
	par.args = flag.Args()
	par.setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { par.setFlags[f.Name] = true })

	if err := sanatizeParams(par); err != nil {
		fmt.Fprintf(os.Stderr, "%v\nType %s --help for usage\n", err, filepath.Base(os.Args[0]))
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, par); err != nil {
		log.Fatalf("%s: %v", progName, err)
	}
}
