// Package peaks finds Gaussian peaks in spectra with the Mariscotti
// second difference method, fits them and subtracts them again.
package peaks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/524D/peakfind/fit"
	"github.com/524D/peakfind/preprocess"
	"github.com/524D/peakfind/spectrum"
)

// Errors returned by NewFinder and Find
var (
	ErrInvalidSpectrum     = errors.New("invalid spectrum")
	ErrMissingCollaborator = errors.New("missing smoother or fitter")
)

// Observer is notified of the progress of a Find. Methods are called
// concurrently from the worker goroutines.
type Observer interface {
	CandidateFound(spec, channel int)
	FitAttempt(spec, width int, status string, accepted bool)
	PeakAccepted(p FittedPeak)
	SpectrumDone(spec, peaks int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) CandidateFound(int, int) {}
func (nopObserver) FitAttempt(int, int, string, bool) {}
func (nopObserver) PeakAccepted(FittedPeak) {}
func (nopObserver) SpectrumDone(int, int, time.Duration) {}

// Finder searches spectra for peaks
type Finder struct {
	cfg      Config
	pre      *preprocess.Preprocessor
	fitter   CurveFitter
	model    fit.Model
	logger   *log.Logger
	verbose  bool
	observer Observer
}

// FinderOption configures a Finder
type FinderOption func(*Finder)

// WithLogger sets the logger for warnings and verbose output
func WithLogger(l *log.Logger) FinderOption {
	return func(f *Finder) { f.logger = l }
}

// WithVerbose logs every failed fit attempt
func WithVerbose(v bool) FinderOption {
	return func(f *Finder) { f.verbose = v }
}

// WithObserver registers a progress observer
func WithObserver(o Observer) FinderOption {
	return func(f *Finder) { f.observer = o }
}

// NewFinder checks the configuration and collaborators and returns a
// Finder that uses them
func NewFinder(cfg Config, smoother preprocess.Smoother, fitter CurveFitter, opts ...FinderOption) (*Finder, error) {
	if smoother == nil || fitter == nil {
		return nil, ErrMissingCollaborator
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pre, err := preprocess.New(smoother, preprocess.DefaultConfig())
	if err != nil {
		return nil, err
	}
	f := &Finder{
		cfg:      cfg.Apply(),
		pre:      pre,
		fitter:   fitter,
		model:    fit.GaussianLinear{},
		logger:   log.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = log.Default()
	}
	if f.observer == nil {
		f.observer = nopObserver{}
	}
	return f, nil
}

// Config returns the settings of the Finder
func (f *Finder) Config() Config {
	return f.cfg.Apply()
}

// Result of a Find. Slices are indexed by spectrum.
type Result struct {
	Registry *Registry
	// Smoothed second difference and its error, empty for spectra that
	// were not processed
	Smoothed []preprocess.Signal
	// Input spectra with all registered peaks subtracted
	Stripped []spectrum.Spectrum
	// Number of spectra that were completely processed
	Processed int
	Cancelled bool
}

type spectrumResult struct {
	done  bool
	sig   preprocess.Signal
	peaks []FittedPeak
}

// Find runs the peak search on all spectra. Spectra are processed
// concurrently; the registry lists the peaks of each spectrum in channel
// order, spectra in input order.
//
// If ctx is cancelled the peaks of the spectra that were finished are
// returned together with the context error. Other errors (a failing
// smoother, invalid spectra) are returned before or instead of per
// spectrum results.
func (f *Finder) Find(ctx context.Context, spectra []spectrum.Spectrum) (*Result, error) {
	for i, s := range spectra {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrInvalidSpectrum, i, err)
		}
	}

	results := make([]spectrumResult, len(spectra))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Workers)
	for i := range spectra {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sig, found, err := f.findInSpectrum(gctx, i, spectra[i])
			if err != nil {
				return err
			}
			results[i] = spectrumResult{done: true, sig: sig, peaks: found}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	res := &Result{
		Registry: NewRegistry(),
		Smoothed: make([]preprocess.Signal, len(spectra)),
	}
	for i, r := range results {
		if !r.done {
			continue
		}
		res.Processed++
		res.Smoothed[i] = r.sig
		res.Registry.Append(r.peaks...)
	}
	res.Stripped = RemovePeaks(spectra, res.Registry.Peaks())
	if ctx.Err() != nil {
		res.Cancelled = true
		return res, ctx.Err()
	}
	return res, err
}

// findInSpectrum runs preprocessing, scan and fits for one spectrum
func (f *Finder) findInSpectrum(ctx context.Context, idx int, spec spectrum.Spectrum) (preprocess.Signal, []FittedPeak, error) {
	start := time.Now()
	sig, err := f.pre.Process(spec, f.cfg.FWHM)
	if err != nil {
		return preprocess.Signal{}, nil, fmt.Errorf("spectrum %d: %w", idx, err)
	}
	pf := &peakFitter{
		spec:     spec,
		specIdx:  idx,
		centres:  spec.Centres(),
		fitter:   f.fitter,
		model:    f.model,
		widths:   f.cfg.Widths,
		factor:   f.cfg.WindowFactor,
		logger:   f.logger,
		verbose:  f.verbose,
		observer: f.observer,
	}
	var found []FittedPeak
	sc := newScanner(sig, f.cfg.FWHM, f.cfg.Tolerance)
	err = sc.scan(ctx, func(c Candidate) {
		f.observer.CandidateFound(idx, c.Centre)
		if p, ok := pf.fitCandidate(c); ok {
			f.observer.PeakAccepted(p)
			found = append(found, p)
		}
	})
	if err != nil {
		return preprocess.Signal{}, nil, err
	}
	f.observer.SpectrumDone(idx, len(found), time.Since(start))
	return sig, found, nil
}
