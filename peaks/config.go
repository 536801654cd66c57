package peaks

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/524D/peakfind/fit"
	"github.com/524D/peakfind/preprocess"
)

// ErrInvalidConfig is returned for out of range settings
var ErrInvalidConfig = errors.New("invalid peak finder configuration")

// Config holds the tuning of the peak search
type Config struct {
	FWHM          int // estimated peak width in channels
	Tolerance     int // allowed deviation of the peak support from 1.22*FWHM
	MaxIterations int // per fit
	// Half widths of the fit windows tried for each candidate, in order.
	// The window is Centre +/- WindowFactor*width channels.
	Widths       []int
	WindowFactor int
	Workers      int
}

// DefaultConfig returns the standard settings
func DefaultConfig() Config {
	return Config{
		FWHM:          7,
		Tolerance:     4,
		MaxIterations: fit.DefaultMaxIterations,
		Widths:        []int{2, 4, 6, 8, 10},
		WindowFactor:  5,
		Workers:       runtime.GOMAXPROCS(0),
	}
}

// Option modifies a Config
type Option func(*Config)

// WithFWHM sets the estimated peak FWHM in channels
func WithFWHM(fwhm int) Option {
	return func(c *Config) { c.FWHM = fwhm }
}

// WithTolerance sets the peak support tolerance in channels
func WithTolerance(tol int) Option {
	return func(c *Config) { c.Tolerance = tol }
}

// WithMaxIterations sets the fit iteration limit
func WithMaxIterations(n int) Option {
	return func(c *Config) { c.MaxIterations = n }
}

// WithWorkers sets the number of spectra processed concurrently
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithWidths sets the fit window half widths tried per candidate
func WithWidths(widths ...int) Option {
	return func(c *Config) { c.Widths = append([]int(nil), widths...) }
}

// WithWindowFactor sets the fit window size in units of the width
func WithWindowFactor(k int) Option {
	return func(c *Config) { c.WindowFactor = k }
}

// Apply returns a copy of c with opts applied
func (c Config) Apply(opts ...Option) Config {
	c.Widths = append([]int(nil), c.Widths...)
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Validate checks all settings
func (c Config) Validate() error {
	if c.FWHM < 1 {
		return fmt.Errorf("%w: fwhm must be >= 1: %d", ErrInvalidConfig, c.FWHM)
	}
	if c.Tolerance < 1 {
		return fmt.Errorf("%w: tolerance must be >= 1: %d", ErrInvalidConfig, c.Tolerance)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations must be >= 1: %d", ErrInvalidConfig, c.MaxIterations)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1: %d", ErrInvalidConfig, c.Workers)
	}
	if c.WindowFactor < 1 {
		return fmt.Errorf("%w: window factor must be >= 1: %d", ErrInvalidConfig, c.WindowFactor)
	}
	if len(c.Widths) == 0 {
		return fmt.Errorf("%w: no fit widths", ErrInvalidConfig)
	}
	for _, w := range c.Widths {
		if w < 1 {
			return fmt.Errorf("%w: fit width must be >= 1: %d", ErrInvalidConfig, w)
		}
	}
	if _, err := preprocess.Phi(preprocess.WindowWidth(c.FWHM)); err != nil {
		return fmt.Errorf("%w: fwhm %d: %w", ErrInvalidConfig, c.FWHM, err)
	}
	return nil
}
