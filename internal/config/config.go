// Package config loads the optional YAML tuning file of peakfind
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/524D/peakfind/peaks"
)

// Config holds the settings that can be given in the tuning file
type Config struct {
	Peaks  PeaksConfig  `yaml:"peaks"`
	Input  InputConfig  `yaml:"input"`
	Output OutputConfig `yaml:"output"`
}

// PeaksConfig tunes the peak search
type PeaksConfig struct {
	FWHM          int   `yaml:"fwhm"`
	Tolerance     int   `yaml:"tolerance"`
	MaxIterations int   `yaml:"maxIterations"`
	Widths        []int `yaml:"widths"`
	WindowFactor  int   `yaml:"windowFactor"`
	Workers       int   `yaml:"workers"`
}

// InputConfig selects the spectra to process
type InputConfig struct {
	MSLevel int `yaml:"msLevel"`
}

// OutputConfig controls the extra output files
type OutputConfig struct {
	PlotDir     string `yaml:"plotDir"`
	MetricsFile string `yaml:"metricsFile"`
}

// Load reads the tuning file at path (or $PEAKFIND_CONFIG when path is
// empty) on top of the defaults, then applies PEAKFIND_* environment
// overrides. Without a file the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("PEAKFIND_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	p := peaks.DefaultConfig()
	return Config{
		Peaks: PeaksConfig{
			FWHM:          p.FWHM,
			Tolerance:     p.Tolerance,
			MaxIterations: p.MaxIterations,
			Widths:        p.Widths,
			WindowFactor:  p.WindowFactor,
			Workers:       p.Workers,
		},
		Input: InputConfig{MSLevel: 1},
	}
}

func applyEnvOverrides(cfg *Config) error {
	ints := []struct {
		env string
		dst *int
	}{
		{"PEAKFIND_FWHM", &cfg.Peaks.FWHM},
		{"PEAKFIND_TOLERANCE", &cfg.Peaks.Tolerance},
		{"PEAKFIND_MAX_ITERATIONS", &cfg.Peaks.MaxIterations},
		{"PEAKFIND_WINDOW_FACTOR", &cfg.Peaks.WindowFactor},
		{"PEAKFIND_WORKERS", &cfg.Peaks.Workers},
		{"PEAKFIND_MS_LEVEL", &cfg.Input.MSLevel},
	}
	for _, o := range ints {
		v := os.Getenv(o.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", o.env, err)
		}
		*o.dst = n
	}
	if v := os.Getenv("PEAKFIND_WIDTHS"); v != "" {
		var widths []int
		for _, f := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return fmt.Errorf("PEAKFIND_WIDTHS: %w", err)
			}
			widths = append(widths, n)
		}
		cfg.Peaks.Widths = widths
	}
	if v := os.Getenv("PEAKFIND_PLOT_DIR"); v != "" {
		cfg.Output.PlotDir = v
	}
	if v := os.Getenv("PEAKFIND_METRICS_FILE"); v != "" {
		cfg.Output.MetricsFile = v
	}
	return nil
}

// PeakOptions converts the peak settings into peaks options
func (c *Config) PeakOptions() []peaks.Option {
	p := c.Peaks
	return []peaks.Option{
		peaks.WithFWHM(p.FWHM),
		peaks.WithTolerance(p.Tolerance),
		peaks.WithMaxIterations(p.MaxIterations),
		peaks.WithWidths(p.Widths...),
		peaks.WithWindowFactor(p.WindowFactor),
		peaks.WithWorkers(p.Workers),
	}
}
