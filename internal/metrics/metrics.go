// Package metrics counts the work of a peak search in Prometheus
// collectors. A Recorder is a peaks.Observer.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/524D/peakfind/peaks"
)

const namespace = "peakfind"

// Recorder holds the collectors of one run
type Recorder struct {
	candidates   prometheus.Counter
	fitAttempts  *prometheus.CounterVec
	peaks        prometheus.Counter
	spectra      prometheus.Counter
	specDuration prometheus.Histogram
	peakWidth    prometheus.Histogram
}

var _ peaks.Observer = (*Recorder)(nil)

// New creates a Recorder. Its collectors are not registered yet.
func New() *Recorder {
	return &Recorder{
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Peak candidates that passed the second difference criteria.",
		}),
		fitAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fit_attempts_total",
			Help:      "Gaussian fits per window width, partitioned by solver status and acceptance.",
		}, []string{"width", "status", "accepted"}),
		peaks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peaks_total",
			Help:      "Fitted peaks of completely processed spectra.",
		}),
		spectra: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spectra_total",
			Help:      "Spectra that were completely processed.",
		}),
		specDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "spectrum_seconds",
			Help:      "Processing time per spectrum in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		peakWidth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "peak_width",
			Help:      "Fitted Gaussian sigma of every peak accepted by a fit, in x units.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
	}
}

// Register attaches the collectors to reg. Collectors that are already
// registered are skipped.
func (r *Recorder) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		r.candidates,
		r.fitAttempts,
		r.peaks,
		r.spectra,
		r.specDuration,
		r.peakWidth,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// CandidateFound implements peaks.Observer
func (r *Recorder) CandidateFound(int, int) {
	r.candidates.Inc()
}

// FitAttempt implements peaks.Observer
func (r *Recorder) FitAttempt(_ int, width int, status string, accepted bool) {
	r.fitAttempts.WithLabelValues(strconv.Itoa(width), status, strconv.FormatBool(accepted)).Inc()
}

// PeakAccepted implements peaks.Observer
func (r *Recorder) PeakAccepted(p peaks.FittedPeak) {
	r.peakWidth.Observe(p.Width)
}

// SpectrumDone implements peaks.Observer. Peaks are counted here because
// a cancelled spectrum contributes nothing to the registry.
func (r *Recorder) SpectrumDone(_ int, found int, elapsed time.Duration) {
	r.spectra.Inc()
	r.peaks.Add(float64(found))
	if elapsed < 0 {
		elapsed = 0
	}
	r.specDuration.Observe(elapsed.Seconds())
}

// WriteFile registers the collectors on a fresh registry and writes them
// in the Prometheus text format, for the node exporter textfile collector
func (r *Recorder) WriteFile(path string) error {
	reg := prometheus.NewRegistry()
	if err := r.Register(reg); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, reg)
}
