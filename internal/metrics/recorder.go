package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// namespace prefixes every metric name.
const namespace = "update_packager"

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// Recorder holds the packaging metrics. A nil Recorder records nothing.
type Recorder struct {
	// registry owns every metric below.
	registry *prom.Registry
	// packages counts assembled packages by path and result.
	packages *prom.CounterVec
	// filesCopied counts staged files copied into version directories.
	filesCopied prom.Counter
	// filesSkipped counts staged files that could not be copied.
	filesSkipped prom.Counter
	// manifestEntries is the entry count of the last written manifest.
	manifestEntries prom.Gauge
	// stepDuration observes how long each assembly step takes.
	stepDuration *prom.HistogramVec
	// lastSuccess is the Unix time of the last successful package.
	lastSuccess prom.Gauge
}

// NewRecorder registers the packaging metrics in reg, or in a fresh registry when reg is nil.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	r := &Recorder{
		registry: reg,
		packages: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "packages_total",
			Help:      "Package runs by path taken and result",
		}, []string{"path", "result"}),
		filesCopied: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "files_copied_total",
			Help:      "Staged files copied into version directories",
		}),
		filesSkipped: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      "Staged files that could not be copied",
		}),
		manifestEntries: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "manifest_entries",
			Help:      "Entries in the last written manifest",
		}),
		stepDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of individual packaging steps",
			Buckets:   prom.DefBuckets,
		}, []string{"step"}),
		lastSuccess: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successfully assembled package",
		}),
	}

	reg.MustRegister(r.packages, r.filesCopied, r.filesSkipped, r.manifestEntries, r.stepDuration, r.lastSuccess)

	return r
}

// Registry returns the registry the metrics live in.
func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}

	return r.registry
}

// IncPackage counts one package run.
func (r *Recorder) IncPackage(path string, success bool) {
	if r == nil {
		return
	}

	result := ResultFailed
	if success {
		result = ResultSuccess
	}

	r.packages.WithLabelValues(path, result).Inc()
}

// AddFiles counts copied and skipped files.
func (r *Recorder) AddFiles(copied, skipped int) {
	if r == nil {
		return
	}

	r.filesCopied.Add(float64(copied))
	r.filesSkipped.Add(float64(skipped))
}

// SetManifestEntries records the size of the last manifest.
func (r *Recorder) SetManifestEntries(n int) {
	if r == nil {
		return
	}

	r.manifestEntries.Set(float64(n))
}

// ObserveStep records how long a step took.
func (r *Recorder) ObserveStep(step string, d time.Duration) {
	if r == nil {
		return
	}

	r.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// SetLastSuccess records the time of a successful package.
func (r *Recorder) SetLastSuccess(t time.Time) {
	if r == nil {
		return
	}

	r.lastSuccess.Set(float64(t.Unix()))
}

// WriteTextfile writes the registry in the text exposition format to path.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}

	if err := prom.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}
