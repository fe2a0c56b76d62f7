// Package metrics publishes control-tool state for the node exporter
// textfile collector. convergectl is short lived, so instead of
// serving an endpoint it rewrites a .prom file after each operation
// and lets the node exporter pick it up.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// TextfileName is the file written under the collector directory.
const TextfileName = "convergectl.prom"

// Recorder holds the gauges convergectl maintains across operations.
type Recorder struct {
	registry *prometheus.Registry

	disabled        prometheus.Gauge
	lastRunExitCode prometheus.Gauge
	lastRunDuration prometheus.Gauge
	lastRunFinished prometheus.Gauge
}

// NewRecorder creates a Recorder with all gauges registered. The
// registry carries no runtime collectors; the textfile outlives the
// process that wrote it.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		registry: registry,

		disabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "convergectl",
			Name:      "agent_disabled",
			Help:      "Whether agent runs are disabled by the control lock (1 disabled, 0 enabled).",
		}),
		lastRunExitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "convergectl",
			Name:      "last_run_exit_code",
			Help:      "Exit code of the last operator-initiated agent run.",
		}),
		lastRunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "convergectl",
			Name:      "last_run_duration_seconds",
			Help:      "Wall-clock duration of the last operator-initiated agent run.",
		}),
		lastRunFinished: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "convergectl",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time when the last operator-initiated agent run finished.",
		}),
	}

	registry.MustRegister(r.disabled, r.lastRunExitCode, r.lastRunDuration, r.lastRunFinished)
	return r
}

// SetDisabled records whether the agent is currently disabled.
func (r *Recorder) SetDisabled(disabled bool) {
	if disabled {
		r.disabled.Set(1)
	} else {
		r.disabled.Set(0)
	}
}

// ObserveRun records the outcome of an operator-initiated run.
func (r *Recorder) ObserveRun(exitCode int, duration time.Duration, finished time.Time) {
	r.lastRunExitCode.Set(float64(exitCode))
	r.lastRunDuration.Set(duration.Seconds())
	r.lastRunFinished.Set(float64(finished.Unix()))
}

// LoadTextfile seeds the gauges from a previously written textfile so
// an operation that touches only one gauge does not zero the others on
// rewrite. A missing file is not an error; it just means first run.
func (r *Recorder) LoadTextfile(dir string) error {
	f, err := os.Open(filepath.Join(dir, TextfileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", TextfileName, err)
	}

	seed := func(name string, g prometheus.Gauge) {
		fam, ok := families[name]
		if !ok || len(fam.GetMetric()) != 1 {
			return
		}
		g.Set(fam.GetMetric()[0].GetGauge().GetValue())
	}

	seed("convergectl_agent_disabled", r.disabled)
	seed("convergectl_last_run_exit_code", r.lastRunExitCode)
	seed("convergectl_last_run_duration_seconds", r.lastRunDuration)
	seed("convergectl_last_run_timestamp_seconds", r.lastRunFinished)
	return nil
}

// WriteTextfile writes the current gauge values to dir/convergectl.prom,
// creating dir if needed. The write is atomic so the collector never
// scrapes a partial file.
func (r *Recorder) WriteTextfile(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating textfile directory: %w", err)
	}
	path := filepath.Join(dir, TextfileName)
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
