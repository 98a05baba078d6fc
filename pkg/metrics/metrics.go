// Package metrics holds the Prometheus collectors of the benchmark service and
// builds the OpenTelemetry meter provider that exports fetch instruments
// through the same Prometheus registry.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60} //nolint: gochecknoglobals

// Runs groups the collectors observed by the run worker.
type Runs struct {
	// Total counts finished runs by mode and outcome ("completed", "failed", "retried").
	Total *prometheus.CounterVec
	// Duration observes the real time of completed runs by mode.
	Duration *prometheus.HistogramVec
	// Bytes counts downloaded bytes by mode.
	Bytes *prometheus.CounterVec
}

// NewRuns creates the run collectors and registers them with reg.
func NewRuns(reg prometheus.Registerer) (*Runs, error) {
	r := &Runs{
		Total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dlbench",
			Name:      "runs_total",
			Help:      "Number of benchmark runs executed, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dlbench",
			Name:      "run_duration_seconds",
			Help:      "Real time of completed benchmark runs.",
			Buckets:   DefaultBuckets,
		}, []string{"mode"}),
		Bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dlbench",
			Name:      "downloaded_bytes_total",
			Help:      "Bytes downloaded by benchmark runs.",
		}, []string{"mode"}),
	}

	for _, c := range []prometheus.Collector{r.Total, r.Duration, r.Bytes} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("could not register collector: %w", err)
		}
	}

	return r, nil
}

// NewMeterProvider returns an OpenTelemetry meter provider whose instruments
// are exported through reg.
func NewMeterProvider(reg prometheus.Registerer) (*sdkmetric.MeterProvider, error) {
	exp, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp)), nil
}
