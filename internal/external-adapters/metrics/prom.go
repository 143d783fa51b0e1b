// Package metrics exposes pipeline counters through a Prometheus registry.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zapstore/releastr/internal/domain/entities"
)

// Prom implements interfaces.Metrics on a private registry
type Prom struct {
	registry         *prometheus.Registry
	appsProcessed    *prometheus.CounterVec
	recordsPublished *prometheus.CounterVec
	appDuration      *prometheus.HistogramVec
}

// NewProm creates metrics registered on a fresh registry
func NewProm(namespace string) *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		appsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "apps_processed_total",
			Help:      "Apps processed, by terminal status.",
		}, []string{"status"}),
		recordsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Records sent to the relay, by kind and result.",
		}, []string{"kind", "result"}),
		appDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "app_duration_seconds",
			Help:      "Wall time spent per app.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"status"}),
	}
	p.registry.MustRegister(p.appsProcessed, p.recordsPublished, p.appDuration)
	return p
}

// ObserveApp records one app's terminal status and duration
func (p *Prom) ObserveApp(status entities.AppStatus, d time.Duration) {
	p.appsProcessed.WithLabelValues(string(status)).Inc()
	p.appDuration.WithLabelValues(string(status)).Observe(d.Seconds())
}

// ObservePublish records one relay verdict
func (p *Prom) ObservePublish(kind entities.Kind, accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	p.recordsPublished.WithLabelValues(kind.String(), result).Inc()
}

// Registry exposes the underlying registry
func (p *Prom) Registry() *prometheus.Registry {
	return p.registry
}

// WriteTextfile writes the current values in the node-exporter textfile format
func (p *Prom) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
