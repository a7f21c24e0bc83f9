// Package metrics provides Prometheus metrics for the service container.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the container. It implements
// container.Observer.
type Collector struct {
	registry *prometheus.Registry

	// Compile metrics
	Compiles        *prometheus.CounterVec
	CompileDuration prometheus.Histogram
	Services        prometheus.Gauge

	// Build metrics
	ServicesBuilt *prometheus.CounterVec
	BuildDuration *prometheus.HistogramVec

	// Reload metrics
	Reloads          *prometheus.CounterVec
	LastReloadSecond prometheus.Gauge
}

// New creates a collector registered on its own registry, plus the Go and
// process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		Compiles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "inject",
				Name:      "compiles_total",
				Help:      "Total number of container compiles by result",
			},
			[]string{"result"},
		),
		CompileDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "inject",
				Name:      "compile_duration_seconds",
				Help:      "Container compile duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),
		Services: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "inject",
				Name:      "services",
				Help:      "Number of services in the last successful compile",
			},
		),
		ServicesBuilt: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "inject",
				Name:      "services_built_total",
				Help:      "Total number of service instances built",
			},
			[]string{"service"},
		),
		BuildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "inject",
				Name:      "service_build_duration_seconds",
				Help:      "Constructor duration in seconds",
				Buckets:   []float64{.00001, .0001, .001, .01, .1, 1},
			},
			[]string{"service"},
		),
		Reloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "inject",
				Name:      "reloads_total",
				Help:      "Total number of container reloads by result",
			},
			[]string{"result"},
		),
		LastReloadSecond: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "inject",
				Name:      "last_reload_timestamp_seconds",
				Help:      "Unix time of the last successful reload",
			},
		),
	}
}

// Registry returns the registry the collector's metrics live on.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Compiled records a compile.
func (c *Collector) Compiled(services int, took time.Duration, err error) {
	c.CompileDuration.Observe(took.Seconds())
	if err != nil {
		c.Compiles.WithLabelValues("error").Inc()
		return
	}
	c.Compiles.WithLabelValues("ok").Inc()
	c.Services.Set(float64(services))
}

// ServiceBuilt records a service instantiation.
func (c *Collector) ServiceBuilt(id string, took time.Duration) {
	c.ServicesBuilt.WithLabelValues(id).Inc()
	c.BuildDuration.WithLabelValues(id).Observe(took.Seconds())
}

// Reloaded records a holder reload.
func (c *Collector) Reloaded(err error) {
	if err != nil {
		c.Reloads.WithLabelValues("error").Inc()
		return
	}
	c.Reloads.WithLabelValues("ok").Inc()
	c.LastReloadSecond.SetToCurrentTime()
}
