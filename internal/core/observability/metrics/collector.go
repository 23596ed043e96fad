// Package metrics exports dispatcher traffic and wave progress to Prometheus.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zeusync/wavecore/internal/core/events"
	"github.com/zeusync/wavecore/internal/core/events/bus"
	"github.com/zeusync/wavecore/internal/core/lifecycle"
)

const namespace = "wavecore"

var _ bus.Observer = (*Collector)(nil)

// ErrRegistryTracked is returned when a second entity registry is tracked.
var ErrRegistryTracked = errors.New("entity registry already tracked")

// Collector is a bus.Observer backed by its own Prometheus registry, so
// several runs in one process never collide on metric names.
type Collector struct {
	registry *prometheus.Registry
	factory  promauto.Factory

	published      *prometheus.CounterVec
	handlerErrors  *prometheus.CounterVec
	deliverSeconds *prometheus.HistogramVec
	spawned        *prometheus.CounterVec
	wave           prometheus.Gauge
	waves          prometheus.Gauge
	tracked        bool
}

// NewCollector creates a collector with a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		factory:  f,
		published: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events published on the dispatcher",
		}, []string{"event"}),
		handlerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_handler_errors_total",
			Help:      "Total number of publishes where at least one handler failed",
		}, []string{"event"}),
		deliverSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_delivery_seconds",
			Help:      "Time spent delivering one event to all its handlers",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}, []string{"event"}),
		spawned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enemies_spawned_total",
			Help:      "Total number of enemies spawned by the wave engine",
		}, []string{"kind"}),
		wave: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wave_current",
			Help:      "Wave counter as last shown on the HUD",
		}),
		waves: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waves_total",
			Help:      "Number of waves in the running level",
		}),
	}
}

// OnPublish implements bus.Observer.
func (c *Collector) OnPublish(eventName string, event bus.Event) {
	c.published.WithLabelValues(eventName).Inc()

	switch e := event.(type) {
	case events.EnemySpawned:
		kind := e.Kind
		if kind == "" {
			kind = "unknown"
		}
		c.spawned.WithLabelValues(kind).Inc()
	case events.WaveUpdated:
		c.wave.Set(float64(e.Current))
		c.waves.Set(float64(e.Max))
	}
}

// OnDelivered implements bus.Observer.
func (c *Collector) OnDelivered(eventName string, _ int, err error, durationMicros int64) {
	if err != nil {
		c.handlerErrors.WithLabelValues(eventName).Inc()
	}
	c.deliverSeconds.WithLabelValues(eventName).Observe(float64(durationMicros) / 1e6)
}

// TrackRegistry exports the registry's active entity count as
// wavecore_enemies_active. Only one registry can be tracked.
func (c *Collector) TrackRegistry(r *lifecycle.Registry) error {
	if c.tracked {
		return ErrRegistryTracked
	}
	c.tracked = true
	c.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "enemies_active",
		Help:      "Spawned enemies that are still alive",
	}, func() float64 { return float64(r.ActiveCount()) })
	return nil
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
