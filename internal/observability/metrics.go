package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the overlay engine.
type Metrics struct {
	FramesRendered *prometheus.CounterVec   // labels: kind={wind,cyclone,flood,detection}
	FrameDuration  *prometheus.HistogramVec // labels: kind
	FrameErrors    prometheus.Counter
	OverlaysActive *prometheus.GaugeVec // labels: kind
	ParticlesLive  prometheus.Gauge
	Respawns       prometheus.Counter

	// Wind field ingestion metrics.
	SamplesLoaded  prometheus.Counter
	SamplesDropped prometheus.Counter

	// Feed consumption metrics.
	FeedUpdates prometheus.Counter
	FeedErrors  prometheus.Counter
}

// NewMetrics creates and registers all engine metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FramesRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_overlay",
			Name:      "frames_rendered_total",
			Help:      "Total animation frames completed, by overlay kind.",
		}, []string{"kind"}),
		FrameDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storm_overlay",
			Name:      "frame_duration_seconds",
			Help:      "Duration of one tick-draw-present cycle.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"kind"}),
		FrameErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_overlay",
			Name:      "frame_errors_total",
			Help:      "Total frames aborted by a surface or render failure.",
		}),
		OverlaysActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "storm_overlay",
			Name:      "overlays_active",
			Help:      "Attached overlays, by kind.",
		}, []string{"kind"}),
		ParticlesLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storm_overlay",
			Name:      "particles_live",
			Help:      "Particles allocated across all attached overlays.",
		}),
		Respawns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_overlay",
			Name:      "particle_respawns_total",
			Help:      "Total particles respawned after expiry or leaving their region.",
		}),
		SamplesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_overlay",
			Name:      "field_samples_loaded_total",
			Help:      "Total wind samples accepted into the vector field store.",
		}),
		SamplesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_overlay",
			Name:      "field_samples_dropped_total",
			Help:      "Total wind samples rejected for invalid coordinates or flow.",
		}),
		FeedUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_overlay",
			Name:      "feed_updates_total",
			Help:      "Total hazard updates applied from the feed.",
		}),
		FeedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_overlay",
			Name:      "feed_errors_total",
			Help:      "Total feed messages that could not be decoded or applied.",
		}),
	}

	prometheus.MustRegister(
		m.FramesRendered,
		m.FrameDuration,
		m.FrameErrors,
		m.OverlaysActive,
		m.ParticlesLive,
		m.Respawns,
		m.SamplesLoaded,
		m.SamplesDropped,
		m.FeedUpdates,
		m.FeedErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FramesRendered: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "storm_overlay", Name: "frames_rendered_total"}, []string{"kind"}),
		FrameDuration:  prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "storm_overlay", Name: "frame_duration_seconds"}, []string{"kind"}),
		FrameErrors:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_overlay", Name: "frame_errors_total"}),
		OverlaysActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "storm_overlay", Name: "overlays_active"}, []string{"kind"}),
		ParticlesLive:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "storm_overlay", Name: "particles_live"}),
		Respawns:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_overlay", Name: "particle_respawns_total"}),
		SamplesLoaded:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_overlay", Name: "field_samples_loaded_total"}),
		SamplesDropped: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_overlay", Name: "field_samples_dropped_total"}),
		FeedUpdates:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_overlay", Name: "feed_updates_total"}),
		FeedErrors:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "storm_overlay", Name: "feed_errors_total"}),
	}
}
