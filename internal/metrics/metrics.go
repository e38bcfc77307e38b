// Package metrics exports rotator and rotctld activity to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the controller's Prometheus metrics. A nil *Collector
// is valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Steps        *prometheus.CounterVec
	Moves        *prometheus.CounterVec
	MoveDuration prometheus.Histogram
	Position     *prometheus.GaugeVec
	Sessions     prometheus.Gauge
	Commands     *prometheus.CounterVec
}

// New registers the collectors against reg, defaulting to the global
// registry when nil.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	c := &Collector{
		gatherer: gatherer,
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rotator_steps_total",
			Help: "Coil phase steps driven, labeled by axis and direction.",
		}, []string{"axis", "direction"}),
		Moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rotator_moves_total",
			Help: "Position moves attempted, labeled by result.",
		}, []string{"result"}),
		MoveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rotator_move_duration_seconds",
			Help:    "Wall time spent driving the motors for one move.",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		Position: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rotator_position_degrees",
			Help: "Dead-reckoned axis angle.",
		}, []string{"axis"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rotctld_sessions",
			Help: "Connected rotctld clients.",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rotctld_commands_total",
			Help: "Decoded rotctld commands, labeled by command.",
		}, []string{"command"}),
	}
	for _, col := range []prometheus.Collector{c.Steps, c.Moves, c.MoveDuration, c.Position, c.Sessions, c.Commands} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Handler serves the registry the collector was registered against.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveSteps(axis, direction string, n int) {
	if c == nil || n == 0 {
		return
	}
	c.Steps.WithLabelValues(axis, direction).Add(float64(n))
}

func (c *Collector) ObserveMove(err error, d time.Duration) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Moves.WithLabelValues(result).Inc()
	c.MoveDuration.Observe(d.Seconds())
}

func (c *Collector) SetPosition(azimuth, elevation float64) {
	if c == nil {
		return
	}
	c.Position.WithLabelValues("azimuth").Set(azimuth)
	c.Position.WithLabelValues("elevation").Set(elevation)
}

func (c *Collector) SessionOpened() {
	if c != nil {
		c.Sessions.Inc()
	}
}

func (c *Collector) SessionClosed() {
	if c != nil {
		c.Sessions.Dec()
	}
}

func (c *Collector) ObserveCommand(name string) {
	if c != nil {
		c.Commands.WithLabelValues(name).Inc()
	}
}
