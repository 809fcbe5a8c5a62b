// Package telemetry publishes per-tick vehicle state as Prometheus gauges.
package telemetry

import (
	"net/http"

	"github.com/SGBon/BMKSA/internal/dynamo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter is a dynamo.Observer backed by its own registry, so several
// exporters can live in one process.
type Exporter struct {
	registry *prometheus.Registry

	time     prometheus.Gauge
	altitude prometheus.Gauge
	speed    prometheus.Gauge
	mass     prometheus.Gauge
	thrust   prometheus.Gauge
	stage    prometheus.Gauge
	drift    prometheus.Gauge
	momentum *prometheus.GaugeVec
	ticks    prometheus.Counter
	stagings prometheus.Counter

	lastStage int
}

func NewExporter(run string) *Exporter {
	labels := prometheus.Labels{"run": run}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help, ConstLabels: labels})
	}

	e := &Exporter{
		registry: prometheus.NewRegistry(),
		time:     gauge("rocket_time_seconds", "Simulation clock."),
		altitude: gauge("rocket_altitude_meters", "Height above the source surface."),
		speed:    gauge("rocket_velocity_mps", "Speed relative to the source."),
		mass:     gauge("rocket_mass_kg", "Current vehicle mass."),
		thrust:   gauge("rocket_thrust_newton", "Current thrust magnitude."),
		stage:    gauge("rocket_stage", "Active stage, 1 to 3."),
		drift:    gauge("rocket_attitude_drift", "Max deviation of the rotation from orthonormal."),
		momentum: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "rocket_linear_momentum",
			Help:        "Linear momentum by world axis.",
			ConstLabels: labels,
		}, []string{"axis"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rocket_ticks_total", Help: "Ticks observed.", ConstLabels: labels,
		}),
		stagings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rocket_stagings_total", Help: "Stage transitions observed.", ConstLabels: labels,
		}),
	}

	e.registry.MustRegister(
		e.time, e.altitude, e.speed, e.mass, e.thrust, e.stage, e.drift,
		e.momentum, e.ticks, e.stagings,
	)
	return e
}

func (e *Exporter) OnTick(s dynamo.Sample) {
	if e.lastStage != 0 && s.Stage > e.lastStage {
		e.stagings.Add(float64(s.Stage - e.lastStage))
	}
	e.lastStage = s.Stage

	e.time.Set(s.Time)
	e.altitude.Set(s.Altitude)
	e.speed.Set(s.Speed)
	e.mass.Set(s.Mass)
	e.thrust.Set(s.Thrust)
	e.stage.Set(float64(s.Stage))
	e.drift.Set(s.Drift)
	for i, axis := range []string{"x", "y", "z"} {
		e.momentum.WithLabelValues(axis).Set(s.Momentum[i])
	}
	e.ticks.Inc()
}

func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Handler serves the registry in exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current values for the node exporter textfile
// collector.
func (e *Exporter) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, e.registry)
}
