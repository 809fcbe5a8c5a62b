package experiment

import (
	"fmt"
	"sort"

	"github.com/SGBon/BMKSA/internal/config"
	"github.com/SGBon/BMKSA/internal/dynamo"
	"github.com/SGBon/BMKSA/internal/integrators"
	"github.com/SGBon/BMKSA/internal/metrics"
)

type Registry struct {
	steppers map[string]func(cfg *config.Config) dynamo.Stepper
	metrics  map[string]func(targetSpeed float64) dynamo.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		steppers: make(map[string]func(*config.Config) dynamo.Stepper),
		metrics:  make(map[string]func(float64) dynamo.Metric),
	}

	r.steppers["rk45"] = func(cfg *config.Config) dynamo.Stepper {
		return integrators.NewRK45(integrators.WithTolerance(cfg.Tolerance))
	}
	r.steppers["rk4"] = func(cfg *config.Config) dynamo.Stepper {
		return integrators.NewFixed(integrators.NewRK4(), cfg.FixedStep)
	}
	r.steppers["euler"] = func(cfg *config.Config) dynamo.Stepper {
		return integrators.NewFixed(integrators.NewEuler(), cfg.FixedStep)
	}

	r.metrics["max_altitude"] = func(float64) dynamo.Metric { return metrics.NewMaxAltitude() }
	r.metrics["max_speed"] = func(float64) dynamo.Metric { return metrics.NewMaxSpeed() }
	r.metrics["orbital_fraction"] = func(v float64) dynamo.Metric { return metrics.NewOrbitalFraction(v) }
	r.metrics["propellant_used"] = func(float64) dynamo.Metric { return metrics.NewPropellantUsed() }
	r.metrics["attitude_drift"] = func(float64) dynamo.Metric { return metrics.NewAttitudeDrift(1e-6) }

	return r
}

func (r *Registry) GetStepper(name string, cfg *config.Config) (dynamo.Stepper, error) {
	fn, ok := r.steppers[name]
	if !ok {
		return nil, fmt.Errorf("unknown stepper: %s", name)
	}
	return fn(cfg), nil
}

func (r *Registry) GetMetric(name string, targetSpeed float64) (dynamo.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(targetSpeed), nil
}

func (r *Registry) ListSteppers() []string {
	return sortedKeys(r.steppers)
}

func (r *Registry) ListMetrics() []string {
	return sortedKeys(r.metrics)
}

// DefaultMetrics builds one of every registered metric.
func (r *Registry) DefaultMetrics(targetSpeed float64) []dynamo.Metric {
	out := make([]dynamo.Metric, 0, len(r.metrics))
	for _, name := range r.ListMetrics() {
		out = append(out, r.metrics[name](targetSpeed))
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
