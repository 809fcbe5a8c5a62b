package experiment

import (
	"context"
	"errors"
	"testing"

	"github.com/SGBon/BMKSA/internal/config"
	"github.com/SGBon/BMKSA/internal/dynamo"
	"github.com/SGBon/BMKSA/internal/integrators"
	"github.com/rs/zerolog"
)

func TestRegistrySteppers(t *testing.T) {
	r := NewRegistry()
	cfg := config.DefaultConfig()

	for _, name := range config.Steppers {
		s, err := r.GetStepper(name, cfg)
		if err != nil {
			t.Errorf("stepper %s: %v", name, err)
			continue
		}
		if s == nil {
			t.Errorf("stepper %s is nil", name)
		}
	}

	rk45, _ := r.GetStepper("rk45", cfg)
	if _, ok := rk45.(*integrators.RK45); !ok {
		t.Errorf("expected *integrators.RK45, got %T", rk45)
	}

	if _, err := r.GetStepper("verlet", cfg); err == nil {
		t.Error("expected error for unknown stepper")
	}
	if len(r.ListSteppers()) != len(config.Steppers) {
		t.Errorf("registry and config disagree on steppers: %v", r.ListSteppers())
	}
}

func TestRegistryMetrics(t *testing.T) {
	r := NewRegistry()

	ms := r.DefaultMetrics(7000)
	if len(ms) != len(r.ListMetrics()) {
		t.Fatalf("expected %d metrics, got %d", len(r.ListMetrics()), len(ms))
	}
	seen := map[string]bool{}
	for _, m := range ms {
		seen[m.Name()] = true
	}
	for _, name := range r.ListMetrics() {
		if !seen[name] {
			t.Errorf("metric %s missing from defaults", name)
		}
	}

	if _, err := r.GetMetric("energy", 0); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func TestExperimentRun(t *testing.T) {
	for _, stepper := range config.Steppers {
		t.Run(stepper, func(t *testing.T) {
			cfg := config.GetPreset("short-burn")
			cfg.Stepper = stepper
			cfg.Duration = 60

			exp := New(cfg, zerolog.Nop())
			if _, err := exp.Run(context.Background()); err == nil {
				t.Fatal("run before setup should fail")
			}
			if err := exp.Setup(); err != nil {
				t.Fatalf("setup failed: %v", err)
			}

			result, err := exp.Run(context.Background())
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if result.TicksTaken != 600 {
				t.Errorf("expected 600 ticks, got %d", result.TicksTaken)
			}
			if len(result.Events) != 2 {
				t.Errorf("expected both stagings, got %v", result.Events)
			}
			if result.Metrics["max_altitude"] <= 0 {
				t.Errorf("expected a positive max altitude, got %f", result.Metrics["max_altitude"])
			}
			if result.Metrics["propellant_used"] <= 0 {
				t.Errorf("expected propellant to be burned, got %f", result.Metrics["propellant_used"])
			}
			if exp.Vehicle().Stage() != 3 {
				t.Errorf("expected the payload stage, got %d", exp.Vehicle().Stage())
			}
		})
	}
}

func TestExperimentSetupRejectsBadConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Vehicle.Radius = 0

	err := New(cfg, zerolog.Nop()).Setup()
	if !errors.Is(err, dynamo.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
