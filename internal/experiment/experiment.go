package experiment

import (
	"context"
	"fmt"

	"github.com/SGBon/BMKSA/internal/config"
	"github.com/SGBon/BMKSA/internal/dynamo"
	"github.com/SGBon/BMKSA/internal/sim"
	"github.com/SGBon/BMKSA/internal/vehicle"
	"github.com/rs/zerolog"
)

// Experiment is one configured vehicle run.
type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	logger    zerolog.Logger
	simulator *sim.Simulator
	vehicle   *vehicle.Vehicle
}

func New(cfg *config.Config, logger zerolog.Logger) *Experiment {
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   logger,
	}
}

// Setup validates the config and builds a fresh vehicle and simulator.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	stepper, err := e.registry.GetStepper(e.cfg.Stepper, e.cfg)
	if err != nil {
		return err
	}

	v, err := vehicle.New(e.cfg.Params(),
		vehicle.WithSource(e.cfg.SourceBody()),
		vehicle.WithStepper(stepper),
		vehicle.WithLogger(e.logger.With().Str("component", "vehicle").Logger()),
	)
	if err != nil {
		return err
	}

	e.vehicle = v
	e.simulator = sim.New(e.logger.With().Str("component", "sim").Logger())
	for _, m := range e.registry.DefaultMetrics(v.TargetOrbitalVelocity()) {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.vehicle, e.SimConfig())
}

func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Duration:    e.cfg.Duration,
		SampleEvery: e.cfg.SampleEvery,
		StopAtStage: e.cfg.StopAtStage,
	}
}

// Simulator returns the underlying simulator for adding observers.
func (e *Experiment) Simulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Vehicle() *vehicle.Vehicle {
	return e.vehicle
}

func (e *Experiment) Config() *config.Config {
	return e.cfg
}
