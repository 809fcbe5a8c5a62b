package automation

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/SGBon/BMKSA/internal/config"
	"github.com/SGBon/BMKSA/internal/dynamo"
	"github.com/SGBon/BMKSA/internal/experiment"
	"github.com/SGBon/BMKSA/internal/sim"
	"github.com/SGBon/BMKSA/internal/storage"
	"github.com/SGBon/BMKSA/internal/vehicle"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. Zero fields keep the preset's values.
type ScenarioStep struct {
	Name     string             `yaml:"name"`
	Preset   string             `yaml:"preset"`
	Stepper  string             `yaml:"stepper"`
	Duration float64            `yaml:"duration"`
	Params   map[string]float64 `yaml:"params"`
	SaveAs   string             `yaml:"save_as"`
}

type StepResult struct {
	Name   string
	RunID  string
	Result *dynamo.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps: %w", scenario.Name, dynamo.ErrInvalidConfig)
	}

	return &scenario, nil
}

// Config resolves the step against its preset.
func (s ScenarioStep) Config() (*config.Config, error) {
	preset := s.Preset
	if preset == "" {
		preset = "falcon9"
	}
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset %q: %w", preset, dynamo.ErrInvalidConfig)
	}
	if s.Stepper != "" {
		cfg.Stepper = s.Stepper
	}
	if s.Duration != 0 {
		cfg.Duration = s.Duration
	}
	if err := cfg.SetParams(s.Params); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// RunScenario executes the steps one after another. Steps with save_as are
// archived in st when st is non-nil.
func RunScenario(ctx context.Context, scenario *Scenario, st *storage.Store, logger zerolog.Logger, progress io.Writer) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step%d", i+1)
		}
		fmt.Fprintf(progress, "Running step %d/%d: %s\n", i+1, len(scenario.Steps), name)

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp := experiment.New(cfg, logger.With().Str("step", name).Logger())
		if err := exp.Setup(); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Name: name, Result: result}
		if step.SaveAs != "" && st != nil {
			sr.RunID, err = st.Save(storage.RunInfo{
				Name:     step.SaveAs,
				Preset:   step.Preset,
				Stepper:  cfg.Stepper,
				Dt:       cfg.Vehicle.Dt,
				Duration: cfg.Duration,
				Params:   cfg.Params().GetParams(),
			}, result)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}

		results = append(results, sr)
	}

	return results, nil
}

// ParameterSweep varies one vehicle parameter across a linear range.
type ParameterSweep struct {
	Preset    string
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
	Duration  float64
	Workers   int
}

type SweepResult struct {
	ParamValue  float64
	MaxAltitude float64
	MaxSpeed    float64
	FinalMass   float64
	FinalStage  int
	Events      []dynamo.StageEvent
}

// RunSweep runs every sweep point concurrently on independent vehicles.
func RunSweep(ctx context.Context, sweep *ParameterSweep, logger zerolog.Logger, progress io.Writer) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step: %w", dynamo.ErrInvalidConfig)
	}
	if !validParam(sweep.ParamName) {
		return nil, fmt.Errorf("unknown parameter %q: %w", sweep.ParamName, dynamo.ErrInvalidConfig)
	}

	values := make([]float64, sweep.NumSteps)
	for i := range values {
		values[i] = sweep.ParamMin
		if sweep.NumSteps > 1 {
			values[i] += float64(i) * (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
		}
	}

	base, err := ScenarioStep{Preset: sweep.Preset, Duration: sweep.Duration}.Config()
	if err != nil {
		return nil, err
	}

	registry := experiment.NewRegistry()
	factories := make([]sim.Factory, len(values))
	for i, val := range values {
		val := val
		factories[i] = func() (sim.Vehicle, error) {
			v, err := buildVehicle(base, registry, map[string]float64{sweep.ParamName: val})
			if err != nil {
				return nil, err
			}
			return v, nil
		}
	}

	batch := sim.NewBatch(sim.New(logger), sweep.Workers)
	simCfg := sim.Config{Duration: base.Duration, SampleEvery: base.SampleEvery, StopAtStage: base.StopAtStage}
	runs, err := batch.Run(ctx, factories, simCfg, func() []dynamo.Metric {
		return []dynamo.Metric{mustMetric(registry, "max_altitude"), mustMetric(registry, "max_speed")}
	})
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(runs))
	for i, r := range runs {
		last := r.Samples[len(r.Samples)-1]
		results[i] = SweepResult{
			ParamValue:  values[i],
			MaxAltitude: r.Metrics["max_altitude"],
			MaxSpeed:    r.Metrics["max_speed"],
			FinalMass:   last.Mass,
			FinalStage:  last.Stage,
			Events:      r.Events,
		}
		fmt.Fprintf(progress, "Sweep %d/%d: %s=%.4f\n", i+1, len(runs), sweep.ParamName, values[i])
	}

	return results, nil
}

func buildVehicle(base *config.Config, registry *experiment.Registry, overrides map[string]float64) (*vehicle.Vehicle, error) {
	cfg := *base
	if err := cfg.SetParams(overrides); err != nil {
		return nil, err
	}
	stepper, err := registry.GetStepper(cfg.Stepper, &cfg)
	if err != nil {
		return nil, err
	}
	return vehicle.New(cfg.Params(), vehicle.WithSource(cfg.SourceBody()), vehicle.WithStepper(stepper))
}

func mustMetric(r *experiment.Registry, name string) dynamo.Metric {
	m, err := r.GetMetric(name, 0)
	if err != nil {
		panic(err)
	}
	return m
}

func validParam(name string) bool {
	names := vehicle.ParamNames()
	i := sort.SearchStrings(names, name)
	return i < len(names) && names[i] == name
}

// MonteCarloConfig disperses vehicle parameters by a relative amount.
type MonteCarloConfig struct {
	Preset       string
	Params       []string
	Perturbation float64
	NumTrials    int
	Duration     float64
	Seed         int64
}

type MonteCarloResult struct {
	TrialID     int
	Params      map[string]float64
	MaxAltitude float64
	FinalStage  int
	Failures    int
	// Nominal means every tick integrated and the altitude stayed finite.
	Nominal bool
}

// RunMonteCarlo runs trials with each listed parameter scaled by a uniform
// factor in [1-p, 1+p].
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, logger zerolog.Logger, progress io.Writer) ([]MonteCarloResult, error) {
	for _, name := range cfg.Params {
		if !validParam(name) {
			return nil, fmt.Errorf("unknown parameter %q: %w", name, dynamo.ErrInvalidConfig)
		}
	}

	base, err := ScenarioStep{Preset: cfg.Preset, Duration: cfg.Duration}.Config()
	if err != nil {
		return nil, err
	}
	nominal := base.Params().GetParams()

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	registry := experiment.NewRegistry()
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	for trial := 0; trial < cfg.NumTrials; trial++ {
		params := make(map[string]float64, len(cfg.Params))
		for _, name := range cfg.Params {
			params[name] = nominal[name] * (1 + (rng.Float64()-0.5)*2*cfg.Perturbation)
		}

		v, err := buildVehicle(base, registry, params)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}

		s := sim.New(logger.With().Int("trial", trial).Logger())
		s.AddMetric(mustMetric(registry, "max_altitude"))
		result, err := s.Run(ctx, v, sim.Config{Duration: base.Duration, SampleEvery: base.SampleEvery})
		if err != nil {
			return nil, err
		}

		maxAlt := result.Metrics["max_altitude"]
		results = append(results, MonteCarloResult{
			TrialID:     trial,
			Params:      params,
			MaxAltitude: maxAlt,
			FinalStage:  v.Snapshot().Stage,
			Failures:    result.Failures,
			Nominal:     result.Failures == 0 && !math.IsNaN(maxAlt) && !math.IsInf(maxAlt, 0),
		})

		if (trial+1)%10 == 0 {
			fmt.Fprintf(progress, "Monte Carlo: %d/%d trials complete\n", trial+1, cfg.NumTrials)
		}
	}

	return results, nil
}

func MonteCarloStats(results []MonteCarloResult) (nominalCount int, offNominalCount int) {
	for _, r := range results {
		if r.Nominal {
			nominalCount++
		} else {
			offNominalCount++
		}
	}
	return
}

// Dispersion summarises the apex altitude over the nominal trials.
type Dispersion struct {
	Trials      int
	Nominal     int
	OffNominal  int
	MeanApex    float64
	StdDevApex  float64
	LowestApex  float64
	HighestApex float64
}

func Summarize(results []MonteCarloResult) Dispersion {
	d := Dispersion{Trials: len(results)}
	d.Nominal, d.OffNominal = MonteCarloStats(results)

	apex := make([]float64, 0, d.Nominal)
	for _, r := range results {
		if r.Nominal {
			apex = append(apex, r.MaxAltitude)
		}
	}
	if len(apex) == 0 {
		return d
	}
	d.MeanApex, d.StdDevApex = stat.MeanStdDev(apex, nil)
	if len(apex) == 1 {
		d.StdDevApex = 0
	}
	d.LowestApex = floats.Min(apex)
	d.HighestApex = floats.Max(apex)
	return d
}
