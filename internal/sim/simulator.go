package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/SGBon/BMKSA/internal/dynamo"
	"github.com/rs/zerolog"
)

// Vehicle is anything the runner can tick.
type Vehicle interface {
	Step()
	Snapshot() dynamo.Sample
	Events() []dynamo.StageEvent
	Failures() int
	TickLength() float64
}

type Config struct {
	Duration float64
	// SampleEvery keeps every Nth tick in the result. Zero keeps all.
	SampleEvery int
	// StopAtStage ends the run once the vehicle reaches it. Zero never stops.
	StopAtStage int
}

type Simulator struct {
	metrics   []dynamo.Metric
	observers []dynamo.Observer
	logger    zerolog.Logger
}

func New(logger zerolog.Logger) *Simulator {
	return &Simulator{
		metrics:   make([]dynamo.Metric, 0),
		observers: make([]dynamo.Observer, 0),
		logger:    logger,
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// Ticks is the number of ticks a run of cfg.Duration takes.
func Ticks(v Vehicle, cfg Config) int {
	return int(math.Round(cfg.Duration / v.TickLength()))
}

// Run ticks v until cfg.Duration has elapsed. Cancellation is checked
// between ticks; on cancel the partial result is returned with ctx.Err().
func (s *Simulator) Run(ctx context.Context, v Vehicle, cfg Config) (*dynamo.Result, error) {
	if err := s.validateConfig(v, cfg); err != nil {
		return nil, err
	}

	steps := Ticks(v, cfg)
	every := cfg.SampleEvery
	if every <= 0 {
		every = 1
	}
	result := &dynamo.Result{
		Samples: make([]dynamo.Sample, 0, steps/every+2),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	first := v.Snapshot()
	s.observe(first)
	result.Samples = append(result.Samples, first)

	s.logger.Debug().Int("ticks", steps).Float64("duration", cfg.Duration).Msg("run started")

	var last dynamo.Sample
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			s.finish(v, result)
			return result, ctx.Err()
		default:
		}

		v.Step()
		result.TicksTaken++

		last = v.Snapshot()
		s.observe(last)
		for _, obs := range s.observers {
			obs.OnTick(last)
		}
		if (i+1)%every == 0 {
			result.Samples = append(result.Samples, last)
		}

		if cfg.StopAtStage > 0 && last.Stage >= cfg.StopAtStage {
			s.logger.Debug().Int("stage", last.Stage).Float64("t", last.Time).Msg("stop stage reached")
			break
		}
	}

	if n := len(result.Samples); result.TicksTaken > 0 && result.Samples[n-1].Time != last.Time {
		result.Samples = append(result.Samples, last)
	}

	s.finish(v, result)
	return result, nil
}

func (s *Simulator) observe(sample dynamo.Sample) {
	for _, m := range s.metrics {
		m.Observe(sample)
	}
}

func (s *Simulator) finish(v Vehicle, result *dynamo.Result) {
	result.Events = v.Events()
	result.Failures = v.Failures()
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	if result.Failures > 0 {
		s.logger.Warn().Int("failures", result.Failures).Msg("run finished with failed updates")
	}
}

func (s *Simulator) validateConfig(v Vehicle, cfg Config) error {
	if dt := v.TickLength(); dt <= 0 || math.IsNaN(dt) {
		return fmt.Errorf("dt must be positive, got %f: %w", dt, dynamo.ErrInvalidConfig)
	}
	if cfg.Duration <= 0 || math.IsNaN(cfg.Duration) || math.IsInf(cfg.Duration, 0) {
		return fmt.Errorf("duration must be positive, got %f: %w", cfg.Duration, dynamo.ErrInvalidConfig)
	}
	if cfg.SampleEvery < 0 {
		return fmt.Errorf("sample interval must not be negative, got %d: %w", cfg.SampleEvery, dynamo.ErrInvalidConfig)
	}
	if cfg.StopAtStage < 0 || cfg.StopAtStage > 3 {
		return fmt.Errorf("stop stage must be 0..3, got %d: %w", cfg.StopAtStage, dynamo.ErrInvalidConfig)
	}
	return nil
}

// RunWithCallback ticks v and hands every sample, starting with the initial
// one, to callback. Returning false stops the run.
func (s *Simulator) RunWithCallback(ctx context.Context, v Vehicle, cfg Config, callback func(dynamo.Sample) bool) error {
	if err := s.validateConfig(v, cfg); err != nil {
		return err
	}

	if !callback(v.Snapshot()) {
		return nil
	}
	for i, steps := 0, Ticks(v, cfg); i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		v.Step()
		if !callback(v.Snapshot()) {
			return nil
		}
	}
	return nil
}
