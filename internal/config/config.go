package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/SGBon/BMKSA/internal/dynamo"
	"github.com/SGBon/BMKSA/internal/physics"
	"github.com/SGBon/BMKSA/internal/vehicle"
	"gopkg.in/yaml.v3"
)

const (
	DefaultStepper   = "rk45"
	DefaultTolerance = 1e-6
	DefaultFixedStep = 0.01
	DefaultDuration  = 100.0
)

// Steppers lists the accepted stepper names.
var Steppers = []string{"rk45", "rk4", "euler"}

type Config struct {
	Stepper     string        `yaml:"stepper"`
	Tolerance   float64       `yaml:"tolerance"`
	FixedStep   float64       `yaml:"fixed_step"`
	Duration    float64       `yaml:"duration"`
	SampleEvery int           `yaml:"sample_every"`
	StopAtStage int           `yaml:"stop_at_stage"`
	Vehicle     VehicleConfig `yaml:"vehicle"`
	Source      SourceConfig  `yaml:"source"`
}

type StageConfig struct {
	Empty  float64 `yaml:"empty"`
	Fuel   float64 `yaml:"fuel"`
	Height float64 `yaml:"height"`
}

type PayloadConfig struct {
	Mass   float64 `yaml:"mass"`
	Height float64 `yaml:"height"`
}

type VehicleConfig struct {
	Dt             float64       `yaml:"dt"`
	Stage1         StageConfig   `yaml:"stage1"`
	Stage2         StageConfig   `yaml:"stage2"`
	Payload        PayloadConfig `yaml:"payload"`
	Radius         float64       `yaml:"radius"`
	PitchTime      float64       `yaml:"pitch_time"`
	PitchAngle     float64       `yaml:"pitch_angle_deg"`
	TargetAltitude float64       `yaml:"target_altitude"`
}

// SourceConfig is the attracting body. It sits directly below the pad.
type SourceConfig struct {
	Mass   float64 `yaml:"mass"`
	Radius float64 `yaml:"radius"`
}

func DefaultConfig() *Config {
	p := vehicle.DefaultParams()
	return &Config{
		Stepper:   DefaultStepper,
		Tolerance: DefaultTolerance,
		FixedStep: DefaultFixedStep,
		Duration:  DefaultDuration,
		Vehicle:   fromParams(p),
		Source: SourceConfig{
			Mass:   physics.EarthMass,
			Radius: physics.EarthRadius,
		},
	}
}

func fromParams(p vehicle.Params) VehicleConfig {
	return VehicleConfig{
		Dt:             p.DT,
		Stage1:         StageConfig{Empty: p.Stage1Empty, Fuel: p.Stage1Fuel, Height: p.Stage1Height},
		Stage2:         StageConfig{Empty: p.Stage2Empty, Fuel: p.Stage2Fuel, Height: p.Stage2Height},
		Payload:        PayloadConfig{Mass: p.PayloadMass, Height: p.PayloadHeight},
		Radius:         p.Radius,
		PitchTime:      p.PitchTime,
		PitchAngle:     p.PitchAngle * 180 / math.Pi,
		TargetAltitude: p.TargetAltitude,
	}
}

// Params converts the vehicle section to kernel units.
func (c *Config) Params() vehicle.Params {
	v := c.Vehicle
	return vehicle.Params{
		DT:             v.Dt,
		Stage1Empty:    v.Stage1.Empty,
		Stage1Fuel:     v.Stage1.Fuel,
		Stage1Height:   v.Stage1.Height,
		Stage2Empty:    v.Stage2.Empty,
		Stage2Fuel:     v.Stage2.Fuel,
		Stage2Height:   v.Stage2.Height,
		PayloadMass:    v.Payload.Mass,
		PayloadHeight:  v.Payload.Height,
		Radius:         v.Radius,
		PitchTime:      v.PitchTime,
		PitchAngle:     v.PitchAngle * math.Pi / 180,
		TargetAltitude: v.TargetAltitude,
	}
}

func (c *Config) SourceBody() physics.Source {
	return physics.Source{
		Position: [3]float64{0, -c.Source.Radius, 0},
		Mass:     c.Source.Mass,
		Radius:   c.Source.Radius,
	}
}

// SetParams applies a vehicle parameter map such as a sweep point.
func (c *Config) SetParams(values map[string]float64) error {
	p := c.Params()
	for name, v := range values {
		if err := p.SetParam(name, v); err != nil {
			return err
		}
	}
	c.Vehicle = fromParams(p)
	return nil
}

func (c *Config) Validate() error {
	known := false
	for _, s := range Steppers {
		if c.Stepper == s {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("unknown stepper %q: %w", c.Stepper, dynamo.ErrInvalidConfig)
	}
	if c.Stepper == "rk45" && !(c.Tolerance > 0) {
		return fmt.Errorf("tolerance must be positive for adaptive stepping, got %g: %w", c.Tolerance, dynamo.ErrInvalidConfig)
	}
	if c.Stepper != "rk45" && !(c.FixedStep > 0) {
		return fmt.Errorf("fixed_step must be positive, got %g: %w", c.FixedStep, dynamo.ErrInvalidConfig)
	}
	if !(c.Duration > 0) || math.IsInf(c.Duration, 0) {
		return fmt.Errorf("duration must be positive, got %f: %w", c.Duration, dynamo.ErrInvalidConfig)
	}
	if c.SampleEvery < 0 {
		return fmt.Errorf("sample_every must not be negative: %w", dynamo.ErrInvalidConfig)
	}
	if c.StopAtStage < 0 || c.StopAtStage > 3 {
		return fmt.Errorf("stop_at_stage must be 0..3, got %d: %w", c.StopAtStage, dynamo.ErrInvalidConfig)
	}
	if !(c.Source.Mass > 0) || !(c.Source.Radius > 0) {
		return fmt.Errorf("source mass and radius must be positive: %w", dynamo.ErrInvalidConfig)
	}
	return c.Params().Validate()
}

// Load reads a YAML file over the defaults and validates the result.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
