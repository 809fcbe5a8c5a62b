package vehicle

import (
	"fmt"
	"math"
	"sort"

	"github.com/SGBon/BMKSA/internal/dynamo"
)

// Params describe the stack and its tick length. Masses in kg, lengths in m,
// angles in radians, times in s.
type Params struct {
	DT float64

	Stage1Empty  float64
	Stage1Fuel   float64
	Stage1Height float64

	Stage2Empty  float64
	Stage2Fuel   float64
	Stage2Height float64

	PayloadMass   float64
	PayloadHeight float64

	Radius float64

	PitchTime  float64
	PitchAngle float64

	TargetAltitude float64
}

// DefaultParams is a Falcon 9 sized two-stage vehicle.
func DefaultParams() Params {
	return Params{
		DT:             0.1,
		Stage1Empty:    22200,
		Stage1Fuel:     411000,
		Stage1Height:   41.2,
		Stage2Empty:    4000,
		Stage2Fuel:     107500,
		Stage2Height:   12.6,
		PayloadMass:    13150,
		PayloadHeight:  13.1,
		Radius:         1.83,
		PitchTime:      20,
		PitchAngle:     10 * math.Pi / 180,
		TargetAltitude: 2000000,
	}
}

// UpperMass is the stage-2 plus payload block carried by stage 1.
func (p Params) UpperMass() float64 {
	return p.Stage2Empty + p.Stage2Fuel + p.PayloadMass
}

func (p Params) TotalMass() float64 {
	return p.Stage1Empty + p.Stage1Fuel + p.UpperMass()
}

func (p Params) Validate() error {
	for name, v := range p.GetParams() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s is not finite: %w", name, dynamo.ErrInvalidConfig)
		}
	}
	positive := map[string]float64{
		"dt":             p.DT,
		"stage1_empty":   p.Stage1Empty,
		"stage1_height":  p.Stage1Height,
		"stage2_empty":   p.Stage2Empty,
		"stage2_height":  p.Stage2Height,
		"payload_mass":   p.PayloadMass,
		"payload_height": p.PayloadHeight,
		"radius":         p.Radius,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %g: %w", name, v, dynamo.ErrInvalidConfig)
		}
	}
	if p.Stage1Fuel < 0 || p.Stage2Fuel < 0 {
		return fmt.Errorf("fuel masses must not be negative: %w", dynamo.ErrInvalidConfig)
	}
	if p.PitchTime < 0 {
		return fmt.Errorf("pitch_time must not be negative, got %g: %w", p.PitchTime, dynamo.ErrInvalidConfig)
	}
	if p.TargetAltitude <= 0 {
		return fmt.Errorf("target_altitude must be positive, got %g: %w", p.TargetAltitude, dynamo.ErrInvalidConfig)
	}
	return nil
}

func (p Params) GetParams() map[string]float64 {
	return map[string]float64{
		"dt":              p.DT,
		"stage1_empty":    p.Stage1Empty,
		"stage1_fuel":     p.Stage1Fuel,
		"stage1_height":   p.Stage1Height,
		"stage2_empty":    p.Stage2Empty,
		"stage2_fuel":     p.Stage2Fuel,
		"stage2_height":   p.Stage2Height,
		"payload_mass":    p.PayloadMass,
		"payload_height":  p.PayloadHeight,
		"radius":          p.Radius,
		"pitch_time":      p.PitchTime,
		"pitch_angle":     p.PitchAngle,
		"target_altitude": p.TargetAltitude,
	}
}

func (p *Params) SetParam(name string, value float64) error {
	switch name {
	case "dt":
		p.DT = value
	case "stage1_empty":
		p.Stage1Empty = value
	case "stage1_fuel":
		p.Stage1Fuel = value
	case "stage1_height":
		p.Stage1Height = value
	case "stage2_empty":
		p.Stage2Empty = value
	case "stage2_fuel":
		p.Stage2Fuel = value
	case "stage2_height":
		p.Stage2Height = value
	case "payload_mass":
		p.PayloadMass = value
	case "payload_height":
		p.PayloadHeight = value
	case "radius":
		p.Radius = value
	case "pitch_time":
		p.PitchTime = value
	case "pitch_angle":
		p.PitchAngle = value
	case "target_altitude":
		p.TargetAltitude = value
	default:
		return fmt.Errorf("unknown parameter %q: %w", name, dynamo.ErrInvalidConfig)
	}
	return nil
}

// ParamNames lists the names accepted by SetParam.
func ParamNames() []string {
	m := DefaultParams().GetParams()
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
