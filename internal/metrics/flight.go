package metrics

import (
	"math"

	"github.com/SGBon/BMKSA/internal/dynamo"
)

// MaxAltitude is the highest altitude seen, in metres.
type MaxAltitude struct {
	name    string
	max     float64
	samples int
}

func NewMaxAltitude() *MaxAltitude {
	return &MaxAltitude{name: "max_altitude"}
}

func (m *MaxAltitude) Name() string { return m.name }

func (m *MaxAltitude) Observe(s dynamo.Sample) {
	if m.samples == 0 || s.Altitude > m.max {
		m.max = s.Altitude
	}
	m.samples++
}

func (m *MaxAltitude) Value() float64 { return m.max }

func (m *MaxAltitude) Reset() {
	m.max = 0
	m.samples = 0
}

type MaxSpeed struct {
	name string
	max  float64
}

func NewMaxSpeed() *MaxSpeed {
	return &MaxSpeed{name: "max_speed"}
}

func (m *MaxSpeed) Name() string { return m.name }

func (m *MaxSpeed) Observe(s dynamo.Sample) {
	m.max = math.Max(m.max, s.Speed)
}

func (m *MaxSpeed) Value() float64 { return m.max }
func (m *MaxSpeed) Reset()         { m.max = 0 }

// OrbitalFraction is the peak speed as a fraction of the target circular
// speed.
type OrbitalFraction struct {
	name   string
	target float64
	max    float64
}

func NewOrbitalFraction(target float64) *OrbitalFraction {
	return &OrbitalFraction{name: "orbital_fraction", target: target}
}

func (o *OrbitalFraction) Name() string { return o.name }

func (o *OrbitalFraction) Observe(s dynamo.Sample) {
	o.max = math.Max(o.max, s.Speed)
}

func (o *OrbitalFraction) Value() float64 {
	if o.target <= 0 {
		return 0
	}
	return o.max / o.target
}

func (o *OrbitalFraction) Reset() { o.max = 0 }
