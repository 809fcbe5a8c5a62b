package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is a right-hand side dx/dt = f(x, t). Implementations must not
// retain or mutate x.
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Integrator advances a system by one fixed step.
type Integrator interface {
	Step(sys System, x State, t, dt float64) State
}

// Stepper advances a system across an interval of arbitrary length,
// subdividing it as needed. Reset discards any step-size history, which
// callers must do whenever the right-hand side changes discontinuously.
type Stepper interface {
	Advance(sys System, x State, t, dt float64) (State, error)
	Reset()
}

// AdaptiveIntegrator is a Stepper that also exposes single trial steps with
// an error estimate.
type AdaptiveIntegrator interface {
	Integrator
	Stepper
	StepAdaptive(sys System, x State, t, h, tol float64) (State, float64, error)
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnTick(s Sample)
}

// Sample is a read-only snapshot of a vehicle after one tick.
type Sample struct {
	Time     float64
	Stage    int
	Position [3]float64
	Momentum [3]float64
	Angular  [3]float64
	Mass     float64
	Altitude float64
	Speed    float64
	Thrust   float64
	Drift    float64
}

// Row returns the sample in archive column order:
// time, position, linear momentum, angular momentum, mass, stage.
func (s Sample) Row() []float64 {
	return []float64{
		s.Time,
		s.Position[0], s.Position[1], s.Position[2],
		s.Momentum[0], s.Momentum[1], s.Momentum[2],
		s.Angular[0], s.Angular[1], s.Angular[2],
		s.Mass,
		float64(s.Stage),
	}
}

type Result struct {
	Samples    []Sample
	Events     []StageEvent
	Metrics    map[string]float64
	TicksTaken int
	Failures   int
}

// StageEvent records one staging transition.
type StageEvent struct {
	From int     `json:"from"`
	To   int     `json:"to"`
	Time float64 `json:"time"`
	Mass float64 `json:"mass"`
}

func (e StageEvent) String() string {
	return fmt.Sprintf("stage %d -> %d at t=%.2fs (mass %.1f kg)", e.From, e.To, e.Time, e.Mass)
}
