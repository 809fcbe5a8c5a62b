package physics

import (
	"fmt"
	"math"

	"github.com/SGBon/BMKSA/internal/dynamo"
	"github.com/SGBon/BMKSA/internal/integrators"
	"github.com/SGBon/BMKSA/internal/mathutil"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

// State layout.
const (
	StateSize = 19

	idxPosition = 0
	idxRotation = 3
	idxLinear   = 12
	idxAngular  = 15
	idxMass     = 18
)

// Propulsion and drag constants, modelled on a Merlin 1D cluster and a
// single Merlin vacuum engine. Flows are negative: mass is consumed.
const (
	Stage1Flow = -273.6 * 9
	VacuumFlow = -273.6

	SeaLevelIsp = 281.8
	VacuumIsp   = 307.4
	Stage2Isp   = 348.0

	StandardGravity = 9.81
	DragCoefficient = -0.05

	// Karman line; the Isp blend saturates above it.
	atmosphereTop = 100000.0
)

// Regime selects how specific impulse is computed.
//
// RegimeSeaLevel, the launch regime, uses the constant Stage2Isp.
// RegimeVacuum, entered by NextStage, blends SeaLevelIsp to VacuumIsp by
// altitude across the atmosphere. The names follow the staging flag rather
// than the Isp each branch applies.
type Regime int

const (
	RegimeSeaLevel Regime = iota
	RegimeVacuum
)

func (r Regime) String() string {
	if r == RegimeVacuum {
		return "vacuum"
	}
	return "sea-level"
}

// RigidBody is a single rigid body driven by gravity, thrust and drag.
type RigidBody struct {
	state dynamo.State
	time  float64

	thrustDir mgl64.Vec3
	inertia   mgl64.Vec3
	com       mgl64.Vec3
	flow      float64
	maxFlow   float64
	regime    Regime

	source  Source
	stepper dynamo.Stepper
	logger  zerolog.Logger

	updates  int
	failures int
}

type Option func(*RigidBody)

func WithSource(s Source) Option {
	return func(b *RigidBody) { b.source = s }
}

// WithStepper replaces the default adaptive RK45 stepper.
func WithStepper(s dynamo.Stepper) Option {
	return func(b *RigidBody) {
		if s != nil {
			b.stepper = s
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(b *RigidBody) { b.logger = l }
}

// NewRigidBody creates a body at rest at the origin with identity rotation,
// thrust pointing up and full stage-1 flow. Principal moments start at one
// until the owner pushes real values.
func NewRigidBody(mass, t0 float64, opts ...Option) *RigidBody {
	b := &RigidBody{
		state:     make(dynamo.State, StateSize),
		time:      t0,
		thrustDir: mgl64.Vec3{0, 1, 0},
		inertia:   mgl64.Vec3{1, 1, 1},
		flow:      Stage1Flow,
		maxFlow:   Stage1Flow,
		regime:    RegimeSeaLevel,
		source:    Earth(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.stepper == nil {
		b.stepper = integrators.NewRK45()
	}

	mathutil.PutRowMajor(b.state[idxRotation:idxRotation+9], mgl64.Ident3())
	b.state[idxMass] = mass
	return b
}

func (b *RigidBody) StateDim() int { return StateSize }

// Derive is the force and torque model. It reads the body's configuration
// but never mutates it.
func (b *RigidBody) Derive(y dynamo.State, _ float64) dynamo.State {
	pos := vec3(y, idxPosition)
	rot := mathutil.FromRowMajor(y[idxRotation : idxRotation+9])
	p := vec3(y, idxLinear)
	l := vec3(y, idxAngular)
	m := y[idxMass]

	toSource := b.source.Position.Sub(pos)
	dist := toSource.Len()
	gravity := toSource.Mul(mathutil.GravitationalConstant * m * b.source.Mass / (dist * dist * dist))

	thrust := b.thrustDir.Mul(-StandardGravity * b.flow * b.specificImpulse(dist))
	drag := p.Mul(DragCoefficient / m)
	force := thrust.Add(drag)

	base := mgl64.Vec3{b.com[0], 0, b.com[2]}
	lever := rot.Transpose().Mul3x1(b.com.Sub(base))
	torque := lever.Cross(force)

	// gravity acts at the centre of mass and adds no torque
	force = force.Add(gravity)

	invI := mgl64.Diag3(mgl64.Vec3{1 / b.inertia[0], 1 / b.inertia[1], 1 / b.inertia[2]})
	omega := rot.Mul3(invI).Mul3(rot.Transpose()).Mul3x1(l)
	dRot := mathutil.Star(omega).Mul3(rot)

	dy := make(dynamo.State, StateSize)
	putVec3(dy, idxPosition, p.Mul(1/m))
	mathutil.PutRowMajor(dy[idxRotation:idxRotation+9], dRot)
	putVec3(dy, idxLinear, force)
	putVec3(dy, idxAngular, torque)
	dy[idxMass] = b.flow
	return dy
}

func (b *RigidBody) specificImpulse(dist float64) float64 {
	if b.regime != RegimeVacuum {
		return Stage2Isp
	}
	f := mathutil.Clamp(mathutil.Normalize(dist-b.source.Radius, 0, atmosphereTop), 0, 1)
	return SeaLevelIsp + f*(VacuumIsp-SeaLevelIsp)
}

// Update advances the body by dt. The clock always moves by dt; on failure
// the state keeps its last good value and a *dynamo.SimulationError is
// returned.
func (b *RigidBody) Update(dt float64) error {
	t0 := b.time
	step := b.updates
	b.updates++
	if !math.IsNaN(dt) && !math.IsInf(dt, 0) {
		b.time += dt
	}

	next, err := b.stepper.Advance(b, b.state, t0, dt)
	if err != nil {
		b.failures++
		b.logger.Warn().
			Err(err).
			Int("update", step).
			Float64("t", t0).
			Float64("dt", dt).
			Str("class", dynamo.Describe(err)).
			Msg("rigid body update failed, keeping last state")
		return &dynamo.SimulationError{
			Step:    step,
			Time:    t0,
			State:   b.state.Clone(),
			Wrapped: fmt.Errorf("update %d: %w", step, err),
		}
	}
	b.state = next
	return nil
}

// SetThrustDirection replaces the world-frame thrust direction and resets
// the stepper's step-size history.
func (b *RigidBody) SetThrustDirection(dir mgl64.Vec3) {
	b.thrustDir = dir
	b.stepper.Reset()
}

// UpdateInertiaTensor replaces the principal moments and resets the
// stepper's step-size history.
func (b *RigidBody) UpdateInertiaTensor(diag mgl64.Vec3) {
	b.inertia = diag
	b.stepper.Reset()
}

// SetCentreOfMass replaces the body-frame centre of mass used for torque.
func (b *RigidBody) SetCentreOfMass(offset mgl64.Vec3) {
	b.com = offset
}

// Throttle sets the flow to fraction × max flow, clamping fraction to [0, 1].
func (b *RigidBody) Throttle(fraction float64) {
	b.flow = mathutil.Clamp(fraction, 0, 1) * b.maxFlow
	b.stepper.Reset()
}

// NextStage jettisons down to newMass and switches to the vacuum engine.
// The regime change is permanent.
func (b *RigidBody) NextStage(newMass float64) {
	b.regime = RegimeVacuum
	b.flow = VacuumFlow
	b.maxFlow = VacuumFlow
	b.state[idxMass] = newMass
	b.stepper.Reset()
	b.logger.Debug().Float64("t", b.time).Float64("mass", newMass).Msg("stage jettisoned")
}

func (b *RigidBody) Mass() float64 { return b.state[idxMass] }

// State returns a copy of the full state.
func (b *RigidBody) State() dynamo.State { return b.state.Clone() }

func (b *RigidBody) Position() mgl64.Vec3 { return vec3(b.state, idxPosition) }

func (b *RigidBody) Rotation() mgl64.Mat3 {
	return mathutil.FromRowMajor(b.state[idxRotation : idxRotation+9])
}

func (b *RigidBody) LinearMomentum() mgl64.Vec3  { return vec3(b.state, idxLinear) }
func (b *RigidBody) AngularMomentum() mgl64.Vec3 { return vec3(b.state, idxAngular) }

// Velocity is linear momentum over mass.
func (b *RigidBody) Velocity() mgl64.Vec3 {
	return b.LinearMomentum().Mul(1 / b.Mass())
}

func (b *RigidBody) ThrustDirection() mgl64.Vec3 { return b.thrustDir }
func (b *RigidBody) InertiaTensor() mgl64.Vec3   { return b.inertia }
func (b *RigidBody) CentreOfMass() mgl64.Vec3    { return b.com }
func (b *RigidBody) MassFlow() float64           { return b.flow }
func (b *RigidBody) Regime() Regime              { return b.regime }
func (b *RigidBody) Time() float64               { return b.time }
func (b *RigidBody) Source() Source              { return b.source }

// Failures counts updates that kept the previous state.
func (b *RigidBody) Failures() int { return b.failures }

// Thrust is the current thrust magnitude in newtons.
func (b *RigidBody) Thrust() float64 {
	return -StandardGravity * b.flow * b.specificImpulse(b.Position().Sub(b.source.Position).Len())
}

func vec3(s dynamo.State, at int) mgl64.Vec3 {
	return mgl64.Vec3{s[at], s[at+1], s[at+2]}
}

func putVec3(s dynamo.State, at int, v mgl64.Vec3) {
	s[at], s[at+1], s[at+2] = v[0], v[1], v[2]
}
