package vehicle

import (
	"fmt"

	"github.com/SGBon/BMKSA/internal/dynamo"
	"github.com/SGBon/BMKSA/internal/mathutil"
	"github.com/SGBon/BMKSA/internal/physics"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

type Stage int

const (
	StageBooster Stage = iota + 1
	StageUpper
	StagePayload
)

func (s Stage) String() string {
	switch s {
	case StageBooster:
		return "booster"
	case StageUpper:
		return "upper"
	case StagePayload:
		return "payload"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// AscentPhase tracks the one-shot pitch-over during stage 1.
type AscentPhase int

const (
	AscentVertical AscentPhase = iota
	AscentPitched
)

func (a AscentPhase) String() string {
	if a == AscentPitched {
		return "pitched"
	}
	return "vertical"
}

var up = mgl64.Vec3{0, 1, 0}

// Vehicle is a three-stage launch vehicle wrapped around one rigid body.
type Vehicle struct {
	body   *physics.RigidBody
	params Params
	stage  Stage
	phase  AscentPhase

	upperInertia    mgl64.Vec3
	orbitalVelocity float64
	events          []dynamo.StageEvent

	logger  zerolog.Logger
	lastErr error
}

type options struct {
	logger  zerolog.Logger
	source  physics.Source
	stepper dynamo.Stepper
}

type Option func(*options)

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSource replaces the default Earth gravity source.
func WithSource(s physics.Source) Option {
	return func(o *options) { o.source = s }
}

func WithStepper(s dynamo.Stepper) Option {
	return func(o *options) { o.stepper = s }
}

// New builds a fully fuelled vehicle on the pad at t = 0. Mass properties
// are pushed to the body before the first tick.
func New(p Params, opts ...Option) (*Vehicle, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("vehicle params: %w", err)
	}

	o := options{logger: zerolog.Nop(), source: physics.Earth()}
	for _, opt := range opts {
		opt(&o)
	}

	bodyOpts := []physics.Option{
		physics.WithSource(o.source),
		physics.WithLogger(o.logger),
	}
	if o.stepper != nil {
		bodyOpts = append(bodyOpts, physics.WithStepper(o.stepper))
	}

	v := &Vehicle{
		body:            physics.NewRigidBody(p.TotalMass(), 0, bodyOpts...),
		params:          p,
		stage:           StageBooster,
		phase:           AscentVertical,
		upperInertia:    upperBlockInertia(p),
		orbitalVelocity: mathutil.OrbitalVelocity(o.source.Mass, o.source.Radius+p.TargetAltitude),
		logger:          o.logger,
	}
	v.updateMassProperties()
	return v, nil
}

// Step advances one tick: integrate, stage, steer, then refresh mass
// properties. A failed update keeps the last state and stepping goes on.
func (v *Vehicle) Step() {
	if err := v.body.Update(v.params.DT); err != nil {
		v.lastErr = err
	}

	v.checkStaging()

	if v.stage == StageBooster && v.phase == AscentVertical && v.body.Time() > v.params.PitchTime {
		v.pitchOver()
	}

	if v.stage < StagePayload {
		v.updateMassProperties()
	}
}

func (v *Vehicle) checkStaging() {
	p := v.params
	mass := v.body.Mass()

	switch v.stage {
	case StageBooster:
		if mass-p.Stage1Empty-p.UpperMass() <= 0 {
			v.advance(StageUpper, p.UpperMass())
		}
	case StageUpper:
		if mass-p.Stage2Empty <= 0 {
			v.advance(StagePayload, p.PayloadMass)
			v.body.Throttle(0)
			com, inertia := singleProperties(p.PayloadMass, p.Radius, p.PayloadHeight)
			v.body.SetCentreOfMass(com)
			v.body.UpdateInertiaTensor(inertia)
		}
	}
}

func (v *Vehicle) advance(to Stage, mass float64) {
	ev := dynamo.StageEvent{From: int(v.stage), To: int(to), Time: v.body.Time(), Mass: mass}
	v.body.NextStage(mass)
	v.stage = to
	v.events = append(v.events, ev)
	v.logger.Info().
		Int("from", ev.From).
		Int("to", ev.To).
		Float64("t", ev.Time).
		Float64("mass", mass).
		Float64("altitude", v.Altitude()).
		Msg("staging")
}

// pitchOver tilts thrust about +z, which leans the stack toward -x.
func (v *Vehicle) pitchOver() {
	dir := mathutil.AxisRotation(v.params.PitchAngle, mathutil.AxisZ).Mul3x1(up)
	v.body.SetThrustDirection(dir)
	v.phase = AscentPitched
	v.logger.Info().
		Float64("t", v.body.Time()).
		Float64("angle", v.params.PitchAngle).
		Msg("pitch-over")
}

func (v *Vehicle) updateMassProperties() {
	var com, inertia mgl64.Vec3
	switch v.stage {
	case StageBooster:
		com, inertia = stackProperties(v.params, v.body.Mass(), v.upperInertia)
	case StageUpper:
		com, inertia = singleProperties(v.body.Mass(), v.params.Radius, v.params.Stage2Height)
	default:
		return
	}
	v.body.SetCentreOfMass(com)
	v.body.UpdateInertiaTensor(inertia)
}

func (v *Vehicle) Position() mgl64.Vec3        { return v.body.Position() }
func (v *Vehicle) ThrustDirection() mgl64.Vec3 { return v.body.ThrustDirection() }
func (v *Vehicle) Orientation() mgl64.Mat3     { return v.body.Rotation() }
func (v *Vehicle) Stage() Stage                { return v.stage }
func (v *Vehicle) Time() float64               { return v.body.Time() }
func (v *Vehicle) Mass() float64               { return v.body.Mass() }
func (v *Vehicle) AscentPhase() AscentPhase    { return v.phase }
func (v *Vehicle) Params() Params              { return v.params }
func (v *Vehicle) TickLength() float64         { return v.params.DT }

func (v *Vehicle) Altitude() float64 {
	return v.body.Source().Altitude(v.body.Position())
}

func (v *Vehicle) Speed() float64 { return v.body.Velocity().Len() }

// TargetOrbitalVelocity is the circular speed at the target altitude.
func (v *Vehicle) TargetOrbitalVelocity() float64 { return v.orbitalVelocity }

func (v *Vehicle) CentreOfMass() mgl64.Vec3  { return v.body.CentreOfMass() }
func (v *Vehicle) InertiaTensor() mgl64.Vec3 { return v.body.InertiaTensor() }

// Events returns the staging transitions so far, oldest first.
func (v *Vehicle) Events() []dynamo.StageEvent {
	out := make([]dynamo.StageEvent, len(v.events))
	copy(out, v.events)
	return out
}

// Failures counts ticks whose update was discarded.
func (v *Vehicle) Failures() int { return v.body.Failures() }

// Err returns the most recent update failure, if any.
func (v *Vehicle) Err() error { return v.lastErr }

func (v *Vehicle) Snapshot() dynamo.Sample {
	pos := v.body.Position()
	p := v.body.LinearMomentum()
	l := v.body.AngularMomentum()
	return dynamo.Sample{
		Time:     v.body.Time(),
		Stage:    int(v.stage),
		Position: [3]float64{pos[0], pos[1], pos[2]},
		Momentum: [3]float64{p[0], p[1], p[2]},
		Angular:  [3]float64{l[0], l[1], l[2]},
		Mass:     v.body.Mass(),
		Altitude: v.Altitude(),
		Speed:    v.Speed(),
		Thrust:   v.body.Thrust(),
		Drift:    mathutil.Orthonormality(v.body.Rotation()),
	}
}
