package physics_test

import (
	"bytes"
	"math"

	"github.com/SGBon/BMKSA/internal/dynamo"
	"github.com/SGBon/BMKSA/internal/mathutil"
	"github.com/SGBon/BMKSA/internal/physics"
	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
)

// spyStepper records resets and can be told to fail.
type spyStepper struct {
	resets int
	fail   error
}

func (s *spyStepper) Advance(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	if s.fail != nil {
		return x, s.fail
	}
	return x.Clone(), nil
}

func (s *spyStepper) Reset() { s.resets++ }

const mass = 100000.0

var _ = Describe("RigidBody", func() {
	var body *physics.RigidBody

	BeforeEach(func() {
		body = physics.NewRigidBody(mass, 2.5)
	})

	Describe("construction", func() {
		It("starts at rest with identity orientation", func() {
			Expect(body.Mass()).To(Equal(mass))
			Expect(body.Time()).To(Equal(2.5))
			Expect(body.Position()).To(Equal(mgl64.Vec3{}))
			Expect(body.LinearMomentum()).To(Equal(mgl64.Vec3{}))
			Expect(body.AngularMomentum()).To(Equal(mgl64.Vec3{}))
			Expect(body.ThrustDirection()).To(Equal(mgl64.Vec3{0, 1, 0}))
			Expect(body.Regime()).To(Equal(physics.RegimeSeaLevel))
			Expect(body.MassFlow()).To(Equal(physics.Stage1Flow))
			Expect(body.State()).To(HaveLen(physics.StateSize))
		})

		It("has an orthonormal rotation", func() {
			r := body.Rotation()
			Expect(r.Det()).To(BeNumerically("~", 1, 1e-12))
			Expect(mathutil.Orthonormality(r)).To(BeNumerically("<", 1e-12))
			for i := 0; i < 3; i++ {
				Expect(r.Row(i).Len()).To(BeNumerically("~", 1, 1e-12))
				Expect(r.Col(i).Len()).To(BeNumerically("~", 1, 1e-12))
			}
		})

		It("returns a copy of its state", func() {
			s := body.State()
			s[0] = 99
			Expect(body.Position()[0]).To(Equal(0.0))
		})
	})

	Describe("pure inertia", func() {
		It("stays put with no thrust, no flow and a distant source", func() {
			far := physics.Source{
				Position: mgl64.Vec3{0, -1e30, 0},
				Mass:     physics.EarthMass,
				Radius:   physics.EarthRadius,
			}
			body = physics.NewRigidBody(mass, 0, physics.WithSource(far))
			body.SetThrustDirection(mgl64.Vec3{})
			body.Throttle(0)

			for i := 0; i < 100; i++ {
				Expect(body.Update(0.1)).To(Succeed())
			}

			Expect(body.Mass()).To(Equal(mass))
			for i := 0; i < 3; i++ {
				Expect(body.Position()[i]).To(BeNumerically("~", 0, 1e-12))
				Expect(body.LinearMomentum()[i]).To(BeNumerically("~", 0, 1e-12))
				Expect(body.AngularMomentum()[i]).To(BeNumerically("~", 0, 1e-12))
			}
			Expect(body.Time()).To(BeNumerically("~", 10, 1e-9))
		})
	})

	Describe("free fall", func() {
		It("accelerates at G·M/r² toward the source", func() {
			body.Throttle(0)
			src := physics.Earth()
			g := src.Acceleration(body.Position())
			Expect(g).To(BeNumerically("~", 9.82, 0.01))

			dt := 0.01
			Expect(body.Update(dt)).To(Succeed())

			v := body.Velocity()
			Expect(v[1]).To(BeNumerically("~", -g*dt, g*dt*1e-3))
			Expect(body.Position()[1]).To(BeNumerically("~", -0.5*g*dt*dt, 0.5*g*dt*dt*1e-3))
			Expect(v[0]).To(BeNumerically("~", 0, 1e-12))
			Expect(v[2]).To(BeNumerically("~", 0, 1e-12))
		})
	})

	Describe("throttle", func() {
		DescribeTable("clamps out-of-range input",
			func(input, equivalent float64) {
				a := physics.NewRigidBody(mass, 0)
				b := physics.NewRigidBody(mass, 0)
				a.Throttle(input)
				b.Throttle(equivalent)
				Expect(a.MassFlow()).To(Equal(b.MassFlow()))

				for i := 0; i < 5; i++ {
					Expect(a.Update(0.1)).To(Succeed())
					Expect(b.Update(0.1)).To(Succeed())
				}
				Expect(a.State()).To(Equal(b.State()))
			},
			Entry("below zero", -0.5, 0.0),
			Entry("far below zero", -1e9, 0.0),
			Entry("above one", 1.7, 1.0),
			Entry("far above one", 1e9, 1.0),
		)

		It("scales the configured max flow", func() {
			body.Throttle(0.5)
			Expect(body.MassFlow()).To(BeNumerically("~", 0.5*physics.Stage1Flow, 1e-9))
		})
	})

	Describe("burning", func() {
		It("never gains mass", func() {
			body = physics.NewRigidBody(500000, 0)
			body.UpdateInertiaTensor(mgl64.Vec3{1e7, 1e5, 1e7})

			prev := body.Mass()
			for i := 0; i < 50; i++ {
				Expect(body.Update(0.1)).To(Succeed())
				Expect(body.Mass()).To(BeNumerically("<", prev))
				prev = body.Mass()
			}
			Expect(body.Mass()).To(BeNumerically("~", 500000+physics.Stage1Flow*5, 1e-6))
		})

		It("keeps zero angular momentum while thrust runs through the centre of mass", func() {
			body.SetCentreOfMass(mgl64.Vec3{0, 20, 0})
			for i := 0; i < 10; i++ {
				Expect(body.Update(0.1)).To(Succeed())
			}
			Expect(body.AngularMomentum().Len()).To(BeNumerically("~", 0, 1e-9))
			Expect(body.Position()[1]).To(BeNumerically(">", 0))
		})

		It("builds angular momentum when thrust is off axis", func() {
			body.UpdateInertiaTensor(mgl64.Vec3{1e8, 1e6, 1e8})
			body.SetCentreOfMass(mgl64.Vec3{0, 20, 0})
			body.SetThrustDirection(mathutil.AxisRotation(0.1, mathutil.AxisZ).Mul3x1(mgl64.Vec3{0, 1, 0}))
			for i := 0; i < 10; i++ {
				Expect(body.Update(0.1)).To(Succeed())
			}
			l := body.AngularMomentum()
			Expect(l[2]).To(BeNumerically(">", 0))
			Expect(l[0]).To(BeNumerically("~", 0, 1e-9))
			Expect(l[1]).To(BeNumerically("~", 0, 1e-9))
		})
	})

	Describe("torque", func() {
		It("crosses the lever from the base to the centre of mass with the thrust", func() {
			dir := mathutil.AxisRotation(0.1, mathutil.AxisZ).Mul3x1(mgl64.Vec3{0, 1, 0})
			body.SetCentreOfMass(mgl64.Vec3{0, 20, 0})
			body.SetThrustDirection(dir)

			dy := body.Derive(body.State(), 0)
			want := mgl64.Vec3{0, 20, 0}.Cross(dir.Mul(body.Thrust()))
			Expect(want[2]).To(BeNumerically(">", 0))
			Expect(dy[17]).To(BeNumerically("~", want[2], 1e-6*math.Abs(want[2])))
			Expect(dy[15]).To(BeNumerically("~", 0, 1e-9))
			Expect(dy[16]).To(BeNumerically("~", 0, 1e-9))
		})

		It("ignores a centre of mass offset along x and z", func() {
			body.SetCentreOfMass(mgl64.Vec3{1.5, 0, -2})
			body.SetThrustDirection(mathutil.AxisRotation(0.1, mathutil.AxisZ).Mul3x1(mgl64.Vec3{0, 1, 0}))

			dy := body.Derive(body.State(), 0)
			Expect(mgl64.Vec3{dy[15], dy[16], dy[17]}.Len()).To(BeNumerically("~", 0, 1e-9))
		})
	})

	Describe("thruster regime", func() {
		It("uses the constant Isp before staging", func() {
			Expect(body.Thrust()).To(BeNumerically("~", -physics.StandardGravity*physics.Stage1Flow*physics.Stage2Isp, 1e-6))
		})

		It("switches to the altitude blend on NextStage and never leaves it", func() {
			body.NextStage(1234)
			Expect(body.Regime()).To(Equal(physics.RegimeVacuum))
			Expect(body.Mass()).To(Equal(1234.0))
			Expect(body.MassFlow()).To(Equal(physics.VacuumFlow))
			Expect(body.Thrust()).To(BeNumerically("~", -physics.StandardGravity*physics.VacuumFlow*physics.SeaLevelIsp, 1e-6))

			body.Throttle(1)
			Expect(body.Regime()).To(Equal(physics.RegimeVacuum))
			body.SetThrustDirection(mgl64.Vec3{1, 0, 0})
			Expect(body.Regime()).To(Equal(physics.RegimeVacuum))
			body.UpdateInertiaTensor(mgl64.Vec3{10, 10, 10})
			Expect(body.Update(0.1)).To(Succeed())
			Expect(body.Regime()).To(Equal(physics.RegimeVacuum))
			body.NextStage(1000)
			Expect(body.Regime()).To(Equal(physics.RegimeVacuum))
		})

		It("reaches vacuum Isp above the atmosphere", func() {
			high := physics.Source{Position: mgl64.Vec3{0, -physics.EarthRadius - 200000, 0}, Mass: physics.EarthMass, Radius: physics.EarthRadius}
			body = physics.NewRigidBody(mass, 0, physics.WithSource(high))
			body.NextStage(mass)
			Expect(body.Thrust()).To(BeNumerically("~", -physics.StandardGravity*physics.VacuumFlow*physics.VacuumIsp, 1e-6))
		})
	})

	Describe("stepper history", func() {
		var spy *spyStepper

		BeforeEach(func() {
			spy = &spyStepper{}
			body = physics.NewRigidBody(mass, 0, physics.WithStepper(spy))
		})

		It("resets when the right-hand side changes", func() {
			body.SetThrustDirection(mgl64.Vec3{0, 0, 1})
			Expect(spy.resets).To(Equal(1))
			body.UpdateInertiaTensor(mgl64.Vec3{2, 2, 2})
			Expect(spy.resets).To(Equal(2))
			body.NextStage(10)
			Expect(spy.resets).To(Equal(3))
		})

		It("does not reset for a new centre of mass", func() {
			body.SetCentreOfMass(mgl64.Vec3{0, 3, 0})
			Expect(spy.resets).To(Equal(0))
			Expect(body.CentreOfMass()).To(Equal(mgl64.Vec3{0, 3, 0}))
		})
	})

	Describe("failed updates", func() {
		It("keeps the last state, advances the clock and logs", func() {
			var logs bytes.Buffer
			spy := &spyStepper{fail: dynamo.ErrBadFunc}
			body = physics.NewRigidBody(mass, 0,
				physics.WithStepper(spy),
				physics.WithLogger(zerolog.New(&logs)),
			)
			before := body.State()

			err := body.Update(0.5)
			Expect(err).To(MatchError(dynamo.ErrBadFunc))

			var simErr *dynamo.SimulationError
			Expect(err).To(BeAssignableToTypeOf(simErr))
			Expect(body.State()).To(Equal(before))
			Expect(body.Time()).To(Equal(0.5))
			Expect(body.Failures()).To(Equal(1))
			Expect(logs.String()).To(ContainSubstring("rigid body update failed"))
			Expect(logs.String()).To(ContainSubstring("bad right-hand side"))

			spy.fail = nil
			Expect(body.Update(0.5)).To(Succeed())
			Expect(body.Time()).To(Equal(1.0))
		})

		It("classifies a non-positive interval as bad input", func() {
			err := body.Update(-1)
			Expect(err).To(MatchError(dynamo.ErrBadInput))
			Expect(body.Mass()).To(Equal(mass))
		})
	})
})
