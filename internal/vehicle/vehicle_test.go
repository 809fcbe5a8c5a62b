package vehicle_test

import (
	"bytes"
	"math"
	"strings"

	"github.com/SGBon/BMKSA/internal/dynamo"
	"github.com/SGBon/BMKSA/internal/mathutil"
	"github.com/SGBon/BMKSA/internal/physics"
	"github.com/SGBon/BMKSA/internal/vehicle"
	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
)

func newVehicle(p vehicle.Params, opts ...vehicle.Option) *vehicle.Vehicle {
	v, err := vehicle.New(p, opts...)
	Expect(err).NotTo(HaveOccurred())
	return v
}

// shortBurn empties both stages within a few seconds.
func shortBurn() vehicle.Params {
	p := vehicle.DefaultParams()
	p.Stage1Fuel = 5000
	p.Stage2Fuel = 1000
	return p
}

var _ = Describe("Vehicle", func() {
	Describe("construction", func() {
		It("starts fully fuelled in stage 1", func() {
			p := vehicle.DefaultParams()
			v := newVehicle(p)

			Expect(v.Stage()).To(Equal(vehicle.StageBooster))
			Expect(v.AscentPhase()).To(Equal(vehicle.AscentVertical))
			Expect(v.Time()).To(Equal(0.0))
			Expect(v.Mass()).To(Equal(557850.0))
			Expect(v.Mass()).To(Equal(p.TotalMass()))
			Expect(v.Events()).To(BeEmpty())
			Expect(v.ThrustDirection()).To(Equal(mgl64.Vec3{0, 1, 0}))
		})

		It("has an orthonormal orientation", func() {
			v := newVehicle(vehicle.DefaultParams())
			r := v.Orientation()
			Expect(r.Det()).To(BeNumerically("~", 1, 1e-12))
			Expect(mathutil.Orthonormality(r)).To(BeNumerically("<", 1e-12))
		})

		It("derives the circular speed at the target altitude", func() {
			v := newVehicle(vehicle.DefaultParams())
			Expect(v.TargetOrbitalVelocity()).To(BeNumerically("~", 6900, 5))
		})

		DescribeTable("rejects invalid params",
			func(name string, value float64) {
				p := vehicle.DefaultParams()
				Expect(p.SetParam(name, value)).To(Succeed())
				_, err := vehicle.New(p)
				Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
			},
			Entry("zero dt", "dt", 0.0),
			Entry("negative radius", "radius", -1.0),
			Entry("negative fuel", "stage2_fuel", -10.0),
			Entry("NaN payload", "payload_mass", math.NaN()),
			Entry("zero target", "target_altitude", 0.0),
		)

		It("refuses unknown parameter names", func() {
			p := vehicle.DefaultParams()
			Expect(p.SetParam("warp_factor", 9)).To(MatchError(dynamo.ErrInvalidConfig))
			Expect(vehicle.ParamNames()).To(ContainElement("payload_mass"))
		})
	})

	Describe("mass properties", func() {
		It("combines the booster and the upper block during stage 1", func() {
			p := vehicle.DefaultParams()
			v := newVehicle(p)

			m1 := p.Stage1Empty + p.Stage1Fuel
			m2 := p.UpperMass()
			y1 := p.Stage1Height / 2
			y2 := p.Stage1Height + (p.Stage2Height+p.PayloadHeight)/2
			yc := (m1*y1 + m2*y2) / (m1 + m2)

			com := v.CentreOfMass()
			Expect(com[0]).To(Equal(0.0))
			Expect(com[2]).To(Equal(0.0))
			Expect(com[1]).To(BeNumerically("~", yc, 1e-9))
			Expect(com[1]).To(BeNumerically(">", y1))
			Expect(com[1]).To(BeNumerically("<", y2))

			r := p.Radius
			h2 := p.Stage2Height + p.PayloadHeight
			transverse := m1*(3*r*r+p.Stage1Height*p.Stage1Height)/12 + m1*(y1-yc)*(y1-yc) +
				m2*(3*r*r+h2*h2)/12 + m2*(y2-yc)*(y2-yc)

			inertia := v.InertiaTensor()
			Expect(inertia[0]).To(BeNumerically("~", transverse, transverse*1e-12))
			Expect(inertia[2]).To(Equal(inertia[0]))
			// offsets along the axis add nothing about the axis itself
			Expect(inertia[1]).To(BeNumerically("~", (m1+m2)*r*r/2, 1e-6))
		})

		It("uses a single cylinder for each later stage", func() {
			p := shortBurn()
			v := newVehicle(p)
			for v.Stage() == vehicle.StageBooster {
				v.Step()
			}

			r := p.Radius
			h := p.Stage2Height
			m := v.Mass()
			Expect(v.CentreOfMass()).To(Equal(mgl64.Vec3{0, h / 2, 0}))
			Expect(v.InertiaTensor()[0]).To(BeNumerically("~", m*(3*r*r+h*h)/12, 1e-6))
			Expect(v.InertiaTensor()[1]).To(BeNumerically("~", m*r*r/2, 1e-6))

			for v.Stage() == vehicle.StageUpper {
				v.Step()
			}
			hp := p.PayloadHeight
			payload := mgl64.Vec3{
				p.PayloadMass * (3*r*r + hp*hp) / 12,
				p.PayloadMass * r * r / 2,
				p.PayloadMass * (3*r*r + hp*hp) / 12,
			}
			Expect(v.CentreOfMass()).To(Equal(mgl64.Vec3{0, hp / 2, 0}))
			Expect(v.InertiaTensor()).To(Equal(payload))

			for i := 0; i < 20; i++ {
				v.Step()
			}
			Expect(v.InertiaTensor()).To(Equal(payload))
		})
	})

	Describe("staging", func() {
		It("visits 1, 2, 3 in order, each transition once", func() {
			p := shortBurn()
			var logs bytes.Buffer
			v := newVehicle(p, vehicle.WithLogger(zerolog.New(&logs)))

			seen := []vehicle.Stage{v.Stage()}
			for i := 0; i < 1000; i++ {
				v.Step()
				if s := v.Stage(); s != seen[len(seen)-1] {
					seen = append(seen, s)
				}
			}

			Expect(seen).To(Equal([]vehicle.Stage{vehicle.StageBooster, vehicle.StageUpper, vehicle.StagePayload}))
			Expect(v.Mass()).To(Equal(p.PayloadMass))
			Expect(v.Failures()).To(BeZero())

			events := v.Events()
			Expect(events).To(HaveLen(2))
			Expect(events[0].From).To(Equal(1))
			Expect(events[0].To).To(Equal(2))
			Expect(events[0].Mass).To(Equal(p.UpperMass()))
			Expect(events[1].From).To(Equal(2))
			Expect(events[1].To).To(Equal(3))
			Expect(events[1].Mass).To(Equal(p.PayloadMass))
			Expect(events[1].Time).To(BeNumerically(">", events[0].Time))

			Expect(strings.Count(logs.String(), `"message":"staging"`)).To(Equal(2))
		})

		It("burns stage 2 down to its empty mass before the final staging", func() {
			p := shortBurn()
			v := newVehicle(p)
			for v.Stage() != vehicle.StageUpper {
				v.Step()
			}

			perTick := -physics.VacuumFlow * p.DT
			before := v.Mass()
			for v.Stage() == vehicle.StageUpper {
				before = v.Mass()
				v.Step()
			}

			Expect(before).To(BeNumerically(">", p.Stage2Empty))
			Expect(before - p.Stage2Empty).To(BeNumerically("<=", perTick+1e-6))
			Expect(v.Events()[1].Time).To(BeNumerically(">", (p.UpperMass()-p.Stage2Empty)/-physics.VacuumFlow))
		})

		It("coasts without burning after the last stage", func() {
			p := shortBurn()
			v := newVehicle(p)
			for v.Stage() != vehicle.StagePayload {
				v.Step()
			}
			for i := 0; i < 10; i++ {
				v.Step()
				Expect(v.Mass()).To(Equal(p.PayloadMass))
				Expect(v.Snapshot().Thrust).To(BeZero())
			}
		})

		It("never gains mass", func() {
			v := newVehicle(shortBurn())
			prev := v.Mass()
			for i := 0; i < 100; i++ {
				v.Step()
				Expect(v.Mass()).To(BeNumerically("<=", prev))
				prev = v.Mass()
			}
		})
	})

	Describe("ascent", func() {
		It("climbs for a hundred seconds at dt 0.1", func() {
			v := newVehicle(vehicle.DefaultParams())
			prev := v.Altitude()
			Expect(prev).To(BeNumerically("~", 0, 1e-6))

			for i := 0; i < 1000; i++ {
				v.Step()
				alt := v.Altitude()
				Expect(alt).To(BeNumerically(">", prev), "tick %d", i)
				prev = alt
			}

			Expect(v.Time()).To(BeNumerically("~", 100, 1e-9))
			Expect(v.Stage()).To(Equal(vehicle.StageBooster))
			Expect(v.Failures()).To(BeZero())
			Expect(v.Snapshot().Drift).To(BeNumerically("<", 1e-3))
		})

		It("pitches over exactly once after t = 20 s", func() {
			p := vehicle.DefaultParams()
			var logs bytes.Buffer
			v := newVehicle(p, vehicle.WithLogger(zerolog.New(&logs)))

			for i := 0; i < 195; i++ {
				v.Step()
			}
			Expect(v.AscentPhase()).To(Equal(vehicle.AscentVertical))
			Expect(v.ThrustDirection()).To(Equal(mgl64.Vec3{0, 1, 0}))

			for i := 0; i < 100; i++ {
				v.Step()
			}
			Expect(v.AscentPhase()).To(Equal(vehicle.AscentPitched))

			want := mathutil.AxisRotation(p.PitchAngle, mathutil.AxisZ).Mul3x1(mgl64.Vec3{0, 1, 0})
			Expect(v.ThrustDirection().ApproxEqual(want)).To(BeTrue())
			Expect(v.ThrustDirection()[0]).To(BeNumerically("<", 0))
			Expect(strings.Count(logs.String(), `"message":"pitch-over"`)).To(Equal(1))
		})
	})

	Describe("snapshot", func() {
		It("mirrors the accessors", func() {
			v := newVehicle(vehicle.DefaultParams())
			for i := 0; i < 10; i++ {
				v.Step()
			}
			s := v.Snapshot()
			pos := v.Position()
			Expect(s.Time).To(Equal(v.Time()))
			Expect(s.Stage).To(Equal(1))
			Expect(s.Position).To(Equal([3]float64{pos[0], pos[1], pos[2]}))
			Expect(s.Mass).To(Equal(v.Mass()))
			Expect(s.Altitude).To(Equal(v.Altitude()))
			Expect(s.Speed).To(Equal(v.Speed()))
			Expect(s.Thrust).To(BeNumerically("~", -physics.StandardGravity*physics.Stage1Flow*physics.Stage2Isp, 1e-6))
			Expect(s.Row()).To(HaveLen(12))
		})
	})

	Describe("gravity source", func() {
		It("accepts a custom body", func() {
			moon := physics.Source{Position: mgl64.Vec3{0, -1737400, 0}, Mass: 7.342e22, Radius: 1737400}
			v := newVehicle(vehicle.DefaultParams(), vehicle.WithSource(moon))
			Expect(v.TargetOrbitalVelocity()).To(BeNumerically("<", 2000))
			v.Step()
			Expect(v.Altitude()).To(BeNumerically(">", 0))
		})
	})
})
