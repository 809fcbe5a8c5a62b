package physics

import (
	"github.com/SGBon/BMKSA/internal/mathutil"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	EarthMass   = 5.972e24
	EarthRadius = 6371000.0
)

// Source is a fixed spherical gravity source.
type Source struct {
	Position mgl64.Vec3
	Mass     float64
	Radius   float64
}

// Earth places the planet one radius below the origin, so a body at the
// origin rests on its surface.
func Earth() Source {
	return Source{
		Position: mgl64.Vec3{0, -EarthRadius, 0},
		Mass:     EarthMass,
		Radius:   EarthRadius,
	}
}

// Altitude is the height of p above the surface.
func (s Source) Altitude(p mgl64.Vec3) float64 {
	return p.Sub(s.Position).Len() - s.Radius
}

// Acceleration is the magnitude of gravitational acceleration at p.
func (s Source) Acceleration(p mgl64.Vec3) float64 {
	d := p.Sub(s.Position).Len()
	return mathutil.GravitationalConstant * s.Mass / (d * d)
}

// Up is the unit vector pointing away from the centre at p.
func (s Source) Up(p mgl64.Vec3) mgl64.Vec3 {
	return p.Sub(s.Position).Normalize()
}
