// Package mathutil holds the small vector and scalar helpers used by the
// force model and the staged-vehicle model.
package mathutil

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// GravitationalConstant in m^3 kg^-1 s^-2.
const GravitationalConstant = 6.67408e-11

// Axis selects a coordinate axis for AxisRotation.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "unknown"
	}
}

// Normalize maps x from [min, max] onto [0, 1] without clamping.
// min must differ from max.
func Normalize(x, min, max float64) float64 {
	return (x - min) / (max - min)
}

func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func Cross(u, v mgl64.Vec3) mgl64.Vec3 {
	return u.Cross(v)
}

// AxisRotation returns the right-handed rotation by theta radians about the
// given coordinate axis.
func AxisRotation(theta float64, axis Axis) mgl64.Mat3 {
	switch axis {
	case AxisX:
		return mgl64.Rotate3DX(theta)
	case AxisY:
		return mgl64.Rotate3DY(theta)
	case AxisZ:
		return mgl64.Rotate3DZ(theta)
	default:
		return mgl64.Ident3()
	}
}

// OrbitalVelocity returns the circular orbit speed sqrt(G*M/r) at distance r
// from the centre of a body of the given mass.
func OrbitalVelocity(mass, radius float64) float64 {
	return math.Sqrt(GravitationalConstant * mass / radius)
}

// Star returns the skew-symmetric matrix of w, so Star(w).Mul3x1(x) == w × x.
func Star(w mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3FromRows(
		mgl64.Vec3{0, -w[2], w[1]},
		mgl64.Vec3{w[2], 0, -w[0]},
		mgl64.Vec3{-w[1], w[0], 0},
	)
}

// FromRowMajor reads a 3x3 matrix stored row by row in s[0:9].
func FromRowMajor(s []float64) mgl64.Mat3 {
	return mgl64.Mat3FromRows(
		mgl64.Vec3{s[0], s[1], s[2]},
		mgl64.Vec3{s[3], s[4], s[5]},
		mgl64.Vec3{s[6], s[7], s[8]},
	)
}

// PutRowMajor writes m into dst[0:9] row by row.
func PutRowMajor(dst []float64, m mgl64.Mat3) {
	for r := 0; r < 3; r++ {
		row := m.Row(r)
		copy(dst[3*r:3*r+3], row[:])
	}
}

// Orthonormality returns the largest absolute entry of RᵀR − I. Zero for an
// exact rotation.
func Orthonormality(r mgl64.Mat3) float64 {
	p := r.Transpose().Mul3(r).Sub(mgl64.Ident3())
	worst := 0.0
	for _, v := range p {
		worst = math.Max(worst, math.Abs(v))
	}
	return worst
}
