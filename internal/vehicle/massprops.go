package vehicle

import "github.com/go-gl/mathgl/mgl64"

// The body frame has +y along the vehicle axis with the base of the current
// stack at y = 0. All sub-bodies are solid cylinders on that axis.

// cylinderInertia returns principal moments (transverse, longitudinal,
// transverse) of a solid cylinder about its own centroid.
func cylinderInertia(m, r, h float64) mgl64.Vec3 {
	transverse := m * (3*r*r + h*h) / 12
	return mgl64.Vec3{transverse, m * r * r / 2, transverse}
}

// parallelAxis returns the diagonal of m(|d|²I − d⊗d).
func parallelAxis(m float64, d mgl64.Vec3) mgl64.Vec3 {
	d2 := d.Dot(d)
	return mgl64.Vec3{
		m * (d2 - d[0]*d[0]),
		m * (d2 - d[1]*d[1]),
		m * (d2 - d[2]*d[2]),
	}
}

// stackProperties combines the burning stage-1 cylinder with the fixed
// upper block.
func stackProperties(p Params, mass float64, upper mgl64.Vec3) (com, inertia mgl64.Vec3) {
	m2 := p.UpperMass()
	y2 := p.Stage1Height + (p.Stage2Height+p.PayloadHeight)/2
	m1 := mass - m2
	y1 := p.Stage1Height / 2

	yc := (m1*y1 + m2*y2) / mass
	com = mgl64.Vec3{0, yc, 0}

	d1 := mgl64.Vec3{0, y1 - yc, 0}
	d2 := mgl64.Vec3{0, y2 - yc, 0}

	inertia = cylinderInertia(m1, p.Radius, p.Stage1Height).
		Add(parallelAxis(m1, d1)).
		Add(upper).
		Add(parallelAxis(m2, d2))
	return com, inertia
}

// upperBlockInertia is the stage-2 plus payload block about its own
// centroid. It never changes during stage 1.
func upperBlockInertia(p Params) mgl64.Vec3 {
	return cylinderInertia(p.UpperMass(), p.Radius, p.Stage2Height+p.PayloadHeight)
}

func singleProperties(mass, radius, height float64) (com, inertia mgl64.Vec3) {
	return mgl64.Vec3{0, height / 2, 0}, cylinderInertia(mass, radius, height)
}
