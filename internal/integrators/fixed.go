package integrators

import (
	"fmt"
	"math"

	"github.com/SGBon/BMKSA/internal/dynamo"
)

// Fixed adapts a single-step integrator to the Stepper interface by
// splitting each interval into equal substeps no longer than h.
type Fixed struct {
	integ dynamo.Integrator
	h     float64
}

func NewFixed(integ dynamo.Integrator, h float64) *Fixed {
	return &Fixed{integ: integ, h: h}
}

func (f *Fixed) Advance(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return x, fmt.Errorf("interval %g: %w", dt, dynamo.ErrBadInput)
	}
	if len(x) != sys.StateDim() {
		return x, fmt.Errorf("state has %d values, system expects %d: %w", len(x), sys.StateDim(), dynamo.ErrDimensionMismatch)
	}
	if !x.IsValid() {
		return x, fmt.Errorf("input state: %w", dynamo.ErrBadInput)
	}

	n := 1
	if f.h > 0 && f.h < dt {
		n = int(math.Ceil(dt / f.h))
	}
	h := dt / float64(n)

	cur := x
	for i := 0; i < n; i++ {
		cur = f.integ.Step(sys, cur, t+float64(i)*h, h)
		if !cur.IsValid() {
			return x, fmt.Errorf("substep %d at t=%g: %w", i+1, t+float64(i)*h, dynamo.ErrBadFunc)
		}
	}
	return cur, nil
}

func (f *Fixed) Reset() {}
