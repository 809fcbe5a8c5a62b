package integrators

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/SGBon/BMKSA/internal/dynamo"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"gonum.org/v1/gonum/floats"
)

// Dormand-Prince RK5(4) tableau. Row i of dpA gives the stage weights used
// to build the input of stage i; the last row is the fifth-order solution.
var (
	dpC = [7]float64{0, 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1, 1}

	dpA = [7][]float64{
		nil,
		{1.0 / 5.0},
		{3.0 / 40.0, 9.0 / 40.0},
		{44.0 / 45.0, -56.0 / 15.0, 32.0 / 9.0},
		{19372.0 / 6561.0, -25360.0 / 2187.0, 64448.0 / 6561.0, -212.0 / 729.0},
		{9017.0 / 3168.0, -355.0 / 33.0, 46732.0 / 5247.0, 49.0 / 176.0, -5103.0 / 18656.0},
		{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0},
	}

	// fifth-order minus embedded fourth-order weights
	dpE = [7]float64{
		71.0 / 57600.0,
		0,
		-71.0 / 16695.0,
		71.0 / 1920.0,
		-17253.0 / 339200.0,
		22.0 / 525.0,
		-1.0 / 40.0,
	}
)

// ErrRejected is returned by StepAdaptive when the local error estimate
// exceeds the tolerance. The returned step size is the suggested retry.
var ErrRejected = errors.New("integrators: step rejected by error control")

const (
	DefaultTolerance   = 1e-6
	DefaultMinStep     = 1e-9
	DefaultMaxSubsteps = 100000
)

// RK45 is an adaptive Dormand-Prince integrator. It remembers the last
// accepted step size between Advance calls; Reset clears it.
type RK45 struct {
	safety      float64
	minScale    float64
	maxScale    float64
	tol         float64
	minStep     float64
	maxSubsteps int

	hint float64

	k       [7]dynamo.State
	scratch dynamo.State

	accepted metric.Int64Counter
	rejected metric.Int64Counter
}

type Option func(*RK45)

// WithTolerance sets the local error tolerance used by Advance.
func WithTolerance(tol float64) Option {
	return func(r *RK45) {
		if tol > 0 {
			r.tol = tol
		}
	}
}

func WithMinStep(h float64) Option {
	return func(r *RK45) {
		if h > 0 {
			r.minStep = h
		}
	}
}

func WithMaxSubsteps(n int) Option {
	return func(r *RK45) {
		if n > 0 {
			r.maxSubsteps = n
		}
	}
}

// NewRK45 creates the integrator. Substep counters are registered on the
// global OTel meter and fall back to no-ops if registration fails.
func NewRK45(opts ...Option) *RK45 {
	r := &RK45{
		safety:      0.9,
		minScale:    0.2,
		maxScale:    10.0,
		tol:         DefaultTolerance,
		minStep:     DefaultMinStep,
		maxSubsteps: DefaultMaxSubsteps,
	}
	for _, opt := range opts {
		opt(r)
	}

	var err error
	m := meter()
	r.accepted, err = m.Int64Counter(
		"integrator.substeps.accepted",
		metric.WithDescription("Adaptive substeps accepted by error control"),
	)
	if err != nil {
		r.accepted = noop.Int64Counter{}
	}
	r.rejected, err = m.Int64Counter(
		"integrator.substeps.rejected",
		metric.WithDescription("Adaptive substeps rejected by error control"),
	)
	if err != nil {
		r.rejected = noop.Int64Counter{}
	}
	return r
}

func (r *RK45) Tolerance() float64 { return r.tol }

// Hint returns the step size the next Advance call will try first, or zero
// after Reset.
func (r *RK45) Hint() float64 { return r.hint }

func (r *RK45) Reset() { r.hint = 0 }

func (r *RK45) ensureScratch(n int) {
	if len(r.scratch) != n {
		for i := range r.k {
			r.k[i] = make(dynamo.State, n)
		}
		r.scratch = make(dynamo.State, n)
	}
}

// Step takes one uncontrolled fifth-order step of size dt. It returns x
// unchanged if the right-hand side misbehaves.
func (r *RK45) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	next, _, err := r.attempt(sys, x, t, dt)
	if err != nil {
		return x.Clone()
	}
	return next
}

// StepAdaptive takes one trial step of size h. On acceptance it returns the
// new state and the suggested next step size. On rejection it returns x, a
// smaller suggested size, and ErrRejected.
func (r *RK45) StepAdaptive(sys dynamo.System, x dynamo.State, t, h, tol float64) (dynamo.State, float64, error) {
	next, errNorm, err := r.attempt(sys, x, t, h)
	if err != nil {
		return x, h, err
	}

	errRatio := errNorm / tol
	if errRatio > 1 {
		scale := math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
		return x, h * scale, ErrRejected
	}

	scale := r.maxScale
	if errRatio > 0 {
		scale = math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	}
	return next, h * scale, nil
}

// attempt computes the fifth-order solution and the max-norm of the
// embedded error, each component scaled by 1 + max(|x|, |x_new|).
func (r *RK45) attempt(sys dynamo.System, x dynamo.State, t, h float64) (dynamo.State, float64, error) {
	n := len(x)
	r.ensureScratch(n)

	for i := 0; i < len(r.k); i++ {
		in := x
		if i > 0 {
			copy(r.scratch, x)
			for j, a := range dpA[i] {
				if a != 0 {
					floats.AddScaled(r.scratch, h*a, r.k[j])
				}
			}
			in = r.scratch
		}
		k := sys.Derive(in, t+dpC[i]*h)
		if len(k) != n {
			return nil, 0, fmt.Errorf("stage %d returned %d values for %d states: %w", i+1, len(k), n, dynamo.ErrDimensionMismatch)
		}
		if !k.IsValid() {
			return nil, 0, fmt.Errorf("stage %d at t=%g: %w", i+1, t+dpC[i]*h, dynamo.ErrBadFunc)
		}
		copy(r.k[i], k)
	}

	// stage 7 was evaluated at the fifth-order solution
	next := r.scratch.Clone()

	errNorm := 0.0
	for i := 0; i < n; i++ {
		est := 0.0
		for j, e := range dpE {
			est += e * r.k[j][i]
		}
		est *= h
		sc := 1 + math.Max(math.Abs(x[i]), math.Abs(next[i]))
		errNorm = math.Max(errNorm, math.Abs(est)/sc)
	}
	return next, errNorm, nil
}

// Advance integrates from t to t+dt, taking as many accepted substeps as the
// error control requires. On failure x is returned unchanged together with
// a classified error.
func (r *RK45) Advance(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return x, fmt.Errorf("interval %g: %w", dt, dynamo.ErrBadInput)
	}
	if len(x) != sys.StateDim() {
		return x, fmt.Errorf("state has %d values, system expects %d: %w", len(x), sys.StateDim(), dynamo.ErrDimensionMismatch)
	}
	if !x.IsValid() {
		return x, fmt.Errorf("input state: %w", dynamo.ErrBadInput)
	}

	ctx := context.Background()

	h := r.hint
	if h <= 0 || h > dt {
		h = dt
	}

	cur := x
	elapsed := 0.0
	for n := 0; elapsed < dt; n++ {
		if n >= r.maxSubsteps {
			return x, fmt.Errorf("%d substeps covered %g of %g s: %w", n, elapsed, dt, dynamo.ErrStepFailure)
		}

		remaining := dt - elapsed
		proposed := h
		last := h >= remaining
		if last {
			h = remaining
		}

		next, hNext, err := r.StepAdaptive(sys, cur, t+elapsed, h, r.tol)
		if errors.Is(err, ErrRejected) {
			r.rejected.Add(ctx, 1)
			if hNext < r.minStep {
				return x, fmt.Errorf("step size %g below minimum %g at t=%g: %w", hNext, r.minStep, t+elapsed, dynamo.ErrStepFailure)
			}
			h = hNext
			continue
		}
		if err != nil {
			return x, err
		}

		r.accepted.Add(ctx, 1)
		cur = next
		if last {
			elapsed = dt
			r.hint = math.Max(hNext, proposed)
		} else {
			elapsed += h
			r.hint = hNext
		}
		h = hNext
	}

	return cur, nil
}
