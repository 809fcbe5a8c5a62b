package metrics

import (
	"math"

	"github.com/SGBon/BMKSA/internal/dynamo"
)

// AttitudeDrift is the worst deviation of the rotation matrix from
// orthonormal, max |RᵀR − I|.
type AttitudeDrift struct {
	name       string
	threshold  float64
	max        float64
	violations int
	samples    int
}

// NewAttitudeDrift counts samples whose drift exceeds threshold.
func NewAttitudeDrift(threshold float64) *AttitudeDrift {
	return &AttitudeDrift{
		name:      "attitude_drift",
		threshold: threshold,
	}
}

func (a *AttitudeDrift) Name() string {
	return a.name
}

func (a *AttitudeDrift) Observe(s dynamo.Sample) {
	a.samples++
	a.max = math.Max(a.max, s.Drift)
	if s.Drift > a.threshold {
		a.violations++
	}
}

func (a *AttitudeDrift) Value() float64 {
	return a.max
}

// Violations is the number of samples over the threshold.
func (a *AttitudeDrift) Violations() int {
	return a.violations
}

func (a *AttitudeDrift) Reset() {
	a.max = 0
	a.violations = 0
	a.samples = 0
}
