package metrics

import (
	"math"
	"testing"

	"github.com/SGBon/BMKSA/internal/dynamo"
)

func TestMaxAltitude(t *testing.T) {
	m := NewMaxAltitude()

	for _, alt := range []float64{-5, -2, -3} {
		m.Observe(dynamo.Sample{Altitude: alt})
	}
	if m.Value() != -2 {
		t.Errorf("expected -2 for an all-negative run, got %f", m.Value())
	}

	m.Reset()
	for _, alt := range []float64{0, 100, 50} {
		m.Observe(dynamo.Sample{Altitude: alt})
	}
	if m.Value() != 100 {
		t.Errorf("expected 100, got %f", m.Value())
	}
	if m.Name() != "max_altitude" {
		t.Errorf("unexpected name %q", m.Name())
	}
}

func TestMaxSpeedAndOrbitalFraction(t *testing.T) {
	speed := NewMaxSpeed()
	frac := NewOrbitalFraction(7000)

	for _, v := range []float64{10, 3500, 1200} {
		s := dynamo.Sample{Speed: v}
		speed.Observe(s)
		frac.Observe(s)
	}

	if speed.Value() != 3500 {
		t.Errorf("expected 3500, got %f", speed.Value())
	}
	if math.Abs(frac.Value()-0.5) > 1e-12 {
		t.Errorf("expected 0.5, got %f", frac.Value())
	}

	if NewOrbitalFraction(0).Value() != 0 {
		t.Error("a zero target must not divide")
	}
}

func TestPropellantUsedIgnoresStaging(t *testing.T) {
	m := NewPropellantUsed()

	samples := []dynamo.Sample{
		{Stage: 1, Mass: 1000},
		{Stage: 1, Mass: 900},
		{Stage: 1, Mass: 800},
		{Stage: 2, Mass: 300}, // jettison
		{Stage: 2, Mass: 250},
		{Stage: 3, Mass: 100}, // jettison
		{Stage: 3, Mass: 100},
	}
	for _, s := range samples {
		m.Observe(s)
	}

	if m.Value() != 250 {
		t.Errorf("expected 250 kg burned, got %f", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestAttitudeDrift(t *testing.T) {
	m := NewAttitudeDrift(1e-6)

	for _, d := range []float64{0, 1e-9, 5e-6, 2e-6} {
		m.Observe(dynamo.Sample{Drift: d})
	}

	if m.Value() != 5e-6 {
		t.Errorf("expected max drift 5e-6, got %g", m.Value())
	}
	if m.Violations() != 2 {
		t.Errorf("expected 2 violations, got %d", m.Violations())
	}

	m.Reset()
	if m.Value() != 0 || m.Violations() != 0 {
		t.Error("expected a clean metric after reset")
	}
}

func TestMetricsSatisfyInterface(t *testing.T) {
	var _ dynamo.Metric = NewMaxAltitude()
	var _ dynamo.Metric = NewMaxSpeed()
	var _ dynamo.Metric = NewOrbitalFraction(1)
	var _ dynamo.Metric = NewPropellantUsed()
	var _ dynamo.Metric = NewAttitudeDrift(1)
}
