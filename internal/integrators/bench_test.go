package integrators

import (
	"testing"

	"github.com/SGBon/BMKSA/internal/dynamo"
)

func BenchmarkEuler(b *testing.B) {
	integ := NewEuler()
	dyn := &harmonicOscillator{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integ.Step(dyn, x, 0, 0.01)
	}
}

func BenchmarkRK4(b *testing.B) {
	integ := NewRK4()
	dyn := &harmonicOscillator{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integ.Step(dyn, x, 0, 0.01)
	}
}

func BenchmarkRK45_Advance(b *testing.B) {
	integ := NewRK45()
	dyn := &harmonicOscillator{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, _ = integ.Advance(dyn, x, 0, 0.1)
	}
}
