package chart

import (
	"fmt"
	"math"
	"sort"

	"github.com/SGBon/BMKSA/internal/dynamo"
)

type extractor struct {
	label string
	fn    func(dynamo.Sample) float64
}

// Archived samples carry no altitude, so the vertical position stands in
// for it. Speed is |p|/m.
var fields = map[string]extractor{
	"sx":    {"x (m)", func(s dynamo.Sample) float64 { return s.Position[0] }},
	"sy":    {"y (m)", func(s dynamo.Sample) float64 { return s.Position[1] }},
	"sz":    {"z (m)", func(s dynamo.Sample) float64 { return s.Position[2] }},
	"lmx":   {"p_x (kg m/s)", func(s dynamo.Sample) float64 { return s.Momentum[0] }},
	"lmy":   {"p_y (kg m/s)", func(s dynamo.Sample) float64 { return s.Momentum[1] }},
	"lmz":   {"p_z (kg m/s)", func(s dynamo.Sample) float64 { return s.Momentum[2] }},
	"amz":   {"L_z (kg m²/s)", func(s dynamo.Sample) float64 { return s.Angular[2] }},
	"mass":  {"mass (kg)", func(s dynamo.Sample) float64 { return s.Mass }},
	"stage": {"stage", func(s dynamo.Sample) float64 { return float64(s.Stage) }},
	"speed": {"speed (m/s)", func(s dynamo.Sample) float64 {
		if s.Mass == 0 {
			return 0
		}
		p := s.Momentum
		return math.Sqrt(p[0]*p[0]+p[1]*p[1]+p[2]*p[2]) / s.Mass
	}},
}

func Fields() []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Series extracts field over time.
func Series(samples []dynamo.Sample, field string) (xs, ys []float64, err error) {
	ex, ok := fields[field]
	if !ok {
		return nil, nil, fmt.Errorf("unknown field: %s", field)
	}
	xs = make([]float64, len(samples))
	ys = make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.Time
		ys[i] = ex.fn(s)
	}
	return xs, ys, nil
}

// Label is the axis label for field.
func Label(field string) string {
	if ex, ok := fields[field]; ok {
		return ex.label
	}
	return field
}
