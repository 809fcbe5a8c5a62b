package integrators

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/SGBon/BMKSA/internal/integrators"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
