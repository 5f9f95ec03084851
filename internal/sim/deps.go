package sim

import (
	"sulphate/internal/telemetry"
	"sulphate/logging"
)

// Deps carries shared infrastructure dependencies required by the loop.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
	Clock     logging.Clock
}

func (d Deps) normalized() Deps {
	if d.Logger == nil {
		d.Logger = telemetry.Discard()
	}
	if d.Metrics == nil {
		d.Metrics = telemetry.NopMetrics()
	}
	if d.Publisher == nil {
		d.Publisher = logging.NopPublisher()
	}
	if d.Clock == nil {
		d.Clock = logging.SystemClock{}
	}
	return d
}
