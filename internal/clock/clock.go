package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall-clock time so lifecycle rules can be tested at fixed instants.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func New() Clock {
	return SystemClock{}
}

var Module = fx.Module("clock",
	fx.Provide(New),
)
