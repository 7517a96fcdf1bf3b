package tickrunner

import (
	"time"

	"github.com/rs/zerolog"
)

// TickRunnerConfig configures a TickRunner.
type TickRunnerConfig struct {
	// Handler is the function invoked on every tick.
	Handler TickCallback
	// Period is the tick cadence.
	Period time.Duration
	// Origin is the timestamp of tick 0. Defaults to the time Start is called.
	Origin time.Time
	// Now returns the current time. Useful for deterministic tests. Defaults to time.Now if nil.
	Now    func() time.Time
	Logger zerolog.Logger
}

// DefaultTickRunnerConfig returns a config with sensible defaults.
func DefaultTickRunnerConfig(logger zerolog.Logger) TickRunnerConfig {
	return TickRunnerConfig{
		Handler: nil, // Set later by an upper layer
		Period:  DefaultPeriod,
		Now:     time.Now,
		Logger:  logger.With().Str("component", "tick-runner").Logger(),
	}
}
