package coordinator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// Params holds the timing policy, in seconds. It is loaded from coordinator parameter files.
type Params struct {
	TMinRandom    float64 `yaml:"t_min_random"    mapstructure:"t_min_random"`
	TMaxRandom    float64 `yaml:"t_max_random"    mapstructure:"t_max_random"`
	TUnknownBase  float64 `yaml:"t_unknown_base"  mapstructure:"t_unknown_base"`
	TUnknown      float64 `yaml:"t_unknown"       mapstructure:"t_unknown"`
	KeepCalmDwell float64 `yaml:"keep_calm_dwell" mapstructure:"keep_calm_dwell"`
}

// DefaultParams returns the stock timing policy.
func DefaultParams() Params {
	return Params{
		TMinRandom:    DefaultTMinRandom,
		TMaxRandom:    DefaultTMaxRandom,
		TUnknownBase:  DefaultTUnknownBase,
		TUnknown:      DefaultTUnknown,
		KeepCalmDwell: DefaultKeepCalmDwell,
	}
}

// Validate rejects negative durations.
func (p Params) Validate() error {
	for name, v := range map[string]float64{
		"t_min_random":    p.TMinRandom,
		"t_max_random":    p.TMaxRandom,
		"t_unknown_base":  p.TUnknownBase,
		"t_unknown":       p.TUnknown,
		"keep_calm_dwell": p.KeepCalmDwell,
	} {
		if v < 0 {
			return fmt.Errorf("coordinator: %s must not be negative, got %v", name, v)
		}
	}
	return nil
}

// Config carries the dependencies of a Coordinator.
type Config struct {
	Logger zerolog.Logger
	Params Params
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// Rand returns a uniform sample in [0,1). Defaults to math/rand/v2.
	Rand func() float64
	// OnTrafficLightReport is invoked after the first classification of each intersection.
	OnTrafficLightReport func(Presence)
}

// DefaultConfig returns a config with the stock timing policy and system clock.
func DefaultConfig(logger zerolog.Logger) Config {
	return Config{
		Logger: logger.With().Str("component", "coordinator").Logger(),
		Params: DefaultParams(),
		Now:    time.Now,
		Rand:   rand.Float64,
	}
}

func (c *Config) apply() error {
	if c.Logger.GetLevel() == zerolog.NoLevel {
		c.Logger = zerolog.Nop()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Rand == nil {
		c.Rand = rand.Float64
	}
	if c.Params == (Params{}) {
		c.Params = DefaultParams()
	}
	return c.Params.Validate()
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
