package node

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/compose-network/intersection-coordinator/x/bus"
	"github.com/compose-network/intersection-coordinator/x/coordinator"
	tickrunner "github.com/compose-network/intersection-coordinator/x/tick-runner"
)

// Config captures all dependencies needed to build a node.
type Config struct {
	Logger      zerolog.Logger
	Bus         bus.Bus
	Coordinator coordinator.Config
	TickPeriod  time.Duration
}

func DefaultConfig(logger zerolog.Logger, b bus.Bus) Config {
	return Config{
		Logger:      logger,
		Bus:         b,
		Coordinator: coordinator.DefaultConfig(logger),
		TickPeriod:  tickrunner.DefaultPeriod,
	}
}

func (cfg *Config) apply() error {
	if cfg.Logger.GetLevel() == zerolog.NoLevel {
		cfg.Logger = zerolog.Nop()
	}
	if cfg.Bus == nil {
		return errors.New("node: bus is required")
	}
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = tickrunner.DefaultPeriod
	}
	return nil
}
