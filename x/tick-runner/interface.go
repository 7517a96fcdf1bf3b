package tickrunner

import (
	"context"
	"time"
)

// TickRunner invokes the handler once per tick period.
type TickRunner interface {
	SetHandler(TickCallback)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// TickForTime returns the tick ID and the tick start time for the given timestamp.
	TickForTime(t time.Time) (tickID uint64, tickStart time.Time)
}

// TickCallback is the hook invoked by TickRunner for each tick.
type TickCallback func(context.Context, TickInfo) error

// TickInfo describes one tick and is provided as the argument to the TickCallback hook.
type TickInfo struct {
	TickID    uint64
	StartedAt time.Time
	Period    time.Duration
	// Skipped counts ticks that elapsed since the previous emission without being delivered.
	Skipped uint64
}
