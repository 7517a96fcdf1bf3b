package node

import (
	"context"

	"github.com/compose-network/intersection-coordinator/x/coordinator"
)

// Node runs one vehicle's coordinator against the bus.
type Node interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// Ready reports whether the current intersection has been classified.
	Ready() bool
	Snapshot() coordinator.Snapshot
	Stats() Stats
}

// Stats counts node activity since construction.
type Stats struct {
	TicksEvaluated  uint64 `json:"ticks_evaluated"`
	TicksGated      uint64 `json:"ticks_gated"`
	TicksSkipped    uint64 `json:"ticks_skipped"`
	LastTickID      uint64 `json:"last_tick_id"`
	InboundMessages uint64 `json:"inbound_messages"`
	DecodeFailures  uint64 `json:"decode_failures"`
	PublishFailures uint64 `json:"publish_failures"`
	GoEpisodes      uint64 `json:"go_episodes"`
	// Classified counts intersections whose traffic-light presence was first reported.
	Classified uint64 `json:"intersections_classified"`
}
