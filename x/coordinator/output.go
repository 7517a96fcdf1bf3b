package coordinator

import (
	"time"

	"github.com/google/uuid"
)

// MotionCommand is a planar velocity command. The coordinator only ever emits the zero command;
// the motion controller takes over once clearance is granted.
type MotionCommand struct {
	Stamp time.Time
	V     float64
	Omega float64
}

// Outputs is everything emitted after one evaluated tick.
type Outputs struct {
	Clearance Clearance
	// IntersectionGo is set on the tick that first observes GO clearance of an episode.
	IntersectionGo bool
	EpisodeID      uuid.UUID
	Color          Color
	Command        MotionCommand
	State          State
	Stamp          time.Time
}

// project maps the current state onto the output channels. Caller holds c.mu.
func (c *Coordinator) project(now time.Time) Outputs {
	out := Outputs{
		Clearance: c.clearance,
		Color:     c.color,
		Command:   MotionCommand{Stamp: now},
		State:     c.state,
		Stamp:     now,
	}

	if c.clearance == ClearanceGo && !c.goAnnounced {
		c.goAnnounced = true
		c.episodeID = uuid.New()
		c.metrics.GoEpisodesTotal.Inc()

		out.IntersectionGo = true
		c.log.Info().
			Str("episode_id", c.episodeID.String()).
			Str("traffic_light", c.inputs.TrafficLight().String()).
			Msg("Intersection go")
	}
	if c.clearance == ClearanceGo {
		out.EpisodeID = c.episodeID
	}

	return out
}

// Snapshot is a read-only view of the coordinator for observability.
type Snapshot struct {
	State             State     `json:"state"`
	Clearance         string    `json:"clearance"`
	Color             Color     `json:"color"`
	Mode              Mode      `json:"mode"`
	TrafficLight      string    `json:"traffic_light"`
	TrafficLightPhase Signal    `json:"traffic_light_phase"`
	Right             Signal    `json:"right"`
	Opposite          Signal    `json:"opposite"`
	TimeInState       float64   `json:"time_in_state_seconds"`
	RandomDelay       float64   `json:"random_delay_seconds"`
	GoAnnounced       bool      `json:"go_announced"`
	EpisodeID         string    `json:"episode_id,omitempty"`
	Ticks             uint64    `json:"ticks"`
	LastTick          time.Time `json:"last_tick"`
}

// Snapshot returns the current view of the coordinator.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		State:             c.state,
		Clearance:         c.clearance.String(),
		Color:             c.color,
		Mode:              c.inputs.Mode(),
		TrafficLight:      c.inputs.TrafficLight().String(),
		TrafficLightPhase: c.inputs.TrafficLightPhase(),
		Right:             c.inputs.Right(),
		Opposite:          c.inputs.Opposite(),
		TimeInState:       c.elapsed(c.now()).Seconds(),
		GoAnnounced:       c.goAnnounced,
		Ticks:             c.ticks,
		LastTick:          c.lastTick,
	}
	if c.state == StateSacrifice || c.state == StateSolvingUnknown {
		s.RandomDelay = c.randomDelay.Seconds()
	}
	if c.state == StateGo && c.episodeID != uuid.Nil {
		s.EpisodeID = c.episodeID.String()
	}
	return s
}
