package coordinator

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Coordinator decides when this vehicle may cross the intersection.
// Tick is the only mutator of state, clearance and color and must be driven by a single caller.
type Coordinator struct {
	mu      sync.RWMutex
	log     zerolog.Logger
	now     func() time.Time
	rand    func() float64
	params  Params
	metrics *Metrics
	inputs  *Inputs

	state        State
	stateEntered time.Time
	randomDelay  time.Duration
	clearance    Clearance
	color        Color
	goAnnounced  bool
	episodeID    uuid.UUID

	ticks    uint64
	lastTick time.Time
}

// New creates a coordinator waiting at the stop line.
func New(cfg Config) (*Coordinator, error) {
	if err := cfg.apply(); err != nil {
		return nil, err
	}

	m := NewMetrics()
	c := &Coordinator{
		log:          cfg.Logger,
		now:          cfg.Now,
		rand:         cfg.Rand,
		params:       cfg.Params,
		metrics:      m,
		inputs:       newInputs(cfg.Logger, m, cfg.OnTrafficLightReport),
		state:        StateAtStopClearing,
		stateEntered: cfg.Now(),
		clearance:    ClearanceNA,
		color:        ColorOff,
	}
	m.recordState(c.state)
	m.Clearance.Set(float64(c.clearance))

	c.log.Info().
		Str("state", string(c.state)).
		Float64("t_min_random", c.params.TMinRandom).
		Float64("t_max_random", c.params.TMaxRandom).
		Float64("keep_calm_dwell", c.params.KeepCalmDwell).
		Msg("Coordination mode started")

	return c, nil
}

// Inputs returns the ingest side of the coordinator.
func (c *Coordinator) Inputs() *Inputs {
	return c.inputs
}

// Tick re-evaluates the machine once. While the intersection has not been classified the
// tick is skipped and ok is false.
func (c *Coordinator) Tick() (out Outputs, ok bool) {
	if c.inputs.TrafficLight() == PresenceUnknown {
		c.metrics.TicksTotal.WithLabelValues("gated").Inc()
		return Outputs{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.ticks++
	c.lastTick = now
	c.metrics.TicksTotal.WithLabelValues("evaluated").Inc()

	c.reconsider(now)

	if c.state != StateGo {
		c.clearance = ClearanceWait
		c.goAnnounced = false
	} else {
		c.clearance = ClearanceGo
	}
	c.metrics.Clearance.Set(float64(c.clearance))

	return c.project(now), true
}

func (c *Coordinator) reconsider(now time.Time) {
	switch c.state {
	case StateLaneFollowing:
		if c.inputs.Mode() == ModeCoordination {
			c.inputs.resetSignals()
			if c.inputs.TrafficLight() == PresencePresent {
				c.setState(StateTLSensing, now)
			} else {
				c.setState(StateAtStopClearing, now)
			}
		}

	case StateAtStopClearing:
		right, opposite := c.inputs.Right(), c.inputs.Opposite()
		switch {
		case right == SignalUnknown || opposite == SignalUnknown:
			c.color = ColorOff
			c.setState(StateSolvingUnknown, now)
		case right == SignalA || opposite == SignalA:
			c.color = ColorOff
			c.setState(StateSacrifice, now)
		default:
			c.setState(StateKeepCalm, now)
		}

	case StateSolvingUnknown, StateSacrifice:
		if c.elapsed(now) > c.randomDelay {
			c.setState(StateAtStopClearing, now)
		}

	case StateKeepCalm:
		if contending(c.inputs.Right()) || contending(c.inputs.Opposite()) {
			c.setState(StateSacrifice, now)
		} else if c.elapsed(now) > seconds(c.params.KeepCalmDwell) {
			c.setState(StateGo, now)
		}

	case StateTLSensing:
		if c.inputs.TrafficLightPhase() == TrafficLightGo {
			c.setState(StateGo, now)
		}

	case StateGo:
		c.inputs.rearmReport()
		if c.inputs.Mode() == ModeLaneFollowing {
			c.goAnnounced = false
			c.setState(StateLaneFollowing, now)
		}
	}
}

// setState moves to next and runs its entry actions. Assigning the current state is a no-op.
func (c *Coordinator) setState(next State, now time.Time) {
	if next == c.state {
		return
	}
	prev := c.state
	c.state = next
	c.stateEntered = now

	switch next {
	case StateAtStopClearing, StateKeepCalm:
		c.color = ColorAmberHold
	case StateSacrifice:
		c.color = ColorOff
		c.randomDelay = seconds(c.params.TMinRandom + c.rand()*c.params.TMaxRandom)
	case StateSolvingUnknown:
		c.randomDelay = seconds(c.params.TUnknownBase + c.rand()*c.params.TUnknown)
	case StateGo:
		if c.inputs.TrafficLight() != PresencePresent {
			c.color = ColorGreen
		}
	}

	c.metrics.TransitionsTotal.WithLabelValues(string(prev), string(next)).Inc()
	c.metrics.recordState(next)

	evt := c.log.Debug().
		Str("from", string(prev)).
		Str("to", string(next)).
		Str("color", string(c.color))
	if next == StateSacrifice || next == StateSolvingUnknown {
		c.metrics.BackoffDelay.WithLabelValues(string(next)).Observe(c.randomDelay.Seconds())
		evt = evt.Dur("random_delay", c.randomDelay)
	}
	evt.Msg("Transitioned")
}

func (c *Coordinator) elapsed(now time.Time) time.Duration {
	return now.Sub(c.stateEntered)
}

// contending reports whether a peer signal means the peer intends to cross.
func contending(s Signal) bool {
	return s == SignalA || s == SignalB
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Clearance returns the current clearance.
func (c *Coordinator) Clearance() Clearance {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clearance
}
