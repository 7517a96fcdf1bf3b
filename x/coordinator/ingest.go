package coordinator

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// field is a single atomically replaced value.
type field[T any] struct {
	p atomic.Pointer[T]
}

func (f *field[T]) load(def T) T {
	if v := f.p.Load(); v != nil {
		return *v
	}
	return def
}

func (f *field[T]) store(v T) {
	f.p.Store(&v)
}

// Inputs holds the latest value of every observed external signal.
// Setters may be called from any goroutine. Each field is replaced atomically, but a reader
// may see a new value in one field next to an old value in another.
type Inputs struct {
	log     zerolog.Logger
	metrics *Metrics

	mode         field[Mode]
	right        field[Signal]
	opposite     field[Signal]
	trafficLight field[Signal]

	presence atomic.Int32
	reported atomic.Bool
	onReport func(Presence)
}

func newInputs(log zerolog.Logger, m *Metrics, onReport func(Presence)) *Inputs {
	in := &Inputs{
		log:      log,
		metrics:  m,
		onReport: onReport,
	}
	in.mode.store(ModeLaneFollowing)
	return in
}

// SetMode records the latest driving mode.
func (in *Inputs) SetMode(mode Mode) {
	in.mode.store(mode)
}

// SetSignals records a peer-signal report, replacing the previous one.
func (in *Inputs) SetSignals(r SignalsReport) {
	in.trafficLight.store(r.TrafficLight)
	in.right.store(r.Right)
	in.opposite.store(r.Opposite)
}

// SetTrafficSigns classifies the intersection from the sign types seen by the tag detector.
// The last sign wins. An empty list leaves the classification untouched.
// It returns true when this call produced the announcement for the current intersection.
func (in *Inputs) SetTrafficSigns(signTypes []int) bool {
	if len(signTypes) == 0 {
		return false
	}

	p := PresenceAbsent
	if signTypes[len(signTypes)-1] == TrafficLightSignType {
		p = PresencePresent
	}
	in.presence.Store(int32(p))

	if !in.reported.CompareAndSwap(false, true) {
		return false
	}

	in.log.Info().Str("traffic_light", p.String()).Msg("Intersection classified")
	in.metrics.TrafficLightReports.WithLabelValues(p.String()).Inc()
	if in.onReport != nil {
		in.onReport(p)
	}
	return true
}

// Mode returns the latest driving mode.
func (in *Inputs) Mode() Mode {
	return in.mode.load(ModeLaneFollowing)
}

// Right returns the latest right-of-way peer signal.
func (in *Inputs) Right() Signal {
	return in.right.load(SignalUnknown)
}

// Opposite returns the latest opposing peer signal.
func (in *Inputs) Opposite() Signal {
	return in.opposite.load(SignalUnknown)
}

// TrafficLightPhase returns the latest traffic-light classification.
func (in *Inputs) TrafficLightPhase() Signal {
	return in.trafficLight.load(SignalUnknown)
}

// TrafficLight returns whether the intersection has a traffic light.
func (in *Inputs) TrafficLight() Presence {
	return Presence(in.presence.Load())
}

func (in *Inputs) resetSignals() {
	in.trafficLight.store(SignalUnknown)
	in.right.store(SignalUnknown)
	in.opposite.store(SignalUnknown)
}

// rearmReport lets the next classification be announced again.
func (in *Inputs) rearmReport() {
	in.reported.Store(false)
}
