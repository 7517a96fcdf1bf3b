package coordinator

import "fmt"

// State is a coordinator FSM state. Values double as the published state names.
type State string

const (
	StateLaneFollowing  State = "LANE_FOLLOWING"
	StateAtStopClearing State = "AT_STOP_CLEARING"
	StateSolvingUnknown State = "SOLVING_UNKNOWN"
	StateSacrifice      State = "SACRIFICE"
	StateKeepCalm       State = "KEEP_CALM"
	StateTLSensing      State = "TL_SENSING"
	StateGo             State = "GO"

	// StateIntersectionNavigation is reserved and never entered.
	StateIntersectionNavigation State = "INTERSECTION_NAVIGATION"
)

// States lists every state the machine can be in.
var States = []State{
	StateLaneFollowing,
	StateAtStopClearing,
	StateSolvingUnknown,
	StateSacrifice,
	StateKeepCalm,
	StateTLSensing,
	StateGo,
}

// Mode is the externally reported driving mode. Values other than the constants below are opaque.
type Mode string

const (
	ModeLaneFollowing Mode = "LANE_FOLLOWING"
	ModeCoordination  Mode = "COORDINATION"
)

// Signal is the class reported for a peer vehicle's roof light or for the traffic light.
// Unrecognized values are carried as-is and match no guard.
type Signal string

const (
	SignalUnknown Signal = "UNKNOWN"
	SignalNoCar   Signal = "no_car"
	SignalA       Signal = "car_signal_A"
	SignalB       Signal = "car_signal_B"
	SignalC       Signal = "car_signal_C"

	TrafficLightGo   Signal = "tl_go"
	TrafficLightStop Signal = "tl_stop"
)

// Color is the roof-light pattern this vehicle shows.
type Color string

const (
	ColorOff       Color = "light_off"
	ColorAmberHold Color = "car_signal_A"
	ColorGreen     Color = "traffic_light_go"
)

// Clearance is the crossing verdict.
type Clearance int

const (
	ClearanceNA   Clearance = -1
	ClearanceWait Clearance = 0
	ClearanceGo   Clearance = 1
)

func (c Clearance) String() string {
	switch c {
	case ClearanceNA:
		return "NA"
	case ClearanceWait:
		return "WAIT"
	case ClearanceGo:
		return "GO"
	default:
		return fmt.Sprintf("Clearance(%d)", int(c))
	}
}

// Presence is the tri-state answer to "does this intersection have a traffic light".
type Presence int32

const (
	PresenceUnknown Presence = iota
	PresenceAbsent
	PresencePresent
)

func (p Presence) String() string {
	switch p {
	case PresenceUnknown:
		return "unknown"
	case PresenceAbsent:
		return "absent"
	case PresencePresent:
		return "present"
	default:
		return fmt.Sprintf("Presence(%d)", int32(p))
	}
}

// SignalsReport is one peer-signal observation. Every report replaces the previous one wholesale.
type SignalsReport struct {
	TrafficLight Signal
	Right        Signal
	Opposite     Signal
}
