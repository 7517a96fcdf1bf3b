package coordinator

const (
	// DefaultTMinRandom is the lower bound of the SACRIFICE backoff.
	DefaultTMinRandom = 2.0
	// DefaultTMaxRandom is the random span added on top of DefaultTMinRandom.
	DefaultTMaxRandom = 3.0
	// DefaultTUnknownBase is the fixed part of the SOLVING_UNKNOWN backoff.
	DefaultTUnknownBase = 1.0
	// DefaultTUnknown is the random span of the SOLVING_UNKNOWN backoff.
	DefaultTUnknown = 1.0
	// DefaultKeepCalmDwell is how long KEEP_CALM must last without contention before GO.
	DefaultKeepCalmDwell = 4.0

	// Reserved timers, not consulted by any transition.
	TSense = 2.0
	TCross = 6.0

	// TrafficLightSignType is the sign-type code that marks a traffic-light intersection.
	TrafficLightSignType = 76
)
