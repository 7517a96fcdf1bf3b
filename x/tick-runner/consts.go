package tickrunner

import "time"

// DefaultPeriod is the nominal 10 Hz control cadence.
const DefaultPeriod = 100 * time.Millisecond
