package coordinator

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// sequence returns the given samples in order, repeating the last one.
func sequence(samples ...float64) func() float64 {
	var mu sync.Mutex
	i := 0
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		v := samples[i]
		if i < len(samples)-1 {
			i++
		}
		return v
	}
}

func newTestCoordinator(t *testing.T, clock *fakeClock, samples ...float64) *Coordinator {
	t.Helper()
	if len(samples) == 0 {
		samples = []float64{0.5}
	}
	c, err := New(Config{
		Logger: zerolog.Nop(),
		Now:    clock.Now,
		Rand:   sequence(samples...),
	})
	require.NoError(t, err)
	return c
}

// tick runs one evaluated tick and checks the clearance invariant.
func tick(t *testing.T, c *Coordinator, want State) Outputs {
	t.Helper()
	out, ok := c.Tick()
	require.True(t, ok, "tick should be evaluated")
	require.Equal(t, want, out.State)
	if want == StateGo {
		require.Equal(t, ClearanceGo, out.Clearance)
	} else {
		require.Equal(t, ClearanceWait, out.Clearance)
		require.False(t, out.IntersectionGo)
	}
	require.Zero(t, out.Command.V)
	require.Zero(t, out.Command.Omega)
	return out
}

func noCars() SignalsReport {
	return SignalsReport{TrafficLight: SignalUnknown, Right: SignalNoCar, Opposite: SignalNoCar}
}

func TestTickIsGatedUntilIntersectionClassified(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCoordinator(t, clock)
	c.Inputs().SetMode(ModeCoordination)
	c.Inputs().SetSignals(noCars())

	for i := 0; i < 5; i++ {
		clock.Advance(100 * time.Millisecond)
		_, ok := c.Tick()
		require.False(t, ok)
	}
	require.Equal(t, StateAtStopClearing, c.State())
	require.Equal(t, ClearanceNA, c.Clearance())

	c.Inputs().SetTrafficSigns([]int{3})
	tick(t, c, StateKeepCalm)
}

func TestScenarioA_UnknownPeersGoSolvingUnknown(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCoordinator(t, clock)
	c.Inputs().SetMode(ModeCoordination)
	c.Inputs().SetTrafficSigns([]int{12})

	out := tick(t, c, StateSolvingUnknown)
	assert.Equal(t, ColorOff, out.Color)
}

func TestScenarioB_SymmetricContentionSacrifices(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCoordinator(t, clock, 0.5) // 2.0 + 0.5*3.0 = 3.5s
	c.Inputs().SetTrafficSigns([]int{1})
	c.Inputs().SetSignals(SignalsReport{Right: SignalA, Opposite: SignalA})

	out := tick(t, c, StateSacrifice)
	assert.Equal(t, ColorOff, out.Color)
	delay := c.Snapshot().RandomDelay
	assert.InDelta(t, 3.5, delay, 1e-9)
	assert.GreaterOrEqual(t, delay, 2.0)
	assert.Less(t, delay, 5.0)

	for elapsed := 100 * time.Millisecond; elapsed <= 3500*time.Millisecond; elapsed += 100 * time.Millisecond {
		clock.Advance(100 * time.Millisecond)
		tick(t, c, StateSacrifice)
	}

	clock.Advance(100 * time.Millisecond)
	out = tick(t, c, StateAtStopClearing)
	assert.Equal(t, ColorAmberHold, out.Color)
}

func TestScenarioC_NoCarsGoAfterDwell(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCoordinator(t, clock)
	c.Inputs().SetMode(ModeCoordination)
	c.Inputs().SetTrafficSigns([]int{1})
	c.Inputs().SetSignals(noCars())

	out := tick(t, c, StateKeepCalm)
	assert.Equal(t, ColorAmberHold, out.Color)

	for i := 0; i < 40; i++ {
		clock.Advance(100 * time.Millisecond)
		tick(t, c, StateKeepCalm)
	}

	clock.Advance(100 * time.Millisecond)
	out = tick(t, c, StateGo)
	require.True(t, out.IntersectionGo)
	require.NotEqual(t, uuid.Nil, out.EpisodeID)
	assert.Equal(t, ColorGreen, out.Color)
	episode := out.EpisodeID

	for i := 0; i < 10; i++ {
		clock.Advance(100 * time.Millisecond)
		out = tick(t, c, StateGo)
		require.False(t, out.IntersectionGo, "go event must fire once per episode")
		require.Equal(t, episode, out.EpisodeID)
	}
}

func TestKeepCalmDivertsOnContentionEvenAfterDwell(t *testing.T) {
	t.Parallel()

	for _, sig := range []Signal{SignalA, SignalB} {
		sig := sig
		t.Run(string(sig), func(t *testing.T) {
			t.Parallel()

			clock := newFakeClock()
			c := newTestCoordinator(t, clock, 0.0)
			c.Inputs().SetTrafficSigns([]int{1})
			c.Inputs().SetSignals(noCars())
			tick(t, c, StateKeepCalm)

			clock.Advance(5 * time.Second)
			c.Inputs().SetSignals(SignalsReport{Right: SignalNoCar, Opposite: sig})

			out := tick(t, c, StateSacrifice)
			assert.Equal(t, ColorOff, out.Color)
			assert.InDelta(t, 2.0, c.Snapshot().RandomDelay, 1e-9)
		})
	}
}

func TestKeepCalmIgnoresSignalC(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCoordinator(t, clock)
	c.Inputs().SetTrafficSigns([]int{1})
	c.Inputs().SetSignals(SignalsReport{Right: SignalC, Opposite: SignalNoCar})

	tick(t, c, StateKeepCalm)
	clock.Advance(4100 * time.Millisecond)
	tick(t, c, StateGo)
}

func TestScenarioD_TrafficLightSensing(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCoordinator(t, clock)
	c.Inputs().SetTrafficSigns([]int{TrafficLightSignType})
	c.Inputs().SetMode(ModeCoordination)
	c.Inputs().SetSignals(noCars())

	// First crossing goes through the stop-line path because the machine starts there.
	tick(t, c, StateKeepCalm)
	clock.Advance(4100 * time.Millisecond)
	out := tick(t, c, StateGo)
	assert.Equal(t, ColorAmberHold, out.Color, "green is only shown at intersections without a light")

	c.Inputs().SetMode(ModeLaneFollowing)
	tick(t, c, StateLaneFollowing)
	tick(t, c, StateLaneFollowing)

	c.Inputs().SetMode(ModeCoordination)
	tick(t, c, StateTLSensing)
	snap := c.Snapshot()
	assert.Equal(t, SignalUnknown, snap.Right)
	assert.Equal(t, SignalUnknown, snap.Opposite)
	assert.Equal(t, SignalUnknown, snap.TrafficLightPhase)

	for i := 0; i < 3; i++ {
		clock.Advance(100 * time.Millisecond)
		tick(t, c, StateTLSensing)
	}

	c.Inputs().SetSignals(SignalsReport{TrafficLight: TrafficLightStop, Right: SignalA, Opposite: SignalA})
	clock.Advance(100 * time.Millisecond)
	tick(t, c, StateTLSensing)

	c.Inputs().SetSignals(SignalsReport{TrafficLight: TrafficLightGo, Right: SignalA, Opposite: SignalA})
	clock.Advance(100 * time.Millisecond)
	out = tick(t, c, StateGo)
	assert.True(t, out.IntersectionGo)
}

func TestAtStopClearingBranchSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		right    Signal
		opposite Signal
		want     State
	}{
		{"right unknown", SignalUnknown, SignalNoCar, StateSolvingUnknown},
		{"opposite unknown", SignalNoCar, SignalUnknown, StateSolvingUnknown},
		{"unknown wins over signal A", SignalA, SignalUnknown, StateSolvingUnknown},
		{"right signal A", SignalA, SignalNoCar, StateSacrifice},
		{"opposite signal A", SignalNoCar, SignalA, StateSacrifice},
		{"both signal B", SignalB, SignalB, StateKeepCalm},
		{"signal C", SignalC, SignalNoCar, StateKeepCalm},
		{"no cars", SignalNoCar, SignalNoCar, StateKeepCalm},
		{"unrecognized value", Signal("smoke"), SignalNoCar, StateKeepCalm},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestCoordinator(t, newFakeClock())
			c.Inputs().SetTrafficSigns([]int{1})
			c.Inputs().SetSignals(SignalsReport{Right: tt.right, Opposite: tt.opposite})
			tick(t, c, tt.want)
		})
	}
}

func TestBackoffIsResampledOnEveryEntry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCoordinator(t, clock, 0.1, 0.9)
	c.Inputs().SetTrafficSigns([]int{1})

	tick(t, c, StateSolvingUnknown)
	first := c.Snapshot().RandomDelay
	assert.InDelta(t, 1.1, first, 1e-9)

	clock.Advance(1200 * time.Millisecond)
	tick(t, c, StateAtStopClearing)
	tick(t, c, StateSolvingUnknown)
	second := c.Snapshot().RandomDelay
	assert.InDelta(t, 1.9, second, 1e-9)
}

func TestBackoffBounds(t *testing.T) {
	t.Parallel()

	for _, u := range []float64{0, 0.25, 0.5, 0.999999} {
		clock := newFakeClock()
		c := newTestCoordinator(t, clock, u)
		c.Inputs().SetTrafficSigns([]int{1})

		tick(t, c, StateSolvingUnknown)
		d := c.Snapshot().RandomDelay
		assert.GreaterOrEqual(t, d, 1.0)
		assert.Less(t, d, 2.0)

		c.Inputs().SetSignals(SignalsReport{Right: SignalA, Opposite: SignalNoCar})
		clock.Advance(2 * time.Second)
		tick(t, c, StateAtStopClearing)
		tick(t, c, StateSacrifice)
		d = c.Snapshot().RandomDelay
		assert.GreaterOrEqual(t, d, 2.0)
		assert.Less(t, d, 5.0)
	}
}

func TestColorIsRetainedWhereNoEntryColorApplies(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCoordinator(t, clock)
	c.Inputs().SetTrafficSigns([]int{1})
	c.Inputs().SetMode(ModeCoordination)
	c.Inputs().SetSignals(noCars())

	tick(t, c, StateKeepCalm)
	clock.Advance(4100 * time.Millisecond)
	out := tick(t, c, StateGo)
	require.Equal(t, ColorGreen, out.Color)

	c.Inputs().SetMode(ModeLaneFollowing)
	out = tick(t, c, StateLaneFollowing)
	assert.Equal(t, ColorGreen, out.Color)

	c.Inputs().SetMode(ModeCoordination)
	out = tick(t, c, StateAtStopClearing)
	assert.Equal(t, ColorAmberHold, out.Color)

	out = tick(t, c, StateSolvingUnknown)
	assert.Equal(t, ColorOff, out.Color)
}

func TestGoEventFiresOncePerEpisode(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCoordinator(t, clock)
	c.Inputs().SetTrafficSigns([]int{1})
	c.Inputs().SetMode(ModeCoordination)

	var episodes []uuid.UUID
	for round := 0; round < 2; round++ {
		c.Inputs().SetSignals(noCars())
		if round > 0 {
			tick(t, c, StateAtStopClearing)
			c.Inputs().SetSignals(noCars())
		}
		tick(t, c, StateKeepCalm)
		clock.Advance(4100 * time.Millisecond)

		fired := 0
		for i := 0; i < 5; i++ {
			out, ok := c.Tick()
			require.True(t, ok)
			require.Equal(t, StateGo, out.State)
			if out.IntersectionGo {
				fired++
				episodes = append(episodes, out.EpisodeID)
			}
			clock.Advance(100 * time.Millisecond)
		}
		require.Equal(t, 1, fired)

		c.Inputs().SetMode(ModeLaneFollowing)
		tick(t, c, StateLaneFollowing)
		c.Inputs().SetMode(ModeCoordination)
	}

	require.Len(t, episodes, 2)
	require.NotEqual(t, episodes[0], episodes[1])
}

func TestLaneFollowingIgnoresOpaqueModes(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCoordinator(t, clock)
	c.Inputs().SetTrafficSigns([]int{1})
	c.Inputs().SetMode(ModeCoordination)
	c.Inputs().SetSignals(noCars())
	tick(t, c, StateKeepCalm)
	clock.Advance(4100 * time.Millisecond)
	tick(t, c, StateGo)

	c.Inputs().SetMode(Mode("INTERSECTION_CONTROL"))
	tick(t, c, StateGo)

	c.Inputs().SetMode(ModeLaneFollowing)
	tick(t, c, StateLaneFollowing)

	c.Inputs().SetMode(Mode("PARKING"))
	for i := 0; i < 3; i++ {
		tick(t, c, StateLaneFollowing)
	}
}

func TestNewRejectsNegativeParams(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.KeepCalmDwell = -1
	_, err := New(Config{Params: p})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keep_calm_dwell")
}

func TestCustomParams(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	p := DefaultParams()
	p.KeepCalmDwell = 1.0
	c, err := New(Config{Logger: zerolog.Nop(), Params: p, Now: clock.Now, Rand: sequence(0)})
	require.NoError(t, err)

	c.Inputs().SetTrafficSigns([]int{1})
	c.Inputs().SetSignals(noCars())
	tick(t, c, StateKeepCalm)
	clock.Advance(1100 * time.Millisecond)
	tick(t, c, StateGo)
}

func TestPeerSignalsSurviveReturnToStopLine(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCoordinator(t, clock, 0.5)
	c.Inputs().SetTrafficSigns([]int{1})
	c.Inputs().SetMode(ModeCoordination)
	c.Inputs().SetSignals(SignalsReport{Right: SignalA, Opposite: SignalNoCar})

	tick(t, c, StateSacrifice)
	clock.Advance(3600 * time.Millisecond)
	tick(t, c, StateAtStopClearing)

	snap := c.Snapshot()
	assert.Equal(t, SignalA, snap.Right, "only leaving lane following clears peer signals")
	assert.Equal(t, SignalNoCar, snap.Opposite)

	tick(t, c, StateSacrifice)
}
