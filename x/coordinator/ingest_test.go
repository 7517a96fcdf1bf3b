package coordinator

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputsDefaults(t *testing.T) {
	t.Parallel()

	in := newInputs(zerolog.Nop(), NewMetrics(), nil)

	assert.Equal(t, ModeLaneFollowing, in.Mode())
	assert.Equal(t, SignalUnknown, in.Right())
	assert.Equal(t, SignalUnknown, in.Opposite())
	assert.Equal(t, SignalUnknown, in.TrafficLightPhase())
	assert.Equal(t, PresenceUnknown, in.TrafficLight())
}

func TestSetSignalsOverwritesWholesale(t *testing.T) {
	t.Parallel()

	in := newInputs(zerolog.Nop(), NewMetrics(), nil)
	in.SetSignals(SignalsReport{TrafficLight: TrafficLightGo, Right: SignalA, Opposite: SignalB})
	in.SetSignals(SignalsReport{Right: SignalNoCar})

	assert.Equal(t, SignalNoCar, in.Right())
	assert.Equal(t, Signal(""), in.Opposite())
	assert.Equal(t, Signal(""), in.TrafficLightPhase())
}

func TestSetTrafficSignsLastSignWins(t *testing.T) {
	t.Parallel()

	in := newInputs(zerolog.Nop(), NewMetrics(), nil)

	in.SetTrafficSigns([]int{TrafficLightSignType, 5})
	assert.Equal(t, PresenceAbsent, in.TrafficLight())

	in.SetTrafficSigns([]int{5, TrafficLightSignType})
	assert.Equal(t, PresencePresent, in.TrafficLight())

	in.SetTrafficSigns(nil)
	assert.Equal(t, PresencePresent, in.TrafficLight())
}

func TestTrafficLightReportedOncePerIntersection(t *testing.T) {
	t.Parallel()

	var reports []Presence
	clock := newFakeClock()
	c, err := New(Config{
		Logger:               zerolog.Nop(),
		Now:                  clock.Now,
		Rand:                 sequence(0),
		OnTrafficLightReport: func(p Presence) { reports = append(reports, p) },
	})
	require.NoError(t, err)

	require.False(t, c.Inputs().SetTrafficSigns(nil), "empty detection is not a classification")
	require.True(t, c.Inputs().SetTrafficSigns([]int{3}))
	require.False(t, c.Inputs().SetTrafficSigns([]int{TrafficLightSignType}))
	require.Equal(t, []Presence{PresenceAbsent}, reports)
	require.Equal(t, PresencePresent, c.Inputs().TrafficLight(), "silent updates still overwrite")

	c.Inputs().SetMode(ModeCoordination)
	c.Inputs().SetSignals(noCars())
	tick(t, c, StateKeepCalm)
	clock.Advance(4100 * time.Millisecond)
	tick(t, c, StateGo)
	require.False(t, c.Inputs().SetTrafficSigns([]int{TrafficLightSignType}))

	// Every tick spent in GO re-arms the announcement for the next intersection.
	tick(t, c, StateGo)
	require.True(t, c.Inputs().SetTrafficSigns([]int{3}))
	require.Equal(t, []Presence{PresenceAbsent, PresenceAbsent}, reports)
}

func TestInputsConcurrentWriters(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := newTestCoordinator(t, clock)
	c.Inputs().SetTrafficSigns([]int{1})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	writers := []func(){
		func() { c.Inputs().SetMode(ModeCoordination) },
		func() { c.Inputs().SetSignals(SignalsReport{Right: SignalA, Opposite: SignalNoCar}) },
		func() { c.Inputs().SetTrafficSigns([]int{2}) },
	}
	for _, w := range writers {
		wg.Add(1)
		go func(write func()) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					write()
				}
			}
		}(w)
	}

	for i := 0; i < 200; i++ {
		clock.Advance(100 * time.Millisecond)
		out, ok := c.Tick()
		require.True(t, ok)
		if out.State != StateGo {
			require.Equal(t, ClearanceWait, out.Clearance)
		}
		_ = c.Snapshot()
	}
	close(stop)
	wg.Wait()
}
