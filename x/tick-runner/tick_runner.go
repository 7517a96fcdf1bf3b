package tickrunner

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LocalTickRunner implements TickRunner on the local clock.
// Tick K is due at origin + K * period. A late wake-up delivers only the latest due tick and
// reports the ones it jumped over, since a control loop gains nothing from replaying stale ticks.
type LocalTickRunner struct {
	// Log and lifecycle
	log     zerolog.Logger
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
	// Handler
	handler TickCallback
	// Time management
	period time.Duration
	now    func() time.Time
	origin time.Time
}

// NewLocalTickRunner constructs a LocalTickRunner using local time.
// If config.Handler is nil, SetHandler must be called before Start.
func NewLocalTickRunner(cfg TickRunnerConfig) TickRunner {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}

	return &LocalTickRunner{
		handler: cfg.Handler,
		period:  cfg.Period,
		now:     cfg.Now,
		origin:  cfg.Origin,
		log:     cfg.Logger,
	}
}

// SetHandler sets the handler to be called on every tick.
// It should be called before Start; otherwise Start will panic.
func (r *LocalTickRunner) SetHandler(handler TickCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = handler
}

// Start begins emitting ticks until the context is canceled or Stop is called.
func (r *LocalTickRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handler == nil {
		panic("tickrunner: LocalTickRunner requires a handler to start")
	}
	if r.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.started = true

	if r.origin.IsZero() {
		r.origin = r.now()
	}

	go r.run(runCtx, r.handler, r.done)
	return nil
}

// Stop halts the runner and waits for an in-flight tick to finish.
func (r *LocalTickRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()

	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is invoked in Start and calls the handler on every due tick.
func (r *LocalTickRunner) run(ctx context.Context, handler TickCallback, done chan struct{}) {
	defer close(done)

	var lastEmitted uint64
	hasEmitted := false

	timer := time.NewTimer(r.delayUntil(r.origin))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			now := r.now()
			next := r.origin
			if !now.Before(r.origin) {
				currentID, start := r.TickForTime(now)
				if !hasEmitted || currentID > lastEmitted {
					var skipped uint64
					if hasEmitted && currentID > lastEmitted+1 {
						skipped = currentID - lastEmitted - 1
					}
					r.emit(ctx, handler, TickInfo{
						TickID:    currentID,
						StartedAt: start,
						Period:    r.period,
						Skipped:   skipped,
					})
					lastEmitted = currentID
					hasEmitted = true
				}
				next = r.tickStart(lastEmitted + 1)
			}
			timer.Reset(r.delayUntil(next))
		}
	}
}

// emit triggers the handler. Handler errors are logged and do not stop the runner.
func (r *LocalTickRunner) emit(ctx context.Context, handler TickCallback, info TickInfo) {
	if info.Skipped > 0 {
		r.log.Warn().
			Uint64("tick_id", info.TickID).
			Uint64("skipped", info.Skipped).
			Msg("Tick runner fell behind")
	}

	if err := handler(ctx, info); err != nil {
		r.log.Error().Err(err).Uint64("tick_id", info.TickID).Msg("tick handler returned error")
	}
}

func (r *LocalTickRunner) delayUntil(t time.Time) time.Duration {
	delay := t.Sub(r.now())
	if delay < 0 {
		delay = 0
	}
	return delay
}

// TickForTime returns the tick ID and the corresponding tick start time for the given timestamp.
func (r *LocalTickRunner) TickForTime(t time.Time) (uint64, time.Time) {
	if t.Before(r.origin) {
		return 0, r.origin
	}

	elapsed := t.Sub(r.origin)
	current := uint64(elapsed / r.period)
	return current, r.tickStart(current)
}

// tickStart returns the start time for the given tick ID.
func (r *LocalTickRunner) tickStart(tickID uint64) time.Time {
	return r.origin.Add(time.Duration(tickID) * r.period)
}
