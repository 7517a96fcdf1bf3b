package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/compose-network/intersection-coordinator/x/bus"
	"github.com/compose-network/intersection-coordinator/x/coordinator"
	"github.com/compose-network/intersection-coordinator/x/messenger"
	"github.com/compose-network/intersection-coordinator/x/msgs"
	tickrunner "github.com/compose-network/intersection-coordinator/x/tick-runner"
)

type node struct {
	// Synchronization and lifecycle
	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	logger  zerolog.Logger

	// Modules
	bus         bus.Bus
	coordinator *coordinator.Coordinator
	messenger   messenger.Messenger
	tickRunner  tickrunner.TickRunner
	metrics     *Metrics

	// Counters
	ticksEvaluated  atomic.Uint64
	ticksGated      atomic.Uint64
	ticksSkipped    atomic.Uint64
	lastTickID      atomic.Uint64
	inbound         atomic.Uint64
	decodeFailures  atomic.Uint64
	publishFailures atomic.Uint64
	goEpisodes      atomic.Uint64
	classified      atomic.Uint64
}

func New(cfg Config) (Node, error) {
	if err := cfg.apply(); err != nil {
		return nil, err
	}

	runnerCfg := tickrunner.DefaultTickRunnerConfig(cfg.Logger)
	runnerCfg.Period = cfg.TickPeriod

	n := &node{
		logger:     cfg.Logger.With().Str("component", "node").Logger(),
		bus:        cfg.Bus,
		messenger:  messenger.NewMessenger(cfg.Logger.With().Str("component", "messenger").Logger(), cfg.Bus),
		tickRunner: tickrunner.NewLocalTickRunner(runnerCfg),
		metrics:    NewMetrics(),
	}

	coordCfg := cfg.Coordinator
	report := coordCfg.OnTrafficLightReport
	coordCfg.OnTrafficLightReport = func(p coordinator.Presence) {
		n.classified.Add(1)
		if report != nil {
			report(p)
		}
	}
	coord, err := coordinator.New(coordCfg)
	if err != nil {
		return nil, fmt.Errorf("node: create coordinator: %w", err)
	}
	n.coordinator = coord

	// Set hooks
	n.tickRunner.SetHandler(n.onTick)
	n.subscribe()

	return n, nil
}

func (n *node) subscribe() {
	in := n.coordinator.Inputs()

	n.bus.Subscribe(msgs.TopicMode, inbound(n, func(m msgs.ModeUpdate) {
		in.SetMode(coordinator.Mode(m.State))
	}))
	n.bus.Subscribe(msgs.TopicAprilTags, inbound(n, func(m msgs.AprilTagsWithInfos) {
		in.SetTrafficSigns(m.SignTypes())
	}))
	n.bus.Subscribe(msgs.TopicSignalsDetection, inbound(n, func(m msgs.SignalsDetection) {
		in.SetSignals(coordinator.SignalsReport{
			TrafficLight: coordinator.Signal(m.TrafficLightState),
			Right:        coordinator.Signal(m.Right),
			Opposite:     coordinator.Signal(m.Front),
		})
	}))
}

// inbound decodes the payload as T before handing it to apply.
func inbound[T any](n *node, apply func(T)) bus.Handler {
	return func(_ context.Context, msg bus.Message) error {
		n.inbound.Add(1)
		m, err := msgs.Decode[T](msg.Payload)
		if err != nil {
			n.decodeFailures.Add(1)
			return err
		}
		apply(m)
		return nil
	}
}

func (n *node) onTick(ctx context.Context, info tickrunner.TickInfo) error {
	start := time.Now()
	defer func() { n.metrics.TickDuration.Observe(time.Since(start).Seconds()) }()

	n.lastTickID.Store(info.TickID)
	if info.Skipped > 0 {
		n.ticksSkipped.Add(info.Skipped)
		n.metrics.SkippedTicks.Observe(float64(info.Skipped))
	}

	out, ok := n.coordinator.Tick()
	if !ok {
		n.ticksGated.Add(1)
		return nil
	}
	n.ticksEvaluated.Add(1)
	if out.IntersectionGo {
		n.goEpisodes.Add(1)
	}

	if err := n.messenger.Publish(ctx, out); err != nil {
		n.publishFailures.Add(1)
		return fmt.Errorf("node: publish tick %d: %w", info.TickID, err)
	}
	return nil
}

func (n *node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := n.bus.Start(runCtx); err != nil {
		cancel()
		return fmt.Errorf("node: start bus: %w", err)
	}
	if err := n.tickRunner.Start(runCtx); err != nil {
		cancel()
		return errors.Join(
			fmt.Errorf("node: start tick runner: %w", err),
			n.bus.Stop(context.Background()),
		)
	}

	n.cancel = cancel
	n.started = true
	n.logger.Info().Str("sender_id", n.bus.SenderID()).Msg("Node started")
	return nil
}

func (n *node) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	n.mu.Lock()
	if !n.started {
		n.mu.Unlock()
		return nil
	}
	cancel := n.cancel
	n.started = false
	n.cancel = nil
	n.mu.Unlock()

	var errs []error
	if err := n.tickRunner.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("node: stop tick runner: %w", err))
	}
	if err := n.bus.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("node: stop bus: %w", err))
	}
	cancel()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	n.logger.Info().Msg("Node stopped")
	return nil
}

func (n *node) Ready() bool {
	return n.coordinator.Inputs().TrafficLight() != coordinator.PresenceUnknown
}

func (n *node) Snapshot() coordinator.Snapshot {
	return n.coordinator.Snapshot()
}

func (n *node) Stats() Stats {
	return Stats{
		TicksEvaluated:  n.ticksEvaluated.Load(),
		TicksGated:      n.ticksGated.Load(),
		TicksSkipped:    n.ticksSkipped.Load(),
		LastTickID:      n.lastTickID.Load(),
		InboundMessages: n.inbound.Load(),
		DecodeFailures:  n.decodeFailures.Load(),
		PublishFailures: n.publishFailures.Load(),
		GoEpisodes:      n.goEpisodes.Load(),
		Classified:      n.classified.Load(),
	}
}
