package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/compose-network/intersection-coordinator/coordinator-app/config"
	"github.com/compose-network/intersection-coordinator/metrics"
	apisrv "github.com/compose-network/intersection-coordinator/server/api"
	apimw "github.com/compose-network/intersection-coordinator/server/api/middleware"
	"github.com/compose-network/intersection-coordinator/x/bus"
	"github.com/compose-network/intersection-coordinator/x/configlocator"
	"github.com/compose-network/intersection-coordinator/x/node"
)

const shutdownTimeout = 30 * time.Second

// App runs the coordinator node and its HTTP API.
type App struct {
	cfg       *config.Config
	log       zerolog.Logger
	startedAt time.Time

	bus  bus.Bus
	node node.Node

	// API server (HTTP)
	apiServer *apisrv.Server

	cancel context.CancelFunc
}

// NewApp creates a new application instance
func NewApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	app := &App{
		cfg:       cfg,
		log:       log.With().Str("component", "app").Logger(),
		startedAt: time.Now(),
	}

	if err := app.initialize(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}

	return app, nil
}

// initialize loads the timing parameters and wires bus, node and API server.
func (a *App) initialize(_ context.Context, log zerolog.Logger) error {
	params, applied, err := configlocator.LoadCoordinatorParams(a.cfg.Node.ParamSources, a.cfg.Node.Vehicle, a.cfg.Coordinator)
	if err != nil {
		return err
	}
	a.log.Info().
		Strs("files", applied).
		Float64("t_min_random", params.TMinRandom).
		Float64("t_max_random", params.TMaxRandom).
		Float64("t_unknown_base", params.TUnknownBase).
		Float64("t_unknown", params.TUnknown).
		Float64("keep_calm_dwell", params.KeepCalmDwell).
		Msg("Coordinator parameters loaded")

	busCfg := a.cfg.BusSettings()
	busCfg.Logger = log
	if busCfg.SenderID == "" && a.cfg.Node.Vehicle != "" {
		busCfg.SenderID = a.cfg.Node.Vehicle
	}
	b, err := bus.New(busCfg)
	if err != nil {
		return fmt.Errorf("failed to create bus: %w", err)
	}
	a.bus = b

	nodeCfg := node.DefaultConfig(log, b)
	nodeCfg.Coordinator.Params = params
	nodeCfg.TickPeriod = a.cfg.Node.TickPeriod
	n, err := node.New(nodeCfg)
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}
	a.node = n

	apiCfg := apisrv.Config{
		ListenAddr:        a.cfg.API.ListenAddr,
		ReadHeaderTimeout: a.cfg.API.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.API.ReadTimeout,
		WriteTimeout:      a.cfg.API.WriteTimeout,
		IdleTimeout:       a.cfg.API.IdleTimeout,
		MaxHeaderBytes:    a.cfg.API.MaxHeaderBytes,
	}
	s := apisrv.NewServer(apiCfg, log)
	s.Use(apimw.Recover(log))
	s.Use(apimw.RequestID())
	s.Use(apimw.Logger(log, "/health", "/ready", "/metrics"))
	if a.cfg.API.EnableCORS {
		s.EnableCORS()
	}

	// Health/readiness/state
	s.Router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	s.Router.HandleFunc("/ready", a.handleReady).Methods(http.MethodGet)
	s.Router.HandleFunc("/state", a.handleState).Methods(http.MethodGet)
	s.Router.HandleFunc("/stats", a.handleStats).Methods(http.MethodGet)

	// Metrics
	if a.cfg.Metrics.Enabled {
		s.Router.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})).
			Methods(http.MethodGet)
	}

	a.apiServer = s
	return nil
}

// Run starts the application and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.node.Start(runCtx); err != nil {
		cancel()
		return fmt.Errorf("failed to start node: %w", err)
	}

	if a.cfg.Metrics.ReportInterval > 0 {
		go a.metricsReporter(runCtx, a.cfg.Metrics.ReportInterval)
	}

	apiErr := make(chan error, 1)
	go func() {
		if err := a.apiServer.Start(runCtx); err != nil {
			a.log.Error().Err(err).Msg("API server error")
			apiErr <- err
		}
	}()

	return a.runWithGracefulShutdown(runCtx, apiErr)
}

// runWithGracefulShutdown handles shutdown signals.
func (a *App) runWithGracefulShutdown(ctx context.Context, apiErr <-chan error) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	a.log.Info().Msg("Intersection coordinator started successfully")

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info().Msg("Context canceled, initiating shutdown")
	case sig := <-sigCh:
		a.log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-apiErr:
		runErr = fmt.Errorf("api server: %w", err)
	}

	if a.cancel != nil {
		a.cancel()
	}

	return errors.Join(runErr, a.shutdown())
}

// shutdown stops the node within the shutdown budget. The API server stops with the run context.
func (a *App) shutdown() error {
	a.log.Info().Msg("Initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.node.Stop(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("Node shutdown error")
		return err
	}

	a.log.Info().Msg("Graceful shutdown complete")
	return nil
}

// handleHealth responds to liveness probes.
func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	apisrv.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady reports 503 until the current intersection has been classified.
func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	snap := a.node.Snapshot()
	if !a.node.Ready() {
		apisrv.WriteError(w, r, http.StatusServiceUnavailable, "not_ready",
			"waiting for intersection classification", map[string]string{"traffic_light": snap.TrafficLight})
		return
	}
	apisrv.WriteJSON(w, http.StatusOK, map[string]string{
		"status":        "ready",
		"traffic_light": snap.TrafficLight,
		"state":         string(snap.State),
	})
}

func (a *App) handleState(w http.ResponseWriter, _ *http.Request) {
	apisrv.WriteJSON(w, http.StatusOK, a.node.Snapshot())
}

func (a *App) handleStats(w http.ResponseWriter, _ *http.Request) {
	apisrv.WriteJSON(w, http.StatusOK, a.GetStats())
}

// GetStats returns application statistics.
func (a *App) GetStats() map[string]any {
	return map[string]any{
		"node":           a.node.Stats(),
		"sender_id":      a.bus.SenderID(),
		"vehicle":        a.cfg.Node.Vehicle,
		"bus_driver":     a.cfg.Bus.Driver,
		"uptime_seconds": time.Since(a.startedAt).Seconds(),
		"app_version":    Version,
		"app_build_time": BuildTime,
		"app_git_commit": GitCommit,
	}
}

// metricsReporter periodically logs node statistics.
func (a *App) metricsReporter(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := a.node.Stats()
			snap := a.node.Snapshot()

			a.log.Info().
				Str("state", string(snap.State)).
				Str("traffic_light", snap.TrafficLight).
				Uint64("ticks_evaluated", stats.TicksEvaluated).
				Uint64("ticks_gated", stats.TicksGated).
				Uint64("ticks_skipped", stats.TicksSkipped).
				Uint64("inbound_messages", stats.InboundMessages).
				Uint64("decode_failures", stats.DecodeFailures).
				Uint64("publish_failures", stats.PublishFailures).
				Uint64("go_episodes", stats.GoEpisodes).
				Uint64("intersections_classified", stats.Classified).
				Msg("Coordinator statistics")
		}
	}
}
