package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/intersection-coordinator/coordinator-app/config"
	"github.com/compose-network/intersection-coordinator/x/coordinator"
	"github.com/compose-network/intersection-coordinator/x/msgs"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.API.ListenAddr = "127.0.0.1:0"
	cfg.Node.TickPeriod = 5 * time.Millisecond
	cfg.Node.Vehicle = "duckie-test"
	cfg.Metrics.ReportInterval = 0
	return cfg
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestAppEndpoints(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, app.node.Start(ctx))
	defer app.node.Stop(context.Background())

	h := app.apiServer.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/ready").Code)

	rec := get(t, h, "/state")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap coordinator.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, coordinator.StateAtStopClearing, snap.State)
	assert.Equal(t, "NA", snap.Clearance)

	require.NoError(t, app.bus.Publish(ctx, msgs.TopicAprilTags, msgs.AprilTagsWithInfos{
		Infos: []msgs.TagInfo{{ID: 9, TrafficSignType: coordinator.TrafficLightSignType}},
	}.Struct()))

	rec = get(t, h, "/ready")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready"`)

	require.Eventually(t, func() bool {
		var s coordinator.Snapshot
		rec := get(t, h, "/state")
		return json.Unmarshal(rec.Body.Bytes(), &s) == nil && s.Ticks > 0
	}, time.Second, 5*time.Millisecond)

	rec = get(t, h, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "duckie-test", stats["sender_id"])
	assert.Equal(t, Version, stats["app_version"])

	rec = get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "intersection_coordinator_ticks_total")
}

func TestAppWithoutMetricsEndpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	app, err := NewApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, get(t, app.apiServer.Handler(), "/metrics").Code)
}

func TestAppRejectsInvalidParameterFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.coordinator.yaml"), []byte("t_unknown: -3\n"), 0o600))

	cfg := testConfig(t)
	cfg.Node.ParamSources = []string{dir}
	_, err := NewApp(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestAppRunStopsOnContextCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	addrCtx, addrCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer addrCancel()
	addr, err := app.apiServer.Addr(addrCtx)
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("app did not shut down")
	}
}
