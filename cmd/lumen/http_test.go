package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/cache"
	"lumen/internal/pipeline"
	"lumen/internal/recognition"
	"lumen/internal/scanner"
	"lumen/internal/source"
	"lumen/internal/timeutil"
	"lumen/internal/ws"
)

type stubProber struct {
	healthy bool
}

func (s stubProber) IsHealthy(context.Context) bool { return s.healthy }

type routerFixture struct {
	router    http.Handler
	admission *pipeline.AdmissionPipeline
	stats     *pipeline.Stats
	scan      *scanner.Scanner
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	logger := log.New(io.Discard, "", 0)
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg := pipeline.DefaultConfig()

	stats := pipeline.NewStats()
	admission := pipeline.NewAdmissionPipeline(cfg, stats, clock)
	client := recognition.NewClient("http://localhost:0", "test-model")
	resultCache := cache.NewResultCache(cfg.CacheMaxEntries, cfg.CacheTTL, clock)
	dispatcher := recognition.NewDispatcher(client, resultCache, stats, cfg, clock, logger)
	hub := ws.NewDetectionHub(logger)
	scan := scanner.New(source.NewStaticSource(), admission, dispatcher, cfg, clock, logger)
	scan.SetHub(hub)

	return &routerFixture{
		router:    newRouter(scan, admission, stats, hub, stubProber{healthy: true}, logger),
		admission: admission,
		stats:     stats,
		scan:      scan,
	}
}

func (f *routerFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	rec := f.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["running"])
	assert.Equal(t, true, body["gating"])
	assert.Equal(t, true, body["service"])
}

func TestRouter_HealthProbesRecognitionService(t *testing.T) {
	t.Parallel()

	logger := log.New(io.Discard, "", 0)
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg := pipeline.DefaultConfig()

	// A real client against a live /health endpoint, end to end.
	probe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status":"ok","model_loaded":true}`))
	}))
	defer probe.Close()

	stats := pipeline.NewStats()
	admission := pipeline.NewAdmissionPipeline(cfg, stats, clock)
	client := recognition.NewClient(probe.URL, "test-model")
	resultCache := cache.NewResultCache(cfg.CacheMaxEntries, cfg.CacheTTL, clock)
	dispatcher := recognition.NewDispatcher(client, resultCache, stats, cfg, clock, logger)
	hub := ws.NewDetectionHub(logger)
	scan := scanner.New(source.NewStaticSource(), admission, dispatcher, cfg, clock, logger)
	router := newRouter(scan, admission, stats, hub, client, logger)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["service"])
}

func TestRouter_HealthReportsUnreachableService(t *testing.T) {
	t.Parallel()

	logger := log.New(io.Discard, "", 0)
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cfg := pipeline.DefaultConfig()

	probe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	probe.Close() // refuse connections

	stats := pipeline.NewStats()
	admission := pipeline.NewAdmissionPipeline(cfg, stats, clock)
	client := recognition.NewClient(probe.URL, "test-model")
	resultCache := cache.NewResultCache(cfg.CacheMaxEntries, cfg.CacheTTL, clock)
	dispatcher := recognition.NewDispatcher(client, resultCache, stats, cfg, clock, logger)
	hub := ws.NewDetectionHub(logger)
	scan := scanner.New(source.NewStaticSource(), admission, dispatcher, cfg, clock, logger)
	router := newRouter(scan, admission, stats, hub, client, logger)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, "the surface itself stays up")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["service"])
}

func TestRouter_Stats(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	f.stats.FrameSeen()
	f.stats.FrameSkipped()

	rec := f.do(http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap pipeline.StatsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, uint64(1), snap.FramesAnalyzed)
	assert.InDelta(t, 100.0, snap.Efficiency, 1e-9)
}

func TestRouter_StatsReset(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	f.stats.FrameSeen()

	rec := f.do(http.MethodPost, "/stats/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, f.stats.Snapshot().FramesAnalyzed)

	// Reset is POST-only.
	rec = f.do(http.MethodGet, "/stats/reset", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_Detections(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	rec := f.do(http.MethodGet, "/detections", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Detections []pipeline.Detection `json:"detections"`
		Status     string               `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Detections)
	assert.Empty(t, body.Status)
}

func TestRouter_SnapshotWithoutFrame(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	rec := f.do(http.MethodGet, "/snapshot", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_GatingToggle(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)

	rec := f.do(http.MethodPost, "/gating", `{"enabled":false}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, f.admission.Enabled())

	rec = f.do(http.MethodPost, "/gating", `{"enabled":true}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, f.admission.Enabled())

	rec = f.do(http.MethodPost, "/gating", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, f.admission.Enabled(), "bad body leaves gating untouched")
}

func TestRouter_PauseResume(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/pause", "").Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodPost, "/resume", "").Code)
}
