package net

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"sulphate/internal/observability"
	"sulphate/internal/sim"
	"sulphate/internal/world"
	"sulphate/logging"
)

type fakeSimulation struct {
	commands []sim.Command
	reject   string
	stats    sim.LoopStats
}

func (f *fakeSimulation) Enqueue(cmd sim.Command) (bool, string) {
	if f.reject != "" {
		return false, f.reject
	}
	f.commands = append(f.commands, cmd)
	return true, ""
}

func (f *fakeSimulation) Stats() sim.LoopStats { return f.stats }

func quietConfig() HTTPHandlerConfig {
	return HTTPHandlerConfig{Logger: log.New(io.Discard, "", 0)}
}

func TestHealthEndpoint(t *testing.T) {
	handler := NewHTTPHandler(&fakeSimulation{}, quietConfig())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.Code, resp.Body.String())
	}
}

func TestDiagnosticsIncludesMetricsOnlyWhenExposed(t *testing.T) {
	metrics := &logging.Metrics{}
	metrics.TelemetryAdd("world_events_stale_total", 3)
	simulation := &fakeSimulation{stats: sim.LoopStats{Ticks: 12}}

	cfg := quietConfig()
	cfg.Metrics = metrics
	handler := NewHTTPHandler(simulation, cfg)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))

	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode diagnostics: %v", err)
	}
	loop, _ := payload["loop"].(map[string]any)
	if loop == nil || loop["ticks"] != 12.0 {
		t.Fatalf("expected loop stats in diagnostics, got %v", payload["loop"])
	}
	if _, ok := payload["metrics"]; ok {
		t.Fatalf("metrics should be hidden unless exposed")
	}

	cfg.Observability = observability.Config{ExposeMetrics: true}
	handler = NewHTTPHandler(simulation, cfg)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))
	payload = nil
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode diagnostics: %v", err)
	}
	exposed, _ := payload["metrics"].(map[string]any)
	if exposed["world_events_stale_total"] != 3.0 {
		t.Fatalf("expected stale counter in metrics, got %v", payload["metrics"])
	}
}

type fixedEvents []logging.Event

func (f fixedEvents) Events() []logging.Event { return f }

func TestRecentEventsEndpoint(t *testing.T) {
	handler := NewHTTPHandler(&fakeSimulation{}, quietConfig())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics/events", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("events route should be absent without a source, got %d", resp.Code)
	}

	cfg := quietConfig()
	cfg.Events = fixedEvents{{Type: "a"}, {Type: "b"}, {Type: "c"}}
	handler = NewHTTPHandler(&fakeSimulation{}, cfg)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics/events?limit=2", nil))
	var payload struct {
		Events []logging.Event `json:"events"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(payload.Events) != 2 || payload.Events[0].Type != "b" || payload.Events[1].Type != "c" {
		t.Fatalf("expected the two newest events, got %+v", payload.Events)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics/events?limit=x", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad limit, got %d", resp.Code)
	}
}

func TestTuningEndpointQueuesRetune(t *testing.T) {
	simulation := &fakeSimulation{}
	handler := NewHTTPHandler(simulation, quietConfig())

	req := httptest.NewRequest(http.MethodPost, "/world/tuning", bytes.NewReader([]byte(`{"margin":2,"epsilonMoments":3}`)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d (%s)", resp.Code, resp.Body.String())
	}
	if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("expected json response, got %q", contentType)
	}
	if len(simulation.commands) != 1 {
		t.Fatalf("expected one queued command, got %d", len(simulation.commands))
	}
	cmd := simulation.commands[0]
	if cmd.Type != sim.CommandRetune || cmd.Retune == nil {
		t.Fatalf("expected retune command, got %+v", cmd)
	}
	if cmd.Retune.Config.Margin != 2 || cmd.Retune.Config.EpsilonMoments != 3 || cmd.Retune.Config.BounceMoments != 1 {
		t.Fatalf("expected normalized config, got %+v", cmd.Retune.Config)
	}
}

func TestTuningEndpointKeepsOmittedFields(t *testing.T) {
	current := world.Config{Margin: 7, EpsilonMoments: 2, BounceMoments: 4, PlayerRadius: 12, UpdateBuffer: 8}
	simulation := &fakeSimulation{stats: sim.LoopStats{World: world.Stats{Config: current}}}
	handler := NewHTTPHandler(simulation, quietConfig())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/world/tuning", bytes.NewReader([]byte(`{"epsilonMoments":3}`))))
	if resp.Code != http.StatusAccepted || len(simulation.commands) != 1 {
		t.Fatalf("expected one queued retune, got %d (%s)", resp.Code, resp.Body.String())
	}
	want := current
	want.EpsilonMoments = 3
	if got := simulation.commands[0].Retune.Config; got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestTuningEndpointRejections(t *testing.T) {
	handler := NewHTTPHandler(&fakeSimulation{}, quietConfig())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/world/tuning", nil))
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/world/tuning", bytes.NewReader([]byte(`{`))))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed payload, got %d", resp.Code)
	}

	handler = NewHTTPHandler(&fakeSimulation{reject: sim.CommandRejectStopped}, quietConfig())
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/world/tuning", bytes.NewReader([]byte(`{}`))))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when the loop is stopped, got %d", resp.Code)
	}
}

func TestPprofRoutesAreOptIn(t *testing.T) {
	handler := NewHTTPHandler(&fakeSimulation{}, quietConfig())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected pprof to be disabled, got %d", resp.Code)
	}

	cfg := quietConfig()
	cfg.Observability.EnablePprofTrace = true
	handler = NewHTTPHandler(&fakeSimulation{}, cfg)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected pprof index, got %d", resp.Code)
	}
}
