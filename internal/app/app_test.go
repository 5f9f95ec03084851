package app

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sulphate/internal/sim"
	"sulphate/internal/telemetry"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func quiet() telemetry.Logger {
	return telemetry.WrapLogger(log.New(io.Discard, "", 0))
}

func TestNewSeedsRocksAndAppliesEnv(t *testing.T) {
	path := writeConfig(t, `
world:
  rocks:
    - position: {x: 50, y: 0}
      radius: 5
    - position: {x: -50, y: 0}
      radius: 5
      bumper: true
logging:
  sinks: [memory]
`)
	s, err := New(Config{
		Logger:     quiet(),
		ConfigPath: path,
		Getenv:     env(map[string]string{"SULPHATE_ADDR": "127.0.0.1:0", "EXPOSE_METRICS": "true", "SIM_RATE": "nope"}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Router.Close(context.Background())

	if s.File.Server.Addr != "127.0.0.1:0" || !s.File.Observability.ExposeMetrics {
		t.Fatalf("environment overrides not applied: %+v", s.File)
	}
	if s.File.World.SimRate != 1 {
		t.Fatalf("invalid SIM_RATE should be ignored, got %v", s.File.World.SimRate)
	}
	if s.Router.Sink("console") != nil || s.Router.Sink("memory") == nil {
		t.Fatalf("only the configured sinks should be enabled")
	}

	resp := httptest.NewRecorder()
	s.Handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))
	var payload struct {
		Loop struct {
			World struct {
				Entities int `json:"entities"`
			} `json:"world"`
		} `json:"loop"`
		Metrics map[string]uint64 `json:"metrics"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode diagnostics: %v", err)
	}
	if payload.Loop.World.Entities != 2 {
		t.Fatalf("expected two seeded rocks, got %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	s.Handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics/events", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("memory sink is enabled, expected recent events route, got %d", resp.Code)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{Logger: quiet(), ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatalf("expected missing config file to fail")
	}
	path := writeConfig(t, "logging:\n  min_severity: shouting\n")
	if _, err := New(Config{Logger: quiet(), ConfigPath: path}); err == nil {
		t.Fatalf("expected unknown severity to fail")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	path := writeConfig(t, "logging:\n  sinks: [memory]\n")
	s, err := New(Config{
		Logger:     quiet(),
		ConfigPath: path,
		Getenv:     env(map[string]string{"SULPHATE_ADDR": "127.0.0.1:0"}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
	if ok, _ := s.Loop.Enqueue(simLeave()); ok {
		t.Fatalf("loop should reject commands after shutdown")
	}
}

func simLeave() sim.Command {
	return sim.Command{ActorID: "test", Type: sim.CommandLeave}
}
