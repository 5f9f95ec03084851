package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sulphate/internal/space"
	"sulphate/logging"
)

func TestParseOverlaysDefaults(t *testing.T) {
	file, err := Parse([]byte(`
server:
  addr: ":9000"
world:
  margin: 2.5
  sim_rate: 4
  rocks:
    - position: {x: 10, y: 0}
      radius: 3
      bumper: true
    - position: {x: 20, y: 0}
      radius: 0
logging:
  sinks: [console, json]
  min_severity: DEBUG
  memory_capacity: 16
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if file.Server.Addr != ":9000" || file.Server.ReadBuffer != DefaultReadBuffer {
		t.Fatalf("unexpected server section %+v", file.Server)
	}
	if file.World.Margin != 2.5 || file.World.SimRate != 4 {
		t.Fatalf("unexpected world section %+v", file.World)
	}
	if file.World.EpsilonMoments != 1 || file.World.PlayerRadius != 10 {
		t.Fatalf("omitted world keys should keep defaults, got %+v", file.World)
	}
	if len(file.World.Rocks) != 1 || file.World.Rocks[0].Position.X != 10 || !file.World.Rocks[0].Bumper {
		t.Fatalf("zero-radius rocks should be discarded, got %+v", file.World.Rocks)
	}
	if file.Loop.CommandCapacity != DefaultCommandCapacity {
		t.Fatalf("expected default command capacity, got %d", file.Loop.CommandCapacity)
	}

	logCfg, err := file.LoggingConfig()
	if err != nil {
		t.Fatalf("logging config: %v", err)
	}
	if logCfg.MinimumSeverity != logging.SeverityDebug || len(logCfg.EnabledSinks) != 2 || logCfg.MemoryCapacity != 16 {
		t.Fatalf("unexpected logging config %+v", logCfg)
	}
}

func TestNormalizedRepairsInvalidValues(t *testing.T) {
	file := Default()
	file.Server.Addr = "  "
	file.World.Margin = -1
	file.World.SimRate = -3
	file.Loop.IdleTickMillis = 0
	file.Loop.PerActorLimit = -2

	normalized := file.Normalized()
	if normalized.Server.Addr != DefaultAddr {
		t.Fatalf("expected default addr, got %q", normalized.Server.Addr)
	}
	if normalized.World.Margin != float64(space.DefaultMargin) {
		t.Fatalf("negative margin should fall back to the default, got %v", normalized.World.Margin)
	}
	if normalized.World.SimRate != DefaultSimRate {
		t.Fatalf("expected default sim rate, got %v", normalized.World.SimRate)
	}
	loop := normalized.LoopConfig()
	if loop.IdleTick != time.Second || loop.PerActorLimit != 0 {
		t.Fatalf("unexpected loop config %+v", loop)
	}
}

func TestParseRejectsUnknownSeverity(t *testing.T) {
	if _, err := Parse([]byte("logging:\n  min_severity: loud\n")); !errors.Is(err, errUnknownSeverity) {
		t.Fatalf("expected unknown severity error, got %v", err)
	}
	if _, err := Parse([]byte("world: [unterminated")); err == nil {
		t.Fatalf("expected malformed yaml to fail")
	}
}

func TestLoadWrapsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	file, err := LoadOrDefault("")
	if err != nil || file.Server.Addr != DefaultAddr {
		t.Fatalf("empty path should load defaults, got %+v (%v)", file.Server, err)
	}
}

func TestWatcherPublishesReloadedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	if err := os.WriteFile(path, []byte("world:\n  margin: 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w, err := Watch(path)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write sibling: %v", err)
	}
	if err := os.WriteFile(path, []byte("world:\n  margin: 7\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case file := <-w.Updates:
			if file.World.Margin == 7 {
				return
			}
		case err := <-w.Errors:
			t.Fatalf("watcher error: %v", err)
		case <-deadline:
			t.Fatalf("timed out waiting for reload")
		}
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w, err := Watch(path)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, ok := <-w.Updates; ok {
		t.Fatalf("updates channel should be closed")
	}
}
