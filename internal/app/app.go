// Package app wires configuration, logging, the world, the simulation loop
// and the HTTP surface into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"sulphate/internal/config"
	servernet "sulphate/internal/net"
	"sulphate/internal/net/ws"
	"sulphate/internal/sim"
	"sulphate/internal/telemetry"
	"sulphate/internal/units"
	"sulphate/internal/world"
	"sulphate/logging"
	loggingSinks "sulphate/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Logger telemetry.Logger
	// ConfigPath names the YAML file to load and watch. Defaults apply when
	// empty.
	ConfigPath string
	// Getenv reads environment overrides; os.Getenv when nil.
	Getenv func(string) string
}

// Server is a fully wired but not yet running server.
type Server struct {
	File    config.File
	Loop    *sim.Loop
	Router  *logging.Router
	Metrics *logging.Metrics
	Handler http.Handler
	// Recent retains the latest structured events when the memory sink is
	// enabled.
	Recent *loggingSinks.MemorySink

	configPath string
	logger     telemetry.Logger
	closers    []func() error
}

func New(cfg Config) (*Server, error) {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	getenv := cfg.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	file, err := config.LoadOrDefault(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	file = applyEnv(file, getenv, telemetryLogger)

	logConfig, err := file.LoggingConfig()
	if err != nil {
		return nil, err
	}

	s := &Server{
		File:       file,
		Metrics:    &logging.Metrics{},
		Recent:     loggingSinks.NewMemorySink(logConfig.MemoryCapacity),
		configPath: cfg.ConfigPath,
		logger:     telemetryLogger,
	}

	sinks := []logging.NamedSink{
		{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console)},
		{Name: "memory", Sink: s.Recent},
	}
	if logConfig.JSON.FilePath != "" && logConfig.HasSink("json") {
		out, err := os.OpenFile(logConfig.JSON.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open json log %s: %w", logConfig.JSON.FilePath, err)
		}
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(out, logConfig.JSON.FlushInterval)})
	}

	router, err := logging.NewRouter(logConfig, logging.SystemClock{}, fallbackLogger, sinks)
	if err != nil {
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	s.Router = router
	// Every structured event names the server it came from.
	publisher := logging.WithFields(router, map[string]any{"server": file.Server.Addr})

	metrics := telemetry.WrapMetrics(s.Metrics)
	w, err := world.New(file.WorldConfig(), world.Deps{
		Publisher: publisher,
		Logger:    telemetryLogger,
		Metrics:   metrics,
	})
	if err != nil {
		router.Close(context.Background())
		return nil, fmt.Errorf("failed to construct world: %w", err)
	}
	for _, rock := range file.World.Rocks {
		if rock.Bumper {
			w.SpawnBumper(rock.Position.Vector(), rock.Velocity.Vector(), units.Distance(rock.Radius))
			continue
		}
		w.SpawnRock(rock.Position.Vector(), rock.Velocity.Vector(), units.Distance(rock.Radius))
	}

	s.Loop = sim.NewLoop(w, file.LoopConfig(), sim.Deps{
		Logger:    telemetryLogger,
		Metrics:   metrics,
		Publisher: publisher,
	}, sim.LoopHooks{
		OnQueueWarning: func(length int) {
			telemetryLogger.Printf("[backpressure] command buffer at %d", length)
		},
	})

	sessions := ws.NewHandler(s.Loop, ws.HandlerConfig{
		Logger:      fallbackLogger,
		Publisher:   publisher,
		ReadBuffer:  file.Server.ReadBuffer,
		WriteBuffer: file.Server.WriteBuffer,
		Spawn:       file.World.Spawn.Vector(),
	})

	var recent servernet.EventSource
	if router.Sink("memory") != nil {
		recent = s.Recent
	}
	s.Handler = servernet.NewHTTPHandler(s.Loop, servernet.HTTPHandlerConfig{
		Logger:        fallbackLogger,
		Metrics:       s.Metrics,
		Observability: file.Observability,
		Router:        router,
		Events:        recent,
		WebSocket:     sessions.Handle,
	})
	return s, nil
}

// applyEnv lets deployment environments override a few file settings.
func applyEnv(file config.File, getenv func(string) string, logger telemetry.Logger) config.File {
	if raw := getenv("SULPHATE_ADDR"); raw != "" {
		file.Server.Addr = raw
	}
	if raw := getenv("SIM_RATE"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			file.World.SimRate = value
		} else {
			logger.Printf("invalid SIM_RATE=%q", raw)
		}
	}
	if raw := getenv("ENABLE_PPROF_TRACE"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			file.Observability.EnablePprofTrace = value
		} else {
			logger.Printf("invalid ENABLE_PPROF_TRACE=%q: %v", raw, err)
		}
	}
	if raw := getenv("EXPOSE_METRICS"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			file.Observability.ExposeMetrics = value
		} else {
			logger.Printf("invalid EXPOSE_METRICS=%q: %v", raw, err)
		}
	}
	return file
}

// Run serves until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	stop := make(chan struct{})
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		s.Loop.Run(stop)
	}()
	defer func() {
		close(stop)
		<-loopDone
		for _, closer := range s.closers {
			if err := closer(); err != nil {
				s.logger.Printf("shutdown: %v", err)
			}
		}
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := s.Router.Close(closeCtx); cerr != nil {
			s.logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	if s.configPath != "" {
		watcher, err := config.Watch(s.configPath)
		if err != nil {
			s.logger.Printf("config reload disabled: %v", err)
		} else {
			s.closers = append(s.closers, watcher.Close)
			go s.retuneOnChange(watcher)
		}
	}

	srv := &http.Server{Addr: s.File.Server.Addr, Handler: s.Handler}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	s.logger.Printf("server listening on %s", srv.Addr)

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// retuneOnChange pushes the world section of every reloaded file into the
// loop. Other sections only take effect on restart.
func (s *Server) retuneOnChange(watcher *config.Watcher) {
	for {
		select {
		case file, ok := <-watcher.Updates:
			if !ok {
				return
			}
			tuning := file.WorldConfig()
			if ok, reason := s.Loop.Enqueue(sim.Command{
				ActorID: "config:reload",
				Type:    sim.CommandRetune,
				Retune:  &sim.RetuneCommand{Config: tuning},
			}); !ok {
				s.logger.Printf("config reload rejected: %s", reason)
				continue
			}
			s.logger.Printf("config reloaded from %s: margin=%g epsilon=%d bounce=%d", watcher.Path(), tuning.Margin, tuning.EpsilonMoments, tuning.BounceMoments)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Printf("config reload failed: %v", err)
		}
	}
}

// Run builds and serves a server in one call.
func Run(ctx context.Context, cfg Config) error {
	s, err := New(cfg)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}
