// Package net assembles the HTTP surface: health and diagnostics endpoints,
// the websocket entry point and optional profiling handlers.
package net

import (
	"encoding/json"
	"io"
	"log"
	nethttp "net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"sulphate/internal/observability"
	"sulphate/internal/sim"
	"sulphate/internal/world"
	"sulphate/logging"
)

// Simulation is the part of the loop the HTTP surface needs.
type Simulation interface {
	Enqueue(cmd sim.Command) (bool, string)
	Stats() sim.LoopStats
}

// EventSource lists recently published structured events, oldest first.
type EventSource interface {
	Events() []logging.Event
}

type HTTPHandlerConfig struct {
	Logger        *log.Logger
	Metrics       *logging.Metrics
	Observability observability.Config
	// Router, when set, contributes its delivery counters to diagnostics.
	Router *logging.Router
	// Events serves /diagnostics/events. The route is omitted when nil.
	Events EventSource
	// WebSocket serves /ws. The route is omitted when nil.
	WebSocket nethttp.HandlerFunc
}

func NewHTTPHandler(simulation Simulation, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string               `json:"status"`
			ServerTime int64                `json:"serverTime"`
			Loop       sim.LoopStats        `json:"loop"`
			Logging    *logging.RouterStats `json:"logging,omitempty"`
			Metrics    map[string]uint64    `json:"metrics,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Loop:       simulation.Stats(),
		}
		if cfg.Router != nil {
			stats := cfg.Router.Stats()
			payload.Logging = &stats
		}
		if cfg.Observability.ExposeMetrics && cfg.Metrics != nil {
			payload.Metrics = cfg.Metrics.Snapshot()
		}
		writeJSON(w, logger, nethttp.StatusOK, payload)
	})

	if cfg.Events != nil {
		mux.HandleFunc("/diagnostics/events", func(w nethttp.ResponseWriter, r *nethttp.Request) {
			events := cfg.Events.Events()
			if raw := r.URL.Query().Get("limit"); raw != "" {
				limit, err := strconv.Atoi(raw)
				if err != nil || limit < 0 {
					httpError(w, "invalid limit", nethttp.StatusBadRequest)
					return
				}
				if limit < len(events) {
					events = events[len(events)-limit:]
				}
			}
			writeJSON(w, logger, nethttp.StatusOK, struct {
				Events []logging.Event `json:"events"`
			}{Events: events})
		})
	}

	mux.HandleFunc("/world/tuning", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}

		// Omitted fields keep the values currently in effect.
		tuning := simulation.Stats().World.Config
		if tuning == (world.Config{}) {
			tuning = world.DefaultConfig()
		}
		if r.Body != nil {
			defer r.Body.Close()
			decoder := json.NewDecoder(r.Body)
			if err := decoder.Decode(&tuning); err != nil && err != io.EOF {
				httpError(w, "invalid payload", nethttp.StatusBadRequest)
				return
			}
		}
		tuning = tuning.Normalized()

		ok, reason := simulation.Enqueue(sim.Command{
			ActorID: "http:tuning",
			Type:    sim.CommandRetune,
			Retune:  &sim.RetuneCommand{Config: tuning},
		})
		if !ok {
			httpError(w, "tuning rejected: "+reason, nethttp.StatusServiceUnavailable)
			return
		}

		response := struct {
			Status string       `json:"status"`
			Config world.Config `json:"config"`
		}{
			Status: "queued",
			Config: tuning,
		}
		writeJSON(w, logger, nethttp.StatusAccepted, response)
	})

	if cfg.WebSocket != nil {
		mux.HandleFunc("/ws", cfg.WebSocket)
	}

	if cfg.Observability.EnablePprofTrace {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	return mux
}

func writeJSON(w nethttp.ResponseWriter, logger *log.Logger, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("failed to encode response: %v", err)
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
