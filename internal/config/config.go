// Package config loads the server's YAML configuration file and watches it
// for changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sulphate/internal/observability"
	"sulphate/internal/sim"
	"sulphate/internal/units"
	"sulphate/internal/world"
	"sulphate/logging"
)

const (
	DefaultAddr            = ":8080"
	DefaultReadBuffer      = 1024
	DefaultSimRate         = 1.0
	DefaultCommandCapacity = 1024
	DefaultPerActorLimit   = 32
	DefaultWarningStep     = 256
	DefaultIdleTickMillis  = 1000
)

// File is the on-disk configuration.
type File struct {
	Server        ServerSection        `yaml:"server" json:"server"`
	World         WorldSection         `yaml:"world" json:"world"`
	Loop          LoopSection          `yaml:"loop" json:"loop"`
	Logging       LoggingSection       `yaml:"logging" json:"logging"`
	Observability observability.Config `yaml:"observability" json:"observability"`
}

type ServerSection struct {
	Addr        string `yaml:"addr" json:"addr" jsonschema:"description=listen address"`
	ReadBuffer  int    `yaml:"read_buffer" json:"read_buffer"`
	WriteBuffer int    `yaml:"write_buffer" json:"write_buffer"`
}

type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

func (p Point) Vector() units.Vector {
	return units.Vector{X: p.X, Y: p.Y}
}

// RockSpec places an inert body at startup. Bumpers also stop whatever
// runs into them.
type RockSpec struct {
	Position Point   `yaml:"position" json:"position"`
	Velocity Point   `yaml:"velocity" json:"velocity"`
	Radius   float64 `yaml:"radius" json:"radius"`
	Bumper   bool    `yaml:"bumper" json:"bumper,omitempty"`
}

type WorldSection struct {
	Margin         float64    `yaml:"margin" json:"margin" jsonschema:"description=broad-phase margin added to the radius sum"`
	EpsilonMoments int        `yaml:"epsilon_moments" json:"epsilon_moments"`
	BounceMoments  int        `yaml:"bounce_moments" json:"bounce_moments"`
	SimRate        float64    `yaml:"sim_rate" json:"sim_rate" jsonschema:"description=simulation time units per wall second"`
	PlayerRadius   float64    `yaml:"player_radius" json:"player_radius"`
	UpdateBuffer   int        `yaml:"update_buffer" json:"update_buffer"`
	Spawn          Point      `yaml:"spawn" json:"spawn"`
	Rocks          []RockSpec `yaml:"rocks" json:"rocks,omitempty"`
}

type LoopSection struct {
	CommandCapacity int `yaml:"command_capacity" json:"command_capacity"`
	PerActorLimit   int `yaml:"per_actor_limit" json:"per_actor_limit"`
	WarningStep     int `yaml:"warning_step" json:"warning_step"`
	IdleTickMillis  int `yaml:"idle_tick_ms" json:"idle_tick_ms"`
}

type LoggingSection struct {
	Sinks          []string `yaml:"sinks" json:"sinks"`
	MinSeverity    string   `yaml:"min_severity" json:"min_severity" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	JSONPath       string   `yaml:"json_path" json:"json_path,omitempty"`
	BufferSize     int      `yaml:"buffer_size" json:"buffer_size"`
	MemoryCapacity int      `yaml:"memory_capacity" json:"memory_capacity" jsonschema:"description=events retained by the memory sink"`
}

// Default returns the configuration used when no file is given.
func Default() File {
	worldDefaults := world.DefaultConfig()
	return File{
		Server: ServerSection{
			Addr:        DefaultAddr,
			ReadBuffer:  DefaultReadBuffer,
			WriteBuffer: DefaultReadBuffer,
		},
		World: WorldSection{
			Margin:         worldDefaults.Margin,
			EpsilonMoments: worldDefaults.EpsilonMoments,
			BounceMoments:  worldDefaults.BounceMoments,
			SimRate:        DefaultSimRate,
			PlayerRadius:   worldDefaults.PlayerRadius,
			UpdateBuffer:   worldDefaults.UpdateBuffer,
		},
		Loop: LoopSection{
			CommandCapacity: DefaultCommandCapacity,
			PerActorLimit:   DefaultPerActorLimit,
			WarningStep:     DefaultWarningStep,
			IdleTickMillis:  DefaultIdleTickMillis,
		},
		Logging: LoggingSection{
			Sinks:          []string{"console"},
			MinSeverity:    "info",
			BufferSize:     logging.DefaultBufferSize,
			MemoryCapacity: logging.DefaultMemoryCapacity,
		},
	}
}

func (f File) normalized() File {
	normalized := f
	normalized.Server.Addr = strings.TrimSpace(normalized.Server.Addr)
	if normalized.Server.Addr == "" {
		normalized.Server.Addr = DefaultAddr
	}
	if normalized.Server.ReadBuffer <= 0 {
		normalized.Server.ReadBuffer = DefaultReadBuffer
	}
	if normalized.Server.WriteBuffer <= 0 {
		normalized.Server.WriteBuffer = DefaultReadBuffer
	}
	if normalized.World.SimRate <= 0 {
		normalized.World.SimRate = DefaultSimRate
	}
	worldCfg := normalized.WorldConfig()
	normalized.World.Margin = worldCfg.Margin
	normalized.World.EpsilonMoments = worldCfg.EpsilonMoments
	normalized.World.BounceMoments = worldCfg.BounceMoments
	normalized.World.PlayerRadius = worldCfg.PlayerRadius
	normalized.World.UpdateBuffer = worldCfg.UpdateBuffer
	rocks := normalized.World.Rocks[:0:0]
	for _, rock := range normalized.World.Rocks {
		if rock.Radius > 0 {
			rocks = append(rocks, rock)
		}
	}
	normalized.World.Rocks = rocks
	if normalized.Loop.CommandCapacity <= 0 {
		normalized.Loop.CommandCapacity = DefaultCommandCapacity
	}
	if normalized.Loop.PerActorLimit < 0 {
		normalized.Loop.PerActorLimit = 0
	}
	if normalized.Loop.WarningStep < 0 {
		normalized.Loop.WarningStep = 0
	}
	if normalized.Loop.IdleTickMillis <= 0 {
		normalized.Loop.IdleTickMillis = DefaultIdleTickMillis
	}
	normalized.Logging.MinSeverity = strings.ToLower(strings.TrimSpace(normalized.Logging.MinSeverity))
	if normalized.Logging.BufferSize <= 0 {
		normalized.Logging.BufferSize = logging.DefaultBufferSize
	}
	if normalized.Logging.MemoryCapacity <= 0 {
		normalized.Logging.MemoryCapacity = logging.DefaultMemoryCapacity
	}
	return normalized
}

func (f File) Normalized() File {
	return f.normalized()
}

// Parse decodes YAML on top of the defaults, so omitted keys keep their
// default values.
func Parse(data []byte) (File, error) {
	file := Default()
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	file = file.normalized()
	if _, err := file.LoggingConfig(); err != nil {
		return File{}, err
	}
	return file, nil
}

// Load reads and parses the file at path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	file, err := Parse(data)
	if err != nil {
		return File{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return file, nil
}

// LoadOrDefault loads path, falling back to the defaults when path is empty.
func LoadOrDefault(path string) (File, error) {
	if strings.TrimSpace(path) == "" {
		return Default().normalized(), nil
	}
	return Load(path)
}

// WorldConfig extracts the world construction parameters.
func (f File) WorldConfig() world.Config {
	return world.Config{
		Margin:         f.World.Margin,
		EpsilonMoments: f.World.EpsilonMoments,
		BounceMoments:  f.World.BounceMoments,
		PlayerRadius:   f.World.PlayerRadius,
		UpdateBuffer:   f.World.UpdateBuffer,
	}.Normalized()
}

// LoopConfig extracts the loop parameters.
func (f File) LoopConfig() sim.LoopConfig {
	return sim.LoopConfig{
		SimRate:         f.World.SimRate,
		CommandCapacity: f.Loop.CommandCapacity,
		PerActorLimit:   f.Loop.PerActorLimit,
		WarningStep:     f.Loop.WarningStep,
		IdleTick:        time.Duration(f.Loop.IdleTickMillis) * time.Millisecond,
	}
}

var errUnknownSeverity = errors.New("config: unknown logging severity")

// LoggingConfig converts the logging section into router configuration.
func (f File) LoggingConfig() (logging.Config, error) {
	cfg := logging.DefaultConfig()
	severity, ok := logging.ParseSeverity(f.Logging.MinSeverity)
	if !ok {
		return logging.Config{}, fmt.Errorf("%w %q", errUnknownSeverity, f.Logging.MinSeverity)
	}
	cfg.MinimumSeverity = severity
	if len(f.Logging.Sinks) > 0 {
		cfg.EnabledSinks = append([]string(nil), f.Logging.Sinks...)
	}
	if f.Logging.BufferSize > 0 {
		cfg.BufferSize = f.Logging.BufferSize
	}
	if f.Logging.MemoryCapacity > 0 {
		cfg.MemoryCapacity = f.Logging.MemoryCapacity
	}
	cfg.JSON.FilePath = f.Logging.JSONPath
	return cfg, nil
}
