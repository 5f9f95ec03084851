package logging

import (
	"slices"
	"time"
)

const (
	DefaultBufferSize     = 512
	DefaultMemoryCapacity = 1024
)

// Config selects the sinks a router delivers to and how much it buffers.
type Config struct {
	EnabledSinks    []string
	BufferSize      int
	MinimumSeverity Severity
	JSON            JSONConfig
	Console         ConsoleConfig
	// MemoryCapacity bounds the in-process sink. The oldest events are
	// evicted first.
	MemoryCapacity int
}

type JSONConfig struct {
	FilePath      string
	FlushInterval time.Duration
}

type ConsoleConfig struct {
	Prefix       string
	Microseconds bool
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:    []string{"console"},
		BufferSize:      DefaultBufferSize,
		MinimumSeverity: SeverityInfo,
		MemoryCapacity:  DefaultMemoryCapacity,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
	}
}

// HasSink reports whether name is listed explicitly.
func (c Config) HasSink(name string) bool {
	return slices.Contains(c.EnabledSinks, name)
}

// Enables reports whether the sink called name receives events. An empty
// list enables every sink.
func (c Config) Enables(name string) bool {
	return len(c.EnabledSinks) == 0 || c.HasSink(name)
}

func (c Config) queueSize() int {
	if c.BufferSize <= 0 {
		return DefaultBufferSize
	}
	return c.BufferSize
}

// sinkBacklog is the per-sink queue, kept between 32 and 1024 events.
func (c Config) sinkBacklog() int {
	return min(max(c.queueSize(), 32), 1024)
}
