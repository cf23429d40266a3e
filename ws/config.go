package ws

import (
	"time"

	"go.uber.org/zap"
)

// Config controls connection driver behaviour: health-check timing, frame
// size limits and logging. A nil Config everywhere means DefaultConfig().
type Config struct {
	// PingPeriod is how often the server sends wire-level pings to verify
	// the peer is alive. Default: 30 seconds.
	PingPeriod time.Duration

	// PongPeriod is the longest the driver waits for any inbound data
	// (pong, message, anything) before declaring the connection dead.
	// Default: 300 seconds.
	PongPeriod time.Duration

	// MaxMessageSize caps the payload length a single inbound frame may
	// declare. Oversized declarations poison the connection instead of
	// growing the reassembly buffers without bound. Zero means the wire
	// package default (16 MiB); negative means no limit.
	MaxMessageSize int64

	// ReadChunkSize is the socket read buffer size. Default: 4096.
	ReadChunkSize int

	// Logger receives driver diagnostics. Defaults to a nop logger;
	// binaries install a real one.
	Logger *zap.Logger
}

// DefaultConfig mirrors the defaults used across the repo: 30s pings, 5
// minute silence limit, 16 MiB frames, 4 KiB reads.
func DefaultConfig() *Config {
	return &Config{
		PingPeriod:    30 * time.Second,
		PongPeriod:    300 * time.Second,
		ReadChunkSize: 4096,
		Logger:        zap.NewNop(),
	}
}

// withDefaults fills the zero values of a caller-supplied config.
func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}
	out := *c
	def := DefaultConfig()
	if out.PingPeriod <= 0 {
		out.PingPeriod = def.PingPeriod
	}
	if out.PongPeriod <= 0 {
		out.PongPeriod = def.PongPeriod
	}
	if out.ReadChunkSize <= 0 {
		out.ReadChunkSize = def.ReadChunkSize
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	return &out
}

// maxPayload maps the MaxMessageSize convention onto the wire codec's
// argument convention.
func (c *Config) maxPayload() int64 {
	switch {
	case c.MaxMessageSize == 0:
		return 16 << 20
	case c.MaxMessageSize < 0:
		return 0
	default:
		return c.MaxMessageSize
	}
}
