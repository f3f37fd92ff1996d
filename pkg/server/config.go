package server

import (
	"fmt"
	"net/http"
	"time"
)

// Config holds the HTTP and socket settings.
type Config struct {
	// Address is the address to listen on. Default: ":8080".
	Address string

	// Stream enables streamed documents. Default: true.
	Stream bool

	// ShutdownTimeout bounds graceful shutdown. Default: 15 seconds.
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout is passed to http.Server. Default: 5 seconds.
	ReadHeaderTimeout time.Duration

	// IdleTimeout is passed to http.Server. Default: 120 seconds.
	IdleTimeout time.Duration

	// SocketReadTimeout closes a socket that sent nothing, not even a pong,
	// for this long. Default: 60 seconds.
	SocketReadTimeout time.Duration

	// SocketWriteTimeout bounds a single frame write. Default: 10 seconds.
	SocketWriteTimeout time.Duration

	// PingInterval must be shorter than SocketReadTimeout. Default: 25 seconds.
	PingInterval time.Duration

	// MaxMessageSize limits client messages. Default: 4KB.
	MaxMessageSize int64

	// CheckOrigin validates the socket origin. Default: same host only.
	CheckOrigin func(r *http.Request) bool

	// MetricsPath is where metrics are served. Default: "/metrics".
	MetricsPath string

	// Pretty indents rendered HTML.
	Pretty bool
}

// DefaultConfig returns a Config with the defaults applied.
func DefaultConfig() Config {
	return Config{
		Address:            ":8080",
		Stream:             true,
		ShutdownTimeout:    15 * time.Second,
		ReadHeaderTimeout:  5 * time.Second,
		IdleTimeout:        120 * time.Second,
		SocketReadTimeout:  60 * time.Second,
		SocketWriteTimeout: 10 * time.Second,
		PingInterval:       25 * time.Second,
		MaxMessageSize:     4 << 10,
		MetricsPath:        "/metrics",
	}
}

// withDefaults fills unset fields. Stream and Pretty are taken as given.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Address == "" {
		c.Address = d.Address
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.SocketReadTimeout == 0 {
		c.SocketReadTimeout = d.SocketReadTimeout
	}
	if c.SocketWriteTimeout == 0 {
		c.SocketWriteTimeout = d.SocketWriteTimeout
	}
	if c.PingInterval == 0 {
		c.PingInterval = d.PingInterval
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.MetricsPath == "" {
		c.MetricsPath = d.MetricsPath
	}
	return c
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	if c.PingInterval >= c.SocketReadTimeout {
		return fmt.Errorf("server: ping interval %s must be shorter than socket read timeout %s",
			c.PingInterval, c.SocketReadTimeout)
	}
	if c.MaxMessageSize < 64 {
		return fmt.Errorf("server: max message size %d is too small", c.MaxMessageSize)
	}
	if c.MetricsPath[0] != '/' {
		return fmt.Errorf("server: metrics path %q must start with /", c.MetricsPath)
	}
	return nil
}
