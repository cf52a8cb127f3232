package server

import (
	"net"
	"strconv"
	"time"
)

// Defaults applied to zero-valued Config fields.
const (
	DefaultPort         = 50051
	DefaultWorkers      = 10
	DefaultDrainTimeout = 30 * time.Second
	// stopGrace bounds the wait for handlers after a forced stop.
	stopGrace = 5 * time.Second
)

// Config holds listener and lifecycle settings.
type Config struct {
	// Host is the bind address; empty binds every interface.
	Host string
	// Port is the TCP port. Zero means DefaultPort; use -1 for an ephemeral port.
	Port int
	// Workers caps concurrently executing service calls.
	Workers int
	// DrainTimeout is how long in-flight calls may run after shutdown begins.
	DrainTimeout time.Duration
	// Reflection registers the gRPC reflection service.
	Reflection bool
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Port < 0 {
		c.Port = 0
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	return c
}

// Addr returns host:port for net.Listen.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// streamWorkers sizes the transport's reusable stream goroutines to the pool.
func (c Config) streamWorkers() uint32 {
	return uint32(c.Workers)
}
