package opsserver

import "time"

// Config configures the operations endpoint. An empty Addr disables it.
type Config struct {
	Addr            string        `env:"OPS_ADDR"`
	ReadTimeout     time.Duration `env:"OPS_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"OPS_WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"OPS_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Enabled reports whether an address is configured.
func (c Config) Enabled() bool {
	return c.Addr != ""
}
