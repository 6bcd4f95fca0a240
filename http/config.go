package http

import (
	"fmt"
	"time"
)

type Config struct {
	Host            string        `toml:"host" yaml:"host" env:"HOST" env-default:"localhost"`
	Port            int           `toml:"port" yaml:"port" env:"PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"5s"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
