package config

import (
	"fmt"
	"strings"
)

// PProfConfig controls the optional pprof debug listener.
type PProfConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

func (c *PProfConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("pprof is enabled but address is not configured")
	}
	if !strings.Contains(c.Addr, ":") {
		return fmt.Errorf("invalid pprof address: %s", c.Addr)
	}
	return nil
}
