package config

import (
	"fmt"
	"time"
)

// ShutdownConfig bounds how long graceful shutdown may take before the
// process gives up on in-flight requests.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("shutdown timeout is not configured")
	}
	return nil
}
