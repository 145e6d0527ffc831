package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/abgdnv/goinventory/pkg/config"
	"github.com/abgdnv/goinventory/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

// defaultVATRate applies to products created without an explicit rate when
// no rate is configured either.
const defaultVATRate = "0.20"

type Config struct {
	HTTPServer config.HTTPConfig     `koanf:"server"`
	Database   config.DatabaseConfig `koanf:"database"`
	Log        config.LogConfig      `koanf:"log"`
	PProf      config.PProfConfig    `koanf:"pprof"`
	Shutdown   config.ShutdownConfig `koanf:"shutdown"`
	Inventory  InventoryConfig       `koanf:"inventory"`
}

// InventoryConfig holds the business-level settings of the service.
type InventoryConfig struct {
	DefaultVATRate string `koanf:"defaultVatRate"`
}

// Rate returns the configured default VAT rate as a decimal fraction.
// Validate must have been called first.
func (c *InventoryConfig) Rate() decimal.Decimal {
	if c.DefaultVATRate == "" {
		return decimal.RequireFromString(defaultVATRate)
	}
	return decimal.RequireFromString(c.DefaultVATRate)
}

// Validate checks the inventory settings.
func (c *InventoryConfig) Validate() error {
	if c.DefaultVATRate == "" {
		return nil
	}
	rate, err := decimal.NewFromString(c.DefaultVATRate)
	if err != nil {
		return fmt.Errorf("invalid default VAT rate %q: %w", c.DefaultVATRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("default VAT rate must be between 0 and 1: %s", c.DefaultVATRate)
	}
	return nil
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString("\n--- Server Configuration ---\n")
	b.WriteString(fmt.Sprintf("  server.port: %d\n", c.HTTPServer.Port))
	b.WriteString(fmt.Sprintf("  server.maxHeaderBytes: %d\n", c.HTTPServer.MaxHeaderBytes))
	b.WriteString(fmt.Sprintf("  server.timeout.read: %v\n", c.HTTPServer.Timeout.Read))
	b.WriteString(fmt.Sprintf("  server.timeout.write: %v\n", c.HTTPServer.Timeout.Write))
	b.WriteString(fmt.Sprintf("  server.timeout.idle: %v\n", c.HTTPServer.Timeout.Idle))
	b.WriteString(fmt.Sprintf("  server.timeout.readHeader: %v\n", c.HTTPServer.Timeout.ReadHeader))

	b.WriteString("\n--- Database Configuration ---\n")
	b.WriteString(fmt.Sprintf("  database.url: %s\n", maskURL(c.Database.URL)))
	b.WriteString(fmt.Sprintf("  database.connect.timeout: %s\n", c.Database.Timeout))
	b.WriteString(fmt.Sprintf("  database.maxConns: %d\n", c.Database.MaxConns))

	b.WriteString("\n--- Inventory Configuration ---\n")
	b.WriteString(fmt.Sprintf("  inventory.defaultVatRate: %s\n", c.Inventory.Rate()))

	b.WriteString("\n--- Observability & Logging ---\n")
	b.WriteString(fmt.Sprintf("  log.level: %s\n", c.Log.Level))
	b.WriteString(fmt.Sprintf("  log.format: %s\n", c.Log.Format))
	b.WriteString(fmt.Sprintf("  pprof.enabled: %t\n", c.PProf.Enabled))
	b.WriteString(fmt.Sprintf("  pprof.address: %s\n", c.PProf.Addr))

	b.WriteString("\n--- Application Behavior ---\n")
	b.WriteString(fmt.Sprintf("  shutdown.timeout: %s\n", c.Shutdown.Timeout))

	return b.String()
}

func maskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	// Mask the URL by replacing the username and password with "****"
	parts := strings.Split(url, "@")
	if len(parts) == 2 {
		return "****@" + parts[1]
	}
	return "****"
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	return c.Inventory.Validate()
}
