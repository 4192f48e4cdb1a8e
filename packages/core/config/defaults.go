package config

import (
	"time"

	"github.com/abdul-hamid-achik/qakit/packages/log"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 10
	DefaultTotal       = 100
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:         DefaultTimeout,
		FollowRedirects: BoolPtr(true),
		NoColor:         BoolPtr(false),
		Log: log.Config{
			Level:  "info",
			Format: log.FormatText,
		},
		Bench: Bench{
			Concurrency: DefaultConcurrency,
			Total:       DefaultTotal,
		},
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.DefaultEndpoint == "" &&
		len(c.Endpoints) == 0 &&
		c.RabbitMQ == nil &&
		c.Timeout == defaults.Timeout &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.Journal == "" &&
		c.GetNoColor() == defaults.GetNoColor() &&
		c.Log.Level == defaults.Log.Level &&
		c.Log.Format == defaults.Log.Format &&
		c.Bench == defaults.Bench
}
