package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/qakit/packages/core/env"
	"github.com/abdul-hamid-achik/qakit/packages/log"
	"github.com/abdul-hamid-achik/qakit/packages/rabbitmq"
)

var ErrUnknownEndpoint = errors.New("unknown endpoint")

// Endpoint is a named HTTP target.
type Endpoint struct {
	Host    string            `yaml:"host"`
	Port    int               `yaml:"port,omitempty"`
	Scheme  string            `yaml:"scheme,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Bench holds defaults for the bench command.
type Bench struct {
	Rate        float64 `yaml:"rate,omitempty"`
	Concurrency int     `yaml:"concurrency,omitempty"`
	Total       int     `yaml:"total,omitempty"`
}

// Config represents the qakit configuration
type Config struct {
	DefaultEndpoint string              `yaml:"defaultEndpoint,omitempty"`
	Endpoints       map[string]Endpoint `yaml:"endpoints,omitempty"`
	RabbitMQ        *rabbitmq.Config    `yaml:"rabbitmq,omitempty"`
	Timeout         time.Duration       `yaml:"timeout,omitempty"`
	FollowRedirects *bool               `yaml:"followRedirects,omitempty"`
	Journal         string              `yaml:"journal,omitempty"`
	NoColor         *bool               `yaml:"noColor,omitempty"`
	Log             log.Config          `yaml:"log,omitempty"`
	Bench           Bench               `yaml:"bench,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// Endpoint returns the named endpoint. An empty name selects
// DefaultEndpoint, or the only endpoint when exactly one is configured.
func (c *Config) Endpoint(name string) (Endpoint, error) {
	if name == "" {
		name = c.DefaultEndpoint
	}
	if name == "" && len(c.Endpoints) == 1 {
		for _, ep := range c.Endpoints {
			return ep, nil
		}
	}

	ep, ok := c.Endpoints[name]
	if !ok {
		return Endpoint{}, fmt.Errorf("%w %q (configured: %v)", ErrUnknownEndpoint, name, c.EndpointNames())
	}
	return ep, nil
}

// EndpointNames returns the configured endpoint names, sorted.
func (c *Config) EndpointNames() []string {
	names := make([]string, 0, len(c.Endpoints))
	for name := range c.Endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	"qakit.yaml",
	".qakit.yaml",
	"qakit.yml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string, opts ...LoadOption) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path, newLoadOptions(opts))
	}
	return FindAndLoadConfig(".", opts...)
}

// FindAndLoadConfig searches for a config file in the given directory.
// Defaults are returned when none exists.
func FindAndLoadConfig(dir string, opts ...LoadOption) (*Config, error) {
	if path := FindConfig(dir); path != "" {
		return loadConfigFromFile(path, newLoadOptions(opts))
	}
	return DefaultConfig(), nil
}

// FindConfig returns the first config file present in dir, or "".
func FindConfig(dir string) string {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}
	return ""
}

type loadOptions struct {
	resolver *env.Resolver
}

type LoadOption func(*loadOptions)

// WithResolver expands ${VAR} references with r instead of the process
// environment alone.
func WithResolver(r *env.Resolver) LoadOption {
	return func(o *loadOptions) {
		o.resolver = r
	}
}

func newLoadOptions(opts []LoadOption) *loadOptions {
	o := &loadOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.resolver == nil {
		o.resolver = env.NewResolver()
	}
	return o
}

func loadConfigFromFile(path string, o *loadOptions) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, WithResolver(o.resolver))
}

// Parse expands, validates and decodes a configuration document on top of
// the defaults.
func Parse(data []byte, opts ...LoadOption) (*Config, error) {
	return parseOnto(data, DefaultConfig(), newLoadOptions(opts))
}

func parseOnto(data []byte, config *Config, o *loadOptions) (*Config, error) {
	expanded := []byte(o.resolver.Resolve(string(data)))

	if err := Validate(expanded); err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(expanded, config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// LoadLayered loads the config file found in dir and then the file at path
// on top of it with Merge. Settings path leaves out keep the discovered
// value. With no path the discovered file is loaded alone; with no
// discovered file, or path naming it, path is loaded alone.
func LoadLayered(dir, path string, opts ...LoadOption) (*Config, error) {
	if path == "" {
		return FindAndLoadConfig(dir, opts...)
	}
	found := FindConfig(dir)
	if found == "" || sameFile(found, path) {
		return LoadConfig(path, opts...)
	}

	o := newLoadOptions(opts)

	overlayData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	overlay, err := parseOnto(overlayData, &Config{}, o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base, err := loadConfigFromFile(found, o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", found, err)
	}
	return base.Merge(overlay), nil
}

func sameFile(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.DefaultEndpoint != "" {
		result.DefaultEndpoint = other.DefaultEndpoint
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.Journal != "" {
		result.Journal = other.Journal
	}
	if other.RabbitMQ != nil {
		result.RabbitMQ = other.RabbitMQ
	}
	if other.Log.Level != "" {
		result.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		result.Log.Format = other.Log.Format
	}
	if other.Bench.Rate > 0 {
		result.Bench.Rate = other.Bench.Rate
	}
	if other.Bench.Concurrency > 0 {
		result.Bench.Concurrency = other.Bench.Concurrency
	}
	if other.Bench.Total > 0 {
		result.Bench.Total = other.Bench.Total
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Endpoints) > 0 {
		endpoints := make(map[string]Endpoint, len(c.Endpoints)+len(other.Endpoints))
		for k, v := range c.Endpoints {
			endpoints[k] = v
		}
		for k, v := range other.Endpoints {
			endpoints[k] = v
		}
		result.Endpoints = endpoints
	}

	return &result
}

// SaveConfig saves the configuration to a file
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
