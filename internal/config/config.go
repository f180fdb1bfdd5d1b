// Package config handles YAML configuration parsing and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PlaceholderBackendURL is the default the dashboard shipped with. A backend
// URL equal to it is treated as unconfigured.
const PlaceholderBackendURL = "http://localhost:8000"

// Environment variables read by Load.
const (
	EnvBackendURL = "AGENT_API_URL"
	EnvGatewayURL = "DISPATCHDESK_GATEWAY_URL"
	EnvStorePath  = "DISPATCHDESK_DB"
)

// Config is the root configuration structure.
type Config struct {
	// BackendURL is the Call Backend Service base URL the proxy forwards to.
	BackendURL string `yaml:"backend_url"`
	// GatewayURL is the origin serving the gateway proxy. Empty means the
	// proxy runs in-process.
	GatewayURL     string           `yaml:"gateway_url"`
	RequestTimeout time.Duration    `yaml:"request_timeout"`
	Queue          QueueConfig      `yaml:"queue"`
	Simulation     SimulationConfig `yaml:"simulation"`
	Dispatch       DispatchConfig   `yaml:"dispatch"`
	Proxy          ProxyConfig      `yaml:"proxy"`
	Store          StoreConfig      `yaml:"store"`
}

// QueueConfig controls the call queue synchronizer and default filters.
type QueueConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	DisplayLimit int           `yaml:"display_limit"`
}

// SimulationConfig controls synthetic batch load.
type SimulationConfig struct {
	BatchSize int           `yaml:"batch_size"`
	Pacing    time.Duration `yaml:"pacing"`
	// Exemplars is an optional JSON or CSV file of exemplar calls, resolved
	// relative to the config file.
	Exemplars string `yaml:"exemplars,omitempty"`
}

// DispatchConfig controls the dispatch confirmation workflow.
type DispatchConfig struct {
	Latency time.Duration `yaml:"latency"`
}

// ProxyConfig controls the gateway proxy server.
type ProxyConfig struct {
	Listen string `yaml:"listen"`
	RPS    int    `yaml:"rps"` // 0 = unlimited
}

// StoreConfig controls persistence of operator edits.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		BackendURL:     PlaceholderBackendURL,
		RequestTimeout: 30 * time.Second,
		Queue: QueueConfig{
			PollInterval: 5 * time.Second,
			DisplayLimit: 20,
		},
		Simulation: SimulationConfig{
			BatchSize: 10,
			Pacing:    500 * time.Millisecond,
		},
		Dispatch: DispatchConfig{
			Latency: 2 * time.Second,
		},
		Proxy: ProxyConfig{
			Listen: ":3000",
		},
		Store: StoreConfig{
			Path: "dispatchdesk.db",
		},
	}
}

// LoadConfig reads and parses a YAML configuration file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (optional), then a .env file in the working directory, then the
// process environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(EnvBackendURL); ok {
		c.BackendURL = v
	}
	if v := os.Getenv(EnvGatewayURL); v != "" {
		c.GatewayURL = v
	}
	if v := os.Getenv(EnvStorePath); v != "" {
		c.Store.Path = v
	}
}

// Validate checks ranges. An unconfigured backend URL is not a validation
// error: the proxy fails closed per request instead.
func (c *Config) Validate() error {
	var errs []error
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be >= 0, got %v", c.RequestTimeout))
	}
	if c.Queue.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("queue.poll_interval must be > 0, got %v", c.Queue.PollInterval))
	}
	if c.Queue.DisplayLimit < 1 {
		errs = append(errs, fmt.Errorf("queue.display_limit must be >= 1, got %d", c.Queue.DisplayLimit))
	}
	if c.Simulation.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("simulation.batch_size must be >= 1, got %d", c.Simulation.BatchSize))
	}
	if c.Simulation.Pacing < 0 {
		errs = append(errs, fmt.Errorf("simulation.pacing must be >= 0, got %v", c.Simulation.Pacing))
	}
	if c.Dispatch.Latency < 0 {
		errs = append(errs, fmt.Errorf("dispatch.latency must be >= 0, got %v", c.Dispatch.Latency))
	}
	if c.Proxy.RPS < 0 {
		errs = append(errs, fmt.Errorf("proxy.rps must be >= 0, got %d", c.Proxy.RPS))
	}
	return errors.Join(errs...)
}

// BackendConfigured reports whether BackendURL points at a real backend.
func (c *Config) BackendConfigured() bool {
	return BackendConfigured(c.BackendURL)
}

// BackendConfigured reports whether url is set and is not the placeholder.
func BackendConfigured(url string) bool {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	return url != "" && url != PlaceholderBackendURL
}
