package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvWorkerCount             = "INKWELL_WORKER_COUNT"
	EnvWorkerPollInterval      = "INKWELL_WORKER_POLL_INTERVAL"
	EnvWorkerSweepInterval     = "INKWELL_WORKER_SWEEP_INTERVAL"
	EnvWorkerVisibilityTimeout = "INKWELL_WORKER_VISIBILITY_TIMEOUT"
)

// WorkerConfig holds worker pool and suspension sweep parameters.
type WorkerConfig struct {
	Count             int    `toml:"count"`
	PollInterval      string `toml:"poll_interval"`
	SweepInterval     string `toml:"sweep_interval"`
	VisibilityTimeout string `toml:"visibility_timeout"`
}

// PollIntervalDuration returns PollInterval as a time.Duration.
func (c *WorkerConfig) PollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	return d
}

// SweepIntervalDuration returns SweepInterval as a time.Duration.
func (c *WorkerConfig) SweepIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.SweepInterval)
	return d
}

// VisibilityTimeoutDuration returns VisibilityTimeout as a time.Duration.
func (c *WorkerConfig) VisibilityTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.VisibilityTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *WorkerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *WorkerConfig) Merge(overlay *WorkerConfig) {
	if overlay.Count != 0 {
		c.Count = overlay.Count
	}
	if overlay.PollInterval != "" {
		c.PollInterval = overlay.PollInterval
	}
	if overlay.SweepInterval != "" {
		c.SweepInterval = overlay.SweepInterval
	}
	if overlay.VisibilityTimeout != "" {
		c.VisibilityTimeout = overlay.VisibilityTimeout
	}
}

func (c *WorkerConfig) loadDefaults() {
	if c.Count == 0 {
		c.Count = 4
	}
	if c.PollInterval == "" {
		c.PollInterval = "1s"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "1m"
	}
	if c.VisibilityTimeout == "" {
		c.VisibilityTimeout = "5m"
	}
}

func (c *WorkerConfig) loadEnv() {
	if v := os.Getenv(EnvWorkerCount); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Count = n
		}
	}
	if v := os.Getenv(EnvWorkerPollInterval); v != "" {
		c.PollInterval = v
	}
	if v := os.Getenv(EnvWorkerSweepInterval); v != "" {
		c.SweepInterval = v
	}
	if v := os.Getenv(EnvWorkerVisibilityTimeout); v != "" {
		c.VisibilityTimeout = v
	}
}

func (c *WorkerConfig) validate() error {
	if c.Count < 1 {
		return fmt.Errorf("count must be positive")
	}
	if _, err := time.ParseDuration(c.PollInterval); err != nil {
		return fmt.Errorf("invalid poll_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.SweepInterval); err != nil {
		return fmt.Errorf("invalid sweep_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.VisibilityTimeout); err != nil {
		return fmt.Errorf("invalid visibility_timeout: %w", err)
	}
	return nil
}
