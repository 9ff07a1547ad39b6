package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultStepInterval    = 100 * time.Millisecond
	DefaultLogLevel        = "warn"
	DefaultLogFormat       = "console"
	DefaultShutdownTimeout = 30 * time.Second
)

// ErrInvalidThreads is returned for a worker count that is not a positive integer.
var ErrInvalidThreads = errors.New("worker count must be a positive integer")

// Config is the resolved supervisor configuration.
type Config struct {
	// Threads is the number of workers; zero means not configured.
	Threads         int           `yaml:"threads"`
	StepInterval    time.Duration `yaml:"step_interval"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	NoColor         bool          `yaml:"no_color"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		StepInterval:    DefaultStepInterval,
		LogLevel:        getEnvDefault("LOGGING_LEVEL", DefaultLogLevel),
		LogFormat:       DefaultLogFormat,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Load resolves configuration from defaults, the YAML file at path (or
// WORKERCTL_CONFIG when path is empty) and the environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = Env().ConfigPath
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(Env()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(e *WorkerctlEnv) error {
	if e.Threads != "" {
		n, err := ParseThreads(e.Threads)
		if err != nil {
			return fmt.Errorf("WORKERCTL_THREADS: %w", err)
		}
		c.Threads = n
	}
	if e.StepInterval != "" {
		d, err := time.ParseDuration(e.StepInterval)
		if err != nil {
			return fmt.Errorf("WORKERCTL_STEP_INTERVAL: %w", err)
		}
		c.StepInterval = d
	}
	if e.LogLevel != "" {
		c.LogLevel = e.LogLevel
	}
	if e.LogFormat != "" {
		c.LogFormat = e.LogFormat
	}
	if e.NoColor {
		c.NoColor = true
	}
	return nil
}

// ParseThreads parses a positive worker count.
func ParseThreads(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidThreads, s)
	}
	return n, nil
}

// Validate checks a fully resolved configuration.
func (c *Config) Validate() error {
	if c.Threads <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidThreads, c.Threads)
	}
	if c.StepInterval < 0 {
		return fmt.Errorf("step interval must not be negative: %v", c.StepInterval)
	}
	return nil
}
