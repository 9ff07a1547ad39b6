// Package config provides centralized configuration management.
package config

import (
	"os"
	"sync"
)

// WorkerctlEnv holds all workerctl environment variables.
type WorkerctlEnv struct {
	// ConfigPath is the YAML config file (WORKERCTL_CONFIG)
	ConfigPath string

	// Threads is the raw worker count (WORKERCTL_THREADS)
	Threads string

	// StepInterval is the raw worker pacing duration (WORKERCTL_STEP_INTERVAL)
	StepInterval string

	// LogLevel is the zap log level (WORKERCTL_LOG_LEVEL)
	LogLevel string

	// LogFormat is console or json (WORKERCTL_LOG_FORMAT)
	LogFormat string

	// NoColor disables coloured output (WORKERCTL_NO_COLOR or NO_COLOR)
	NoColor bool
}

var (
	env     *WorkerctlEnv
	envOnce sync.Once
)

// Env returns the singleton environment configuration.
// Thread-safe, loads once on first call.
func Env() *WorkerctlEnv {
	envOnce.Do(func() {
		env = &WorkerctlEnv{
			ConfigPath:   os.Getenv("WORKERCTL_CONFIG"),
			Threads:      os.Getenv("WORKERCTL_THREADS"),
			StepInterval: os.Getenv("WORKERCTL_STEP_INTERVAL"),
			LogLevel:     os.Getenv("WORKERCTL_LOG_LEVEL"),
			LogFormat:    os.Getenv("WORKERCTL_LOG_FORMAT"),
			NoColor:      os.Getenv("WORKERCTL_NO_COLOR") == "1" || os.Getenv("NO_COLOR") != "",
		}
	})
	return env
}

// ResetEnv resets the cached environment (for testing).
func ResetEnv() {
	envOnce = sync.Once{}
	env = nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
