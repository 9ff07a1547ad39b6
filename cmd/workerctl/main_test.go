package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/workerctl/internal/config"
	"github.com/joss/workerctl/internal/logging"
)

func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"WORKERCTL_CONFIG", "WORKERCTL_THREADS", "WORKERCTL_STEP_INTERVAL",
		"WORKERCTL_LOG_LEVEL", "WORKERCTL_LOG_FORMAT", "WORKERCTL_NO_COLOR"} {
		t.Setenv(k, "")
	}
	config.ResetEnv()
	t.Cleanup(config.ResetEnv)
	t.Cleanup(func() { logging.SetBase(nil) })
}

func runCLI(t *testing.T, input string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(input), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no arguments", nil, ExitInvalidArgCount},
		{"threads without value", []string{"--threads"}, ExitInvalidArgCount},
		{"non-numeric threads", []string{"--threads", "abc"}, ExitInvalidWorkerCount},
		{"zero threads", []string{"--threads", "0"}, ExitInvalidWorkerCount},
		{"negative threads", []string{"--threads=-3"}, ExitInvalidWorkerCount},
		{"unknown flag", []string{"--bogus"}, ExitUnknownArgument},
		{"positional argument", []string{"extra"}, ExitUnknownArgument},
		{"bad step interval", []string{"--threads", "1", "--step-interval", "soon"}, ExitInvalidArgCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanEnv(t)
			code, _, stderr := runCLI(t, "", tt.args...)
			assert.Equal(t, tt.want, code)
			assert.Contains(t, stderr, "Usage:")
		})
	}
}

func TestHelp(t *testing.T) {
	cleanEnv(t)

	code, stdout, _ := runCLI(t, "", "--help")

	assert.Equal(t, ExitOK, code)
	assert.Contains(t, stdout, "--threads")
}

func TestRunAndExit(t *testing.T) {
	cleanEnv(t)

	code, stdout, stderr := runCLI(t, "pause 1\nstatus\nexit\n",
		"--threads", "2", "--step-interval", "5ms", "--no-color")

	require.Equal(t, ExitOK, code, stderr)
	assert.Contains(t, stdout, "> pause 1\n")
	assert.Regexp(t, `(?m)^1 paused -?\d+$`, stdout)
	assert.Contains(t, stdout, "Stopping 2 remaining worker(s).\n")
}

func TestThreadsFromConfigFile(t *testing.T) {
	cleanEnv(t)
	path := filepath.Join(t.TempDir(), "workerctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threads: 3\nstep_interval: 1ms\n"), 0o644))

	code, stdout, stderr := runCLI(t, "status\nexit\n", "--config", path)

	require.Equal(t, ExitOK, code, stderr)
	assert.Regexp(t, `(?m)^3 (running|finished) -?\d+$`, stdout)
}

func TestThreadsFlagOverridesEnv(t *testing.T) {
	cleanEnv(t)
	t.Setenv("WORKERCTL_THREADS", "5")
	config.ResetEnv()

	code, stdout, stderr := runCLI(t, "status\nexit\n", "--threads", "1", "--step-interval", "1ms")

	require.Equal(t, ExitOK, code, stderr)
	assert.Regexp(t, `(?m)^1 \w+ -?\d+$`, stdout)
	assert.NotRegexp(t, `(?m)^2 \w+ -?\d+$`, stdout)
}

func TestInvalidThreadsFromEnv(t *testing.T) {
	cleanEnv(t)
	t.Setenv("WORKERCTL_THREADS", "none")
	config.ResetEnv()

	code, _, _ := runCLI(t, "")
	assert.Equal(t, ExitInvalidWorkerCount, code)
}
