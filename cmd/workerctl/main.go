// Package main provides the workerctl CLI entrypoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joss/workerctl/internal/config"
	"github.com/joss/workerctl/internal/logging"
	"github.com/joss/workerctl/internal/runtime"
	"github.com/joss/workerctl/internal/supervisor"
)

var version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := rootCmd(stdin, stdout, stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		exitErr = &ExitError{Code: ExitRuntime, Err: err}
	}
	fmt.Fprintf(stderr, "Error: %v\n", exitErr.Err)
	if exitErr.Usage {
		fmt.Fprint(stderr, root.UsageString())
	}
	return exitErr.Code
}

type flags struct {
	threads      string
	configPath   string
	stepInterval time.Duration
	logLevel     string
	logFormat    string
	noColor      bool
}

func rootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "workerctl --threads <n>",
		Short: "Run and interactively control a pool of workers",
		Long: `workerctl starts <n> workers and reads commands from standard input.

Commands:
  pause <id>     pause a worker
  resume <id>    resume a paused worker
  stop <id>      stop a worker
  status         print id, state and progress of every worker
  exit           stop all workers and exit
  help           print command help
  sleep <n>      block the controller for n seconds
  metrics        print metrics in Prometheus text format`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError(ExitUnknownArgument, fmt.Errorf("unknown argument %q", args[0]))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}
			return runSupervisor(cfg, stdin, stdout, stderr)
		},
	}

	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		msg := err.Error()
		if strings.Contains(msg, "needs an argument") || strings.Contains(msg, "invalid argument") {
			return usageError(ExitInvalidArgCount, err)
		}
		return usageError(ExitUnknownArgument, err)
	})

	cmd.Flags().StringVar(&f.threads, "threads", "", "number of workers to start (at least 1)")
	cmd.Flags().StringVar(&f.configPath, "config", "", "YAML config file")
	cmd.Flags().DurationVar(&f.stepInterval, "step-interval", config.DefaultStepInterval, "pause between worker steps")
	cmd.Flags().StringVar(&f.logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&f.logFormat, "log-format", config.DefaultLogFormat, "log format (console, json)")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "disable coloured output")

	return cmd
}

// resolveConfig layers flags over the file and environment configuration.
func resolveConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if errors.Is(err, config.ErrInvalidThreads) {
		return nil, usageError(ExitInvalidWorkerCount, err)
	}
	if err != nil {
		return nil, &ExitError{Code: ExitRuntime, Err: err}
	}

	fl := cmd.Flags()
	if fl.Changed("threads") {
		n, err := config.ParseThreads(f.threads)
		if err != nil {
			return nil, usageError(ExitInvalidWorkerCount, err)
		}
		cfg.Threads = n
	}
	if fl.Changed("step-interval") {
		cfg.StepInterval = f.stepInterval
	}
	if fl.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fl.Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	if fl.Changed("no-color") {
		cfg.NoColor = f.noColor
	}

	if cfg.Threads == 0 {
		return nil, usageError(ExitInvalidArgCount, errors.New("missing --threads"))
	}
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrInvalidThreads) {
			return nil, usageError(ExitInvalidWorkerCount, err)
		}
		return nil, usageError(ExitInvalidArgCount, err)
	}
	return cfg, nil
}

// runSupervisor runs workers and controller until exit, end of input, or a
// termination signal.
func runSupervisor(cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) error {
	logging.Init(logging.Level(cfg.LogLevel), logging.Format(cfg.LogFormat))
	defer logging.Sync()

	if cfg.NoColor {
		color.NoColor = true
	}

	shutdown := runtime.NewShutdownManager(cfg.ShutdownTimeout)
	stopSignals := shutdown.ListenForSignals()
	defer stopSignals()

	sup, err := supervisor.New(cfg, supervisor.WithIO(stdin, stdout, stderr))
	if err != nil {
		return &ExitError{Code: ExitRuntime, Err: err}
	}

	finished := make(chan struct{})
	shutdown.Register("supervisor", func(ctx context.Context) error {
		select {
		case <-finished:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	err = sup.Run(shutdown.Context())
	close(finished)
	if shutdown.Started() {
		if drainErr := shutdown.WaitForShutdown(); drainErr != nil {
			logging.New("cli").Warn("shutdown", nil, drainErr)
		}
	}

	if err != nil {
		return &ExitError{Code: ExitRuntime, Err: err}
	}
	return nil
}
