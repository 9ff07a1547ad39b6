// Package controller implements the interactive command loop that drives
// worker state transitions.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/joss/workerctl/internal/logging"
	"github.com/joss/workerctl/internal/metrics"
	"github.com/joss/workerctl/internal/render"
	"github.com/joss/workerctl/internal/worker"
)

// Controller is the single writer of worker state-transition requests.
type Controller struct {
	table       *worker.Table
	reader      *Reader
	out         io.Writer
	errOut      io.Writer
	render      *render.Renderer
	interactive bool
	log         *logging.Logger
	metrics     *metrics.Metrics
}

// Option configures a Controller.
type Option func(*Controller)

// WithOutput sets the output and error streams.
func WithOutput(out, errOut io.Writer) Option {
	return func(c *Controller) {
		c.out = out
		c.errOut = errOut
	}
}

// WithRenderer sets the output renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(c *Controller) {
		c.render = r
	}
}

// WithInteractive overrides terminal detection. Non-interactive controllers
// echo each accepted command.
func WithInteractive(interactive bool) Option {
	return func(c *Controller) {
		c.interactive = interactive
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// WithMetrics attaches a metrics set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// New creates a controller reading commands from in.
func New(table *worker.Table, in io.Reader, opts ...Option) *Controller {
	c := &Controller{
		table:       table,
		out:         os.Stdout,
		errOut:      os.Stderr,
		render:      render.New(false),
		interactive: IsTerminal(in),
		log:         logging.New("controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reader = NewReader(in, c.out)
	return c
}

// Run processes commands until exit, end of input, or context cancellation.
// Only exit stops the workers; end of input returns nil and leaves them
// running. Cancellation returns the context error.
func (c *Controller) Run(ctx context.Context) error {
	for {
		line, err := c.reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			c.log.Info("end_of_input", nil)
			return nil
		}
		if err != nil {
			return err
		}

		cmd, err := Parse(line)
		if errors.Is(err, ErrEmpty) {
			continue
		}
		if err != nil {
			c.reportParseError(err)
			continue
		}

		if !c.interactive {
			fmt.Fprintln(c.out, cmd)
		}

		done, err := c.dispatch(ctx, cmd)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (c *Controller) reportParseError(err error) {
	var unknown *UnknownCommandError
	var missing *MissingArgError

	switch {
	case errors.As(err, &unknown):
		fmt.Fprint(c.errOut, c.render.Error("Unknown command: %s", unknown.Verb))
		c.metrics.RecordCommand("unknown", metrics.ResultError)
	case errors.As(err, &missing):
		if missing.Verb == VerbSleep {
			fmt.Fprint(c.errOut, c.render.Error("Non-numeric duration for sleep command."))
		} else {
			fmt.Fprint(c.errOut, c.render.Error("Non-numeric worker id for %s command.", missing.Verb))
		}
		c.metrics.RecordCommand(string(missing.Verb), metrics.ResultError)
	default:
		fmt.Fprint(c.errOut, c.render.Error("%v", err))
	}
}

// dispatch executes one command. done is true after exit.
func (c *Controller) dispatch(ctx context.Context, cmd Command) (done bool, err error) {
	eventID := uuid.NewString()
	start := time.Now()
	result := metrics.ResultOK

	defer func() {
		c.metrics.RecordCommand(string(cmd.Verb), result)
		c.log.Debug("command", map[string]interface{}{
			"event_id":    eventID,
			"command":     cmd.String(),
			"result":      result,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}()

	switch cmd.Verb {
	case VerbHelp:
		fmt.Fprintln(c.out, c.render.Help())

	case VerbStatus:
		fmt.Fprint(c.out, c.render.Status(c.table.Snapshot()))

	case VerbExit:
		if remaining := c.table.StopAll(); remaining > 0 {
			fmt.Fprint(c.out, c.render.Stopping(remaining))
		}
		return true, nil

	case VerbMetrics:
		if err := c.metrics.WriteText(c.out); err != nil {
			fmt.Fprint(c.errOut, c.render.Error("%v", err))
			result = metrics.ResultError
		}

	case VerbSleep:
		if cmd.Arg < 0 {
			fmt.Fprint(c.errOut, c.render.Error("Invalid sleep duration: %d", cmd.Arg))
			result = metrics.ResultError
			return false, nil
		}
		if err := sleepContext(ctx, time.Duration(cmd.Arg)*time.Second); err != nil {
			result = metrics.ResultError
			return false, err
		}

	default:
		result = c.transition(cmd)
	}
	return false, nil
}

// transition applies pause, resume or stop to a single worker.
func (c *Controller) transition(cmd Command) string {
	w, ok := c.table.Get(cmd.Arg - 1)
	if !ok {
		fmt.Fprint(c.errOut, c.render.Error("Invalid worker id: %d", cmd.Arg))
		return metrics.ResultError
	}

	changed, err := w.Transition(targetState(cmd.Verb))
	switch {
	case errors.Is(err, worker.ErrTerminated):
		fmt.Fprint(c.errOut, c.render.Error("Worker %d has been terminated.", cmd.Arg))
		return metrics.ResultError
	case err != nil:
		fmt.Fprint(c.errOut, c.render.Error("%v", err))
		return metrics.ResultError
	case !changed:
		return metrics.ResultNoop
	}
	return metrics.ResultOK
}

func targetState(v Verb) worker.State {
	switch v {
	case VerbPause:
		return worker.Paused
	case VerbResume:
		return worker.Running
	default:
		return worker.Stopping
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
