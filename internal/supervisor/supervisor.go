// Package supervisor creates the worker pool, runs the controller and joins
// every worker before returning.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/joss/workerctl/internal/config"
	"github.com/joss/workerctl/internal/controller"
	"github.com/joss/workerctl/internal/logging"
	"github.com/joss/workerctl/internal/metrics"
	"github.com/joss/workerctl/internal/render"
	"github.com/joss/workerctl/internal/worker"
)

// Supervisor owns the worker table and the controller for one run.
type Supervisor struct {
	cfg        *config.Config
	table      *worker.Table
	controller *controller.Controller
	metrics    *metrics.Metrics
	log        *logging.Logger
	runID      string
}

type options struct {
	in          io.Reader
	out         io.Writer
	errOut      io.Writer
	interactive *bool
	workerOpts  []worker.Option
	metrics     *metrics.Metrics
}

// Option configures a Supervisor.
type Option func(*options)

// WithIO sets the command input and the output streams.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(o *options) {
		o.in = in
		o.out = out
		o.errOut = errOut
	}
}

// WithInteractive overrides terminal detection on the command input.
func WithInteractive(interactive bool) Option {
	return func(o *options) {
		o.interactive = &interactive
	}
}

// WithWorkerOptions appends options applied to every worker.
func WithWorkerOptions(opts ...worker.Option) Option {
	return func(o *options) {
		o.workerOpts = append(o.workerOpts, opts...)
	}
}

// WithMetrics uses an existing metrics set instead of a fresh one.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New validates cfg and builds the worker table and controller. Workers are
// not started until Run.
func New(cfg *config.Config, opts ...Option) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := &options{
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = metrics.New()
	}

	runID := ulid.Make().String()
	log := logging.New("supervisor").WithRun(runID)

	workerOpts := append([]worker.Option{
		worker.WithInterval(cfg.StepInterval),
		worker.WithMetrics(o.metrics),
		worker.WithLogger(logging.New("worker").WithRun(runID)),
	}, o.workerOpts...)
	table := worker.NewTable(cfg.Threads, workerOpts...)
	o.metrics.SetWorkers(table.Len())

	ctrlOpts := []controller.Option{
		controller.WithOutput(o.out, o.errOut),
		controller.WithRenderer(render.New(!cfg.NoColor && isTerminal(o.out))),
		controller.WithLogger(logging.New("controller").WithRun(runID)),
		controller.WithMetrics(o.metrics),
	}
	if o.interactive != nil {
		ctrlOpts = append(ctrlOpts, controller.WithInteractive(*o.interactive))
	}

	return &Supervisor{
		cfg:        cfg,
		table:      table,
		controller: controller.New(table, o.in, ctrlOpts...),
		metrics:    o.metrics,
		log:        log,
		runID:      runID,
	}, nil
}

// Table returns the worker table.
func (s *Supervisor) Table() *worker.Table {
	return s.table
}

// RunID returns the unique id of this run.
func (s *Supervisor) RunID() string {
	return s.runID
}

// Run starts one goroutine per worker, runs the controller until it returns,
// then waits for every worker to finish. If ctx is cancelled the remaining
// workers are stopped before waiting. A worker that panics is not restarted;
// its error is returned once all workers are done.
func (s *Supervisor) Run(ctx context.Context) error {
	s.log.Info("starting", map[string]interface{}{
		"workers":       s.table.Len(),
		"step_interval": s.cfg.StepInterval.String(),
	})

	var g errgroup.Group
	for _, w := range s.table.Workers() {
		recovery := logging.NewRecoveryHandler(fmt.Sprintf("worker-%d", w.ID()))
		g.Go(func() error {
			return recovery.WrapError(w.Run)
		})
	}

	ctrlErr := s.controller.Run(ctx)
	if ctrlErr != nil && ctx.Err() != nil {
		stopped := s.table.StopAll()
		s.log.Warn("interrupted", map[string]interface{}{"stopped": stopped}, ctrlErr)
		ctrlErr = nil
	}
	if ctrlErr != nil {
		// Without a controller nothing can stop the workers anymore.
		s.table.StopAll()
	}

	workerErr := g.Wait()
	if workerErr != nil {
		s.log.Error("worker_failed", nil, workerErr)
	}

	s.log.Info("stopped", nil)
	return errors.Join(ctrlErr, workerErr)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
