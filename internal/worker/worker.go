package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/joss/workerctl/internal/compute"
	"github.com/joss/workerctl/internal/logging"
	"github.com/joss/workerctl/internal/metrics"
)

// DefaultStepInterval paces the worker loop.
const DefaultStepInterval = 100 * time.Millisecond

// Worker is one worker's shared state plus the lock and wake condition guarding it.
type Worker struct {
	index int

	mu       sync.Mutex
	wake     *sync.Cond
	machine  *fsm.FSM
	progress int

	step     compute.Step
	interval time.Duration
	log      *logging.Logger
	metrics  *metrics.Metrics
}

// Option configures a Worker.
type Option func(*Worker)

// WithStep overrides the step function.
func WithStep(step compute.Step) Option {
	return func(w *Worker) {
		w.step = step
	}
}

// WithInterval sets the pause between steps.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		w.interval = d
	}
}

// WithMetrics attaches a metrics set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// WithLogger sets the parent logger; the worker id is added to it.
func WithLogger(l *logging.Logger) Option {
	return func(w *Worker) {
		w.log = l
	}
}

// New creates a Running worker for the zero-based index. The step function
// defaults to compute.ForIndex(index).
func New(index int, opts ...Option) *Worker {
	w := &Worker{
		index:    index,
		step:     compute.ForIndex(index),
		interval: DefaultStepInterval,
		log:      logging.New("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.WithWorker(strconv.Itoa(w.ID()))
	w.wake = sync.NewCond(&w.mu)
	w.machine = fsm.NewFSM(fsmRunning, transitions, fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			w.metrics.RecordTransition(e.Src, e.Dst)
			w.log.Debug("transition", map[string]interface{}{
				"from":  e.Src,
				"to":    e.Dst,
				"event": e.Event,
			})
		},
	})
	return w
}

// ID returns the 1-based worker id.
func (w *Worker) ID() int {
	return w.index + 1
}

// Index returns the zero-based worker index.
func (w *Worker) Index() int {
	return w.index
}

// Read returns the worker's state and progress under its lock.
func (w *Worker) Read() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.readLocked()
}

// State returns the current run state.
func (w *Worker) State() State {
	return w.Read().State
}

// Transition moves the worker to the requested state and wakes it. It reports
// whether the state changed. Requesting the current state is a no-op, as is
// stopping a finished worker. Pausing or resuming a stopping or finished
// worker fails with ErrTerminated. Only the worker itself may terminate.
func (w *Worker) Transition(to State) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.transitionLocked(to)
}

func (w *Worker) readLocked() Snapshot {
	return Snapshot{
		ID:       w.ID(),
		State:    w.stateLocked(),
		Progress: w.progress,
	}
}

func (w *Worker) stateLocked() State {
	return stateFromFSM(w.machine.Current())
}

func (w *Worker) transitionLocked(to State) (bool, error) {
	from := w.stateLocked()
	if from == to {
		return false, nil
	}

	switch {
	case to == Terminated:
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	case from == Terminated && to == Stopping:
		return false, nil
	case from == Terminated, from == Stopping:
		return false, ErrTerminated
	}

	if err := w.machine.Event(context.Background(), eventFor(to)); err != nil {
		return false, fmt.Errorf("%w: %s -> %s: %v", ErrInvalidTransition, from, to, err)
	}
	w.wake.Signal()
	return true, nil
}

// terminateLocked fires the worker's own terminate event.
func (w *Worker) terminateLocked() {
	if err := w.machine.Event(context.Background(), EventTerminate); err != nil {
		w.log.Warn("terminate", nil, err)
		w.machine.SetState(fsmTerminated)
	}
}
