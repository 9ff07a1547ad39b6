package worker

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/workerctl/internal/compute"
	"github.com/joss/workerctl/internal/logging"
	"github.com/joss/workerctl/internal/metrics"
)

// cycle never leaves the working range.
func cycle(v int) int {
	return (v + 1) % 50
}

func start(t *testing.T, w *Worker) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- logging.NewRecoveryHandler("test-worker").WrapError(w.Run)
	}()
	return done
}

func waitState(t *testing.T, w *Worker, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return w.State() == want
	}, 5*time.Second, time.Millisecond, "worker %d never reached %s", w.ID(), want)
}

func TestNewWorker(t *testing.T) {
	w := New(0)

	snap := w.Read()
	assert.Equal(t, 1, snap.ID)
	assert.Equal(t, Running, snap.State)
	assert.Equal(t, 0, snap.Progress)
	assert.Equal(t, 0, w.Index())
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "paused", Paused.String())
	assert.Equal(t, "stopped", Stopping.String())
	assert.Equal(t, "finished", Terminated.String())
}

func TestTransitionRules(t *testing.T) {
	tests := []struct {
		name    string
		from    []State
		to      State
		changed bool
		wantErr error
	}{
		{"pause running", nil, Paused, true, nil},
		{"pause paused", []State{Paused}, Paused, false, nil},
		{"resume paused", []State{Paused}, Running, true, nil},
		{"resume running", nil, Running, false, nil},
		{"stop running", nil, Stopping, true, nil},
		{"stop paused", []State{Paused}, Stopping, true, nil},
		{"stop stopping", []State{Stopping}, Stopping, false, nil},
		{"pause stopping", []State{Stopping}, Paused, false, ErrTerminated},
		{"resume stopping", []State{Stopping}, Running, false, ErrTerminated},
		{"terminate from controller", nil, Terminated, false, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(0)
			for _, s := range tt.from {
				_, err := w.Transition(s)
				require.NoError(t, err)
			}

			changed, err := w.Transition(tt.to)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestRunFinishesAfter101Steps(t *testing.T) {
	tests := []struct {
		name  string
		step  compute.Step
		final int
	}{
		{"increment", compute.Increment, 101},
		{"decrement", compute.Decrement, -101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			w := New(0, WithStep(tt.step), WithInterval(0), WithMetrics(m))

			require.NoError(t, <-start(t, w))

			snap := w.Read()
			assert.Equal(t, Terminated, snap.State)
			assert.Equal(t, tt.final, snap.Progress)
			assert.Equal(t, 101.0, testutil.ToFloat64(m.Steps.WithLabelValues("1")))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("running", "terminated")))
		})
	}
}

func TestPausedWorkerMakesNoProgress(t *testing.T) {
	w := New(0, WithStep(cycle), WithInterval(time.Millisecond))
	done := start(t, w)

	_, err := w.Transition(Paused)
	require.NoError(t, err)

	// let an in-flight step complete
	time.Sleep(20 * time.Millisecond)
	before := w.Read().Progress
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, w.Read().Progress)
	assert.Equal(t, Paused, w.State())

	_, err = w.Transition(Running)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return w.Read().Progress != before
	}, 5*time.Second, time.Millisecond)

	_, err = w.Transition(Stopping)
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, Terminated, w.State())
}

func TestStopPausedWorker(t *testing.T) {
	w := New(0, WithStep(cycle), WithInterval(time.Millisecond))
	done := start(t, w)

	_, err := w.Transition(Paused)
	require.NoError(t, err)
	_, err = w.Transition(Stopping)
	require.NoError(t, err)

	require.NoError(t, <-done)
	assert.Equal(t, Terminated, w.State())
}

func TestStopIsIdempotent(t *testing.T) {
	w := New(0, WithStep(cycle), WithInterval(time.Millisecond))
	done := start(t, w)

	_, err := w.Transition(Stopping)
	require.NoError(t, err)
	_, err = w.Transition(Stopping)
	require.NoError(t, err)

	require.NoError(t, <-done)

	changed, err := w.Transition(Stopping)
	assert.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, Terminated, w.State())
}

func TestTerminatedIsAbsorbing(t *testing.T) {
	w := New(1, WithInterval(0))
	require.NoError(t, <-start(t, w))
	require.Equal(t, Terminated, w.State())

	for _, to := range []State{Paused, Running, Stopping} {
		changed, err := w.Transition(to)
		assert.False(t, changed)
		if to == Stopping {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, ErrTerminated)
		}
		assert.Equal(t, Terminated, w.State())
	}
}

func TestPanickingStepTerminatesWorker(t *testing.T) {
	w := New(0, WithInterval(0), WithStep(func(int) int { panic("bad step") }))

	err := <-start(t, w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad step")
	assert.Equal(t, Terminated, w.State())
}
