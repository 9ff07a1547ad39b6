package worker

import (
	"time"

	"github.com/joss/workerctl/internal/compute"
)

// Run executes the worker loop until the worker terminates, either because its
// progress left the working range or because it was asked to stop.
//
// While paused the worker blocks on its wake condition; it is never woken
// into action by a Paused state.
func (w *Worker) Run() error {
	defer w.ensureTerminated()

	w.log.Debug("started", nil)
	for {
		time.Sleep(w.interval)
		if done := w.tick(); done {
			w.log.Debug("finished", map[string]interface{}{
				"progress": w.Read().Progress,
			})
			return nil
		}
		w.metrics.RecordStep(w.ID())
	}
}

// tick waits for a runnable state and performs one unit of work. It reports
// whether the worker has terminated.
func (w *Worker) tick() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for !w.runnableLocked() {
		w.wake.Wait()
	}

	if w.stateLocked() == Stopping {
		w.terminateLocked()
		return true
	}

	if compute.Finished(w.progress) {
		w.terminateLocked()
		return true
	}
	w.progress = w.step(w.progress)
	return false
}

func (w *Worker) runnableLocked() bool {
	s := w.stateLocked()
	return s == Running || s == Stopping
}

// ensureTerminated marks a worker that left Run abnormally as finished.
func (w *Worker) ensureTerminated() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stateLocked() != Terminated {
		w.machine.SetState(fsmTerminated)
	}
}
