package worker

// Table is the fixed, index-addressable set of workers shared by the
// supervisor, the controller and each worker loop.
type Table struct {
	workers []*Worker
}

// NewTable creates n Running workers with the given options applied to each.
func NewTable(n int, opts ...Option) *Table {
	t := &Table{workers: make([]*Worker, n)}
	for i := range t.workers {
		t.workers[i] = New(i, opts...)
	}
	return t
}

// Len returns the number of workers.
func (t *Table) Len() int {
	return len(t.workers)
}

// Get returns the worker at a zero-based index.
func (t *Table) Get(index int) (*Worker, bool) {
	if index < 0 || index >= len(t.workers) {
		return nil, false
	}
	return t.workers[index], true
}

// Workers returns all workers in index order.
func (t *Table) Workers() []*Worker {
	return t.workers
}

// Snapshot reads every worker while holding all locks.
func (t *Table) Snapshot() []Snapshot {
	t.lockAll()
	defer t.unlockAll()

	snaps := make([]Snapshot, len(t.workers))
	for i, w := range t.workers {
		snaps[i] = w.readLocked()
	}
	return snaps
}

// StopAll moves every unfinished worker to Stopping, wakes it, and returns
// how many workers were not yet finished.
func (t *Table) StopAll() int {
	t.lockAll()
	defer t.unlockAll()

	remaining := 0
	for _, w := range t.workers {
		if w.stateLocked() == Terminated {
			continue
		}
		remaining++
		if _, err := w.transitionLocked(Stopping); err != nil {
			w.log.Warn("stop_all", nil, err)
		}
		w.wake.Signal()
	}
	return remaining
}

// lockAll acquires every worker lock in ascending index order.
func (t *Table) lockAll() {
	for _, w := range t.workers {
		w.mu.Lock()
	}
}

func (t *Table) unlockAll() {
	for i := len(t.workers) - 1; i >= 0; i-- {
		t.workers[i].mu.Unlock()
	}
}
