// Package worker implements the per-worker state machine, its lock and wake
// condition, and the worker loop.
//
// A worker's run state and progress are only read or written while holding that
// worker's lock. A paused worker parks on its wake condition and is woken by the
// controller after every state change. Operations spanning several workers lock
// them in ascending index order.
package worker

import (
	"errors"

	"github.com/looplab/fsm"
)

// State is a worker's run state.
type State int

const (
	Running State = iota
	Paused
	Stopping
	Terminated
)

// String returns the display name used in status output.
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopping:
		return "stopped"
	case Terminated:
		return "finished"
	default:
		return "unknown"
	}
}

// fsm state names
const (
	fsmRunning    = "running"
	fsmPaused     = "paused"
	fsmStopping   = "stopping"
	fsmTerminated = "terminated"
)

// fsm event names
const (
	EventPause     = "pause"
	EventResume    = "resume"
	EventStop      = "stop"
	EventTerminate = "terminate"
)

func (s State) fsmName() string {
	switch s {
	case Paused:
		return fsmPaused
	case Stopping:
		return fsmStopping
	case Terminated:
		return fsmTerminated
	default:
		return fsmRunning
	}
}

func stateFromFSM(name string) State {
	switch name {
	case fsmPaused:
		return Paused
	case fsmStopping:
		return Stopping
	case fsmTerminated:
		return Terminated
	default:
		return Running
	}
}

// eventFor maps a controller-requested target state to its event.
func eventFor(to State) string {
	switch to {
	case Paused:
		return EventPause
	case Running:
		return EventResume
	case Stopping:
		return EventStop
	default:
		return EventTerminate
	}
}

// transitions is the run-state graph. Terminated has no outgoing edges.
var transitions = fsm.Events{
	{Name: EventPause, Src: []string{fsmRunning}, Dst: fsmPaused},
	{Name: EventResume, Src: []string{fsmPaused}, Dst: fsmRunning},
	{Name: EventStop, Src: []string{fsmRunning, fsmPaused}, Dst: fsmStopping},
	{Name: EventTerminate, Src: []string{fsmRunning, fsmPaused, fsmStopping}, Dst: fsmTerminated},
}

var (
	// ErrTerminated is returned when pausing or resuming a worker that is
	// stopping or has finished.
	ErrTerminated = errors.New("worker has been terminated")

	// ErrInvalidTransition is returned for a transition outside the graph.
	ErrInvalidTransition = errors.New("invalid transition")
)

// Snapshot is a consistent view of one worker's state and progress.
type Snapshot struct {
	ID       int
	State    State
	Progress int
}
