// Package render provides output formatting for the controller.
package render

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/joss/workerctl/internal/worker"
)

// Renderer handles output formatting.
type Renderer struct {
	pretty bool
}

// New creates a new renderer. Pretty output colours state names and errors.
func New(pretty bool) *Renderer {
	return &Renderer{pretty: pretty}
}

// Status formats one `<id> <state> <progress>` line per worker.
func (r *Renderer) Status(snaps []worker.Snapshot) string {
	var sb strings.Builder
	for _, s := range snaps {
		fmt.Fprintf(&sb, "%d %s %d\n", s.ID, r.state(s.State), s.Progress)
	}
	return sb.String()
}

func (r *Renderer) state(s worker.State) string {
	name := s.String()
	if !r.pretty {
		return name
	}

	switch s {
	case worker.Running:
		return color.GreenString(name)
	case worker.Paused:
		return color.YellowString(name)
	case worker.Stopping:
		return color.MagentaString(name)
	default:
		return color.HiBlackString(name)
	}
}

// Stopping formats the exit summary.
func (r *Renderer) Stopping(remaining int) string {
	return fmt.Sprintf("Stopping %d remaining worker(s).\n", remaining)
}

// Error formats a user-facing error line.
func (r *Renderer) Error(format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if r.pretty {
		msg = color.RedString(msg)
	}
	return msg + "\n"
}

// Help returns the interactive command reference.
func (r *Renderer) Help() string {
	return helpText
}

const helpText = `
  pause <worker_id>
  - pauses the worker with the given id.
  resume <worker_id>
  - resumes the worker with the given id (if not stopped).
  stop <worker_id>
  - stops the worker with the given id.
  status
  - prints the id, status (paused, running, stopped, finished) and the current progress of each worker.
  exit
  - stops all remaining workers and exits.
  help
  - prints this help message.
  sleep <n_seconds>
  - puts the controller to sleep for <n_seconds>; workers keep running.
  metrics
  - prints worker and command metrics in Prometheus text format.
`
