package render

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/joss/workerctl/internal/worker"
)

func TestStatusPlain(t *testing.T) {
	r := New(false)

	out := r.Status([]worker.Snapshot{
		{ID: 1, State: worker.Paused, Progress: -3},
		{ID: 2, State: worker.Running, Progress: 4},
		{ID: 3, State: worker.Stopping, Progress: 0},
		{ID: 4, State: worker.Terminated, Progress: 101},
	})

	assert.Equal(t, "1 paused -3\n2 running 4\n3 stopped 0\n4 finished 101\n", out)
}

func TestStatusPretty(t *testing.T) {
	old := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = old }()

	out := New(true).Status([]worker.Snapshot{{ID: 1, State: worker.Running, Progress: 1}})

	assert.Contains(t, out, "running")
	assert.Contains(t, out, "\x1b[")
}

func TestStopping(t *testing.T) {
	assert.Equal(t, "Stopping 2 remaining worker(s).\n", New(false).Stopping(2))
}

func TestError(t *testing.T) {
	assert.Equal(t, "Invalid worker id: 5\n", New(false).Error("Invalid worker id: %s", "5"))
}

func TestHelpListsCommands(t *testing.T) {
	help := New(false).Help()
	for _, cmd := range []string{"pause", "resume", "stop", "status", "exit", "help", "sleep", "metrics"} {
		assert.Contains(t, help, cmd)
	}
}
