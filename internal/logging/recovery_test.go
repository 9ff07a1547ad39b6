package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestWrapErrorPassesThrough(t *testing.T) {
	want := errors.New("plain")
	err := NewRecoveryHandler("test").WrapError(func() error { return want })
	assert.Same(t, want, err)
}

func TestWrapErrorRecoversPanic(t *testing.T) {
	logs := observe(t, zapcore.ErrorLevel)

	var hooked *PanicError
	h := NewRecoveryHandler("worker-1")
	h.OnPanic = func(p *PanicError) { hooked = p }

	err := h.WrapError(func() error { panic("kaboom") })

	var perr *PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "panic in worker-1: kaboom", err.Error())
	assert.Equal(t, "kaboom", perr.Value)
	assert.NotEmpty(t, perr.Stack)
	assert.Same(t, perr, hooked)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "panic_recovered", entry.Message)
	assert.Equal(t, "worker-1", entry.ContextMap()["component"])
}

func TestWrapRecoversPanic(t *testing.T) {
	observe(t, zapcore.ErrorLevel)

	called := false
	h := NewRecoveryHandler("c")
	h.OnPanic = func(*PanicError) { called = true }

	assert.NotPanics(t, func() {
		h.Wrap(func() { panic("x") })
	})
	assert.True(t, called)
}
