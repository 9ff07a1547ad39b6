package logging

import (
	"fmt"
	"runtime/debug"
)

// PanicError is the error a recovered panic is converted into.
type PanicError struct {
	Component string
	Value     interface{}
	Stack     string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Component, e.Value)
}

// RecoveryHandler converts panics in a goroutine into logged errors so that
// one failing worker cannot take the whole process down.
type RecoveryHandler struct {
	Component string
	OnPanic   func(err *PanicError)
}

// NewRecoveryHandler creates a recovery handler for a component
func NewRecoveryHandler(component string) *RecoveryHandler {
	return &RecoveryHandler{Component: component}
}

// Wrap runs fn and swallows a panic after logging it.
func (r *RecoveryHandler) Wrap(fn func()) {
	_ = r.WrapError(func() error {
		fn()
		return nil
	})
}

// WrapError runs fn and returns a *PanicError if it panics.
func (r *RecoveryHandler) WrapError(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = r.recovered(rec)
		}
	}()
	return fn()
}

func (r *RecoveryHandler) recovered(rec interface{}) *PanicError {
	perr := &PanicError{
		Component: r.Component,
		Value:     rec,
		Stack:     string(debug.Stack()),
	}

	New(r.Component).Error("panic_recovered", map[string]interface{}{
		"stack": perr.Stack,
	}, perr)

	if r.OnPanic != nil {
		r.OnPanic(perr)
	}
	return perr
}
