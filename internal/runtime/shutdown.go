// Package runtime turns SIGINT/SIGTERM into an orderly stop of the supervisor.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joss/workerctl/internal/logging"
)

// ShutdownFunc drains one component. ctx expires after the manager's timeout.
type ShutdownFunc func(ctx context.Context) error

type drainer struct {
	name string
	fn   ShutdownFunc
}

// ShutdownManager owns the run context. Shutdown cancels it, then drains every
// registered component concurrently within the timeout.
type ShutdownManager struct {
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	drainers []drainer

	once sync.Once
	done chan struct{}
	err  error
	log  *logging.Logger
}

// NewShutdownManager creates a manager whose drain phase is bounded by timeout.
func NewShutdownManager(timeout time.Duration) *ShutdownManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &ShutdownManager{
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		log:     logging.New("shutdown"),
	}
}

// Register adds a component to drain on shutdown.
func (m *ShutdownManager) Register(name string, fn ShutdownFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drainers = append(m.drainers, drainer{name: name, fn: fn})
}

// RegisterSimple adds a drain step that cannot fail.
func (m *ShutdownManager) RegisterSimple(name string, fn func()) {
	m.Register(name, func(context.Context) error {
		fn()
		return nil
	})
}

// Context is cancelled as soon as shutdown begins.
func (m *ShutdownManager) Context() context.Context {
	return m.ctx
}

// Done is closed once every drainer returned or the timeout elapsed.
func (m *ShutdownManager) Done() <-chan struct{} {
	return m.done
}

// Started reports whether shutdown has begun.
func (m *ShutdownManager) Started() bool {
	return m.ctx.Err() != nil
}

// ListenForSignals triggers Shutdown on the first SIGINT or SIGTERM. The
// returned function stops listening and may be called more than once.
func (m *ShutdownManager) ListenForSignals() (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	quit := make(chan struct{})

	go func() {
		select {
		case sig := <-sigs:
			m.log.Warn("signal_received", map[string]interface{}{"signal": sig.String()}, nil)
			m.Shutdown()
		case <-quit:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(quit)
		})
	}
}

// Shutdown cancels the run context and drains all components. Only the first
// call does any work; every call returns the joined drain errors.
func (m *ShutdownManager) Shutdown() error {
	m.once.Do(func() {
		m.err = m.drain()
		close(m.done)
	})
	<-m.done
	return m.err
}

// WaitForShutdown blocks until a shutdown started elsewhere has finished.
func (m *ShutdownManager) WaitForShutdown() error {
	<-m.done
	return m.err
}

func (m *ShutdownManager) drain() error {
	m.cancel()

	m.mu.Lock()
	drainers := append([]drainer(nil), m.drainers...)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.log.Info("shutdown_started", map[string]interface{}{"components": len(drainers)})

	var (
		g     errgroup.Group
		errMu sync.Mutex
		errs  []error
	)
	for _, d := range drainers {
		g.Go(func() error {
			start := time.Now()
			err := d.fn(ctx)
			extra := map[string]interface{}{
				"component":   d.name,
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if err != nil {
				m.log.Error("drain_failed", extra, err)
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
				errMu.Unlock()
				return nil
			}
			m.log.Debug("drained", extra)
			return nil
		})
	}

	finished := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		m.log.Info("shutdown_complete", nil)
	case <-ctx.Done():
		m.log.Warn("shutdown_timeout", map[string]interface{}{"timeout": m.timeout.String()}, ctx.Err())
		errMu.Lock()
		errs = append(errs, fmt.Errorf("drain timed out after %s: %w", m.timeout, ctx.Err()))
		errMu.Unlock()
	}

	errMu.Lock()
	defer errMu.Unlock()
	return errors.Join(errs...)
}
