// Package shutdown holds the one-way stop flag shared between the interrupt
// watcher and the capture loop.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var ErrInstall = errors.New("install signal handler")

// DefaultSignals are watched when Install is called without signals.
var DefaultSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// Flag starts in the running state. Stop moves it to stopped, and it never
// goes back.
type Flag struct {
	stopped   atomic.Bool
	installed atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewFlag() *Flag {
	ctx, cancel := context.WithCancel(context.Background())
	return &Flag{ctx: ctx, cancel: cancel}
}

// Stop marks the flag stopped. Safe to call from any goroutine, any number of
// times. A zero Flag stops too, but has no context to cancel.
func (f *Flag) Stop() {
	f.stopped.Store(true)
	if f.cancel != nil {
		f.cancel()
	}
}

func (f *Flag) Stopped() bool {
	return f.stopped.Load()
}

// Context is done once the flag is stopped. Blocking reads use it to wake up.
func (f *Flag) Context() context.Context {
	return f.ctx
}

// Install routes sig (DefaultSignals when empty) to Stop. The returned
// release func unregisters the handler; it does not reset the flag. A flag
// accepts a single installation.
func (f *Flag) Install(sig ...os.Signal) (release func(), err error) {
	if f == nil || f.ctx == nil {
		return nil, errors.Wrap(ErrInstall, "flag not initialised")
	}
	if !f.installed.CompareAndSwap(false, true) {
		return nil, errors.Wrap(ErrInstall, "handler already installed")
	}
	if len(sig) == 0 {
		sig = DefaultSignals
	}

	ch := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(ch, sig...)

	go func() {
		select {
		case s := <-ch:
			f.Stop()
			log.WithField("signal", s.String()).Warn("received exit signal, releasing resources")
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}, nil
}
