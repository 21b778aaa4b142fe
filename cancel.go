package dnsdiag

import (
	"os"
	"os/signal"
	"sync/atomic"
	"time"
)

// Canceller is the two-stage graceful/immediate shutdown signal (C5):
// the first interrupt sets ShutdownRequested so in-flight loops break at
// their next iteration boundary; a second interrupt sets ImmediateExit
// and the process terminates within 100ms.
type Canceller struct {
	shutdownRequested atomic.Bool
	immediateExit     atomic.Bool
	done              chan struct{}
	sigCh             chan os.Signal
}

// NewCanceller returns a Canceller that is not yet listening for
// signals; call Install to start.
func NewCanceller() *Canceller {
	return &Canceller{done: make(chan struct{})}
}

// Install registers the process's interrupt handler. It ignores the
// suspend-to-background signal where the platform has one (spec §4.5).
func (c *Canceller) Install() {
	c.sigCh = make(chan os.Signal, 2)
	signal.Notify(c.sigCh, interruptSignals()...)
	ignoreSuspendSignal()

	go func() {
		for range c.sigCh {
			if c.shutdownRequested.Swap(true) {
				// second delivery: immediate exit (done was already
				// closed by the first delivery)
				c.immediateExit.Store(true)
				os.Exit(0)
			}
			select {
			case <-c.done:
			default:
				close(c.done)
			}
		}
	}()
}

// ShutdownRequested reports whether a graceful shutdown has been
// requested. Every loop in C4/C6/C7 checks this at the top of each
// iteration.
func (c *Canceller) ShutdownRequested() bool {
	return c.shutdownRequested.Load()
}

// ImmediateExit reports whether a second interrupt was delivered. By the
// time callers can observe this as true, the process is already on its
// way out via os.Exit, so this mostly exists for tests.
func (c *Canceller) ImmediateExit() bool {
	return c.immediateExit.Load()
}

// Done returns a channel that is closed on the first shutdown request,
// for use in select statements that need to abandon a blocking wait.
func (c *Canceller) Done() <-chan struct{} {
	return c.done
}

const sleepPollInterval = 100 * time.Millisecond

// SleepInterruptible sleeps for d, but wakes early (and returns true) if
// a shutdown is requested before d elapses. It polls at
// sleepPollInterval so blocking waits remain cancellation-responsive
// within the 100ms bound spec §4.5 requires.
func (c *Canceller) SleepInterruptible(d time.Duration) (interrupted bool) {
	if d <= 0 {
		return c.ShutdownRequested()
	}
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return c.ShutdownRequested()
		}
		wait := remaining
		if wait > sleepPollInterval {
			wait = sleepPollInterval
		}
		select {
		case <-c.Done():
			return true
		case <-time.After(wait):
			if c.ShutdownRequested() {
				return true
			}
		}
	}
}
