package dnsdiag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanceller_SleepInterruptible_NoInterrupt(t *testing.T) {
	c := NewCanceller()
	start := time.Now()
	interrupted := c.SleepInterruptible(50 * time.Millisecond)
	assert.False(t, interrupted)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestCanceller_SleepInterruptible_ZeroDuration(t *testing.T) {
	c := NewCanceller()
	assert.False(t, c.SleepInterruptible(0))
}

func TestCanceller_ShutdownRequested_InitiallyFalse(t *testing.T) {
	c := NewCanceller()
	assert.False(t, c.ShutdownRequested())
	assert.False(t, c.ImmediateExit())
}

func TestCanceller_DoneClosesOnFirstShutdown(t *testing.T) {
	c := NewCanceller()
	c.shutdownRequested.Store(true)
	close(c.done)

	select {
	case <-c.Done():
	default:
		t.Fatal("Done() channel should be closed")
	}
}
