//go:build !unix

package dnsdiag

import "os"

func interruptSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

func ignoreSuspendSignal() {}
