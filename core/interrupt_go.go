//go:build !tinygo

package core

import (
	"runtime"
	"sync"
)

// interruptState is a placeholder for interrupt state on regular Go
type interruptState uintptr

// irqMu stands in for the global interrupt mask on regular Go. Simulated
// interrupts are delivered from other goroutines and take the same lock, so
// a critical section excludes them exactly as masking would on hardware.
// Critical sections must not nest.
var irqMu sync.Mutex

// disableInterrupts enters a critical section
func disableInterrupts() interruptState {
	irqMu.Lock()
	return 0
}

// restoreInterrupts leaves the critical section
func restoreInterrupts(state interruptState) {
	irqMu.Unlock()
}

// spinPause is called on every iteration of a busy-wait loop. Regular Go
// yields so the goroutine delivering simulated interrupts can run.
func spinPause() {
	runtime.Gosched()
}
