package fsm

import "github.com/librescoot/librefsm"

// Actions defines the interface for service lifecycle actions. LedSystem
// implements this interface to handle state entry and the shutdown timeout.
type Actions interface {
	// State entry actions
	EnterReady(c *librefsm.Context) error
	EnterShuttingDown(c *librefsm.Context) error
	EnterStopped(c *librefsm.Context) error

	// Transition actions
	OnShutdownTimeout(c *librefsm.Context) error
}
