package fsm

import (
	"time"

	"github.com/librescoot/librefsm"
)

// Timing constants
const (
	// ShutdownTimeout bounds the shutdown fade: if the indicators have not
	// finished fading out by then, the service stops anyway.
	ShutdownTimeout = 2 * time.Second
)

// NewDefinition creates the service lifecycle FSM definition.
// The actions parameter provides the implementation for state entry and the
// shutdown timeout.
func NewDefinition(actions Actions) *librefsm.Definition {
	return librefsm.NewDefinition().
		State(StateInit).
		State(StateReady,
			librefsm.WithOnEnter(actions.EnterReady),
		).
		State(StateShuttingDown,
			librefsm.WithTimeout(ShutdownTimeout, EvShutdownTimeout, actions.OnShutdownTimeout),
			librefsm.WithOnEnter(actions.EnterShuttingDown),
		).
		State(StateStopped,
			librefsm.WithOnEnter(actions.EnterStopped),
		).

		// === Transitions ===
		Transition(StateInit, EvReady, StateReady).
		Transition(StateReady, EvShutdown, StateShuttingDown).
		Transition(StateShuttingDown, EvFadesComplete, StateStopped).
		Transition(StateShuttingDown, EvShutdownTimeout, StateStopped).

		// Initial state
		Initial(StateInit)
}
