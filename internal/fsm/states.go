package fsm

import "github.com/librescoot/librefsm"

// Service lifecycle states
const (
	StateInit         librefsm.StateID = "init"
	StateReady        librefsm.StateID = "ready"
	StateShuttingDown librefsm.StateID = "shutting-down"
	StateStopped      librefsm.StateID = "stopped"
)

// Service lifecycle events
const (
	// Internal progression
	EvReady         librefsm.EventID = "ready"
	EvFadesComplete librefsm.EventID = "fades-complete"

	// External commands (signal or Redis)
	EvShutdown librefsm.EventID = "shutdown"

	// Timer events
	EvShutdownTimeout librefsm.EventID = "shutdown-timeout"
)
