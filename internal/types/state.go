package types

type ServiceState string

const (
	StateInit         ServiceState = "init"
	StateReady        ServiceState = "ready"
	StateShuttingDown ServiceState = "shutting-down"
	StateStopped      ServiceState = "stopped"
)
