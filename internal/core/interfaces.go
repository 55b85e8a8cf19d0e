package core

import (
	"led-service/internal/messaging"
	"led-service/internal/types"
)

// MessagingClient defines the interface for Redis messaging operations needed by LedSystem
type MessagingClient interface {
	SetCallbacks(callbacks messaging.Callbacks)
	Connect() error
	StartListening() error
	Close() error

	// State publication
	PublishLedState(name string, duty float64, mode string, activeTime float64) error
	PublishServiceState(state types.ServiceState) error
}
