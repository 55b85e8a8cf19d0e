package core

import (
	"context"

	"github.com/librescoot/librefsm"

	"led-service/internal/fsm"
	"led-service/internal/types"
)

// Ensure LedSystem implements fsm.Actions
var _ fsm.Actions = (*LedSystem)(nil)

// stateIDToServiceState converts librefsm StateID to types.ServiceState
func stateIDToServiceState(id librefsm.StateID) types.ServiceState {
	switch id {
	case fsm.StateInit:
		return types.StateInit
	case fsm.StateReady:
		return types.StateReady
	case fsm.StateShuttingDown:
		return types.StateShuttingDown
	case fsm.StateStopped:
		return types.StateStopped
	default:
		return types.ServiceState(string(id))
	}
}

// initFSM initializes and starts the librefsm machine
func (s *LedSystem) initFSM(ctx context.Context) error {
	def := fsm.NewDefinition(s)
	machine, err := def.Build()
	if err != nil {
		return err
	}
	s.machine = machine

	s.machine.OnStateChange(func(from, to librefsm.StateID) {
		newState := stateIDToServiceState(to)
		s.logger.Infof("State transition: %s -> %s", stateIDToServiceState(from), newState)
		if err := s.redis.PublishServiceState(newState); err != nil {
			s.logger.Errorf("Failed to publish service state: %v", err)
		}
	})

	if err := s.machine.Start(ctx); err != nil {
		return err
	}

	s.logger.Infof("librefsm state machine started")
	return nil
}

// EnterReady starts the tick loop.
func (s *LedSystem) EnterReady(c *librefsm.Context) error {
	s.logger.Infof("Entering ready state, tick period %s", s.tickPeriod)
	go s.runTicks()
	return nil
}

// EnterShuttingDown fades every lit indicator out. PWM channels ramp down
// through the fade engine; GPIO channels can only snap off.
func (s *LedSystem) EnterShuttingDown(c *librefsm.Context) error {
	s.logger.Infof("Entering shutting-down state, fading indicators out")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuttingDown = true

	for i := range s.table {
		on, err := s.ctrl.IsOn(i)
		if err != nil || !on {
			continue
		}
		if _, ok := s.table[i].Channel.(types.PWMChannel); ok {
			// Abort any blink or fade in progress, then ramp down.
			if err := s.ctrl.Set(i, types.LedOn); err == nil {
				err = s.ctrl.SetSmooth(i, types.LedOff)
			}
			if err != nil {
				s.logger.Warnf("Failed to fade out led %s: %v", s.table[i].Name, err)
			}
		} else {
			if err := s.ctrl.Set(i, types.LedOff); err != nil {
				s.logger.Warnf("Failed to switch off led %s: %v", s.table[i].Name, err)
			}
		}
	}
	return nil
}

// EnterStopped stops the tick loop, restores the configured initial levels
// and releases the hardware. The teardown runs off the FSM goroutine so the
// final tick can drain.
func (s *LedSystem) EnterStopped(c *librefsm.Context) error {
	s.logger.Infof("Entering stopped state")
	close(s.stopTick)

	go func() {
		<-s.tickDone

		s.mu.Lock()
		if err := s.ctrl.Deinit(); err != nil {
			s.logger.Errorf("Failed to deinitialize LED controller: %v", err)
		}
		s.mu.Unlock()

		close(s.done)
	}()
	return nil
}

// OnShutdownTimeout fires when the shutdown fade did not finish in time.
func (s *LedSystem) OnShutdownTimeout(c *librefsm.Context) error {
	s.logger.Warnf("Shutdown fade did not complete within %s", fsm.ShutdownTimeout)
	return nil
}
