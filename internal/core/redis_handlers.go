package core

import (
	"fmt"

	"led-service/internal/messaging"
	"led-service/internal/types"
)

// commandLed resolves a command target by name. Caller holds mu.
func (s *LedSystem) commandLed(name string) (int, error) {
	if s.shuttingDown {
		return 0, fmt.Errorf("service is shutting down")
	}
	num, ok := s.index[name]
	if !ok {
		return 0, fmt.Errorf("unknown led %q", name)
	}
	return num, nil
}

func ledStateOf(on bool) types.LedState {
	if on {
		return types.LedOn
	}
	return types.LedOff
}

func (s *LedSystem) handleSetRequest(cmd messaging.SwitchCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	num, err := s.commandLed(cmd.Name)
	if err != nil {
		return err
	}
	s.logger.Debugf("Set request: led %s on=%v full=%v", cmd.Name, cmd.On, cmd.Full)
	if cmd.Full {
		return s.ctrl.SetFull(num, ledStateOf(cmd.On))
	}
	return s.ctrl.Set(num, ledStateOf(cmd.On))
}

func (s *LedSystem) handleToggleRequest(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	num, err := s.commandLed(name)
	if err != nil {
		return err
	}
	s.logger.Debugf("Toggle request: led %s", name)
	return s.ctrl.Toggle(num)
}

func (s *LedSystem) handleSmoothRequest(cmd messaging.SwitchCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	num, err := s.commandLed(cmd.Name)
	if err != nil {
		return err
	}
	s.logger.Debugf("Smooth request: led %s on=%v", cmd.Name, cmd.On)
	return s.ctrl.SetSmooth(num, ledStateOf(cmd.On))
}

func (s *LedSystem) handleBlinkRequest(cmd messaging.BlinkCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	num, err := s.commandLed(cmd.Name)
	if err != nil {
		return err
	}
	s.logger.Debugf("Blink request: led %s on=%gs period=%gs count=%d", cmd.Name, cmd.OnTime, cmd.Period, cmd.Count)
	return s.ctrl.Blink(num, cmd.OnTime, cmd.Period, cmd.Count)
}

func (s *LedSystem) handleBlinkSmoothRequest(cmd messaging.BlinkCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	num, err := s.commandLed(cmd.Name)
	if err != nil {
		return err
	}
	s.logger.Debugf("Blink-smooth request: led %s on=%gs period=%gs count=%d", cmd.Name, cmd.OnTime, cmd.Period, cmd.Count)
	return s.ctrl.BlinkSmooth(num, cmd.OnTime, cmd.Period, cmd.Count)
}

func (s *LedSystem) handleConfigRequest(cmd messaging.ConfigCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	num, err := s.commandLed(cmd.Name)
	if err != nil {
		return err
	}
	s.logger.Debugf("Config request: led %s fade-in=%gs fade-out=%gs max=%g min=%g", cmd.Name, cmd.FadeIn, cmd.FadeOut, cmd.Max, cmd.Min)
	return s.ctrl.SetFadeCfg(num, cmd.FadeIn, cmd.FadeOut, cmd.Max, cmd.Min)
}
