package core

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/librescoot/librefsm"

	"led-service/internal/fsm"
	"led-service/internal/led"
	"led-service/internal/logger"
	"led-service/internal/messaging"
	"led-service/internal/types"
)

// publishThreshold is the duty movement, in percent, that triggers a state
// publication while the mode stays the same. Keeps mid-fade traffic bounded.
const publishThreshold = 1.0

type ledSnapshot struct {
	duty float64
	mode led.Mode
}

type ledUpdate struct {
	name       string
	duty       float64
	mode       led.Mode
	activeTime float64
}

// LedSystem ties the controller, the hardware driver, the lifecycle FSM and
// the Redis command surface together. The controller itself is not safe for
// concurrent use; every access goes through mu, taken by both the tick loop
// and the Redis listener goroutines.
type LedSystem struct {
	logger     *logger.Logger
	ctrl       *led.Controller
	table      []types.LedConfig
	index      map[string]int
	redis      MessagingClient
	machine    *librefsm.Machine
	mu         sync.Mutex
	tickPeriod time.Duration

	shuttingDown bool
	published    []ledSnapshot

	stopTick chan struct{}
	tickDone chan struct{}
	done     chan struct{}
}

func NewLedSystem(ctrl *led.Controller, table []types.LedConfig, redis MessagingClient, tickPeriod time.Duration, l *logger.Logger) *LedSystem {
	index := make(map[string]int, len(table))
	for i, cfg := range table {
		index[cfg.Name] = i
	}
	return &LedSystem{
		logger:     l,
		ctrl:       ctrl,
		table:      table,
		index:      index,
		redis:      redis,
		tickPeriod: tickPeriod,
		stopTick:   make(chan struct{}),
		tickDone:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (s *LedSystem) Start(ctx context.Context) error {
	s.logger.Infof("Starting LED system")

	s.redis.SetCallbacks(messaging.Callbacks{
		SetCallback:         s.handleSetRequest,
		ToggleCallback:      s.handleToggleRequest,
		SmoothCallback:      s.handleSmoothRequest,
		BlinkCallback:       s.handleBlinkRequest,
		BlinkSmoothCallback: s.handleBlinkSmoothRequest,
		ConfigCallback:      s.handleConfigRequest,
	})

	if err := s.redis.Connect(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if err := s.ctrl.Init(); err != nil {
		return fmt.Errorf("failed to initialize LED controller: %w", err)
	}

	s.published = make([]ledSnapshot, s.ctrl.Count())
	for i := range s.published {
		duty, err := s.ctrl.Duty(i)
		if err != nil {
			return err
		}
		s.published[i] = ledSnapshot{duty: duty, mode: led.ModeNormal}
	}

	if err := s.initFSM(ctx); err != nil {
		return fmt.Errorf("failed to start state machine: %w", err)
	}
	if err := s.machine.SendSync(librefsm.Event{ID: fsm.EvReady}); err != nil {
		return fmt.Errorf("failed to enter ready state: %w", err)
	}

	// Start Redis listeners now that everything is initialized
	if err := s.redis.StartListening(); err != nil {
		return fmt.Errorf("failed to start Redis listeners: %w", err)
	}

	s.logger.Infof("System started successfully")
	return nil
}

// Shutdown requests the shutdown fade and blocks until the service reaches
// the stopped state or the fade deadline passes.
func (s *LedSystem) Shutdown() {
	s.logger.Infof("Shutdown requested")
	s.machine.Send(librefsm.Event{ID: fsm.EvShutdown})

	select {
	case <-s.done:
		s.logger.Infof("Shutdown complete")
	case <-time.After(fsm.ShutdownTimeout + 2*time.Second):
		s.logger.Warnf("Timed out waiting for shutdown to complete")
	}

	if err := s.redis.Close(); err != nil {
		s.logger.Warnf("Failed to close Redis client: %v", err)
	}
}

func (s *LedSystem) runTicks() {
	defer close(s.tickDone)
	ticker := time.NewTicker(s.tickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopTick:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *LedSystem) tick() {
	s.mu.Lock()
	if err := s.ctrl.Tick(); err != nil {
		s.mu.Unlock()
		s.logger.Errorf("Tick failed: %v", err)
		return
	}
	updates := s.collectUpdates()
	fadesDone := s.shuttingDown && s.allDark()
	s.mu.Unlock()

	// Publishing happens outside the lock: Redis round trips must not stall
	// command handling.
	for _, u := range updates {
		if err := s.redis.PublishLedState(u.name, u.duty, string(u.mode), u.activeTime); err != nil {
			s.logger.Warnf("Failed to publish state of led %s: %v", u.name, err)
		}
	}

	if fadesDone && s.machine != nil {
		s.machine.Send(librefsm.Event{ID: fsm.EvFadesComplete})
	}
}

// collectUpdates gathers the LEDs whose observable state moved since the last
// publication. Caller holds mu.
func (s *LedSystem) collectUpdates() []ledUpdate {
	var updates []ledUpdate
	for i := range s.table {
		duty, err := s.ctrl.Duty(i)
		if err != nil {
			continue
		}
		mode, _ := s.ctrl.CurrentMode(i)
		prev := s.published[i]
		if mode == prev.mode && math.Abs(duty-prev.duty) < publishThreshold {
			continue
		}
		active, _ := s.ctrl.ActiveTime(i)
		s.published[i] = ledSnapshot{duty: duty, mode: mode}
		updates = append(updates, ledUpdate{
			name:       s.table[i].Name,
			duty:       duty,
			mode:       mode,
			activeTime: active,
		})
	}
	return updates
}

// allDark reports whether every LED has gone idle and dark. Caller holds mu.
func (s *LedSystem) allDark() bool {
	for i := range s.table {
		on, err := s.ctrl.IsOn(i)
		if err != nil || on {
			return false
		}
	}
	return true
}
