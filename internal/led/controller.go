package led

import (
	"fmt"

	"led-service/internal/logger"
	"led-service/internal/types"
)

// Mode is the behavioral state of a single LED.
type Mode string

const (
	ModeNormal    Mode = "normal"
	ModeFadeIn    Mode = "fade-in"
	ModeFadeOut   Mode = "fade-out"
	ModeBlink     Mode = "blink"
	ModeFadeBlink Mode = "fade-blink"
)

const (
	// BlinkContinuous requests an unbounded blink; the counter never
	// decrements and the LED blinks until overridden.
	BlinkContinuous = -1

	// DefaultFadeTime is the fade in/out duration applied until
	// SetFadeCfg changes it. Unit: seconds.
	DefaultFadeTime = 1.0

	// Time accumulators saturate here to bound float magnitude over
	// long uptimes. Unit: seconds.
	timeLimit = 1e6

	// Fade-out is considered complete within this distance of the floor.
	fadeEpsilon = 0.001

	fullOnDuty  = 100.0
	fullOffDuty = 0.0
)

// ledState is the runtime record of one LED. Owned exclusively by the
// Controller; mutated only by Tick and by command operations.
type ledState struct {
	duty    float64
	maxDuty float64
	minDuty float64

	fadeTime    float64
	fadeInRate  float64
	fadeOutRate float64
	fadeInTime  float64
	fadeOutTime float64

	period  float64
	perTime float64
	onTime  float64

	activeTime float64

	mode     Mode
	blinkCnt int
}

func (l *ledState) recomputeRates() {
	span := l.maxDuty - l.minDuty
	// Times two because the derivative of t^2 is 2t: integrating the
	// resulting ramp over the configured duration covers the full span.
	l.fadeInRate = 2.0 * span / (l.fadeInTime * l.fadeInTime)
	l.fadeOutRate = 2.0 * span / (l.fadeOutTime * l.fadeOutTime)
}

// Controller owns the runtime state of every LED in the table and drives it
// from a fixed-period tick. It is not safe for concurrent use; the caller
// serializes Tick against command operations.
type Controller struct {
	logger      *logger.Logger
	table       []types.LedConfig
	leds        []ledState
	drv         Driver
	tickPeriod  float64 // seconds
	initialized bool
}

// NewController builds a controller over the static LED table. tickPeriod is
// the exact interval, in seconds, at which the host will call Tick.
func NewController(table []types.LedConfig, tickPeriod float64, drv Driver, l *logger.Logger) (*Controller, error) {
	if tickPeriod <= 0 {
		return nil, fmt.Errorf("%w: tick period %g must be positive", ErrInvalidArgument, tickPeriod)
	}
	if drv == nil {
		return nil, fmt.Errorf("%w: nil driver", ErrInvalidArgument)
	}
	return &Controller{
		logger:     l,
		table:      table,
		drv:        drv,
		tickPeriod: tickPeriod,
	}, nil
}

// Init validates the table, brings up the driver backends and resets every
// LED to its configured initial state. Calling Init on an initialized
// controller is a no-op.
func (c *Controller) Init() error {
	if c.initialized {
		return nil
	}
	if len(c.table) == 0 {
		return fmt.Errorf("%w: led table missing", ErrDriverInit)
	}
	for i := range c.table {
		if c.table[i].Channel == nil {
			return fmt.Errorf("%w: led %d (%s) has no channel", ErrDriverInit, i, c.table[i].Name)
		}
	}
	if err := c.drv.Initialize(); err != nil {
		return fmt.Errorf("%w: %v", ErrDriverInit, err)
	}

	c.leds = make([]ledState, len(c.table))
	for i := range c.leds {
		c.resetLed(i)
	}
	c.initialized = true

	// Push the initial levels out so the pins match the table before the
	// first tick runs.
	for i := range c.leds {
		if err := c.dispatch(i); err != nil {
			c.logger.Warnf("Failed to apply initial state of led %d: %v", i, err)
		}
	}
	return nil
}

// Deinit restores every LED to its configured initial state, releases the
// driver and clears the initialized flag. Further operations are rejected
// until Init is called again.
func (c *Controller) Deinit() error {
	if !c.initialized {
		return ErrNotInitialized
	}
	for i := range c.leds {
		c.resetLed(i)
		if err := c.dispatch(i); err != nil {
			c.logger.Warnf("Failed to restore initial state of led %d: %v", i, err)
		}
	}
	c.drv.Cleanup()
	c.initialized = false
	return nil
}

// IsInitialized reports whether the controller is inside an Init/Deinit
// window.
func (c *Controller) IsInitialized() bool {
	return c.initialized
}

// Count returns the number of LEDs in the table.
func (c *Controller) Count() int {
	return len(c.table)
}

// resetLed loads the configuration defaults into an LED record.
func (c *Controller) resetLed(num int) {
	l := &c.leds[num]
	*l = ledState{
		maxDuty:     fullOnDuty,
		minDuty:     fullOffDuty,
		fadeInTime:  DefaultFadeTime,
		fadeOutTime: DefaultFadeTime,
		mode:        ModeNormal,
	}
	l.recomputeRates()
	if c.table[num].Initial == types.LedOn {
		l.duty = l.maxDuty
	} else {
		l.duty = l.minDuty
	}
}

// checkLed guards every per-LED operation.
func (c *Controller) checkLed(num int) error {
	if !c.initialized {
		return ErrNotInitialized
	}
	if num < 0 || num >= len(c.leds) {
		return fmt.Errorf("%w: led %d out of range", ErrInvalidArgument, num)
	}
	return nil
}

// Set forces the LED to NORMAL mode at its configured on or off brightness.
// Always allowed, regardless of the current mode.
func (c *Controller) Set(num int, state types.LedState) error {
	if err := c.checkLed(num); err != nil {
		return err
	}
	l := &c.leds[num]
	l.mode = ModeNormal
	if state == types.LedOn {
		l.duty = l.maxDuty
	} else {
		l.duty = l.minDuty
	}
	return nil
}

// SetFull is Set with the configured brightness limits overridden: the duty
// snaps to a hard 100 or 0 percent.
func (c *Controller) SetFull(num int, state types.LedState) error {
	if err := c.checkLed(num); err != nil {
		return err
	}
	l := &c.leds[num]
	l.mode = ModeNormal
	if state == types.LedOn {
		l.duty = fullOnDuty
	} else {
		l.duty = fullOffDuty
	}
	return nil
}

// Toggle forces NORMAL mode and flips the duty between the configured on and
// off brightness. Always allowed, regardless of the current mode.
func (c *Controller) Toggle(num int) error {
	if err := c.checkLed(num); err != nil {
		return err
	}
	l := &c.leds[num]
	l.mode = ModeNormal
	if l.duty >= l.maxDuty {
		l.duty = l.minDuty
	} else {
		l.duty = l.maxDuty
	}
	return nil
}

// SetSmooth starts a fade toward the on or off brightness. Only PWM-driven
// LEDs can fade, and the LED must currently be idle.
func (c *Controller) SetSmooth(num int, state types.LedState) error {
	if err := c.checkLed(num); err != nil {
		return err
	}
	if _, ok := c.table[num].Channel.(types.PWMChannel); !ok {
		return fmt.Errorf("%w: led %d (%s) is not PWM driven", ErrInvalidArgument, num, c.table[num].Name)
	}
	l := &c.leds[num]
	if l.mode != ModeNormal {
		return fmt.Errorf("%w: led %d is busy in mode %s", ErrInvalidState, num, l.mode)
	}
	if state == types.LedOn {
		l.mode = ModeFadeIn
	} else {
		l.mode = ModeFadeOut
	}
	return nil
}

// Blink starts a hard on/off blink: onTime seconds lit out of every period
// seconds, repeated count times (BlinkContinuous blinks until overridden).
// The LED must currently be idle.
func (c *Controller) Blink(num int, onTime, period float64, count int) error {
	if err := c.checkLed(num); err != nil {
		return err
	}
	return c.startBlink(num, onTime, period, count, ModeBlink)
}

// BlinkSmooth is Blink with the duty ramped through the fade engine instead
// of snapping. Only PWM-driven LEDs qualify.
func (c *Controller) BlinkSmooth(num int, onTime, period float64, count int) error {
	if err := c.checkLed(num); err != nil {
		return err
	}
	if _, ok := c.table[num].Channel.(types.PWMChannel); !ok {
		return fmt.Errorf("%w: led %d (%s) is not PWM driven", ErrInvalidArgument, num, c.table[num].Name)
	}
	return c.startBlink(num, onTime, period, count, ModeFadeBlink)
}

func (c *Controller) startBlink(num int, onTime, period float64, count int, m Mode) error {
	if onTime < 0 || period <= 0 || onTime >= period {
		return fmt.Errorf("%w: on time %g must be within period %g", ErrInvalidArgument, onTime, period)
	}
	if count != BlinkContinuous && count < 0 {
		return fmt.Errorf("%w: blink count %d", ErrInvalidArgument, count)
	}
	l := &c.leds[num]
	if l.mode != ModeNormal {
		return fmt.Errorf("%w: led %d is busy in mode %s", ErrInvalidState, num, l.mode)
	}
	l.mode = m
	l.onTime = onTime
	l.period = period
	l.perTime = 0
	l.blinkCnt = count
	return nil
}

// SetFadeCfg reconfigures the fade durations and brightness limits of an
// idle LED. Rates are rederived so a full ramp covers the new duty span in
// exactly the given durations.
func (c *Controller) SetFadeCfg(num int, fadeInTime, fadeOutTime, maxDuty, minDuty float64) error {
	if err := c.checkLed(num); err != nil {
		return err
	}
	if fadeInTime <= 0 || fadeOutTime <= 0 {
		return fmt.Errorf("%w: fade times %g/%g must be positive", ErrInvalidArgument, fadeInTime, fadeOutTime)
	}
	if minDuty < 0 || maxDuty > fullOnDuty || minDuty >= maxDuty {
		return fmt.Errorf("%w: duty limits %g..%g", ErrInvalidArgument, minDuty, maxDuty)
	}
	l := &c.leds[num]
	if l.mode != ModeNormal {
		return fmt.Errorf("%w: led %d is busy in mode %s", ErrInvalidState, num, l.mode)
	}
	l.fadeInTime = fadeInTime
	l.fadeOutTime = fadeOutTime
	l.maxDuty = maxDuty
	l.minDuty = minDuty
	l.recomputeRates()
	l.clampDuty()
	return nil
}

// SetOnBrightness updates the duty value that represents "fully on",
// independently of the fade timing.
func (c *Controller) SetOnBrightness(num int, duty float64) error {
	if err := c.checkLed(num); err != nil {
		return err
	}
	l := &c.leds[num]
	if duty > fullOnDuty || duty <= l.minDuty {
		return fmt.Errorf("%w: on brightness %g outside (%g..100]", ErrInvalidArgument, duty, l.minDuty)
	}
	l.maxDuty = duty
	l.recomputeRates()
	l.clampDuty()
	return nil
}

// SetOffBrightness updates the duty value that represents "fully off". A
// non-zero value gives the LED a minimum-brightness floor.
func (c *Controller) SetOffBrightness(num int, duty float64) error {
	if err := c.checkLed(num); err != nil {
		return err
	}
	l := &c.leds[num]
	if duty < 0 || duty >= l.maxDuty {
		return fmt.Errorf("%w: off brightness %g outside [0..%g)", ErrInvalidArgument, duty, l.maxDuty)
	}
	l.minDuty = duty
	l.recomputeRates()
	l.clampDuty()
	return nil
}

func (l *ledState) clampDuty() {
	if l.duty > l.maxDuty {
		l.duty = l.maxDuty
	}
	if l.duty < l.minDuty {
		l.duty = l.minDuty
	}
}

// Duty returns the LED's current output duty cycle in percent.
func (c *Controller) Duty(num int) (float64, error) {
	if err := c.checkLed(num); err != nil {
		return 0, err
	}
	return c.leds[num].duty, nil
}

// ActiveTime returns how long, in seconds, the LED has continuously been in
// the lit half of its duty range.
func (c *Controller) ActiveTime(num int) (float64, error) {
	if err := c.checkLed(num); err != nil {
		return 0, err
	}
	return c.leds[num].activeTime, nil
}

// CurrentMode returns the LED's behavioral mode.
func (c *Controller) CurrentMode(num int) (Mode, error) {
	if err := c.checkLed(num); err != nil {
		return "", err
	}
	return c.leds[num].mode, nil
}

// IsIdle reports whether the LED is in NORMAL mode.
func (c *Controller) IsIdle(num int) (bool, error) {
	if err := c.checkLed(num); err != nil {
		return false, err
	}
	return c.leds[num].mode == ModeNormal, nil
}

// IsOn reports whether the LED is doing anything visible: mid fade or blink,
// or idle with a non-zero duty.
func (c *Controller) IsOn(num int) (bool, error) {
	if err := c.checkLed(num); err != nil {
		return false, err
	}
	l := &c.leds[num]
	return l.mode != ModeNormal || l.duty != 0, nil
}

// IsSmoothBlink reports whether the LED is in fade-blink mode.
func (c *Controller) IsSmoothBlink(num int) (bool, error) {
	if err := c.checkLed(num); err != nil {
		return false, err
	}
	return c.leds[num].mode == ModeFadeBlink, nil
}
