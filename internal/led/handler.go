package led

import (
	"fmt"

	"led-service/internal/types"
)

// Tick advances every LED by one handler period. The host must call it at
// the exact interval given to NewController; all fade and blink arithmetic
// counts ticks rather than consulting a clock. Per LED the order is fixed:
// mode dispatch, driver write, blink period bookkeeping, active-time
// tracking.
func (c *Controller) Tick() error {
	if !c.initialized {
		return ErrNotInitialized
	}
	for i := range c.leds {
		l := &c.leds[i]
		switch l.mode {
		case ModeNormal:
			// No per-tick work, duty holds.
		case ModeFadeIn:
			c.fadeInStep(l, ModeNormal)
		case ModeFadeOut:
			c.fadeOutStep(l, ModeNormal)
		case ModeBlink:
			c.blinkStep(l)
		case ModeFadeBlink:
			c.fadeBlinkStep(l)
		default:
			panic(fmt.Sprintf("led %d: unknown mode %q", i, l.mode))
		}

		if err := c.dispatch(i); err != nil {
			c.logger.Warnf("Failed to drive led %d (%s): %v", i, c.table[i].Name, err)
		}

		l.stepPeriodTime(c.tickPeriod)
		l.trackActiveTime(c.tickPeriod)
	}
	return nil
}

// fadeInStep advances the duty along the quadratic ramp toward maxDuty. On
// reaching it the duty clamps, the ramp clock resets and the LED moves to
// exitMode (NORMAL for a plain fade, FADE_BLINK when blinking smoothly).
func (c *Controller) fadeInStep(l *ledState, exitMode Mode) {
	l.duty += l.fadeInRate * l.fadeTime * c.tickPeriod

	if l.duty <= l.maxDuty {
		l.fadeTime = limitTime(l.fadeTime + c.tickPeriod)
	} else {
		l.duty = l.maxDuty
		l.fadeTime = 0
		l.mode = exitMode
	}
}

// fadeOutStep walks the same quadratic characteristic in the negative time
// direction: the decrement is proportional to the time remaining in the
// configured fade-out window, so the slope eases toward zero at the floor.
func (c *Controller) fadeOutStep(l *ledState, exitMode Mode) {
	remaining := l.fadeOutTime - l.fadeTime
	if remaining > 0 {
		l.duty -= l.fadeOutRate * remaining * c.tickPeriod
	} else {
		l.duty = l.minDuty
	}

	if l.duty > l.minDuty+fadeEpsilon {
		l.fadeTime = limitTime(l.fadeTime + c.tickPeriod)
	} else {
		l.duty = l.minDuty
		l.fadeTime = 0
		l.mode = exitMode
	}
}

// blinkStep snaps the duty between the brightness limits according to the
// position within the blink period.
func (c *Controller) blinkStep(l *ledState) {
	if l.isOnTime() {
		l.duty = l.maxDuty
	} else {
		l.duty = l.minDuty
	}
	c.blinkCountStep(l)
}

// fadeBlinkStep ramps instead of snapping: fade in while inside the on
// window, fade out while outside it. Ramp completion never leaves the mode;
// only the blink counter can end a smooth blink.
func (c *Controller) fadeBlinkStep(l *ledState) {
	if l.isOnTime() {
		c.fadeInStep(l, ModeFadeBlink)
	} else {
		c.fadeOutStep(l, ModeFadeBlink)
	}
	c.blinkCountStep(l)
}

// blinkCountStep consumes one blink repetition on each period rollover. A
// requested count of N produces N+1 visible pulses: the counter reaches zero
// on the Nth rollover and the mode exits only on the one after. That is the
// long-standing contract; keep it.
func (c *Controller) blinkCountStep(l *ledState) {
	if !l.isPeriodElapsed() {
		return
	}
	if l.blinkCnt == BlinkContinuous {
		return
	}
	if l.blinkCnt == 0 {
		l.mode = ModeNormal
	} else {
		l.blinkCnt--
	}
}

// isOnTime reports whether the current period position is inside the on
// window.
func (l *ledState) isOnTime() bool {
	return l.perTime < l.onTime
}

// isPeriodElapsed holds exactly on the tick that wraps the period, at most
// once per period.
func (l *ledState) isPeriodElapsed() bool {
	return l.perTime >= l.period
}

// stepPeriodTime advances the position within the blink period. The wrap is
// an explicit reset rather than a modulo: the tick period only approximately
// divides the blink period.
func (l *ledState) stepPeriodTime(tick float64) {
	if l.perTime >= l.period {
		l.perTime = 0
	} else {
		l.perTime += tick
	}
}

// trackActiveTime accumulates lit time while the duty sits in the upper half
// of its range and resets the moment it drops below. No hysteresis.
func (l *ledState) trackActiveTime(tick float64) {
	if l.duty >= l.maxDuty/2 {
		l.activeTime = limitTime(l.activeTime + tick)
	} else {
		l.activeTime = 0
	}
}

func limitTime(t float64) float64 {
	if t > timeLimit {
		return timeLimit
	}
	return t
}

// dispatch translates the LED's duty plus its static polarity and channel
// variant into one driver write. GPIO lines binarize at the configured on
// brightness; PWM channels take the duty directly, inverted for active-low
// wiring.
func (c *Controller) dispatch(num int) error {
	l := &c.leds[num]
	cfg := &c.table[num]

	switch ch := cfg.Channel.(type) {
	case types.GPIOChannel:
		on := l.duty >= l.maxDuty
		if cfg.Polarity == types.ActiveLow {
			on = !on
		}
		return c.drv.WriteLevel(ch, on)

	case types.PWMChannel:
		duty := l.duty
		if cfg.Polarity == types.ActiveLow {
			duty = fullOnDuty - duty
			if duty < l.minDuty {
				duty = l.minDuty
			}
		}
		return c.drv.WriteDuty(ch, duty)

	default:
		panic(fmt.Sprintf("led %d: unknown channel type %T", num, cfg.Channel))
	}
}
