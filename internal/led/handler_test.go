package led

import (
	"math"
	"testing"

	"led-service/internal/types"
)

// tickUntilIdle advances the controller until the LED returns to NORMAL mode,
// failing the test if it does not within maxTicks. Returns the tick count.
func tickUntilIdle(t *testing.T, c *Controller, num, maxTicks int) int {
	t.Helper()
	for n := 1; n <= maxTicks; n++ {
		if err := c.Tick(); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
		if mustMode(t, c, num) == ModeNormal {
			return n
		}
	}
	t.Fatalf("Led %d still in mode %s after %d ticks", num, mustMode(t, c, num), maxTicks)
	return 0
}

// ===== Fades =====

func TestFadeInReachesConfiguredMax(t *testing.T) {
	c, _ := newTestController(t, 0.1)

	if err := c.SetSmooth(ledStatus, types.LedOn); err != nil {
		t.Fatalf("SetSmooth failed: %v", err)
	}

	prev := mustDuty(t, c, ledStatus)
	for n := 1; n <= 50; n++ {
		if err := c.Tick(); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
		duty := mustDuty(t, c, ledStatus)
		if duty > 100 {
			t.Fatalf("Duty overshot to %g on tick %d", duty, n)
		}
		if duty < prev {
			t.Fatalf("Duty regressed from %g to %g on tick %d", prev, duty, n)
		}
		prev = duty
		if mustMode(t, c, ledStatus) == ModeNormal {
			break
		}
	}

	if got := mustMode(t, c, ledStatus); got != ModeNormal {
		t.Fatalf("Fade-in never completed, mode %s", got)
	}
	if got := mustDuty(t, c, ledStatus); got != 100 {
		t.Errorf("Expected duty exactly 100 after fade-in, got %g", got)
	}
	if ft := c.leds[ledStatus].fadeTime; ft != 0 {
		t.Errorf("Expected ramp clock reset after fade-in, got %g", ft)
	}
}

func TestFadeOutReachesConfiguredMin(t *testing.T) {
	c, _ := newTestController(t, 0.1)

	if err := c.Set(ledStatus, types.LedOn); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.SetSmooth(ledStatus, types.LedOff); err != nil {
		t.Fatalf("SetSmooth failed: %v", err)
	}

	prev := mustDuty(t, c, ledStatus)
	for n := 1; n <= 50; n++ {
		if err := c.Tick(); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
		duty := mustDuty(t, c, ledStatus)
		if duty < 0 {
			t.Fatalf("Duty undershot to %g on tick %d", duty, n)
		}
		if duty > prev {
			t.Fatalf("Duty rose from %g to %g on tick %d", prev, duty, n)
		}
		prev = duty
		if mustMode(t, c, ledStatus) == ModeNormal {
			break
		}
	}

	if got := mustMode(t, c, ledStatus); got != ModeNormal {
		t.Fatalf("Fade-out never completed, mode %s", got)
	}
	if got := mustDuty(t, c, ledStatus); got != 0 {
		t.Errorf("Expected duty exactly 0 after fade-out, got %g", got)
	}
	if ft := c.leds[ledStatus].fadeTime; ft != 0 {
		t.Errorf("Expected ramp clock reset after fade-out, got %g", ft)
	}
}

func TestFadeRespectsBrightnessLimits(t *testing.T) {
	c, _ := newTestController(t, 0.1)

	if err := c.SetFadeCfg(ledStatus, 0.5, 0.5, 70, 20); err != nil {
		t.Fatalf("SetFadeCfg failed: %v", err)
	}
	if err := c.SetSmooth(ledStatus, types.LedOn); err != nil {
		t.Fatalf("SetSmooth failed: %v", err)
	}
	tickUntilIdle(t, c, ledStatus, 50)
	if got := mustDuty(t, c, ledStatus); got != 70 {
		t.Errorf("Expected fade-in to stop at configured max 70, got %g", got)
	}

	if err := c.SetSmooth(ledStatus, types.LedOff); err != nil {
		t.Fatalf("SetSmooth failed: %v", err)
	}
	tickUntilIdle(t, c, ledStatus, 50)
	if got := mustDuty(t, c, ledStatus); got != 20 {
		t.Errorf("Expected fade-out to stop at configured min 20, got %g", got)
	}
}

func TestNormalModeHoldsDuty(t *testing.T) {
	c, _ := newTestController(t, 0.1)

	if err := c.Set(ledStatus, types.LedOn); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := c.Tick(); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
	}
	if got := mustDuty(t, c, ledStatus); got != 100 {
		t.Errorf("Expected duty to hold at 100, got %g", got)
	}
}

// ===== Blink =====

// countPulses drives the controller until the LED goes idle and counts how
// often the duty crossed into the lit half of its range.
func countPulses(t *testing.T, c *Controller, num, maxTicks int) int {
	t.Helper()
	pulses := 0
	prev := mustDuty(t, c, num)
	for n := 1; n <= maxTicks; n++ {
		if err := c.Tick(); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
		duty := mustDuty(t, c, num)
		if prev < 50 && duty >= 50 {
			pulses++
		}
		prev = duty
		if mustMode(t, c, num) == ModeNormal {
			return pulses
		}
	}
	t.Fatalf("Led %d never went idle within %d ticks", num, maxTicks)
	return 0
}

// A blink with count N produces N+1 pulses: the counter only ends the blink
// on the rollover after it reaches zero. Long-standing contract.
func TestBlinkProducesCountPlusOnePulses(t *testing.T) {
	// Binary-exact tick so period positions land exactly.
	c, _ := newTestController(t, 0.25)

	if err := c.Blink(ledStatus, 0.5, 1.0, 2); err != nil {
		t.Fatalf("Blink failed: %v", err)
	}
	if got := countPulses(t, c, ledStatus, 40); got != 3 {
		t.Errorf("Expected 3 pulses for count 2, got %d", got)
	}
}

func TestBlinkCountZeroProducesOnePulse(t *testing.T) {
	c, _ := newTestController(t, 0.25)

	if err := c.Blink(ledStatus, 0.5, 1.0, 0); err != nil {
		t.Fatalf("Blink failed: %v", err)
	}
	if got := countPulses(t, c, ledStatus, 20); got != 1 {
		t.Errorf("Expected 1 pulse for count 0, got %d", got)
	}
}

func TestBlinkAlternatesWithinPeriod(t *testing.T) {
	c, _ := newTestController(t, 0.25)

	if err := c.Blink(ledStatus, 0.5, 1.0, BlinkContinuous); err != nil {
		t.Fatalf("Blink failed: %v", err)
	}

	// Period positions 0 and 0.25 are inside the on window, the rest are not.
	want := []float64{100, 100, 0, 0, 0, 100, 100, 0, 0, 0}
	for i, expected := range want {
		if err := c.Tick(); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
		if got := mustDuty(t, c, ledStatus); got != expected {
			t.Fatalf("Tick %d: expected duty %g, got %g", i+1, expected, got)
		}
	}
}

func TestContinuousBlinkNeverStops(t *testing.T) {
	c, _ := newTestController(t, 0.25)

	if err := c.Blink(ledStatus, 0.5, 1.0, BlinkContinuous); err != nil {
		t.Fatalf("Blink failed: %v", err)
	}
	for i := 0; i < 100; i++ {
		if err := c.Tick(); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
	}
	if got := mustMode(t, c, ledStatus); got != ModeBlink {
		t.Errorf("Expected continuous blink to keep running, mode %s", got)
	}
}

func TestBlinkWorksOnGpioLed(t *testing.T) {
	c, drv := newTestController(t, 0.25)

	if err := c.Blink(ledNetwork, 0.5, 1.0, BlinkContinuous); err != nil {
		t.Fatalf("Blink failed: %v", err)
	}
	if err := c.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	// Lit and active-low: line driven low.
	if drv.levels[types.GPIOChannel{Chip: 2, Line: 9}] {
		t.Error("Expected network line low while lit")
	}

	for i := 0; i < 2; i++ {
		if err := c.Tick(); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
	}
	// Dark again: active-low line returns high.
	if !drv.levels[types.GPIOChannel{Chip: 2, Line: 9}] {
		t.Error("Expected network line high while dark")
	}
}

func TestSmoothBlinkCompletes(t *testing.T) {
	c, _ := newTestController(t, 0.25)

	if err := c.BlinkSmooth(ledStatus, 1.0, 2.0, 0); err != nil {
		t.Fatalf("BlinkSmooth failed: %v", err)
	}
	if smooth, _ := c.IsSmoothBlink(ledStatus); !smooth {
		t.Fatal("Expected fade-blink mode after BlinkSmooth")
	}
	tickUntilIdle(t, c, ledStatus, 40)
}

func TestSmoothBlinkRampCompletionStaysInMode(t *testing.T) {
	c, _ := newTestController(t, 0.1)

	// Fast fades relative to the on window: the ramp tops out well before
	// the window ends, and the mode must hold.
	if err := c.SetFadeCfg(ledStatus, 0.2, 0.2, 100, 0); err != nil {
		t.Fatalf("SetFadeCfg failed: %v", err)
	}
	if err := c.BlinkSmooth(ledStatus, 1.0, 2.0, BlinkContinuous); err != nil {
		t.Fatalf("BlinkSmooth failed: %v", err)
	}

	sawMax := false
	for i := 0; i < 8; i++ {
		if err := c.Tick(); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
		if mustDuty(t, c, ledStatus) == 100 {
			sawMax = true
		}
		if got := mustMode(t, c, ledStatus); got != ModeFadeBlink {
			t.Fatalf("Tick %d: mode left fade-blink early: %s", i+1, got)
		}
	}
	if !sawMax {
		t.Error("Expected the ramp to reach max within the on window")
	}
}

// ===== Active time =====

func TestActiveTimeAccumulatesWhileLit(t *testing.T) {
	c, _ := newTestController(t, 0.1)

	if err := c.Set(ledStatus, types.LedOn); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := c.Tick(); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
	}
	active, err := c.ActiveTime(ledStatus)
	if err != nil {
		t.Fatalf("ActiveTime failed: %v", err)
	}
	if math.Abs(active-0.5) > 1e-9 {
		t.Errorf("Expected active time 0.5s after 5 lit ticks, got %g", active)
	}
}

func TestActiveTimeResetsWhenDark(t *testing.T) {
	c, _ := newTestController(t, 0.1)

	if err := c.Set(ledStatus, types.LedOn); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := c.Tick(); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
	}
	if err := c.Set(ledStatus, types.LedOff); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	active, err := c.ActiveTime(ledStatus)
	if err != nil {
		t.Fatalf("ActiveTime failed: %v", err)
	}
	if active != 0 {
		t.Errorf("Expected active time reset to 0, got %g", active)
	}
}

func TestActiveTimeCountsUpperHalfOfRange(t *testing.T) {
	c, _ := newTestController(t, 0.1)

	// Duty 60 of a 0..100 range is in the lit half.
	if err := c.SetFadeCfg(ledStatus, 1.0, 1.0, 100, 60); err != nil {
		t.Fatalf("SetFadeCfg failed: %v", err)
	}
	if err := c.Set(ledStatus, types.LedOff); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	active, err := c.ActiveTime(ledStatus)
	if err != nil {
		t.Fatalf("ActiveTime failed: %v", err)
	}
	if active == 0 {
		t.Error("Expected active time to accumulate at the off floor above half range")
	}
}

func TestActiveTimeSaturatesAtCeiling(t *testing.T) {
	l := &ledState{maxDuty: 100, duty: 100, activeTime: timeLimit}
	l.trackActiveTime(0.1)
	if l.activeTime != timeLimit {
		t.Errorf("Expected active time capped at %g, got %g", timeLimit, l.activeTime)
	}
}

// ===== Dispatch =====

func TestGpioBinarizesAtOnBrightness(t *testing.T) {
	c, drv := newTestController(t, 0.1)

	if err := c.Set(ledPower, types.LedOn); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if !drv.levels[types.GPIOChannel{Chip: 2, Line: 10}] {
		t.Error("Expected active-high line high while lit")
	}

	if err := c.Set(ledPower, types.LedOff); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if drv.levels[types.GPIOChannel{Chip: 2, Line: 10}] {
		t.Error("Expected active-high line low while dark")
	}
}

func TestPwmDispatchWritesDuty(t *testing.T) {
	c, drv := newTestController(t, 0.1)

	if err := c.Set(ledStatus, types.LedOn); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if got := drv.duties[types.PWMChannel{Chip: 0, Channel: 0}]; got != 100 {
		t.Errorf("Expected duty 100 written to driver, got %g", got)
	}
}

func TestPwmActiveLowInvertsDuty(t *testing.T) {
	table := []types.LedConfig{
		{Name: "inverted", Channel: types.PWMChannel{Chip: 0, Channel: 1}, Polarity: types.ActiveLow, Initial: types.LedOff},
	}
	drv := newMockDriver()
	c, err := NewController(table, 0.1, drv, testLogger())
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	if err := c.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// Dark means the full carrier stays high.
	if err := c.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if got := drv.duties[types.PWMChannel{Chip: 0, Channel: 1}]; got != 100 {
		t.Errorf("Expected inverted duty 100 while dark, got %g", got)
	}

	if err := c.Set(0, types.LedOn); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if got := drv.duties[types.PWMChannel{Chip: 0, Channel: 1}]; got != 0 {
		t.Errorf("Expected inverted duty 0 while lit, got %g", got)
	}
}

func TestDriverErrorsDoNotStopTick(t *testing.T) {
	c, drv := newTestController(t, 0.1)
	drv.writeErr = errTestWrite

	if err := c.Tick(); err != nil {
		t.Errorf("Tick must swallow driver write errors, got %v", err)
	}
}
