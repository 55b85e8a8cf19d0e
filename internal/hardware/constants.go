package hardware

import "led-service/internal/types"

const (
	// Carrier period for the PWM-driven indicators. 1 kHz keeps the
	// carrier well above flicker fusion; duty resolution at nanosecond
	// granularity is plenty.
	PwmPeriodNs = 1_000_000

	SysfsPwmDir = "/sys/class/pwm"
)

// LedTable is the static indicator table. The row index is the LED identity
// used by every controller operation and on the command channel.
var LedTable = []types.LedConfig{
	{Name: "status", Channel: types.PWMChannel{Chip: 0, Channel: 0}, Polarity: types.ActiveHigh, Initial: types.LedOff},
	{Name: "fault", Channel: types.PWMChannel{Chip: 0, Channel: 1}, Polarity: types.ActiveHigh, Initial: types.LedOff},
	{Name: "network", Channel: types.GPIOChannel{Chip: 2, Line: 9}, Polarity: types.ActiveLow, Initial: types.LedOff},
	{Name: "power", Channel: types.GPIOChannel{Chip: 2, Line: 10}, Polarity: types.ActiveHigh, Initial: types.LedOn},
}
