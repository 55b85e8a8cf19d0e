package led

import "led-service/internal/types"

// Driver is the low-level output backend the controller writes once per LED
// per tick. Initialize must bring up every channel in the table before the
// controller reports itself initialized; Cleanup releases them.
type Driver interface {
	Initialize() error
	Cleanup()

	// WriteLevel drives a binary line. The controller has already applied
	// polarity, so high means "drive the pin high".
	WriteLevel(ch types.GPIOChannel, high bool) error

	// WriteDuty drives a PWM channel with a duty cycle in percent (0..100).
	// Polarity inversion has already been applied by the controller.
	WriteDuty(ch types.PWMChannel, percent float64) error
}
