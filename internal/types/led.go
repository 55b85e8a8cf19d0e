package types

// LedState is a commanded binary target for an LED.
type LedState int

const (
	LedOff LedState = iota
	LedOn
)

// Polarity is the electrical level that lights the LED.
type Polarity int

const (
	ActiveHigh Polarity = iota
	ActiveLow
)

// Channel identifies the physical driver behind an LED. It is a closed sum:
// a channel is exactly a GPIOChannel or a PWMChannel, so driver dispatch can
// type-switch instead of trusting a separate driver-type tag.
type Channel interface {
	isChannel()
}

// GPIOChannel addresses a binary output line on a gpiochip.
type GPIOChannel struct {
	Chip int
	Line int
}

func (GPIOChannel) isChannel() {}

// PWMChannel addresses a sysfs PWM channel.
type PWMChannel struct {
	Chip    int
	Channel int
}

func (PWMChannel) isChannel() {}

// LedConfig is one row of the static indicator table. The row index is the
// LED's identity for the whole service lifetime.
type LedConfig struct {
	Name     string
	Channel  Channel
	Polarity Polarity
	Initial  LedState
}
