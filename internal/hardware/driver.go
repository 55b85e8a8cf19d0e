package hardware

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"led-service/internal/logger"
	"led-service/internal/types"
)

// LinuxDriver drives the indicator channels through the kernel interfaces:
// GPIO lines via the gpio character device, PWM channels via sysfs. It
// implements the controller's Driver interface.
type LinuxDriver struct {
	logger *logger.Logger
	table  []types.LedConfig
	chips  map[int]*gpiocdev.Chip
	lines  map[types.GPIOChannel]*gpiocdev.Line
	pwms   map[types.PWMChannel]*pwmChannel
}

func NewLinuxDriver(table []types.LedConfig, l *logger.Logger) *LinuxDriver {
	return &LinuxDriver{
		logger: l,
		table:  table,
		chips:  make(map[int]*gpiocdev.Chip),
		lines:  make(map[types.GPIOChannel]*gpiocdev.Line),
		pwms:   make(map[types.PWMChannel]*pwmChannel),
	}
}

// Initialize claims every channel in the table. The first failure wins and
// leaves already-claimed channels for Cleanup to release.
func (d *LinuxDriver) Initialize() error {
	d.logger.Infof("Initializing LED hardware, %d channels", len(d.table))

	for _, cfg := range d.table {
		switch ch := cfg.Channel.(type) {
		case types.GPIOChannel:
			if err := d.initGpioLine(cfg, ch); err != nil {
				return err
			}
		case types.PWMChannel:
			if err := d.initPwmChannel(cfg, ch); err != nil {
				return err
			}
		default:
			return fmt.Errorf("led %s: unknown channel type %T", cfg.Name, cfg.Channel)
		}
	}
	return nil
}

func (d *LinuxDriver) initGpioLine(cfg types.LedConfig, ch types.GPIOChannel) error {
	chip, ok := d.chips[ch.Chip]
	if !ok {
		c, err := gpiocdev.NewChip(fmt.Sprintf("gpiochip%d", ch.Chip))
		if err != nil {
			return fmt.Errorf("failed to open GPIO chip %d: %w", ch.Chip, err)
		}
		d.chips[ch.Chip] = c
		chip = c
	}

	// Request the line already at its table-configured physical level so
	// the LED does not glitch between claim and first write.
	val := 0
	lit := cfg.Initial == types.LedOn
	if cfg.Polarity == types.ActiveLow {
		lit = !lit
	}
	if lit {
		val = 1
	}

	line, err := chip.RequestLine(ch.Line,
		gpiocdev.AsOutput(val),
		gpiocdev.WithConsumer("led-service"))
	if err != nil {
		return fmt.Errorf("failed to request GPIO line %d on chip %d: %w", ch.Line, ch.Chip, err)
	}

	d.lines[ch] = line
	d.logger.Infof("Configured LED %s: gpiochip%d line %d", cfg.Name, ch.Chip, ch.Line)
	return nil
}

func (d *LinuxDriver) initPwmChannel(cfg types.LedConfig, ch types.PWMChannel) error {
	p, err := openPwmChannel(ch, PwmPeriodNs)
	if err != nil {
		return fmt.Errorf("failed to open PWM channel %d on chip %d: %w", ch.Channel, ch.Chip, err)
	}
	d.pwms[ch] = p
	d.logger.Infof("Configured LED %s: pwmchip%d channel %d, period %dns", cfg.Name, ch.Chip, ch.Channel, int64(PwmPeriodNs))
	return nil
}

// WriteLevel drives a claimed GPIO line.
func (d *LinuxDriver) WriteLevel(ch types.GPIOChannel, high bool) error {
	line, ok := d.lines[ch]
	if !ok {
		return fmt.Errorf("GPIO line %d on chip %d not claimed", ch.Line, ch.Chip)
	}
	val := 0
	if high {
		val = 1
	}
	if err := line.SetValue(val); err != nil {
		return fmt.Errorf("failed to set GPIO line %d on chip %d: %w", ch.Line, ch.Chip, err)
	}
	return nil
}

// WriteDuty drives a claimed PWM channel with a duty cycle in percent.
func (d *LinuxDriver) WriteDuty(ch types.PWMChannel, percent float64) error {
	p, ok := d.pwms[ch]
	if !ok {
		return fmt.Errorf("PWM channel %d on chip %d not claimed", ch.Channel, ch.Chip)
	}
	if err := p.setDuty(percent); err != nil {
		return fmt.Errorf("failed to set duty on pwmchip%d channel %d: %w", ch.Chip, ch.Channel, err)
	}
	return nil
}

// Cleanup releases every claimed channel.
func (d *LinuxDriver) Cleanup() {
	d.logger.Infof("Releasing LED hardware")

	for ch, p := range d.pwms {
		p.close()
		delete(d.pwms, ch)
		d.logger.Debugf("Closed pwmchip%d channel %d", ch.Chip, ch.Channel)
	}

	for ch, line := range d.lines {
		line.Close()
		delete(d.lines, ch)
		d.logger.Debugf("Closed GPIO line %d on chip %d", ch.Line, ch.Chip)
	}

	for id, chip := range d.chips {
		chip.Close()
		delete(d.chips, id)
		d.logger.Debugf("Closed GPIO chip %d", id)
	}
}
