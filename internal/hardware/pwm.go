package hardware

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/sys/unix"

	"led-service/internal/types"
)

// pwmChannel is one exported sysfs PWM channel. The duty_cycle attribute is
// kept open for the lifetime of the channel: it is rewritten every tick and
// reopening it each time would dominate the handler budget.
type pwmChannel struct {
	dutyFd   int
	dir      string
	periodNs int64
}

// openPwmChannel exports the channel if the kernel has not populated its
// sysfs directory yet, programs the carrier period and enables the output at
// zero duty.
func openPwmChannel(ch types.PWMChannel, periodNs int64) (*pwmChannel, error) {
	chipDir := fmt.Sprintf("%s/pwmchip%d", SysfsPwmDir, ch.Chip)
	dir := fmt.Sprintf("%s/pwm%d", chipDir, ch.Channel)

	if n, err := readSysfsInt(chipDir + "/npwm"); err != nil {
		return nil, fmt.Errorf("failed to probe chip: %w", err)
	} else if int64(ch.Channel) >= n {
		return nil, fmt.Errorf("chip has %d channels, requested %d", n, ch.Channel)
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := writeSysfsInt(chipDir+"/export", int64(ch.Channel)); err != nil {
			return nil, fmt.Errorf("failed to export channel: %w", err)
		}
		// The attribute directory appears asynchronously after export.
		ok := false
		for i := 0; i < 20; i++ {
			if _, err := os.Stat(dir); err == nil {
				ok = true
				break
			}
			time.Sleep(50 * time.Millisecond)
		}
		if !ok {
			return nil, fmt.Errorf("channel did not appear after export: %s", dir)
		}
	}

	if err := writeSysfsInt(dir+"/period", periodNs); err != nil {
		return nil, fmt.Errorf("failed to set period: %w", err)
	}

	fd, err := unix.Open(dir+"/duty_cycle", unix.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open duty_cycle: %w", err)
	}

	p := &pwmChannel{dutyFd: fd, dir: dir, periodNs: periodNs}
	if err := p.setDuty(0); err != nil {
		p.close()
		return nil, err
	}
	if err := writeSysfsInt(dir+"/enable", 1); err != nil {
		p.close()
		return nil, fmt.Errorf("failed to enable: %w", err)
	}
	return p, nil
}

// setDuty programs the on-time as a fraction of the carrier period. percent
// is clamped into 0..100.
func (p *pwmChannel) setDuty(percent float64) error {
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	ns := int64(percent / 100.0 * float64(p.periodNs))

	buf := strconv.AppendInt(nil, ns, 10)
	if _, err := unix.Write(p.dutyFd, buf); err != nil {
		return fmt.Errorf("failed to write duty cycle: %w", err)
	}
	return nil
}

func (p *pwmChannel) close() {
	if err := writeSysfsInt(p.dir+"/enable", 0); err != nil {
		// Channel may already be gone; nothing useful to do.
		_ = err
	}
	unix.Close(p.dutyFd)
}
