package messaging

import (
	"fmt"
	"strings"
)

// SwitchCommand is a parsed "name:action" payload from the led:set,
// led:toggle and led:smooth lists.
type SwitchCommand struct {
	Name string
	On   bool
	Full bool
}

// BlinkCommand is a parsed "name on-time period count" payload from the
// led:blink and led:blink-smooth lists. Times are in seconds; Count is the
// number of repetitions or -1 for continuous blinking.
type BlinkCommand struct {
	Name   string
	OnTime float64
	Period float64
	Count  int
}

// ConfigCommand is a parsed "name fade-in fade-out max min" payload from the
// led:config list. Times are in seconds, brightness bounds in percent.
type ConfigCommand struct {
	Name    string
	FadeIn  float64
	FadeOut float64
	Max     float64
	Min     float64
}

func parseSwitchCommand(value string) (SwitchCommand, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return SwitchCommand{}, fmt.Errorf("expected 'name:action', got %q", value)
	}
	cmd := SwitchCommand{Name: parts[0]}
	switch parts[1] {
	case "on":
		cmd.On = true
	case "off":
		cmd.On = false
	case "full-on":
		cmd.On = true
		cmd.Full = true
	case "full-off":
		cmd.On = false
		cmd.Full = true
	default:
		return SwitchCommand{}, fmt.Errorf("unknown action %q", parts[1])
	}
	return cmd, nil
}

func parseBlinkCommand(value string) (BlinkCommand, error) {
	var cmd BlinkCommand
	n, err := fmt.Sscanf(value, "%s %f %f %d", &cmd.Name, &cmd.OnTime, &cmd.Period, &cmd.Count)
	if err != nil || n != 4 {
		return BlinkCommand{}, fmt.Errorf("expected 'name on-time period count', got %q", value)
	}
	if cmd.Count < -1 {
		return BlinkCommand{}, fmt.Errorf("count must be >= 0 or -1 for continuous, got %d", cmd.Count)
	}
	return cmd, nil
}

func parseConfigCommand(value string) (ConfigCommand, error) {
	var cmd ConfigCommand
	n, err := fmt.Sscanf(value, "%s %f %f %f %f", &cmd.Name, &cmd.FadeIn, &cmd.FadeOut, &cmd.Max, &cmd.Min)
	if err != nil || n != 5 {
		return ConfigCommand{}, fmt.Errorf("expected 'name fade-in fade-out max min', got %q", value)
	}
	return cmd, nil
}
