//go:build linux && (arm || arm64)

package trigout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openGPIO drives the given BCM GPIO as a digital output using the Linux
// GPIO character device (libgpiod).
func openGPIO(pin int) (driver, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("trigout: invalid gpio pin %d", pin)
	}

	// On Pi, line names are commonly "GPIO18", etc.
	lineName := fmt.Sprintf("GPIO%d", pin)

	// Try likely chips first (Pi 5 kernel variants can expose header GPIOs on
	// gpiochip0 and sometimes additional chips exist).
	chipCandidates := []string{"/dev/gpiochip0", "/dev/gpiochip4"}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "gpiochip") {
			chipCandidates = append(chipCandidates, filepath.Join("/dev", name))
		}
	}

	for _, chipPath := range chipCandidates {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("ncomrx-trigout"))
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &gpiodOut{chip: chip, line: line}, nil
	}

	return nil, fmt.Errorf("trigout: gpio line %q not found (or busy)", lineName)
}

var openGPIOFn = openGPIO

type gpiodOut struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodOut) Set(v int) error {
	if g == nil || g.line == nil {
		return fmt.Errorf("trigout: gpio driver not initialized")
	}
	return g.line.SetValue(v)
}

func (g *gpiodOut) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	// Graceful shutdown: leave the pin low.
	_ = g.line.SetValue(0)
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
