//go:build !linux || (!arm && !arm64)

package trigout

import "fmt"

// Stub implementation for non-Linux and/or non-ARM platforms.
func openGPIO(pin int) (driver, error) {
	return nil, fmt.Errorf("trigout: gpio unsupported on this platform")
}

var openGPIOFn = openGPIO
