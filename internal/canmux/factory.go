package canmux

import (
	"fmt"

	"go.bug.st/serial"
)

// NewRealCANMux opens the SLCAN adapter at path and returns a mux that
// reports its frames as physical bus index bus.
func NewRealCANMux(path string, bus int, opts PortOptions) (*CANMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return NewCANMux[serial.Port](port, bus), nil
}
