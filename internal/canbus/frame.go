package canbus

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFrame is returned for frames that cannot exist on a classical
// CAN bus or that fail to parse.
var ErrInvalidFrame = errors.New("invalid CAN frame")

// Identifier limits.
const (
	MaxStandardID = 0x7FF
	MaxExtendedID = 0x1FFFFFFF
	MaxDataLen    = 8
)

// Frame is a raw classical CAN frame as seen on one physical bus.
type Frame struct {
	Address  uint32
	Extended bool
	Bus      int
	Data     []byte
}

// Validate checks identifier range and payload length.
func (f Frame) Validate() error {
	if len(f.Data) > MaxDataLen {
		return fmt.Errorf("%w: %d data bytes", ErrInvalidFrame, len(f.Data))
	}
	limit := uint32(MaxStandardID)
	if f.Extended {
		limit = MaxExtendedID
	}
	if f.Address > limit {
		return fmt.Errorf("%w: id 0x%X out of range", ErrInvalidFrame, f.Address)
	}
	return nil
}

func (f Frame) String() string {
	return fmt.Sprintf("%d:0x%X [%d] % X", f.Bus, f.Address, len(f.Data), f.Data)
}

// RawFrame converts a raw message into a frame without a packer.
func RawFrame(m Message) (Frame, error) {
	if !m.IsRaw() {
		return Frame{}, fmt.Errorf("%w: %s is a catalog message", ErrInvalidFrame, m.Name)
	}
	f := Frame{
		Address:  m.Address,
		Extended: m.Address > MaxStandardID,
		Bus:      m.Bus,
		Data:     append([]byte(nil), m.Data...),
	}
	return f, f.Validate()
}

// SLCAN renders the frame as a Lawicel ASCII transmit command without the
// trailing carriage return.
func (f Frame) SLCAN() string {
	var b strings.Builder
	if f.Extended {
		fmt.Fprintf(&b, "T%08X", f.Address)
	} else {
		fmt.Fprintf(&b, "t%03X", f.Address)
	}
	fmt.Fprintf(&b, "%d", len(f.Data))
	b.WriteString(strings.ToUpper(hex.EncodeToString(f.Data)))
	return b.String()
}

// ParseSLCAN parses a Lawicel receive line (t/T frames). An optional
// four-digit timestamp after the payload is ignored.
func ParseSLCAN(line string, bus int) (Frame, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Frame{}, fmt.Errorf("%w: empty line", ErrInvalidFrame)
	}

	var idLen int
	f := Frame{Bus: bus}
	switch line[0] {
	case 't':
		idLen = 3
	case 'T':
		idLen = 8
		f.Extended = true
	default:
		return Frame{}, fmt.Errorf("%w: unsupported command %q", ErrInvalidFrame, line[0])
	}
	if len(line) < 1+idLen+1 {
		return Frame{}, fmt.Errorf("%w: short line %q", ErrInvalidFrame, line)
	}

	id, err := strconv.ParseUint(line[1:1+idLen], 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: bad id in %q", ErrInvalidFrame, line)
	}
	f.Address = uint32(id)

	dlc := int(line[1+idLen] - '0')
	if dlc < 0 || dlc > MaxDataLen {
		return Frame{}, fmt.Errorf("%w: bad length in %q", ErrInvalidFrame, line)
	}
	payload := line[2+idLen:]
	if len(payload) != 2*dlc && len(payload) != 2*dlc+4 {
		return Frame{}, fmt.Errorf("%w: payload length mismatch in %q", ErrInvalidFrame, line)
	}
	f.Data, err = hex.DecodeString(payload[:2*dlc])
	if err != nil {
		return Frame{}, fmt.Errorf("%w: bad payload in %q", ErrInvalidFrame, line)
	}
	return f, f.Validate()
}
