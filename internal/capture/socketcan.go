package capture

import (
	"encoding/binary"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/banshee-data/hondabus/internal/canbus"
)

// LinkTypeSocketCAN is LINKTYPE_CAN_SOCKETCAN, which gopacket does not name.
const LinkTypeSocketCAN layers.LinkType = 227

// SocketCAN id flags.
const (
	flagExtended = 1 << 31
	flagRTR      = 1 << 30
	flagError    = 1 << 29
)

const socketCANHeaderLen = 8

// LayerTypeSocketCAN decodes the 16-byte struct can_frame carried by
// SocketCAN captures.
var LayerTypeSocketCAN = gopacket.RegisterLayerType(2227, gopacket.LayerTypeMetadata{
	Name:    "SocketCAN",
	Decoder: gopacket.DecodeFunc(decodeSocketCAN),
})

// SocketCAN is one classical CAN frame. The identifier is stored in network
// byte order with the EFF/RTR/ERR flags in its top three bits.
type SocketCAN struct {
	layers.BaseLayer
	ID       uint32
	Extended bool
	RTR      bool
	Error    bool
	Data     []byte
}

func (c *SocketCAN) LayerType() gopacket.LayerType { return LayerTypeSocketCAN }

func (c *SocketCAN) CanDecode() gopacket.LayerClass { return LayerTypeSocketCAN }

func (c *SocketCAN) NextLayerType() gopacket.LayerType { return gopacket.LayerTypeZero }

func (c *SocketCAN) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < socketCANHeaderLen {
		df.SetTruncated()
		return fmt.Errorf("socketcan header too short: %d bytes", len(data))
	}
	raw := binary.BigEndian.Uint32(data[0:4])
	c.Extended = raw&flagExtended != 0
	c.RTR = raw&flagRTR != 0
	c.Error = raw&flagError != 0
	if c.Extended {
		c.ID = raw & canbus.MaxExtendedID
	} else {
		c.ID = raw & canbus.MaxStandardID
	}

	n := int(data[4])
	if n > canbus.MaxDataLen {
		return fmt.Errorf("socketcan length %d exceeds %d", n, canbus.MaxDataLen)
	}
	if len(data) < socketCANHeaderLen+n {
		df.SetTruncated()
		return fmt.Errorf("socketcan payload truncated: want %d bytes, have %d", n, len(data)-socketCANHeaderLen)
	}
	c.Data = data[socketCANHeaderLen : socketCANHeaderLen+n]
	c.BaseLayer = layers.BaseLayer{Contents: data[:socketCANHeaderLen+n], Payload: data[socketCANHeaderLen+n:]}
	return nil
}

// SerializeTo writes the full 16-byte can_frame, zero padded.
func (c *SocketCAN) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if len(c.Data) > canbus.MaxDataLen {
		return fmt.Errorf("socketcan length %d exceeds %d", len(c.Data), canbus.MaxDataLen)
	}
	bytes, err := b.PrependBytes(socketCANHeaderLen + canbus.MaxDataLen)
	if err != nil {
		return err
	}
	for i := range bytes {
		bytes[i] = 0
	}
	raw := c.ID
	if c.Extended {
		raw |= flagExtended
	}
	if c.RTR {
		raw |= flagRTR
	}
	if c.Error {
		raw |= flagError
	}
	binary.BigEndian.PutUint32(bytes[0:4], raw)
	bytes[4] = byte(len(c.Data))
	copy(bytes[socketCANHeaderLen:], c.Data)
	return nil
}

// Frame converts the layer into a bus frame.
func (c *SocketCAN) Frame(bus int) canbus.Frame {
	return canbus.Frame{
		Address:  c.ID,
		Extended: c.Extended,
		Bus:      bus,
		Data:     append([]byte(nil), c.Data...),
	}
}

func decodeSocketCAN(data []byte, p gopacket.PacketBuilder) error {
	c := &SocketCAN{}
	if err := c.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(c)
	return nil
}
