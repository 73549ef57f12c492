package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hondabus/internal/canbus"
	"github.com/banshee-data/hondabus/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

type stamped struct {
	Frame canbus.Frame
	At    time.Time
}

func collect(t *testing.T, buf *bytes.Buffer, bus int) ([]stamped, ReadStats) {
	t.Helper()
	var got []stamped
	stats, err := ReadPCAP(context.Background(), buf, bus, func(f canbus.Frame, ts time.Time) error {
		got = append(got, stamped{f, ts})
		return nil
	})
	require.NoError(t, err)
	return got, stats
}

// rawPacket builds a can_frame with arbitrary flag bits.
func rawPacket(id uint32, n int, data []byte) []byte {
	out := make([]byte, socketCANHeaderLen+canbus.MaxDataLen)
	binary.BigEndian.PutUint32(out, id)
	out[4] = byte(n)
	copy(out[socketCANHeaderLen:], data)
	return out
}

func TestWriteThenRead(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	frames := []canbus.Frame{
		{Address: 0x1FA, Data: []byte{0x01, 0xAB}},
		{Address: 0x18DAB0F1, Extended: true, Data: []byte{0x02, 0x10, 0x03}},
		{Address: 0x445},
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	for i, f := range frames {
		require.NoError(t, w.WriteFrame(f, base.Add(time.Duration(i)*10*time.Millisecond)))
	}

	got, stats := collect(t, &buf, 1)
	assert.Equal(t, ReadStats{Packets: 3, Frames: 3}, stats)
	require.Len(t, got, 3)
	for i, f := range frames {
		f.Bus = 1
		if diff := cmp.Diff(f, got[i].Frame); diff != "" {
			t.Errorf("frame %d (-want +got):\n%s", i, diff)
		}
		assert.True(t, base.Add(time.Duration(i)*10*time.Millisecond).Equal(got[i].At), "frame %d time %v", i, got[i].At)
	}
}

func TestWriteFrameRejectsInvalid(t *testing.T) {
	w, err := NewWriter(&bytes.Buffer{})
	require.NoError(t, err)
	assert.ErrorIs(t, w.WriteFrame(canbus.Frame{Address: 0x800}, time.Now()), canbus.ErrInvalidFrame)
	assert.ErrorIs(t, w.WriteFrame(canbus.Frame{Address: 1, Data: make([]byte, 9)}, time.Now()), canbus.ErrInvalidFrame)
}

func TestReadSkipsRTRAndErrorFrames(t *testing.T) {
	var buf bytes.Buffer
	pw := pcapgo.NewWriter(&buf)
	require.NoError(t, pw.WriteFileHeader(65536, LinkTypeSocketCAN))
	write := func(data []byte) {
		require.NoError(t, pw.WritePacket(gopacket.CaptureInfo{
			Timestamp: time.Unix(1700000000, 0), CaptureLength: len(data), Length: len(data),
		}, data))
	}
	write(rawPacket(0x123|flagRTR, 0, nil))
	write(rawPacket(0x004|flagError, 8, nil))
	write(rawPacket(0x0E4, 5, []byte{1, 2, 3, 4, 5}))
	write(rawPacket(0x0E4, 12, nil)) // bad length
	write([]byte{0, 0, 1})           // truncated header

	got, stats := collect(t, &buf, 0)
	assert.Equal(t, ReadStats{Packets: 5, Frames: 1, Skipped: 2, Errors: 2}, stats)
	require.Len(t, got, 1)
	assert.Equal(t, uint32(0xE4), got[0].Frame.Address)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, got[0].Frame.Data)
}

func TestReadRejectsOtherLinkTypes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, pcapgo.NewWriter(&buf).WriteFileHeader(65536, layers.LinkTypeEthernet))
	_, err := ReadPCAP(context.Background(), &buf, 0, func(canbus.Frame, time.Time) error { return nil })
	assert.ErrorIs(t, err, ErrLinkType)

	_, err = ReadPCAP(context.Background(), bytes.NewReader(nil), 0, func(canbus.Frame, time.Time) error { return nil })
	assert.Error(t, err)
}

func TestReadCallbackErrorStops(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.NoError(t, w.WriteFrame(canbus.Frame{Address: uint32(i)}, time.Unix(0, 0)))
	}

	stop := errors.New("stop")
	calls := 0
	stats, err := ReadPCAP(context.Background(), &buf, 0, func(canbus.Frame, time.Time) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, stats.Frames)
}

func TestReadContextCancel(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.WriteFrame(canbus.Frame{Address: 1}, time.Unix(0, 0)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ReadPCAP(ctx, &buf, 0, func(canbus.Frame, time.Time) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSocketCANLayerDecode(t *testing.T) {
	data := rawPacket(0x1ABCDEF0|flagExtended, 2, []byte{0xDE, 0xAD})
	packet := gopacket.NewPacket(data, LayerTypeSocketCAN, gopacket.Default)
	layer, ok := packet.Layer(LayerTypeSocketCAN).(*SocketCAN)
	require.True(t, ok)
	assert.True(t, layer.Extended)
	assert.False(t, layer.RTR)
	assert.Equal(t, uint32(0x1ABCDEF0), layer.ID)
	assert.Equal(t, []byte{0xDE, 0xAD}, layer.Data)
	assert.Len(t, layer.LayerContents(), 10)
	assert.Len(t, layer.LayerPayload(), 6)

	// standard ids ignore stray bits above 11
	data = rawPacket(0xF123, 0, nil)
	layer, ok = gopacket.NewPacket(data, LayerTypeSocketCAN, gopacket.Default).Layer(LayerTypeSocketCAN).(*SocketCAN)
	require.True(t, ok)
	assert.Equal(t, uint32(0x123), layer.ID)
}
