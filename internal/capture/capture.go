// Package capture reads and writes raw CAN traffic as SocketCAN pcap files,
// the format produced by `candump -l`-style tooling and Wireshark on can0.
package capture

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/hondabus/internal/canbus"
	"github.com/banshee-data/hondabus/internal/monitoring"
)

// ErrLinkType is returned for captures that do not carry SocketCAN frames.
var ErrLinkType = errors.New("capture is not SocketCAN")

const progressEvery = 100000

// pcapng section header block type, identical in either byte order.
const pcapngMagic = 0x0A0D0D0A

// ReadStats summarises one pass over a capture file.
type ReadStats struct {
	Packets int `json:"packets"`
	Frames  int `json:"frames"`
	Skipped int `json:"skipped"` // RTR and error frames
	Errors  int `json:"errors"`  // undecodable packets
}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

func newPacketReader(r io.Reader) (packetReader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}
	if binary.LittleEndian.Uint32(head) == pcapngMagic {
		return pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	}
	return pcapgo.NewReader(br)
}

// ReadPCAP decodes every data frame in a pcap or pcapng SocketCAN capture
// and hands it to fn with its capture timestamp, attributed to bus. An
// error from fn stops the read and is returned.
func ReadPCAP(ctx context.Context, r io.Reader, bus int, fn func(canbus.Frame, time.Time) error) (ReadStats, error) {
	var stats ReadStats
	pr, err := newPacketReader(r)
	if err != nil {
		return stats, fmt.Errorf("failed to open capture: %w", err)
	}
	if lt := pr.LinkType(); lt != LinkTypeSocketCAN {
		return stats, fmt.Errorf("%w: link type %d", ErrLinkType, lt)
	}

	startTime := time.Now()
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("capture: reader stopping due to context cancellation (processed %d packets)", stats.Packets)
			return stats, ctx.Err()
		default:
		}

		data, ci, err := pr.ReadPacketData()
		if errors.Is(err, io.EOF) {
			monitoring.Logf("capture: file reading complete: %d packets, %d frames in %v",
				stats.Packets, stats.Frames, time.Since(startTime))
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read packet %d: %w", stats.Packets+1, err)
		}
		stats.Packets++

		packet := gopacket.NewPacket(data, LayerTypeSocketCAN, gopacket.NoCopy)
		layer, ok := packet.Layer(LayerTypeSocketCAN).(*SocketCAN)
		if !ok {
			stats.Errors++
			if errLayer := packet.ErrorLayer(); errLayer != nil {
				monitoring.Logf("capture: packet %d: %v", stats.Packets, errLayer.Error())
			}
			continue
		}
		if layer.RTR || layer.Error {
			stats.Skipped++
			continue
		}

		if err := fn(layer.Frame(bus), ci.Timestamp); err != nil {
			return stats, err
		}
		stats.Frames++

		if stats.Packets%progressEvery == 0 {
			elapsed := time.Since(startTime)
			monitoring.Logf("capture: progress: %d packets processed in %v (%.0f pkt/s)",
				stats.Packets, elapsed, float64(stats.Packets)/elapsed.Seconds())
		}
	}
}

// Writer appends frames to a SocketCAN pcap stream.
type Writer struct {
	w   *pcapgo.Writer
	buf gopacket.SerializeBuffer
}

// NewWriter writes the pcap file header to w.
func NewWriter(w io.Writer) (*Writer, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(65536, LinkTypeSocketCAN); err != nil {
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}
	return &Writer{w: pw, buf: gopacket.NewSerializeBuffer()}, nil
}

// WriteFrame records f at ts. The bus index is not part of the format.
func (w *Writer) WriteFrame(f canbus.Frame, ts time.Time) error {
	if err := f.Validate(); err != nil {
		return err
	}
	layer := &SocketCAN{ID: f.Address, Extended: f.Extended, Data: f.Data}
	if err := gopacket.SerializeLayers(w.buf, gopacket.SerializeOptions{}, layer); err != nil {
		return err
	}
	data := w.buf.Bytes()
	return w.w.WritePacket(gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(data),
		Length:        len(data),
	}, data)
}
