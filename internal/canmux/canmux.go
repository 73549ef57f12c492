// Package canmux multiplexes one SLCAN (Lawicel) serial adapter: frames read
// from the bus fan out to any number of subscribers, and frames from any
// caller are written back through a single port.
package canmux

import (
	"bufio"
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"tailscale.com/tsweb"

	"github.com/banshee-data/hondabus/internal/canbus"
	"github.com/banshee-data/hondabus/internal/monitoring"
)

var ErrWriteFailed = errors.New("failed to write to serial port")

// subscriberBuffer absorbs bursts; a full subscriber misses frames rather
// than stalling the reader.
const subscriberBuffer = 256

// CANMux is a generic SLCAN multiplexer over a serial port.
type CANMux[T SerialPorter] struct {
	port         T
	bus          int
	subscribers  map[string]chan canbus.Frame
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex

	frames      atomic.Uint64
	dropped     atomic.Uint64
	parseErrors atomic.Uint64
}

// CANMuxInterface defines the interface for the CANMux type.
type CANMuxInterface interface {
	// Subscribe creates a new channel for receiving frames. The channel ID
	// is used to identify the unique channel when unsubscribing.
	Subscribe() (string, chan canbus.Frame)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// SendFrame writes one frame to the bus.
	SendFrame(canbus.Frame) error
	// SendCommand writes a raw SLCAN command.
	SendCommand(string) error
	// Monitor reads frames from the adapter and fans them out.
	Monitor(context.Context) error
	// Close closes all subscribed channels and the serial port.
	Close() error

	Initialize(bitrate int) error

	// AttachAdminRoutes attaches admin debugging endpoints to the given HTTP
	// mux served at /debug/.
	AttachAdminRoutes(*http.ServeMux)
}

// Stats counts what the monitor loop has seen.
type Stats struct {
	Frames      uint64 `json:"frames"`
	Dropped     uint64 `json:"dropped"`
	ParseErrors uint64 `json:"parse_errors"`
}

// NewCANMux creates a CANMux over port. Frames read from it are reported on
// physical bus index bus.
func NewCANMux[T SerialPorter](port T, bus int) *CANMux[T] {
	return &CANMux[T]{
		port:        port,
		bus:         bus,
		subscribers: make(map[string]chan canbus.Frame),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Bus is the physical bus index of the adapter.
func (s *CANMux[T]) Bus() int {
	return s.bus
}

func (s *CANMux[T]) Subscribe() (string, chan canbus.Frame) {
	id := randomID()
	ch := make(chan canbus.Frame, subscriberBuffer)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the mux.
func (s *CANMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Initialize closes the channel in case the adapter was left open, sets
// the bitrate and opens the bus.
func (s *CANMux[T]) Initialize(bitrate int) error {
	setup, err := BitrateCommand(bitrate)
	if err != nil {
		return err
	}
	for _, command := range []string{
		"C",   // close, ignored when already closed
		setup, // CAN bitrate
		"O",   // open in normal mode
	} {
		if err := s.SendCommand(command); err != nil {
			return fmt.Errorf("failed to send setup command %q: %w", command, err)
		}
	}
	monitoring.Logf("canmux: bus %d opened at %d bit/s", s.bus, bitrate)
	return nil
}

// SendCommand sends a raw SLCAN command, terminated by a carriage return.
func (s *CANMux[T]) SendCommand(command string) error {
	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	if !strings.HasSuffix(command, "\r") {
		command += "\r"
	}
	n, err := s.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// SendFrame validates f and writes it to the bus.
func (s *CANMux[T]) SendFrame(f canbus.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return s.SendCommand(f.SLCAN())
}

// splitSLCAN splits adapter output on CR or LF. The adapter acknowledges
// commands with a bare CR and rejects them with BEL; both yield no token.
func splitSLCAN(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && (data[start] == '\r' || data[start] == '\n' || data[start] == '\a') {
		start++
	}
	if i := bytes.IndexAny(data[start:], "\r\n\a"); i >= 0 {
		return start + i + 1, data[start : start+i], nil
	}
	if atEOF && start < len(data) {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

// Monitor reads frames from the adapter and sends them to subscribers.
func (s *CANMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)
	scan.Split(splitSLCAN)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// the blocking scan.Scan runs on its own goroutine so the outer loop
	// can observe context cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				return nil
			}
			s.closingMu.Lock()
			if s.closing {
				s.closingMu.Unlock()
				return nil
			}
			s.closingMu.Unlock()

			frame, err := canbus.ParseSLCAN(line, s.bus)
			if err != nil {
				// status replies ("z", "V1013", ...) land here too
				s.parseErrors.Add(1)
				continue
			}
			s.frames.Add(1)

			s.subscriberMu.Lock()
			for _, ch := range s.subscribers {
				select {
				case ch <- frame:
				default:
					s.dropped.Add(1)
				}
			}
			s.subscriberMu.Unlock()
		}
	}
}

// Stats returns the monitor counters.
func (s *CANMux[T]) Stats() Stats {
	return Stats{
		Frames:      s.frames.Load(),
		Dropped:     s.dropped.Load(),
		ParseErrors: s.parseErrors.Load(),
	}
}

func (s *CANMux[T]) Close() error {
	s.closingMu.Lock()
	s.closing = true
	s.closingMu.Unlock()

	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	// best effort: leave the adapter closed for the next session
	s.SendCommand("C")
	return s.port.Close()
}

func (s *CANMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("can-stats", "SLCAN adapter frame counters", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s.Stats())
	})

	// API endpoint to write one SLCAN frame line (t/T form) to the bus
	debug.HandleSilentFunc("send-frame", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		line := strings.TrimSpace(r.FormValue("frame"))
		if line == "" {
			http.Error(w, "Missing frame", http.StatusBadRequest)
			return
		}
		frame, err := canbus.ParseSLCAN(line, s.bus)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.SendFrame(frame); err != nil {
			http.Error(w, "Failed to write frame", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, fmt.Sprintf("Wrote %s to bus %d", frame, s.bus))
	})

	// API endpoint to issue Server-Side Events (SSE) for every frame read.
	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

		id, c := s.Subscribe()
		defer s.Unsubscribe(id)

		w.Write([]byte(": ping\n\n"))
		w.(http.Flusher).Flush()

		for {
			select {
			case frame, ok := <-c:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", frame.SLCAN()); err != nil {
					return
				}
				w.(http.Flusher).Flush()
			case <-r.Context().Done():
				return
			}
		}
	})
}
