package canmux

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hondabus/internal/canbus"
	"github.com/banshee-data/hondabus/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

// TestSerialPort implements SerialPorter for testing CANMux operations
type TestSerialPort struct {
	readData    []byte
	readIndex   int
	writtenData bytes.Buffer
	writeErr    error
	closed      bool
	mu          sync.Mutex
}

func NewTestSerialPort(data string) *TestSerialPort {
	return &TestSerialPort{readData: []byte(data)}
}

func (p *TestSerialPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.readIndex >= len(p.readData) {
		return 0, io.EOF
	}
	n := copy(buf, p.readData[p.readIndex:])
	p.readIndex += n
	return n, nil
}

func (p *TestSerialPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.writtenData.Write(data)
}

func (p *TestSerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *TestSerialPort) WrittenData() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writtenData.String()
}

// shortWritePort reports fewer bytes than requested.
type shortWritePort struct{ TestSerialPort }

func (p *shortWritePort) Write(data []byte) (int, error) { return len(data) - 1, nil }

func localHostRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

func TestInitialize(t *testing.T) {
	port := NewTestSerialPort("")
	mux := NewCANMux(port, 1)

	require.NoError(t, mux.Initialize(500000))
	assert.Equal(t, "C\rS6\rO\r", port.WrittenData())

	assert.Error(t, mux.Initialize(33333))
}

func TestSendFrame(t *testing.T) {
	port := NewTestSerialPort("")
	mux := NewCANMux(port, 0)

	require.NoError(t, mux.SendFrame(canbus.Frame{Address: 0x1FA, Data: []byte{0x01, 0xAB}}))
	assert.Equal(t, "t1FA201AB\r", port.WrittenData())

	err := mux.SendFrame(canbus.Frame{Address: 0x800})
	assert.ErrorIs(t, err, canbus.ErrInvalidFrame)

	port.writeErr = errors.New("unplugged")
	assert.Error(t, mux.SendFrame(canbus.Frame{Address: 0x1FA}))

	short := NewCANMux(&shortWritePort{}, 0)
	assert.ErrorIs(t, short.SendCommand("O"), ErrWriteFailed)
}

func TestMonitorFansOutFrames(t *testing.T) {
	// two frames, an ack, a BEL, a status reply and garbage
	port := NewTestSerialPort("t43021122\r\r\az\rT16F118F0120\rV1013\rtXYZ\r")
	mux := NewCANMux(port, 5)

	id1, ch1 := mux.Subscribe()
	_, ch2 := mux.Subscribe()
	defer mux.Unsubscribe(id1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, mux.Monitor(ctx))

	for _, ch := range []chan canbus.Frame{ch1, ch2} {
		require.Len(t, ch, 2)
		f := <-ch
		assert.Equal(t, uint32(0x430), f.Address)
		assert.Equal(t, []byte{0x11, 0x22}, f.Data)
		assert.Equal(t, 5, f.Bus)
		f = <-ch
		assert.True(t, f.Extended)
		assert.Equal(t, uint32(0x16F118F0), f.Address)
		assert.Equal(t, []byte{0x20}, f.Data)
	}

	stats := mux.Stats()
	assert.Equal(t, uint64(2), stats.Frames)
	assert.Equal(t, uint64(3), stats.ParseErrors) // "z", "V1013", "tXYZ"
	assert.Equal(t, uint64(0), stats.Dropped)
}

func TestMonitorContextCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	port := &pipePort{Reader: r}
	mux := NewCANMux(port, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after cancel")
	}
}

type pipePort struct {
	io.Reader
}

func (p *pipePort) Write(b []byte) (int, error) { return len(b), nil }
func (p *pipePort) Close() error                { return nil }

func TestCloseClosesSubscribers(t *testing.T) {
	port := NewTestSerialPort("")
	mux := NewCANMux(port, 0)
	_, ch := mux.Subscribe()

	require.NoError(t, mux.Close())
	_, ok := <-ch
	assert.False(t, ok)
	assert.True(t, port.closed)
	assert.Equal(t, "C\r", port.WrittenData())
}

func TestSplitSLCAN(t *testing.T) {
	var tokens []string
	data := []byte("\r\rt1230\r\at1231AA\nT000000010")
	for len(data) > 0 {
		adv, tok, err := splitSLCAN(data, true)
		require.NoError(t, err)
		require.Positive(t, adv)
		if tok != nil {
			tokens = append(tokens, string(tok))
		}
		data = data[adv:]
	}
	assert.Equal(t, []string{"t1230", "t1231AA", "T000000010"}, tokens)
}

func TestAttachAdminRoutes(t *testing.T) {
	port := NewTestSerialPort("")
	mux := NewCANMux(port, 2)
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	tests := []struct {
		name   string
		method string
		form   url.Values
		status int
		body   string
	}{
		{"valid frame", http.MethodPost, url.Values{"frame": {"t1FA201AB"}}, http.StatusOK, "bus 2"},
		{"missing frame", http.MethodPost, url.Values{}, http.StatusBadRequest, "Missing frame"},
		{"bad frame", http.MethodPost, url.Values{"frame": {"x123"}}, http.StatusBadRequest, "invalid"},
		{"GET not allowed", http.MethodGet, nil, http.StatusMethodNotAllowed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := localHostRequest(tt.method, "/debug/send-frame", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			httpMux.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
	assert.Equal(t, "t1FA201AB\r", port.WrittenData())

	rec := httptest.NewRecorder()
	httpMux.ServeHTTP(rec, localHostRequest(http.MethodGet, "/debug/can-stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"frames":0,"dropped":0,"parse_errors":0}`, rec.Body.String())
}
