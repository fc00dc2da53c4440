package websocket

import (
	"errors"
	"net"
	"sync"
	"time"
)

// ErrMockClosed is returned by a MockConnection after Close
var ErrMockClosed = errors.New("connection closed")

// MockConnection is an in-memory Connection for tests. ReadMessage returns
// queued inbound messages, then blocks until Close.
type MockConnection struct {
	mu sync.Mutex

	WrittenMessages []MockMessage
	WriteErr        error

	inbound chan MockMessage
	closed  chan struct{}
	once    sync.Once

	ReadDeadline  time.Time
	WriteDeadline time.Time
	ReadLimit     int64
	PongHandler   func(string) error

	RemoteAddress net.Addr
}

// MockMessage is one frame
type MockMessage struct {
	Type int
	Data []byte
}

// NewMockConnection creates a new mock connection
func NewMockConnection() *MockConnection {
	return &MockConnection{
		inbound:       make(chan MockMessage, 16),
		closed:        make(chan struct{}),
		RemoteAddress: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 53000},
	}
}

// Inject queues a frame for ReadMessage
func (m *MockConnection) Inject(messageType int, data []byte) {
	m.inbound <- MockMessage{Type: messageType, Data: data}
}

// WriteMessage records the frame
func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isClosed() {
		return ErrMockClosed
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.WrittenMessages = append(m.WrittenMessages, MockMessage{Type: messageType, Data: data})
	return nil
}

// ReadMessage returns the next injected frame or ErrMockClosed after Close
func (m *MockConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-m.inbound:
		return msg.Type, msg.Data, nil
	case <-m.closed:
		return 0, nil, ErrMockClosed
	}
}

// Close unblocks readers; it is idempotent
func (m *MockConnection) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

// IsClosed reports whether Close was called
func (m *MockConnection) IsClosed() bool {
	return m.isClosed()
}

func (m *MockConnection) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

// Messages returns a copy of the written frames
func (m *MockConnection) Messages() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockMessage, len(m.WrittenMessages))
	copy(out, m.WrittenMessages)
	return out
}

func (m *MockConnection) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadDeadline = t
	return nil
}

func (m *MockConnection) SetWriteDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteDeadline = t
	return nil
}

func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadLimit = limit
}

func (m *MockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PongHandler = h
}

func (m *MockConnection) RemoteAddr() net.Addr {
	return m.RemoteAddress
}
