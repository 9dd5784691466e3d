package transport

import (
	"io"
	"strings"
	"sync"
)

// MemEndpoint is an in-memory Endpoint for tests and loopback use. Input is
// queued with Push; output accumulates and can be read back as lines.
type MemEndpoint struct {
	in       chan []byte
	leftover []byte

	mu        sync.Mutex
	out       strings.Builder
	connected bool
	closeOnce sync.Once
}

func NewMemEndpoint() *MemEndpoint {
	return &MemEndpoint{
		in:        make(chan []byte, 64),
		connected: true,
	}
}

// Push queues raw input bytes for the reader side.
func (m *MemEndpoint) Push(data string) {
	m.in <- []byte(data)
}

func (m *MemEndpoint) Read(p []byte) (int, error) {
	if len(m.leftover) == 0 {
		chunk, ok := <-m.in
		if !ok {
			return 0, io.EOF
		}
		m.leftover = chunk
	}
	n := copy(p, m.leftover)
	m.leftover = m.leftover[n:]
	return n, nil
}

func (m *MemEndpoint) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out.Write(p)
	return len(p), nil
}

func (m *MemEndpoint) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.connected = false
		m.mu.Unlock()
		close(m.in)
	})
	return nil
}

func (m *MemEndpoint) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SetConnected toggles the reported link state without closing the stream.
func (m *MemEndpoint) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

// Output returns everything written so far.
func (m *MemEndpoint) Output() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.out.String()
}

// Lines splits the output on CRLF, dropping the trailing empty element.
func (m *MemEndpoint) Lines() []string {
	out := m.Output()
	out = strings.TrimSuffix(out, "\r\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\r\n")
}
