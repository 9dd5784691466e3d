// Package transport provides line-oriented I/O over a set of named byte
// stream endpoints. Commands may arrive on any endpoint; responses and
// telemetry are broadcast to every connected one.
package transport

import (
	"io"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/adstech/opensink/internal/ui"
)

// Well-known endpoint names.
const (
	EndpointConsole = "console"
	EndpointData    = "data"
)

const readChunkSize = 64

// Endpoint is a byte stream the mux can attach, typically a serial port.
type Endpoint interface {
	io.ReadWriteCloser
	Connected() bool
}

// Status reports per-endpoint link state for STATUS?.
type Status struct {
	ConsoleConnected bool
	DataConnected    bool
}

// LineIO multiplexes line-oriented traffic over the attached endpoints. One
// reader goroutine per endpoint feeds a shared channel; ReadLine drains it
// without blocking so the caller's loop keeps its cadence.
type LineIO struct {
	endpoints cmap.ConcurrentMap[string, Endpoint]
	incoming  chan []byte
	pending   []byte
}

func NewLineIO() *LineIO {
	return &LineIO{
		endpoints: cmap.New[Endpoint](),
		incoming:  make(chan []byte, 64),
	}
}

// Attach registers an endpoint under the given name and starts reading from
// it. A previously attached endpoint with the same name is closed.
func (l *LineIO) Attach(name string, ep Endpoint) {
	if old, ok := l.endpoints.Get(name); ok {
		_ = old.Close()
	}
	l.endpoints.Set(name, ep)
	go l.readLoop(name, ep)
}

func (l *LineIO) readLoop(name string, ep Endpoint) {
	buf := make([]byte, readChunkSize)
	for {
		n, err := ep.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			l.incoming <- chunk
		}
		if err != nil {
			ui.Debug("transport: endpoint %s closed: %v", name, err)
			return
		}
	}
}

// ReadLine returns the next complete input line without blocking. Both CR
// and LF terminate a line; a CRLF or LFCR pair is consumed as one terminator.
func (l *LineIO) ReadLine() (string, bool) {
	for {
		select {
		case chunk := <-l.incoming:
			l.pending = append(l.pending, chunk...)
		default:
			return l.takeLine()
		}
	}
}

func (l *LineIO) takeLine() (string, bool) {
	for i, b := range l.pending {
		if b != '\r' && b != '\n' {
			continue
		}
		line := string(l.pending[:i])
		skip := i + 1
		if skip < len(l.pending) {
			next := l.pending[skip]
			if (next == '\r' || next == '\n') && next != b {
				skip++
			}
		}
		l.pending = append(l.pending[:0], l.pending[skip:]...)
		return line, true
	}
	return "", false
}

// WriteLine broadcasts a CRLF-terminated line to every connected endpoint.
// With no endpoint accepting the write, the line goes to the debug log so
// responses are not lost silently during bring-up.
func (l *LineIO) WriteLine(line string) {
	data := []byte(line + "\r\n")
	delivered := 0
	for item := range l.endpoints.IterBuffered() {
		ep := item.Val
		if !ep.Connected() {
			continue
		}
		if _, err := ep.Write(data); err == nil {
			delivered++
		}
	}
	if delivered == 0 {
		ui.Debug("transport: no endpoint, dropped line: %s", line)
	}
}

// Status reports the link state of the console and data endpoints.
func (l *LineIO) Status() Status {
	return Status{
		ConsoleConnected: l.connected(EndpointConsole),
		DataConnected:    l.connected(EndpointData),
	}
}

func (l *LineIO) connected(name string) bool {
	ep, ok := l.endpoints.Get(name)
	return ok && ep.Connected()
}

// Close shuts down all attached endpoints.
func (l *LineIO) Close() {
	for item := range l.endpoints.IterBuffered() {
		_ = item.Val.Close()
		l.endpoints.Remove(item.Key)
	}
}
