package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// waitLine polls ReadLine until the reader goroutine has delivered a line.
func waitLine(t *testing.T, l *LineIO) string {
	t.Helper()
	var line string
	assert.Eventually(t, func() bool {
		s, ok := l.ReadLine()
		if ok {
			line = s
		}
		return ok
	}, time.Second, time.Millisecond)
	return line
}

func TestReadLineNonBlockingWhenIdle(t *testing.T) {
	// GIVEN
	l := NewLineIO()
	defer l.Close()

	// THEN: no input pending, returns immediately
	_, ok := l.ReadLine()
	assert.False(t, ok)
}

func TestReadLineTerminators(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"lf", "PING\n"},
		{"cr", "PING\r"},
		{"crlf", "PING\r\n"},
		{"lfcr", "PING\n\r"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLineIO()
			defer l.Close()
			ep := NewMemEndpoint()
			l.Attach(EndpointConsole, ep)

			ep.Push(tc.input + "NEXT\n")

			assert.Equal(t, "PING", waitLine(t, l))
			assert.Equal(t, "NEXT", waitLine(t, l))
		})
	}
}

func TestReadLineAssemblesSplitChunks(t *testing.T) {
	// GIVEN
	l := NewLineIO()
	defer l.Close()
	ep := NewMemEndpoint()
	l.Attach(EndpointConsole, ep)

	// WHEN: a command arrives byte by byte
	for _, ch := range "VER?\r\n" {
		ep.Push(string(ch))
	}

	// THEN
	assert.Equal(t, "VER?", waitLine(t, l))
}

func TestCommandsAcceptedFromAnyEndpoint(t *testing.T) {
	// GIVEN
	l := NewLineIO()
	defer l.Close()
	console := NewMemEndpoint()
	data := NewMemEndpoint()
	l.Attach(EndpointConsole, console)
	l.Attach(EndpointData, data)

	// WHEN
	data.Push("STATUS?\n")

	// THEN
	assert.Equal(t, "STATUS?", waitLine(t, l))
}

func TestWriteLineBroadcastsToConnectedEndpoints(t *testing.T) {
	// GIVEN
	l := NewLineIO()
	defer l.Close()
	console := NewMemEndpoint()
	data := NewMemEndpoint()
	l.Attach(EndpointConsole, console)
	l.Attach(EndpointData, data)
	data.SetConnected(false)

	// WHEN
	l.WriteLine("PONG")

	// THEN: only the connected endpoint sees the line
	assert.Equal(t, []string{"PONG"}, console.Lines())
	assert.Empty(t, data.Lines())
}

func TestStatusReportsLinkState(t *testing.T) {
	// GIVEN
	l := NewLineIO()
	defer l.Close()
	console := NewMemEndpoint()
	l.Attach(EndpointConsole, console)

	// THEN
	status := l.Status()
	assert.True(t, status.ConsoleConnected)
	assert.False(t, status.DataConnected)

	// WHEN
	console.SetConnected(false)

	// THEN
	assert.False(t, l.Status().ConsoleConnected)
}
