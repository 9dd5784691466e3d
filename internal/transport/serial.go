package transport

import (
	"sync/atomic"

	"go.bug.st/serial"
)

// SerialEndpoint adapts a serial port to the Endpoint interface.
type SerialEndpoint struct {
	port   serial.Port
	closed atomic.Bool
}

// OpenSerial opens the named serial device at the given baud rate.
func OpenSerial(device string, baud int) (*SerialEndpoint, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	return &SerialEndpoint{port: port}, nil
}

func (s *SerialEndpoint) Read(p []byte) (int, error)  { return s.port.Read(p) }
func (s *SerialEndpoint) Write(p []byte) (int, error) { return s.port.Write(p) }

func (s *SerialEndpoint) Close() error {
	s.closed.Store(true)
	return s.port.Close()
}

func (s *SerialEndpoint) Connected() bool {
	return !s.closed.Load()
}
