/*Package serialtransport implements a transport.Transport over a CDC-ACM
serial port, for the case where the atmegau2 enumerates as a virtual COM
port instead of exposing raw bulk endpoints (DFU recovery, or a dev board
driven through an FTDI bridge). It reuses the same 1-second timeout
wrapper as usbtransport instead of duplicating it.
*/
package serialtransport

import (
	"time"

	"github.com/tarm/serial"

	"github.com/nicholastmosher/flipper/transport"
)

// Timeout is the fixed per-call timeout applied to both reads and writes,
// matching the bulk-USB transport's 1-second bound.
const Timeout = 1 * time.Second

// Port wraps an open serial.Port as a Transport.
type Port struct {
	*transport.ReadWriteCloserTransport
	port *serial.Port
}

// Open opens the serial device at name with the given baud rate and wraps
// it as a Transport.
func Open(name string, baud int) (*Port, error) {
	cfg := &serial.Config{Name: name, Baud: baud, ReadTimeout: Timeout}
	p, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	timed := transport.NewTimeout(p, Timeout)
	return &Port{
		ReadWriteCloserTransport: transport.NewReadWriteCloserTransport(timedReadWriteCloser{timed, p}),
		port:                     p,
	}, nil
}

// timedReadWriteCloser pairs a Timeout-wrapped Read/Write with the
// underlying port's Close.
type timedReadWriteCloser struct {
	transport.Timeout
	closer *serial.Port
}

func (t timedReadWriteCloser) Close() error { return t.closer.Close() }
