/*Package uarttunnel implements a transport.Transport that reaches a second
co-processor by repeatedly invoking a remote `uart0` module over another
Client, instead of a direct byte-level link. Every Write/Read call is
chunked into 128-byte pieces and round-tripped through malloc/push/invoke
or malloc/invoke/pull/free on the backing Client.
*/
package uarttunnel

import (
	"fmt"

	"github.com/nicholastmosher/flipper/client"
	"github.com/nicholastmosher/flipper/lf"
)

// chunkSize is the largest slice of a write/read the tunnel moves through a
// single malloc/push/invoke/free (or malloc/invoke/pull/free) sequence.
const chunkSize = 128

// Baud codes accepted by uart0.configure.
const (
	BaudFMR = 0x00
	BaudDFU = 0x08
)

// uart0's fixed function table, by firmware convention.
const (
	fnConfigure = 0
	fnReady     = 1
	fnSend      = 2
	fnRecv      = 3
)

const moduleName = "uart0"

// Transport drives the backing Client's uart0 module to move bytes to and
// from a second processor. It satisfies transport.Transport.
type Transport struct {
	backing *client.Client
}

// New returns a Transport tunneling over backing's uart0 module.
func New(backing *client.Client) *Transport {
	return &Transport{backing: backing}
}

// Configure calls uart0.configure(baud, interrupts) on the backing Client.
func (t *Transport) Configure(baud uint8, interrupts uint8) error {
	args := lf.NewArgs().AppendUint8(baud).AppendUint8(interrupts)
	return t.backing.InvokeVoid(moduleName, fnConfigure, args)
}

// Ready calls uart0.ready and reports whether the link is ready.
func (t *Transport) Ready() (bool, error) {
	v, err := t.backing.InvokeUint8(moduleName, fnReady, lf.NewArgs())
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// WriteAll splits buf into 128-byte chunks and, for each, mallocs a device
// buffer on the backing Client, pushes the chunk into it, invokes
// uart0.send, and frees the buffer.
func (t *Transport) WriteAll(buf []byte) error {
	for len(buf) > 0 {
		n := chunkSize
		if n > len(buf) {
			n = len(buf)
		}
		chunk := buf[:n]
		if err := t.sendChunk(chunk); err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

func (t *Transport) sendChunk(chunk []byte) error {
	ptr, err := t.backing.Malloc(uint32(len(chunk)))
	if err != nil {
		return fmt.Errorf("uarttunnel: malloc for send chunk: %w", err)
	}
	defer t.backing.Free(ptr)

	if err := t.backing.Push(ptr, chunk); err != nil {
		return fmt.Errorf("uarttunnel: push send chunk: %w", err)
	}
	args := lf.NewArgs().AppendPtr(ptr).AppendUint32(uint32(len(chunk)))
	if err := t.backing.InvokeVoid(moduleName, fnSend, args); err != nil {
		return fmt.Errorf("uarttunnel: uart0.send: %w", err)
	}
	return nil
}

// ReadExact fills buf in 128-byte chunks, each fetched by mallocing a
// device buffer, invoking uart0.recv into it, pulling the bytes back, and
// freeing the buffer.
func (t *Transport) ReadExact(buf []byte) error {
	for len(buf) > 0 {
		n := chunkSize
		if n > len(buf) {
			n = len(buf)
		}
		if err := t.recvChunk(buf[:n]); err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

func (t *Transport) recvChunk(chunk []byte) error {
	ptr, err := t.backing.Malloc(uint32(len(chunk)))
	if err != nil {
		return fmt.Errorf("uarttunnel: malloc for recv chunk: %w", err)
	}
	defer t.backing.Free(ptr)

	args := lf.NewArgs().AppendPtr(ptr).AppendUint32(uint32(len(chunk)))
	if err := t.backing.InvokeVoid(moduleName, fnRecv, args); err != nil {
		return fmt.Errorf("uarttunnel: uart0.recv: %w", err)
	}
	if err := t.backing.Pull(ptr, chunk); err != nil {
		return fmt.Errorf("uarttunnel: pull recv chunk: %w", err)
	}
	return nil
}

// Flush is a no-op; the tunnel has no internal buffering of its own.
func (t *Transport) Flush() error {
	return nil
}

// Close releases the tunnel's hold on the backing Client. The tunnel owns
// no resources of its own; this exists so callers composing a Device can
// close the atsam4s side before the atmegau2 Client it borrows from.
func (t *Transport) Close() error {
	return nil
}
