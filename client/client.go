/*Package client drives the six-class request/response state machine over a
Transport and a module cache. A Client serializes every operation: no new
packet is written until the previous response has been fully consumed, and
a framing failure leaves the Client permanently Broken.
*/
package client

import (
	"fmt"

	"github.com/nicholastmosher/flipper/fmr"
	"github.com/nicholastmosher/flipper/lf"
	"github.com/nicholastmosher/flipper/modcache"
	"github.com/nicholastmosher/flipper/transport"
)

// State is one of the Client engine's four states.
type State int

const (
	// Idle means the Client is ready to accept a new operation.
	Idle State = iota
	// AwaitingReturn means a packet has been written and a 9-byte return
	// record has not yet been read.
	AwaitingReturn
	// AwaitingPayload means a push/pull payload transfer is in progress,
	// interleaved between the packet write and the return read.
	AwaitingPayload
	// Broken means a transport or framing error occurred; the Client must
	// be reopened on a fresh Transport before it can be used again.
	Broken
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingReturn:
		return "awaiting-return"
	case AwaitingPayload:
		return "awaiting-payload"
	case Broken:
		return "broken"
	default:
		return "unknown"
	}
}

// ErrorCode is one of the C ABI's library-level status codes (spec §6),
// returned by the fixed operation classes (dyld, malloc, free, push,
// pull) whose return.error byte the firmware always draws from this set.
type ErrorCode uint8

const (
	CodeSuccess ErrorCode = iota
	CodeNullPointer
	CodeInvalidString
	CodePackageNotLoaded
	CodeNoDevicesFound
	CodeIndexOutOfBounds
	CodeIllegalType
	CodeInvocationError
	CodeIllegalHandle
)

// ErrBroken is returned by every operation once the Client has entered the
// Broken state.
var ErrBroken = fmt.Errorf("client: broken, must be reopened on a fresh transport")

// PackageNotLoadedError means a dyld request for a module name failed.
type PackageNotLoadedError struct {
	Module string
	Code   ErrorCode
}

func (e *PackageNotLoadedError) Error() string {
	return fmt.Sprintf("client: module %q not loaded (code %d)", e.Module, e.Code)
}

// InvocationError means a call to a loaded module's function returned a
// non-zero error byte. The byte is module-defined and surfaced raw; see
// the design notes for why this does not route through ErrorCode.
type InvocationError struct {
	Module   string
	Function uint8
	Code     uint8
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("client: invocation of %s fn %d failed with code %d", e.Module, e.Function, e.Code)
}

// MallocFailedError means a malloc request returned a non-zero error byte.
type MallocFailedError struct{ Code ErrorCode }

func (e *MallocFailedError) Error() string {
	return fmt.Sprintf("client: malloc failed with code %d", e.Code)
}

// FreeFailedError means a free request returned a non-zero error byte.
type FreeFailedError struct{ Code ErrorCode }

func (e *FreeFailedError) Error() string {
	return fmt.Sprintf("client: free failed with code %d", e.Code)
}

// PushFailedError means a push request returned a non-zero error byte.
type PushFailedError struct{ Code ErrorCode }

func (e *PushFailedError) Error() string {
	return fmt.Sprintf("client: push failed with code %d", e.Code)
}

// PullFailedError means a pull request returned a non-zero error byte.
type PullFailedError struct{ Code ErrorCode }

func (e *PullFailedError) Error() string {
	return fmt.Sprintf("client: pull failed with code %d", e.Code)
}

// Client drives the wire protocol over a single Transport, serializing
// operations and caching resolved module indices.
type Client struct {
	Transport transport.Transport
	cache     *modcache.Cache
	state     State
}

// New returns a Client ready to use over t.
func New(t transport.Transport) *Client {
	return &Client{Transport: t, cache: modcache.New(), state: Idle}
}

// State reports the Client's current state-machine state.
func (c *Client) State() State {
	return c.state
}

// fail transitions the Client to Broken and returns err unchanged.
func (c *Client) fail(err error) error {
	c.state = Broken
	return err
}

// roundTrip writes p, then reads and verifies a 9-byte return record.
// On any transport or framing error the Client transitions to Broken.
func (c *Client) roundTrip(p *fmr.Packet) (fmr.Return, error) {
	c.state = AwaitingReturn
	if err := c.Transport.WriteAll(p.Bytes[:]); err != nil {
		return fmr.Return{}, c.fail(fmt.Errorf("client: write packet: %w", err))
	}
	var buf [fmr.ReturnSize]byte
	if err := c.Transport.ReadExact(buf[:]); err != nil {
		return fmr.Return{}, c.fail(fmt.Errorf("client: read return: %w", err))
	}
	c.state = Idle
	return fmr.DecodeReturn(buf[:]), nil
}

// Load resolves module to its firmware-assigned index, consulting the
// cache first and issuing a dyld on a miss.
func (c *Client) Load(module string) (uint32, error) {
	if c.state == Broken {
		return 0, ErrBroken
	}
	if m, ok := c.cache.Find(module); ok {
		return m.Index, nil
	}

	p, err := fmr.BuildDyld(module)
	if err != nil {
		return 0, err
	}
	ret, err := c.roundTrip(&p)
	if err != nil {
		return 0, err
	}
	if ret.Error != 0 {
		return 0, &PackageNotLoadedError{Module: module, Code: ErrorCode(ret.Error)}
	}
	index := uint32(ret.Value)
	c.cache.Insert(modcache.Module{Name: module, Index: index})
	return index, nil
}

// Invoke loads module, then calls function on it with args, expecting a
// return of type ret. The returned uint64 is the raw return.value; callers
// wanting a narrowed Go type should use InvokeUint8/16/32/64 below.
func (c *Client) Invoke(module string, function uint8, ret lf.Type, args lf.Args) (uint64, error) {
	if c.state == Broken {
		return 0, ErrBroken
	}
	index, err := c.Load(module)
	if err != nil {
		return 0, err
	}
	if index > 255 {
		return 0, &PackageNotLoadedError{Module: module, Code: CodeIndexOutOfBounds}
	}

	p, err := fmr.BuildCall(uint8(index), function, ret, args)
	if err != nil {
		return 0, err
	}
	r, err := c.roundTrip(&p)
	if err != nil {
		return 0, err
	}
	if r.Error != 0 {
		return 0, &InvocationError{Module: module, Function: function, Code: r.Error}
	}
	return r.Value, nil
}

// InvokeUint8 calls Invoke and narrows the return value to uint8.
func (c *Client) InvokeUint8(module string, function uint8, args lf.Args) (uint8, error) {
	v, err := c.Invoke(module, function, lf.Uint8, args)
	if err != nil {
		return 0, err
	}
	return lf.NarrowUint8(v), nil
}

// InvokeUint16 calls Invoke and narrows the return value to uint16.
func (c *Client) InvokeUint16(module string, function uint8, args lf.Args) (uint16, error) {
	v, err := c.Invoke(module, function, lf.Uint16, args)
	if err != nil {
		return 0, err
	}
	return lf.NarrowUint16(v), nil
}

// InvokeUint32 calls Invoke and narrows the return value to uint32.
func (c *Client) InvokeUint32(module string, function uint8, args lf.Args) (uint32, error) {
	v, err := c.Invoke(module, function, lf.Uint32, args)
	if err != nil {
		return 0, err
	}
	return lf.NarrowUint32(v), nil
}

// InvokeUint64 calls Invoke and returns the return value unnarrowed.
func (c *Client) InvokeUint64(module string, function uint8, args lf.Args) (uint64, error) {
	return c.Invoke(module, function, lf.Uint64, args)
}

// InvokeInt8 calls Invoke and narrows the return value to a sign-extended
// int8.
func (c *Client) InvokeInt8(module string, function uint8, args lf.Args) (int8, error) {
	v, err := c.Invoke(module, function, lf.Int8, args)
	if err != nil {
		return 0, err
	}
	return lf.NarrowInt8(v), nil
}

// InvokeInt16 calls Invoke and narrows the return value to a sign-extended
// int16.
func (c *Client) InvokeInt16(module string, function uint8, args lf.Args) (int16, error) {
	v, err := c.Invoke(module, function, lf.Int16, args)
	if err != nil {
		return 0, err
	}
	return lf.NarrowInt16(v), nil
}

// InvokeInt32 calls Invoke and narrows the return value to a sign-extended
// int32.
func (c *Client) InvokeInt32(module string, function uint8, args lf.Args) (int32, error) {
	v, err := c.Invoke(module, function, lf.Int32, args)
	if err != nil {
		return 0, err
	}
	return lf.NarrowInt32(v), nil
}

// InvokeInt64 calls Invoke and returns the return value reinterpreted as
// int64.
func (c *Client) InvokeInt64(module string, function uint8, args lf.Args) (int64, error) {
	v, err := c.Invoke(module, function, lf.Int64, args)
	if err != nil {
		return 0, err
	}
	return lf.NarrowInt64(v), nil
}

// InvokeVoid calls Invoke for a function with no meaningful return value.
func (c *Client) InvokeVoid(module string, function uint8, args lf.Args) error {
	_, err := c.Invoke(module, function, lf.Void, args)
	return err
}

// Push sends data to the device pointer ptr.
func (c *Client) Push(ptr lf.Pointer, data []byte) error {
	if c.state == Broken {
		return ErrBroken
	}
	p := fmr.BuildPush(ptr, uint32(len(data)))
	c.state = AwaitingPayload
	if err := c.Transport.WriteAll(p.Bytes[:]); err != nil {
		return c.fail(fmt.Errorf("client: write push packet: %w", err))
	}
	if err := c.Transport.WriteAll(data); err != nil {
		return c.fail(fmt.Errorf("client: write push payload: %w", err))
	}
	var buf [fmr.ReturnSize]byte
	if err := c.Transport.ReadExact(buf[:]); err != nil {
		return c.fail(fmt.Errorf("client: read push return: %w", err))
	}
	c.state = Idle
	ret := fmr.DecodeReturn(buf[:])
	if ret.Error != 0 {
		return &PushFailedError{Code: ErrorCode(ret.Error)}
	}
	return nil
}

// Pull reads len(buf) bytes from the device pointer ptr into buf.
func (c *Client) Pull(ptr lf.Pointer, buf []byte) error {
	if c.state == Broken {
		return ErrBroken
	}
	p := fmr.BuildPull(ptr, uint32(len(buf)))
	c.state = AwaitingPayload
	if err := c.Transport.WriteAll(p.Bytes[:]); err != nil {
		return c.fail(fmt.Errorf("client: write pull packet: %w", err))
	}
	if err := c.Transport.ReadExact(buf); err != nil {
		return c.fail(fmt.Errorf("client: read pull payload: %w", err))
	}
	var retBuf [fmr.ReturnSize]byte
	if err := c.Transport.ReadExact(retBuf[:]); err != nil {
		return c.fail(fmt.Errorf("client: read pull return: %w", err))
	}
	c.state = Idle
	ret := fmr.DecodeReturn(retBuf[:])
	if ret.Error != 0 {
		return &PullFailedError{Code: ErrorCode(ret.Error)}
	}
	return nil
}

// Malloc requests size bytes of device memory and returns the pointer the
// firmware assigned it.
func (c *Client) Malloc(size uint32) (lf.Pointer, error) {
	if c.state == Broken {
		return 0, ErrBroken
	}
	p := fmr.BuildMalloc(size)
	ret, err := c.roundTrip(&p)
	if err != nil {
		return 0, err
	}
	if ret.Error != 0 {
		return 0, &MallocFailedError{Code: ErrorCode(ret.Error)}
	}
	return lf.Pointer(lf.NarrowUint32(ret.Value)), nil
}

// Free releases the device memory at ptr.
func (c *Client) Free(ptr lf.Pointer) error {
	if c.state == Broken {
		return ErrBroken
	}
	p := fmr.BuildFree(ptr)
	ret, err := c.roundTrip(&p)
	if err != nil {
		return err
	}
	if ret.Error != 0 {
		return &FreeFailedError{Code: ErrorCode(ret.Error)}
	}
	return nil
}

// Unload drops module from the cache, the next Load will re-resolve it.
func (c *Client) Unload(module string) bool {
	return c.cache.Unload(module)
}

// Modules returns the names of the modules currently resolved in the
// cache. The order is unspecified.
func (c *Client) Modules() []string {
	return c.cache.Names()
}
