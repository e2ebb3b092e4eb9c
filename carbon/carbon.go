/*Package carbon composes the two FMR clients on a Flipper: Carbon into a
single logical device. One Client drives the atmegau2 directly over USB;
the other drives the atsam4s over a UART tunnel backed by the atmegau2
Client. Every operation is routed to one or the other by module name.
*/
package carbon

import (
	"github.com/nicholastmosher/flipper/client"
	"github.com/nicholastmosher/flipper/lf"
	"github.com/nicholastmosher/flipper/uarttunnel"
	"github.com/nicholastmosher/flipper/util"
)

// DefaultATMEGAModules is the fixed set of module names resident on the
// atmegau2, for callers composing a Device with no routing override.
// Everything else routes to the atsam4s tunnel. New and NewFromClients do
// not fall back to it: a nil or empty table routes every module to the
// atsam4s.
var DefaultATMEGAModules = map[string]bool{
	"led": true,
}

// Device is a single logical FMR endpoint routing calls to whichever of
// its two underlying Clients owns the requested module.
type Device struct {
	atmegau2      *client.Client
	atsam4s       *client.Client
	tunnel        *uarttunnel.Transport
	atmegaModules map[string]bool
}

// New composes a Device from an already-opened atmegau2 Client, routing
// modules named in atmegaModules to it and everything else to the atsam4s
// Client. It opens a UART tunnel over atmegau2 and drives the atsam4s
// Client through it.
func New(atmegau2 *client.Client, atmegaModules map[string]bool) *Device {
	tunnel := uarttunnel.New(atmegau2)
	atsam4s := client.New(tunnel)
	return &Device{
		atmegau2:      atmegau2,
		atsam4s:       atsam4s,
		tunnel:        tunnel,
		atmegaModules: atmegaModules,
	}
}

// NewFromClients composes a Device from two already-constructed Clients
// directly, bypassing the UART tunnel. This exists for testing routing
// logic against independent mock transports, matching the shape of a real
// Device without requiring a live tunnel between the two sides.
func NewFromClients(atmegau2, atsam4s *client.Client, atmegaModules map[string]bool) *Device {
	return &Device{atmegau2: atmegau2, atsam4s: atsam4s, atmegaModules: atmegaModules}
}

// route returns the Client that owns module.
func (d *Device) route(module string) *client.Client {
	if d.atmegaModules[module] {
		return d.atmegau2
	}
	return d.atsam4s
}

// Invoke routes to the Client owning module and calls function on it.
func (d *Device) Invoke(module string, function uint8, ret lf.Type, args lf.Args) (uint64, error) {
	return d.route(module).Invoke(module, function, ret, args)
}

// Load routes to the Client owning module and resolves its index.
func (d *Device) Load(module string) (uint32, error) {
	return d.route(module).Load(module)
}

// Push routes to the Client owning module and pushes data to ptr.
//
// Note: ptr addresses are only meaningful within the Client that allocated
// them; callers must route push/pull/malloc/free using the same module
// name they used for the owning malloc.
func (d *Device) Push(module string, ptr lf.Pointer, data []byte) error {
	return d.route(module).Push(ptr, data)
}

// Pull routes to the Client owning module and pulls bytes from ptr.
func (d *Device) Pull(module string, ptr lf.Pointer, buf []byte) error {
	return d.route(module).Pull(ptr, buf)
}

// Malloc routes to the Client owning module and requests device memory.
func (d *Device) Malloc(module string, size uint32) (lf.Pointer, error) {
	return d.route(module).Malloc(size)
}

// Free routes to the Client owning module and releases device memory.
func (d *Device) Free(module string, ptr lf.Pointer) error {
	return d.route(module).Free(ptr)
}

// ATMEGAModules returns the routing table this Device was composed with.
func (d *Device) ATMEGAModules() map[string]bool { return d.atmegaModules }

// Atmegau2 exposes the raw Client driving the atmegau2 co-processor, for
// callers that need direct access (e.g. uart0 configuration).
func (d *Device) Atmegau2() *client.Client { return d.atmegau2 }

// Atsam4s exposes the raw Client driving the atsam4s co-processor.
func (d *Device) Atsam4s() *client.Client { return d.atsam4s }

// Close closes the atsam4s Client's tunnel before the atmegau2 Client,
// since the tunnel holds a live borrow of the atmegau2 Client for its
// entire lifetime; closing in the other order would leave the tunnel
// driving a dead transport.
func (d *Device) Close() error {
	var errs []error
	if c, ok := d.atsam4s.Transport.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c, ok := d.atmegau2.Transport.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return util.MergeErrors(errs)
}
