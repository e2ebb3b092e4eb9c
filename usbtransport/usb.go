/*Package usbtransport implements the bulk-USB Transport: scan for a
device's vendor ID, claim its first bulk IN/OUT endpoint pair, and wrap
the pair in a transport.Transport bounded by a per-call timeout, the way
usbtmc.NewUSBDevice claims its interface and endpoints.
*/
package usbtransport

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/gousb"

	"github.com/nicholastmosher/flipper/transport"
)

// DefaultVendorID is the Flipper's USB vendor ID, used by config.Default().
const DefaultVendorID gousb.ID = 0x16C0

// DefaultTimeout is the per-bulk-transfer timeout assumed when none is
// configured.
const DefaultTimeout = 1 * time.Second

// ErrNoDevicesFound is returned when a scan finds no device matching the
// requested vendor ID.
var ErrNoDevicesFound = errors.New("usbtransport: no devices found matching vendor id")

// Device wraps a claimed USB interface as a transport.Transport. Close
// releases the interface, the underlying gousb.Device, and the owning
// gousb.Context.
type Device struct {
	*transport.ReadWriteCloserTransport
	ctx     *gousb.Context
	dev     *gousb.Device
	closers []func()
}

// endpointPair is a bundled io.ReadWriteCloser over an InEndpoint/OutEndpoint
// pair, each call individually bounded by Timeout.
type endpointPair struct {
	in  transport.Timeout
	out transport.Timeout
}

func (p endpointPair) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p endpointPair) Write(b []byte) (int, error) { return p.out.Write(b) }
func (p endpointPair) Close() error                { return nil }

// Open scans the USB bus for the first device with vendorID, claims its
// first bulk IN/OUT endpoint pair, and returns a Transport bounding every
// bulk transfer by timeout.
func Open(vendorID gousb.ID, timeout time.Duration) (*Device, error) {
	ctx := gousb.NewContext()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == vendorID
	})
	if err != nil {
		ctx.Close()
		return nil, err
	}
	if len(devs) == 0 {
		ctx.Close()
		return nil, ErrNoDevicesFound
	}
	// close every device we didn't pick
	for _, extra := range devs[1:] {
		extra.Close()
	}
	dev := devs[0]

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, err
	}

	iface, ifaceCloser, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, err
	}

	inNum, outNum, err := findBulkEndpoints(iface)
	if err != nil {
		ifaceCloser()
		dev.Close()
		ctx.Close()
		return nil, err
	}

	in, err := iface.InEndpoint(inNum)
	if err != nil {
		ifaceCloser()
		dev.Close()
		ctx.Close()
		return nil, err
	}
	out, err := iface.OutEndpoint(outNum)
	if err != nil {
		ifaceCloser()
		dev.Close()
		ctx.Close()
		return nil, err
	}

	pair := endpointPair{
		in:  transport.NewTimeout(in, timeout),
		out: transport.NewTimeout(out, timeout),
	}

	return &Device{
		ReadWriteCloserTransport: transport.NewReadWriteCloserTransport(pair),
		ctx:                      ctx,
		dev:                      dev,
		closers:                  []func(){ifaceCloser},
	}, nil
}

// findBulkEndpoints returns the endpoint numbers of the first bulk-IN and
// first bulk-OUT endpoints in iface's active setting.
func findBulkEndpoints(iface *gousb.Interface) (in, out int, err error) {
	in, out = -1, -1
	for _, ep := range iface.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if ep.Direction == gousb.EndpointDirectionIn && in == -1 {
			in = ep.Number
		}
		if ep.Direction == gousb.EndpointDirectionOut && out == -1 {
			out = ep.Number
		}
	}
	if in == -1 || out == -1 {
		return 0, 0, errors.New("usbtransport: no bulk in/out endpoint pair found")
	}
	return in, out, nil
}

// Close releases the claimed interface, device, and USB context.
func (d *Device) Close() error {
	for _, c := range d.closers {
		c()
	}
	d.dev.Close()
	return d.ctx.Close()
}

// WaitForDevice polls for a device matching vendorID with an exponential
// backoff, returning as soon as one attaches or maxElapsed elapses. This is
// discovery convenience only - once Open succeeds the caller's Client is
// never silently reattached on later transport loss.
func WaitForDevice(vendorID gousb.ID, timeout, maxElapsed time.Duration) (*Device, error) {
	var dev *Device
	op := func() error {
		d, err := Open(vendorID, timeout)
		if err != nil {
			return err
		}
		dev = d
		return nil
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     50 * time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      maxElapsed,
		Clock:               backoff.SystemClock,
	}
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return dev, nil
}
