package carbon_test

import (
	"testing"

	"github.com/nicholastmosher/flipper/carbon"
	"github.com/nicholastmosher/flipper/client"
	"github.com/nicholastmosher/flipper/fmr"
	"github.com/nicholastmosher/flipper/lf"
	"github.com/nicholastmosher/flipper/transport"
)

func feedReturn(m *transport.Mock, value uint64, errByte uint8) {
	buf := fmr.EncodeReturn(fmr.Return{Value: value, Error: errByte})
	m.Feed(buf[:])
}

func TestInvokeRoutesLedToAtmegau2Only(t *testing.T) {
	atmegaMock := transport.NewMock()
	feedReturn(atmegaMock, 0, 0) // dyld "led"
	feedReturn(atmegaMock, 0, 0) // call return
	atsamMock := transport.NewMock()

	dev := carbon.NewFromClients(client.New(atmegaMock), client.New(atsamMock), carbon.DefaultATMEGAModules)

	_, err := dev.Invoke("led", 0, lf.Void, lf.NewArgs().AppendUint8(1))
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if atmegaMock.Written.Len() == 0 {
		t.Error("expected led invocation to write to the atmegau2 mock")
	}
	if atsamMock.Written.Len() != 0 {
		t.Error("expected led invocation to not touch the atsam4s mock")
	}
}

func TestInvokeRoutesOtherModulesToAtsam4sOnly(t *testing.T) {
	atmegaMock := transport.NewMock()
	atsamMock := transport.NewMock()
	feedReturn(atsamMock, 0, 0) // dyld "gpio"
	feedReturn(atsamMock, 0, 0) // call return

	dev := carbon.NewFromClients(client.New(atmegaMock), client.New(atsamMock), carbon.DefaultATMEGAModules)

	_, err := dev.Invoke("gpio", 0, lf.Void, lf.NewArgs())
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if atsamMock.Written.Len() == 0 {
		t.Error("expected gpio invocation to write to the atsam4s mock")
	}
	if atmegaMock.Written.Len() != 0 {
		t.Error("expected gpio invocation to not touch the atmegau2 mock")
	}
}

func TestInvokeLedOnDeviceBuiltWithNew(t *testing.T) {
	m := transport.NewMock()
	feedReturn(m, 0, 0) // dyld "led" on atmegau2
	feedReturn(m, 0, 0) // call return

	dev := carbon.New(client.New(m), carbon.DefaultATMEGAModules)
	_, err := dev.Invoke("led", 0, lf.Void, lf.NewArgs().AppendUint8(1))
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
}

func TestCloseReturnsNoError(t *testing.T) {
	m := transport.NewMock()
	dev := carbon.New(client.New(m), carbon.DefaultATMEGAModules)
	if err := dev.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}
