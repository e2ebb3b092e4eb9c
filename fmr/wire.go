/*Package fmr implements the Flipper Message Runtime packet format: the
64-byte header+body layout, the six request classes (call, push, pull,
dyld, malloc, free), argument packing, and the CRC-16 that guards every
packet against stream desync.

This is the part of the system that must remain numerically identical to
the firmware's own framing code - packet layout and the CRC routine in
particular are lifted from the original runtime/protocol.rs nearly
field-for-field.
*/
package fmr

import "fmt"

const (
	// PacketSize is the fixed size, in bytes, of every packet transmitted
	// or received on the wire, regardless of how much of it is used.
	PacketSize = 64

	// HeaderSize is the on-wire header size. The logical fields only sum
	// to 6 bytes, but the firmware's C struct packing computes 8 for this
	// header and the host must match that to keep CRCs aligned. Do not
	// "fix" this without firmware cooperation (see design notes).
	HeaderSize = 8

	// PayloadSize is the number of bytes available to a packet body.
	PayloadSize = PacketSize - HeaderSize

	// Magic guards against stream desync; every packet starts with it.
	Magic = 0xFE

	// ReturnSize is the size, in bytes, of the 9-byte return record read
	// after every request.
	ReturnSize = 9
)

// Class identifies which of the six request shapes a packet carries.
type Class uint8

const (
	ClassCall   Class = 0
	ClassPush   Class = 1
	ClassPull   Class = 2
	ClassDyld   Class = 3
	ClassMalloc Class = 4
	ClassFree   Class = 5
)

func (c Class) String() string {
	switch c {
	case ClassCall:
		return "call"
	case ClassPush:
		return "push"
	case ClassPull:
		return "pull"
	case ClassDyld:
		return "dyld"
	case ClassMalloc:
		return "malloc"
	case ClassFree:
		return "free"
	default:
		return fmt.Sprintf("fmr.Class(%d)", uint8(c))
	}
}

// Header is the fixed 8-byte preamble of every packet.
type Header struct {
	Magic byte
	Crc   uint16
	Len   uint16
	Class Class
}

// Packet is a fully built, transmit-ready 64-byte buffer together with the
// class that was used to build it. Packets are stack-allocated and
// transient: build one, finalize its CRC, write it, and discard it.
type Packet struct {
	Class Class
	Bytes [PacketSize]byte
}

// Len returns the header's len field: header size plus the number of body
// bytes actually used by this packet.
func (p *Packet) Len() uint16 {
	return le16(p.Bytes[3:5])
}

// Return is the 9-byte record read back after every request.
type Return struct {
	Value uint64
	Error uint8
}

// ErrPacketOverflow is returned when the requested body contents would
// push header.len past PacketSize. BuildCall also returns it for more than
// 8 arguments, with Requested set to the argument count.
type ErrPacketOverflow struct {
	Requested int
}

func (e *ErrPacketOverflow) Error() string {
	return fmt.Sprintf("fmr: packet overflow, body would need %d bytes of a %d byte payload", e.Requested, PayloadSize)
}

// ErrShortRead is returned when a transport produced fewer bytes than a
// fixed-size frame requires; it always indicates the underlying Client is
// now Broken.
type ErrShortRead struct {
	Want, Got int
}

func (e *ErrShortRead) Error() string {
	return fmt.Sprintf("fmr: short read, wanted %d bytes, got %d", e.Want, e.Got)
}

// ErrBadMagic is returned when a parsed packet's first byte isn't Magic.
type ErrBadMagic struct {
	Got byte
}

func (e *ErrBadMagic) Error() string {
	return fmt.Sprintf("fmr: bad magic byte 0x%02X, want 0x%02X", e.Got, Magic)
}

// ErrCrcMismatch is returned when a parsed packet's stored CRC does not
// match the CRC recomputed over its header.Len bytes.
type ErrCrcMismatch struct {
	Want, Got uint16
}

func (e *ErrCrcMismatch) Error() string {
	return fmt.Sprintf("fmr: crc mismatch, header says 0x%04X, computed 0x%04X", e.Want, e.Got)
}

func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func putLe16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putLe32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLe64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
