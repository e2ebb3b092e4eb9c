package fmr

import (
	"github.com/snksoft/crc"
)

// crcTable is built once at package init from the XMODEM parameter set
// (poly 0x1021, init 0, no input/output reflection, no final xor), which is
// bit-for-bit the CRC-16/CCITT the firmware computes over every packet.
// This is the one routine in the whole system that must not drift from the
// firmware's own implementation.
var crcTable = crc.NewTable(crc.XMODEM)

// crc16 computes the packet CRC over buf, matching the firmware: iterate
// byte-by-byte, fold two bytes at a time into a 16-bit accumulator,
// little-endian.
func crc16(buf []byte) uint16 {
	acc := crcTable.InitCrc()
	acc = crcTable.UpdateCrc(acc, buf)
	return crcTable.CRC16(acc)
}

// finalizeCRC computes the CRC over the first header.Len bytes of p with
// the header's crc field temporarily zeroed, then stores the result back
// into the header. This must be the last step of building any packet.
func finalizeCRC(p *Packet) {
	n := p.Len()
	putLe16(p.Bytes[1:3], 0)
	sum := crc16(p.Bytes[:n])
	putLe16(p.Bytes[1:3], sum)
}

// verifyCRC recomputes the CRC over the first n bytes of buf (with the crc
// field zeroed) and compares it against the value stored in the header.
func verifyCRC(buf []byte, n uint16) error {
	want := le16(buf[1:3])
	// the header stores the crc little-endian at offset 1; compute with it
	// zeroed, exactly like finalizeCRC does when building.
	scratch := make([]byte, n)
	copy(scratch, buf[:n])
	putLe16(scratch[1:3], 0)
	got := crc16(scratch)
	if got != want {
		return &ErrCrcMismatch{Want: want, Got: got}
	}
	return nil
}
