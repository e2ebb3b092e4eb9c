package fmr

import (
	"github.com/nicholastmosher/flipper/lf"
)

// newHeader writes the common header fields for a fresh packet: magic set,
// crc zeroed, len set to the bare header size, class set. Every Build*
// function starts from this and then grows Len as it fills in the body.
func newHeader(class Class) Packet {
	var p Packet
	p.Class = class
	p.Bytes[0] = Magic
	putLe16(p.Bytes[1:3], 0)
	putLe16(p.Bytes[3:5], HeaderSize)
	p.Bytes[5] = byte(class)
	return p
}

// BuildCall assembles a call packet invoking function on module, expecting
// a return of type ret, with the given ordered arguments. argc may not
// exceed 8 (four-bit tags packed into a 32-bit argt), and the packed
// argument bytes may not push the packet past PacketSize.
func BuildCall(module uint8, function uint8, ret lf.Type, args lf.Args) (Packet, error) {
	if len(args) > 8 {
		return Packet{}, &ErrPacketOverflow{Requested: len(args)}
	}

	p := newHeader(ClassCall)
	body := p.Bytes[HeaderSize:]
	body[0] = module
	body[1] = function
	body[2] = byte(ret)
	// body[3:7] is argt (u32), body[7] is argc, body[8:] is argv
	body[7] = uint8(len(args))

	var argt uint32
	offset := 8
	for i, arg := range args {
		size, err := arg.Kind.Size()
		if err != nil {
			return Packet{}, err
		}
		if HeaderSize+offset+size > PacketSize {
			return Packet{}, &ErrPacketOverflow{Requested: offset + size}
		}
		argt |= (uint32(arg.Kind) & lf.MaxType) << uint(i*4)

		dst := body[offset : offset+size]
		writeWidth(dst, arg.Value)
		offset += size
	}
	putLe32(body[3:7], argt)
	putLe16(p.Bytes[3:5], uint16(HeaderSize+offset))
	finalizeCRC(&p)
	return p, nil
}

// writeWidth writes the low len(dst) bytes of v into dst, little-endian.
func writeWidth(dst []byte, v uint64) {
	for i := range dst {
		dst[i] = byte(v >> (8 * i))
	}
}

func readWidth(src []byte) uint64 {
	var v uint64
	for i, b := range src {
		v |= uint64(b) << (8 * i)
	}
	return v
}

// CallFields is the decoded form of a call packet's body, returned by
// ParseCall. It exists mainly for round-trip testing of BuildCall.
type CallFields struct {
	Module   uint8
	Function uint8
	Ret      lf.Type
	Args     lf.Args
}

// ParseCall decodes the body of a call packet built by BuildCall. It reads
// exactly header.Len bytes of p and recovers the module, function, return
// type, and argument list.
func ParseCall(p *Packet) (CallFields, error) {
	if p.Bytes[0] != Magic {
		return CallFields{}, &ErrBadMagic{Got: p.Bytes[0]}
	}
	n := p.Len()
	body := p.Bytes[HeaderSize:]
	argc := int(body[7])
	argt := le32(body[3:7])

	out := CallFields{
		Module:   body[0],
		Function: body[1],
		Ret:      lf.Type(body[2]),
		Args:     make(lf.Args, 0, argc),
	}

	offset := 8
	for i := 0; i < argc; i++ {
		tag := lf.Type((argt >> uint(i*4)) & lf.MaxType)
		size, err := tag.Size()
		if err != nil {
			return CallFields{}, err
		}
		if HeaderSize+offset+size > int(n) {
			return CallFields{}, &ErrShortRead{Want: HeaderSize + offset + size, Got: int(n)}
		}
		value := readWidth(body[offset : offset+size])
		out.Args = append(out.Args, lf.Arg{Kind: tag, Value: value})
		offset += size
	}
	return out, nil
}

// BuildDyld assembles a dyld packet resolving name to a module index. name
// must not contain a NUL byte.
func BuildDyld(name string) (Packet, error) {
	total := HeaderSize + len(name) + 1
	if total > PacketSize {
		return Packet{}, &ErrPacketOverflow{Requested: total - HeaderSize}
	}
	p := newHeader(ClassDyld)
	body := p.Bytes[HeaderSize:]
	copy(body, name)
	body[len(name)] = 0
	putLe16(p.Bytes[3:5], uint16(total))
	finalizeCRC(&p)
	return p, nil
}

// ParseDyldName recovers the NUL-terminated module name from a dyld packet.
func ParseDyldName(p *Packet) (string, error) {
	if p.Bytes[0] != Magic {
		return "", &ErrBadMagic{Got: p.Bytes[0]}
	}
	n := int(p.Len())
	body := p.Bytes[HeaderSize:]
	end := n - HeaderSize - 1 // exclude the trailing NUL
	if end < 0 || HeaderSize+end+1 > n {
		return "", &ErrShortRead{Want: HeaderSize + 1, Got: n}
	}
	return string(body[:end]), nil
}

// BuildPush assembles a push packet declaring an intent to write len bytes
// to the device pointer ptr. The payload bytes themselves are written to
// the transport separately, after this packet.
func BuildPush(ptr lf.Pointer, length uint32) Packet {
	return buildPushPull(ClassPush, ptr, length)
}

// BuildPull assembles a pull packet declaring an intent to read len bytes
// from the device pointer ptr. The payload bytes are read from the
// transport separately, after the return record.
func BuildPull(ptr lf.Pointer, length uint32) Packet {
	return buildPushPull(ClassPull, ptr, length)
}

func buildPushPull(class Class, ptr lf.Pointer, length uint32) Packet {
	p := newHeader(class)
	body := p.Bytes[HeaderSize:]
	putLe32(body[0:4], length)
	putLe64(body[4:12], uint64(ptr))
	putLe16(p.Bytes[3:5], HeaderSize+12)
	finalizeCRC(&p)
	return p
}

// PushPullFields is the decoded len/ptr pair shared by push and pull
// packets.
type PushPullFields struct {
	Len uint32
	Ptr lf.Pointer
}

// ParsePushPull decodes the len/ptr body shared by push and pull packets.
func ParsePushPull(p *Packet) (PushPullFields, error) {
	if p.Bytes[0] != Magic {
		return PushPullFields{}, &ErrBadMagic{Got: p.Bytes[0]}
	}
	body := p.Bytes[HeaderSize:]
	return PushPullFields{
		Len: le32(body[0:4]),
		Ptr: lf.Pointer(le64(body[4:12])),
	}, nil
}

// BuildMalloc assembles a malloc packet requesting size bytes of device
// memory.
func BuildMalloc(size uint32) Packet {
	return buildMemory(ClassMalloc, size, 0)
}

// BuildFree assembles a free packet releasing the device memory at ptr.
func BuildFree(ptr lf.Pointer) Packet {
	return buildMemory(ClassFree, 0, ptr)
}

func buildMemory(class Class, size uint32, ptr lf.Pointer) Packet {
	p := newHeader(class)
	body := p.Bytes[HeaderSize:]
	putLe32(body[0:4], size)
	putLe64(body[4:12], uint64(ptr))
	putLe16(p.Bytes[3:5], HeaderSize+12)
	finalizeCRC(&p)
	return p
}

// MemoryFields is the decoded size/ptr pair shared by malloc and free
// packets.
type MemoryFields struct {
	Size uint32
	Ptr  lf.Pointer
}

// ParseMemory decodes the size/ptr body shared by malloc and free packets.
func ParseMemory(p *Packet) (MemoryFields, error) {
	if p.Bytes[0] != Magic {
		return MemoryFields{}, &ErrBadMagic{Got: p.Bytes[0]}
	}
	body := p.Bytes[HeaderSize:]
	return MemoryFields{
		Size: le32(body[0:4]),
		Ptr:  lf.Pointer(le64(body[4:12])),
	}, nil
}

// DecodeHeader extracts the logical Header fields from a raw packet.
func DecodeHeader(p *Packet) Header {
	return Header{
		Magic: p.Bytes[0],
		Crc:   le16(p.Bytes[1:3]),
		Len:   le16(p.Bytes[3:5]),
		Class: Class(p.Bytes[5]),
	}
}

// Verify checks a received packet's magic byte and CRC against its own
// header.Len, returning an error that always means the owning Client must
// transition to Broken.
func Verify(p *Packet) error {
	if p.Bytes[0] != Magic {
		return &ErrBadMagic{Got: p.Bytes[0]}
	}
	return verifyCRC(p.Bytes[:], p.Len())
}

// DecodeReturn parses a 9-byte return record read from the transport.
func DecodeReturn(buf []byte) Return {
	return Return{
		Value: le64(buf[0:8]),
		Error: buf[8],
	}
}

// EncodeReturn serializes a return record; used by in-process mocks and
// tests that simulate firmware behavior.
func EncodeReturn(r Return) [ReturnSize]byte {
	var buf [ReturnSize]byte
	putLe64(buf[0:8], r.Value)
	buf[8] = r.Error
	return buf
}
