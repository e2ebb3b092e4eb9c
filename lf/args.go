package lf

// Pointer is a device-side address, as returned by Malloc and consumed by
// Push, Pull, and Free. It widens to a uint64 for wire carriage like every
// other argument value.
type Pointer uint64

// Arg is a single typed value ready to be packed into a call packet's argv
// region. Value is always widened to 64 bits for in-memory carriage and
// narrowed to Kind's wire width when packed.
type Arg struct {
	Kind  Type
	Value uint64
}

// Args is an ordered, typed list of arguments to a remote call, built with
// Append in the order the firmware function expects them.
//
//	args := lf.NewArgs().
//	    Append(lf.Uint8, 10).
//	    Append(lf.Uint16, 1000)
type Args []Arg

// NewArgs returns an empty argument list.
func NewArgs() Args {
	return Args{}
}

// Append adds a single typed argument to the list and returns the list for
// chaining.
func (a Args) Append(kind Type, value uint64) Args {
	return append(a, Arg{Kind: kind, Value: value})
}

// AppendUint8 appends a uint8-tagged argument.
func (a Args) AppendUint8(v uint8) Args { return a.Append(Uint8, uint64(v)) }

// AppendUint16 appends a uint16-tagged argument.
func (a Args) AppendUint16(v uint16) Args { return a.Append(Uint16, uint64(v)) }

// AppendUint32 appends a uint32-tagged argument.
func (a Args) AppendUint32(v uint32) Args { return a.Append(Uint32, uint64(v)) }

// AppendUint64 appends a uint64-tagged argument.
func (a Args) AppendUint64(v uint64) Args { return a.Append(Uint64, v) }

// AppendPtr appends a device-pointer-tagged argument.
func (a Args) AppendPtr(p Pointer) Args { return a.Append(Ptr, uint64(p)) }

// narrowing helpers used by client.Invoke's typed wrappers. These match the
// truncate-then-sign-extend behavior of the original LfReturn::From impls.

// NarrowUint8 truncates a raw return value to uint8.
func NarrowUint8(v uint64) uint8 { return uint8(v) }

// NarrowUint16 truncates a raw return value to uint16.
func NarrowUint16(v uint64) uint16 { return uint16(v) }

// NarrowUint32 truncates a raw return value to uint32.
func NarrowUint32(v uint64) uint32 { return uint32(v) }

// NarrowInt8 truncates and sign-extends a raw return value to int8.
func NarrowInt8(v uint64) int8 { return int8(v) }

// NarrowInt16 truncates and sign-extends a raw return value to int16.
func NarrowInt16(v uint64) int16 { return int16(v) }

// NarrowInt32 truncates and sign-extends a raw return value to int32.
func NarrowInt32(v uint64) int32 { return int32(v) }

// NarrowInt64 reinterprets a raw return value as int64.
func NarrowInt64(v uint64) int64 { return int64(v) }
