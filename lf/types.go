/*Package lf defines the typed value model carried over the Flipper Message
Runtime wire: the LfType tag enum, the fixed widths each tag packs to, and
the handful of sentinel errors raised while building or narrowing values.

The names here track the original Rust `lf` module's LfType enum closely on
purpose - the tag values are part of the wire contract with the firmware and
must not be renumbered.
*/
package lf

import "fmt"

// Type is a tagged enum identifying the width and signedness of a value
// carried as a call argument or return value. Its wire representation is a
// 4-bit nibble, so valid tags fall in [0, MAX].
type Type uint8

// Tag values are fixed by the firmware and must not be renumbered.
const (
	Uint8  Type = 0
	Uint16 Type = 1
	Void   Type = 2
	Uint32 Type = 3
	Int    Type = 4
	Ptr    Type = 6
	Uint64 Type = 7
	Int8   Type = 8
	Int16  Type = 9
	Int32  Type = 11
	Int64  Type = 15
)

// MaxType is the largest valid tag value; tags are packed into 4-bit
// nibbles on the wire so this can never exceed 15.
const MaxType = 15

// ErrIllegalType is returned whenever a tag falls outside the known table,
// either while packing an argument or while parsing one back off the wire.
type ErrIllegalType struct {
	Tag Type
}

func (e *ErrIllegalType) Error() string {
	return fmt.Sprintf("lf: illegal type tag %d", e.Tag)
}

// widths maps every legal tag to its wire width in argv, in bytes. Void has
// no argv representation (it is return-only) but is still sized here at 8
// bytes, the width of the 64-bit return slot it occupies when used as ret.
var widths = map[Type]int{
	Uint8:  1,
	Uint16: 2,
	Void:   8,
	Uint32: 4,
	Int:    8,
	Ptr:    8,
	Uint64: 8,
	Int8:   1,
	Int16:  2,
	Int32:  4,
	Int64:  8,
}

// Size returns the number of bytes this type occupies in a call packet's
// argv region, or an error if the tag is not one of the known types.
func (t Type) Size() (int, error) {
	w, ok := widths[t]
	if !ok {
		return 0, &ErrIllegalType{Tag: t}
	}
	return w, nil
}

// Valid reports whether t is one of the known wire type tags.
func (t Type) Valid() bool {
	_, ok := widths[t]
	return ok
}

func (t Type) String() string {
	switch t {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Void:
		return "void"
	case Uint32:
		return "uint32"
	case Int:
		return "int"
	case Ptr:
		return "ptr"
	case Uint64:
		return "uint64"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	default:
		return fmt.Sprintf("lf.Type(%d)", uint8(t))
	}
}
