package npy

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

// DType describes the element type of an array the way a NumPy dtype
// descriptor string does, e.g. "<f8" or "|b1".
type DType struct {
	Order    byte // '<' little endian, '>' big endian, '|' not applicable
	Kind     byte // 'b', 'i', 'u', 'f', 'c', 'S' or 'U'
	ItemSize int  // bytes per element
}

var (
	Bool       = DType{Order: '|', Kind: 'b', ItemSize: 1}
	Int8       = DType{Order: '|', Kind: 'i', ItemSize: 1}
	Int16      = DType{Order: '<', Kind: 'i', ItemSize: 2}
	Int32      = DType{Order: '<', Kind: 'i', ItemSize: 4}
	Int64      = DType{Order: '<', Kind: 'i', ItemSize: 8}
	Uint8      = DType{Order: '|', Kind: 'u', ItemSize: 1}
	Uint16     = DType{Order: '<', Kind: 'u', ItemSize: 2}
	Uint32     = DType{Order: '<', Kind: 'u', ItemSize: 4}
	Uint64     = DType{Order: '<', Kind: 'u', ItemSize: 8}
	Float32    = DType{Order: '<', Kind: 'f', ItemSize: 4}
	Float64    = DType{Order: '<', Kind: 'f', ItemSize: 8}
	Complex64  = DType{Order: '<', Kind: 'c', ItemSize: 8}
	Complex128 = DType{Order: '<', Kind: 'c', ItemSize: 16}
)

// ParseDType parses a NumPy descriptor string such as "<i4", ">f8", "|S10"
// or "<U5".
func ParseDType(descr string) (DType, error) {
	if len(descr) < 3 {
		return DType{}, fmt.Errorf("%w: %q", ErrUnsupportedDType, descr)
	}

	order := descr[0]
	switch order {
	case '<', '>', '|':
	case '=':
		order = nativeOrder()
	default:
		return DType{}, fmt.Errorf("%w: bad byte order in %q", ErrUnsupportedDType, descr)
	}

	kind := descr[1]
	n, err := strconv.Atoi(descr[2:])
	if err != nil || n <= 0 {
		return DType{}, fmt.Errorf("%w: bad item size in %q", ErrUnsupportedDType, descr)
	}

	valid := false
	switch kind {
	case 'b':
		valid = n == 1
	case 'i', 'u':
		valid = n == 1 || n == 2 || n == 4 || n == 8
	case 'f':
		valid = n == 2 || n == 4 || n == 8 || n == 16
	case 'c':
		valid = n == 8 || n == 16 || n == 32
	case 'S':
		valid = true
	case 'U':
		// Counted in UCS-4 code points.
		valid = true
		n *= 4
	case 'O':
		return DType{}, fmt.Errorf("%w: object arrays require pickle support", ErrUnsupportedDType)
	}
	if !valid {
		return DType{}, fmt.Errorf("%w: %q", ErrUnsupportedDType, descr)
	}

	return DType{Order: order, Kind: kind, ItemSize: n}, nil
}

// String returns the NumPy descriptor string.
func (d DType) String() string {
	n := d.ItemSize
	if d.Kind == 'U' {
		n /= 4
	}
	return fmt.Sprintf("%c%c%d", d.Order, d.Kind, n)
}

func (d DType) byteOrder() binary.ByteOrder {
	if d.Order == '>' {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// sameType reports whether d and o describe the same element type,
// regardless of byte order.
func (d DType) sameType(o DType) bool {
	return d.Kind == o.Kind && d.ItemSize == o.ItemSize
}

func nativeOrder() byte {
	if binary.NativeEndian.Uint16([]byte{1, 0}) == 1 {
		return '<'
	}
	return '>'
}
