package npy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Element is the set of Go types with a fixed NumPy dtype counterpart.
type Element interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		float32 | float64 | complex64 | complex128
}

// Array is an n-dimensional array in .npy layout. Data holds the raw element
// bytes in storage order: row-major unless FortranOrder is set. An empty
// Shape denotes a zero-dimensional array holding exactly one element.
type Array struct {
	DType        DType
	Shape        []int
	FortranOrder bool
	Data         []byte
}

// New builds an array from data. Without a shape the array is
// one-dimensional; otherwise the shape must account for every value.
func New[T Element](data []T, shape ...int) (*Array, error) {
	if len(shape) == 0 {
		shape = []int{len(data)}
	}
	n, err := elementCount(shape)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("npy: %d values do not fill shape %s", len(data), shapeRepr(shape))
	}
	return build(data, slices.Clone(shape)), nil
}

// Scalar builds a zero-dimensional array holding v.
func Scalar[T Element](v T) *Array {
	return build([]T{v}, []int{})
}

func build[T Element](data []T, shape []int) *Array {
	dt := dtypeFor[T]()
	buf := make([]byte, len(data)*dt.ItemSize)
	order := dt.byteOrder()
	for i, v := range data {
		putValue(buf[i*dt.ItemSize:], order, v)
	}
	return &Array{DType: dt, Shape: shape, Data: buf}
}

// Values decodes the elements of a in storage order. T must match the
// array's kind and item size; the byte order is taken from the array.
func Values[T Element](a *Array) ([]T, error) {
	want := dtypeFor[T]()
	if !a.DType.sameType(want) {
		return nil, fmt.Errorf("npy: cannot read %s array as %s", a.DType, want)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	order := a.DType.byteOrder()
	out := make([]T, a.Len())
	for i := range out {
		out[i] = getValue[T](a.Data[i*want.ItemSize:], order)
	}
	return out, nil
}

// Len returns the number of elements, the product of the shape.
func (a *Array) Len() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// Equal reports whether a and b have the same dtype, shape, memory order and
// contents.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.DType == b.DType &&
		slices.Equal(a.Shape, b.Shape) &&
		a.FortranOrder == b.FortranOrder &&
		bytes.Equal(a.Data, b.Data)
}

func (a *Array) String() string {
	return fmt.Sprintf("array(shape=%s, dtype=%s)", shapeRepr(a.Shape), a.DType)
}

// Scan implements sql.Scanner so that a blob column, or a value already
// decoded by a converter, can be scanned into an Array.
func (a *Array) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		parsed, err := Unmarshal(v)
		if err != nil {
			return err
		}
		*a = *parsed
	case *Array:
		if v == nil {
			return fmt.Errorf("npy: cannot scan nil *Array")
		}
		*a = *v.clone()
	case nil:
		return fmt.Errorf("npy: cannot scan NULL into Array")
	default:
		return fmt.Errorf("npy: cannot scan %T into Array", src)
	}
	return nil
}

func (a *Array) clone() *Array {
	return &Array{
		DType:        a.DType,
		Shape:        slices.Clone(a.Shape),
		FortranOrder: a.FortranOrder,
		Data:         slices.Clone(a.Data),
	}
}

func (a *Array) validate() error {
	if _, err := ParseDType(a.DType.String()); err != nil {
		return err
	}
	n, err := elementCount(a.Shape)
	if err != nil {
		return err
	}
	if len(a.Data) != n*a.DType.ItemSize {
		return fmt.Errorf("npy: shape %s with dtype %s needs %d bytes, have %d",
			shapeRepr(a.Shape), a.DType, n*a.DType.ItemSize, len(a.Data))
	}
	return nil
}

func elementCount(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("npy: negative dimension in shape %s", shapeRepr(shape))
		}
		if d != 0 && n > math.MaxInt/d {
			return 0, fmt.Errorf("npy: shape %s overflows", shapeRepr(shape))
		}
		n *= d
	}
	return n, nil
}

// shapeRepr formats shape as a Python tuple.
func shapeRepr(shape []int) string {
	switch len(shape) {
	case 0:
		return "()"
	case 1:
		return "(" + strconv.Itoa(shape[0]) + ",)"
	}
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func dtypeFor[T Element]() DType {
	var zero T
	switch any(zero).(type) {
	case bool:
		return Bool
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	case complex64:
		return Complex64
	default:
		return Complex128
	}
}

func putValue[T Element](b []byte, order binary.ByteOrder, v T) {
	switch x := any(v).(type) {
	case bool:
		b[0] = 0
		if x {
			b[0] = 1
		}
	case int8:
		b[0] = byte(x)
	case int16:
		order.PutUint16(b, uint16(x))
	case int32:
		order.PutUint32(b, uint32(x))
	case int64:
		order.PutUint64(b, uint64(x))
	case uint8:
		b[0] = x
	case uint16:
		order.PutUint16(b, x)
	case uint32:
		order.PutUint32(b, x)
	case uint64:
		order.PutUint64(b, x)
	case float32:
		order.PutUint32(b, math.Float32bits(x))
	case float64:
		order.PutUint64(b, math.Float64bits(x))
	case complex64:
		order.PutUint32(b, math.Float32bits(real(x)))
		order.PutUint32(b[4:], math.Float32bits(imag(x)))
	case complex128:
		order.PutUint64(b, math.Float64bits(real(x)))
		order.PutUint64(b[8:], math.Float64bits(imag(x)))
	}
}

func getValue[T Element](b []byte, order binary.ByteOrder) T {
	var zero T
	var v any
	switch any(zero).(type) {
	case bool:
		v = b[0] != 0
	case int8:
		v = int8(b[0])
	case int16:
		v = int16(order.Uint16(b))
	case int32:
		v = int32(order.Uint32(b))
	case int64:
		v = int64(order.Uint64(b))
	case uint8:
		v = b[0]
	case uint16:
		v = order.Uint16(b)
	case uint32:
		v = order.Uint32(b)
	case uint64:
		v = order.Uint64(b)
	case float32:
		v = math.Float32frombits(order.Uint32(b))
	case float64:
		v = math.Float64frombits(order.Uint64(b))
	case complex64:
		v = complex(math.Float32frombits(order.Uint32(b)), math.Float32frombits(order.Uint32(b[4:])))
	case complex128:
		v = complex(math.Float64frombits(order.Uint64(b)), math.Float64frombits(order.Uint64(b[8:])))
	}
	return v.(T)
}
