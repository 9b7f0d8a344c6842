package npy

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

// numpy.save(f, numpy.arange(3, dtype='<i4'))
const arange3Int32Hex = "934e554d5059010076007b276465736372273a20273c6934272c2027666f727472616e5f6f72646572273a2046616c73652c20277368617065273a2028332c292c207d2020202020202020202020202020202020202020202020202020202020202020202020202020202020202020202020202020202020202020202020200a000000000100000002000000"

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("Bad hex fixture: %v", err)
	}
	return b
}

func TestMarshalMatchesNumPy(t *testing.T) {
	a, err := New([]int32{0, 1, 2})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	got, err := Marshal(a)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := mustHex(t, arange3Int32Hex)
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal output differs from numpy.save\n got: %q\nwant: %q", got, want)
	}
	if len(got)-12 != 128 {
		t.Errorf("Expected data to start at offset 128, got %d", len(got)-12)
	}
}

func TestUnmarshalNumPyFixture(t *testing.T) {
	a, err := Unmarshal(mustHex(t, arange3Int32Hex))
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if a.DType != Int32 {
		t.Errorf("Expected dtype <i4, got %s", a.DType)
	}
	if len(a.Shape) != 1 || a.Shape[0] != 3 {
		t.Errorf("Expected shape (3,), got %v", a.Shape)
	}
	vals, err := Values[int32](a)
	if err != nil {
		t.Fatalf("Values failed: %v", err)
	}
	for i, v := range vals {
		if v != int32(i) {
			t.Errorf("Expected element %d to be %d, got %d", i, i, v)
		}
	}
}

func TestHeaderAlignment(t *testing.T) {
	shapes := [][]int{{}, {0}, {3}, {2, 3}, {1, 2, 3, 4, 5, 6, 7, 8}}
	for _, shape := range shapes {
		h := header{Descr: "<f8", Shape: shape}
		b := h.encode()
		if len(b)%arrayAlign != 0 {
			t.Errorf("Header for shape %v is %d bytes, not a multiple of %d", shape, len(b), arrayAlign)
		}
		if b[len(b)-1] != '\n' {
			t.Errorf("Header for shape %v does not end in newline", shape)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	shapes := [][]int{{}, {0}, {3}, {2, 3}}

	for _, shape := range shapes {
		n := 1
		for _, d := range shape {
			n *= d
		}

		ints := make([]int32, n)
		floats := make([]float64, n)
		bools := make([]bool, n)
		for i := 0; i < n; i++ {
			ints[i] = int32(i*7 - 3)
			floats[i] = float64(i) / 3
			bools[i] = i%2 == 0
		}

		arrays := []*Array{
			mustNew(t, ints, shape),
			mustNew(t, floats, shape),
			mustNew(t, bools, shape),
		}
		for _, a := range arrays {
			b, err := Marshal(a)
			if err != nil {
				t.Fatalf("Marshal %s failed: %v", a, err)
			}
			got, err := Unmarshal(b)
			if err != nil {
				t.Fatalf("Unmarshal %s failed: %v", a, err)
			}
			if !got.Equal(a) {
				t.Errorf("Round trip mismatch: got %s %x, want %s %x", got, got.Data, a, a.Data)
			}
		}
	}
}

func mustNew[T Element](t *testing.T, data []T, shape []int) *Array {
	t.Helper()
	if len(shape) == 0 {
		return Scalar(data[0])
	}
	a, err := New(data, shape...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

func TestRoundTripBigEndianFortran(t *testing.T) {
	a := &Array{
		DType:        DType{Order: '>', Kind: 'f', ItemSize: 8},
		Shape:        []int{2, 2},
		FortranOrder: true,
		Data: []byte{
			0x3f, 0xf0, 0, 0, 0, 0, 0, 0, // 1.0
			0x40, 0, 0, 0, 0, 0, 0, 0, // 2.0
			0x40, 0x08, 0, 0, 0, 0, 0, 0, // 3.0
			0x40, 0x10, 0, 0, 0, 0, 0, 0, // 4.0
		},
	}
	b, err := Marshal(a)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(b), "'descr': '>f8', 'fortran_order': True, 'shape': (2, 2), }") {
		t.Errorf("Unexpected header: %q", b[:128])
	}
	got, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !got.Equal(a) {
		t.Fatalf("Round trip mismatch: %s", got)
	}
	vals, err := Values[float64](got)
	if err != nil {
		t.Fatalf("Values failed: %v", err)
	}
	for i, want := range []float64{1, 2, 3, 4} {
		if vals[i] != want {
			t.Errorf("Expected element %d to be %v, got %v", i, want, vals[i])
		}
	}
}

func TestUnmarshalLenientHeader(t *testing.T) {
	text := `{"shape": (2L,), "fortran_order": False, "descr": "|u1"}`
	hlen := len(text) + 1
	b := []byte(magic)
	b = append(b, 1, 0, byte(hlen), byte(hlen>>8))
	b = append(b, text...)
	b = append(b, '\n', 7, 9)

	a, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	vals, err := Values[uint8](a)
	if err != nil {
		t.Fatalf("Values failed: %v", err)
	}
	if len(vals) != 2 || vals[0] != 7 || vals[1] != 9 {
		t.Errorf("Expected [7 9], got %v", vals)
	}
}

func TestUnmarshalVersion2(t *testing.T) {
	text := "{'descr': '<i2', 'fortran_order': False, 'shape': (1,), }\n"
	b := []byte(magic)
	b = append(b, 2, 0, byte(len(text)), 0, 0, 0)
	b = append(b, text...)
	b = append(b, 0x34, 0x12)

	a, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	vals, err := Values[int16](a)
	if err != nil {
		t.Fatalf("Values failed: %v", err)
	}
	if vals[0] != 0x1234 {
		t.Errorf("Expected 0x1234, got %#x", vals[0])
	}
}

func TestUnmarshalErrors(t *testing.T) {
	valid := mustHex(t, arange3Int32Hex)

	tests := []struct {
		name string
		blob []byte
		want error
	}{
		{"empty", nil, ErrFormat},
		{"bad magic", append([]byte("\x93NUMPX"), valid[6:]...), ErrFormat},
		{"bad version", append(append([]byte(magic), 9, 0), valid[8:]...), ErrFormat},
		{"truncated header", valid[:40], ErrFormat},
		{"truncated data", valid[:len(valid)-1], ErrFormat},
		{"object dtype", replaceDescr(valid, "<i4", "|O8"), ErrUnsupportedDType},
		{"unknown dtype", replaceDescr(valid, "<i4", "<x4"), ErrUnsupportedDType},
		{"bad item size", replaceDescr(valid, "<i4", "<i3"), ErrUnsupportedDType},
		{"structured", structuredBlob(), ErrUnsupportedDType},
		{"garbage header", replaceDescr(valid, "'descr'", "?descr'"), ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.blob)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func replaceDescr(b []byte, old, new string) []byte {
	return bytes.Replace(bytes.Clone(b), []byte(old), []byte(new), 1)
}

func structuredBlob() []byte {
	text := "{'descr': [('x', '<f4')], 'fortran_order': False, 'shape': (0,), }\n"
	b := []byte(magic)
	b = append(b, 1, 0, byte(len(text)), 0)
	return append(b, text...)
}

func TestNewShapeMismatch(t *testing.T) {
	if _, err := New([]float64{1, 2, 3}, 2, 2); err == nil {
		t.Error("Expected error for 3 values in shape (2, 2)")
	}
	if _, err := New([]float64{}, -1); err == nil {
		t.Error("Expected error for negative dimension")
	}
}

func TestValuesWrongType(t *testing.T) {
	a, _ := New([]float32{1, 2})
	if _, err := Values[float64](a); err == nil {
		t.Error("Expected error reading <f4 as float64")
	}
}

func TestMarshalInvalidArray(t *testing.T) {
	a := &Array{DType: Float64, Shape: []int{2}, Data: make([]byte, 8)}
	if _, err := Marshal(a); err == nil {
		t.Error("Expected error for data shorter than shape")
	}
}

func TestParseDType(t *testing.T) {
	tests := []struct {
		descr string
		want  DType
	}{
		{"<f8", Float64},
		{"|b1", Bool},
		{">i2", DType{Order: '>', Kind: 'i', ItemSize: 2}},
		{"<c16", Complex128},
		{"|S10", DType{Order: '|', Kind: 'S', ItemSize: 10}},
		{"<U5", DType{Order: '<', Kind: 'U', ItemSize: 20}},
	}
	for _, tt := range tests {
		got, err := ParseDType(tt.descr)
		if err != nil {
			t.Errorf("ParseDType(%q) failed: %v", tt.descr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDType(%q) = %+v, want %+v", tt.descr, got, tt.want)
		}
		if got.String() != tt.descr {
			t.Errorf("String() = %q, want %q", got.String(), tt.descr)
		}
	}
}

func TestScan(t *testing.T) {
	orig, _ := New([]int64{5, 6}, 1, 2)
	blob, _ := Marshal(orig)

	var a Array
	if err := a.Scan(blob); err != nil {
		t.Fatalf("Scan blob failed: %v", err)
	}
	if !a.Equal(orig) {
		t.Errorf("Scan blob mismatch: %s", &a)
	}

	var b Array
	if err := b.Scan(orig); err != nil {
		t.Fatalf("Scan *Array failed: %v", err)
	}
	if !b.Equal(orig) {
		t.Errorf("Scan *Array mismatch: %s", &b)
	}
	b.Data[0] = 0xff
	if orig.Data[0] == 0xff {
		t.Error("Scan *Array aliased the source data")
	}

	if err := b.Scan(nil); err == nil {
		t.Error("Expected error scanning NULL")
	}
	if err := b.Scan("text"); err == nil {
		t.Error("Expected error scanning string")
	}
}

func TestComplexValues(t *testing.T) {
	a, err := New([]complex128{1 + 2i, -3.5i})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	b, _ := Marshal(a)
	got, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	vals, err := Values[complex128](got)
	if err != nil {
		t.Fatalf("Values failed: %v", err)
	}
	if vals[0] != 1+2i || vals[1] != -3.5i {
		t.Errorf("Unexpected values %v", vals)
	}
}
