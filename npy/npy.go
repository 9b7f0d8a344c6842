package npy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// Marshal encodes a in .npy format.
func Marshal(a *Array) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a .npy blob. Bytes following the array data are
// ignored, as numpy.load does.
func Unmarshal(b []byte) (*Array, error) {
	return Read(bytes.NewReader(b))
}

// Write writes a to w in .npy format.
func Write(w io.Writer, a *Array) error {
	if err := a.validate(); err != nil {
		return err
	}
	h := header{Descr: a.DType.String(), FortranOrder: a.FortranOrder, Shape: a.Shape}
	if _, err := w.Write(h.encode()); err != nil {
		return err
	}
	_, err := w.Write(a.Data)
	return err
}

// Read reads one array in .npy format from r.
func Read(r io.Reader) (*Array, error) {
	var prefix [8]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("%w: reading magic: %v", ErrFormat, err)
	}
	if string(prefix[:6]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrFormat, prefix[:6])
	}

	major, minor := prefix[6], prefix[7]
	var hlen int
	switch major {
	case 1:
		var n [2]byte
		if _, err := io.ReadFull(r, n[:]); err != nil {
			return nil, fmt.Errorf("%w: reading header length: %v", ErrFormat, err)
		}
		hlen = int(binary.LittleEndian.Uint16(n[:]))
	case 2, 3:
		var n [4]byte
		if _, err := io.ReadFull(r, n[:]); err != nil {
			return nil, fmt.Errorf("%w: reading header length: %v", ErrFormat, err)
		}
		hlen = int(binary.LittleEndian.Uint32(n[:]))
	default:
		return nil, fmt.Errorf("%w: unsupported version %d.%d", ErrFormat, major, minor)
	}

	var raw bytes.Buffer
	if n, err := io.CopyN(&raw, r, int64(hlen)); err != nil {
		return nil, fmt.Errorf("%w: header truncated at %d of %d bytes", ErrFormat, n, hlen)
	}
	text, err := headerText(raw.Bytes(), major)
	if err != nil {
		return nil, err
	}
	h, err := parseHeader(text)
	if err != nil {
		return nil, err
	}
	dt, err := ParseDType(h.Descr)
	if err != nil {
		return nil, err
	}
	count, err := elementCount(h.Shape)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	size := int64(count) * int64(dt.ItemSize)
	if count != 0 && size/int64(count) != int64(dt.ItemSize) {
		return nil, fmt.Errorf("%w: shape %s overflows", ErrFormat, shapeRepr(h.Shape))
	}

	// Grow with the input rather than trusting the header's claimed size.
	var data bytes.Buffer
	if n, err := io.CopyN(&data, r, size); err != nil {
		return nil, fmt.Errorf("%w: data truncated at %d of %d bytes", ErrFormat, n, size)
	}

	return &Array{
		DType:        dt,
		Shape:        h.Shape,
		FortranOrder: h.FortranOrder,
		Data:         data.Bytes(),
	}, nil
}

// headerText decodes the header bytes: latin-1 before version 3, UTF-8 after.
func headerText(b []byte, major byte) (string, error) {
	if major >= 3 {
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%w: header is not valid UTF-8", ErrFormat)
		}
		return string(b), nil
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes), nil
}
