package npy

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

const (
	magic = "\x93NUMPY"

	arrayAlign = 64

	// Headers reserve room for the growth axis to reach this many digits, so
	// that appending writers can rewrite the shape in place.
	growthAxisMaxDigits = 21
)

type header struct {
	Descr        string
	FortranOrder bool
	Shape        []int
}

// dict renders the header the way numpy.lib.format does: keys sorted, each
// followed by ", ".
func (h header) dict() string {
	var sb strings.Builder
	sb.WriteString("{'descr': ")
	sb.WriteString(pyQuote(h.Descr))
	sb.WriteString(", 'fortran_order': ")
	if h.FortranOrder {
		sb.WriteString("True")
	} else {
		sb.WriteString("False")
	}
	sb.WriteString(", 'shape': ")
	sb.WriteString(shapeRepr(h.Shape))
	sb.WriteString(", }")

	if len(h.Shape) > 0 {
		axis := h.Shape[0]
		if h.FortranOrder {
			axis = h.Shape[len(h.Shape)-1]
		}
		if pad := growthAxisMaxDigits - len(strconv.Itoa(axis)); pad > 0 {
			sb.WriteString(strings.Repeat(" ", pad))
		}
	}
	return sb.String()
}

// encode returns the full preamble: magic, version, header length and the
// padded header text. Version 1.0 is used unless the header does not fit in
// its 16-bit length field.
func (h header) encode() []byte {
	text := h.dict()
	hlen := len(text) + 1

	major, lenSize := byte(1), 2
	total := paddedLen(len(magic)+2+lenSize, hlen)
	if total > 0xffff {
		major, lenSize = 2, 4
		total = paddedLen(len(magic)+2+lenSize, hlen)
	}

	out := make([]byte, 0, len(magic)+2+lenSize+total)
	out = append(out, magic...)
	out = append(out, major, 0)
	if lenSize == 2 {
		out = binary.LittleEndian.AppendUint16(out, uint16(total))
	} else {
		out = binary.LittleEndian.AppendUint32(out, uint32(total))
	}
	out = append(out, text...)
	out = append(out, strings.Repeat(" ", total-hlen)...)
	return append(out, '\n')
}

// paddedLen returns the header length after padding, so that the data
// starts on an arrayAlign boundary. Padding is never empty.
func paddedLen(prefix, hlen int) int {
	pad := arrayAlign - (prefix+hlen)%arrayAlign
	return hlen + pad
}

func pyQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func parseHeader(text string) (header, error) {
	p := &literalParser{s: text}
	dict, err := p.parseDict()
	if err != nil {
		return header{}, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return header{}, fmt.Errorf("%w: trailing data after header dict", ErrFormat)
	}

	if len(dict) != 3 {
		return header{}, fmt.Errorf("%w: header has keys %v, want descr, fortran_order and shape", ErrFormat, keys(dict))
	}
	var h header
	descr, ok := dict["descr"].(string)
	if !ok {
		return header{}, fmt.Errorf("%w: descr is %T, want str", ErrFormat, dict["descr"])
	}
	h.Descr = descr
	fo, ok := dict["fortran_order"].(bool)
	if !ok {
		return header{}, fmt.Errorf("%w: fortran_order is %T, want bool", ErrFormat, dict["fortran_order"])
	}
	h.FortranOrder = fo
	shape, ok := dict["shape"].([]any)
	if !ok {
		return header{}, fmt.Errorf("%w: shape is %T, want tuple", ErrFormat, dict["shape"])
	}
	h.Shape = make([]int, len(shape))
	for i, d := range shape {
		n, ok := d.(int)
		if !ok || n < 0 {
			return header{}, fmt.Errorf("%w: bad shape dimension %v", ErrFormat, d)
		}
		h.Shape[i] = n
	}
	return h, nil
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// literalParser understands the subset of Python literal syntax that appears
// in .npy headers: dicts, tuples, strings, integers, True, False and None.
type literalParser struct {
	s   string
	pos int
}

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: header offset %d: %s", ErrFormat, p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *literalParser) expect(c byte) error {
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *literalParser) parseDict() (map[string]any, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	out := map[string]any{}
	for {
		if p.peek() == '}' {
			p.pos++
			return out, nil
		}
		key, err := p.parseString()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if _, dup := out[key]; dup {
			return nil, p.errorf("duplicate key %q", key)
		}
		out[key] = val

		switch p.peek() {
		case ',':
			p.pos++
		case '}':
		default:
			return nil, p.errorf("expected ',' or '}'")
		}
	}
}

func (p *literalParser) parseValue() (any, error) {
	switch c := p.peek(); {
	case c == '\'' || c == '"':
		return p.parseString()
	case c == '(':
		return p.parseTuple()
	case c == '[':
		return nil, fmt.Errorf("%w: structured arrays", ErrUnsupportedDType)
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseInt()
	case c == 0:
		return nil, p.errorf("unexpected end of header")
	}
	for _, w := range []struct {
		word string
		val  any
	}{{"True", true}, {"False", false}, {"None", nil}} {
		if strings.HasPrefix(p.s[p.pos:], w.word) {
			p.pos += len(w.word)
			return w.val, nil
		}
	}
	return nil, p.errorf("unexpected character %q", p.s[p.pos])
}

func (p *literalParser) parseString() (string, error) {
	q := p.peek()
	if q != '\'' && q != '"' {
		return "", p.errorf("expected string")
	}
	p.pos++
	var sb strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		p.pos++
		switch c {
		case q:
			return sb.String(), nil
		case '\\':
			if p.pos >= len(p.s) {
				return "", p.errorf("unterminated escape")
			}
			sb.WriteByte(p.s[p.pos])
			p.pos++
		default:
			sb.WriteByte(c)
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *literalParser) parseTuple() ([]any, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	out := []any{}
	for {
		if p.peek() == ')' {
			p.pos++
			return out, nil
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
		default:
			return nil, p.errorf("expected ',' or ')'")
		}
	}
}

func (p *literalParser) parseInt() (int, error) {
	p.skipSpace()
	start := p.pos
	if p.pos < len(p.s) && p.s[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	n, err := strconv.Atoi(p.s[start:p.pos])
	if err != nil {
		return 0, p.errorf("bad integer %q", p.s[start:p.pos])
	}
	// Python 2 long suffix.
	if p.pos < len(p.s) && p.s[p.pos] == 'L' {
		p.pos++
	}
	return n, nil
}
