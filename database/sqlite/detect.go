package sqlite

import (
	"fmt"
	"strconv"
	"strings"
)

// DetectTypes selects how converters are looked up for result columns.
type DetectTypes int

const (
	// ParseDeclTypes looks up converters by declared column type.
	ParseDeclTypes DetectTypes = 1 << iota
	// ParseColNames looks up converters by a "[label]" suffix in the column name.
	ParseColNames
)

// ParseDetectTypes parses the _detect_types DSN value.
func ParseDetectTypes(s string) (DetectTypes, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || DetectTypes(n)&^(ParseDeclTypes|ParseColNames) != 0 {
			return 0, fmt.Errorf("sqlite: invalid detect types %d", n)
		}
		return DetectTypes(n), nil
	}

	var d DetectTypes
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "decltypes":
			d |= ParseDeclTypes
		case "colnames":
			d |= ParseColNames
		case "none", "":
		default:
			return 0, fmt.Errorf("sqlite: unknown detect types value %q", part)
		}
	}
	return d, nil
}

func (d DetectTypes) String() string {
	var parts []string
	if d&ParseDeclTypes != 0 {
		parts = append(parts, "decltypes")
	}
	if d&ParseColNames != 0 {
		parts = append(parts, "colnames")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
