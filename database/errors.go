package database

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidValue classifies errors caused by a bad argument value.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidTableName is matched by every *InvalidTableNameError.
	ErrInvalidTableName = fmt.Errorf("%w: invalid table name", ErrInvalidValue)
)

// InvalidTableNameError is returned by ScrubTableName for names outside the
// allowed character class.
type InvalidTableNameError struct {
	Name string
}

func (e *InvalidTableNameError) Error() string {
	return fmt.Sprintf("table_name (%q) contained invalid characters. "+
		"Make sure the table_name only contains alphanumeric values and/or underscores.", e.Name)
}

// Unwrap lets errors.Is match ErrInvalidTableName and ErrInvalidValue.
func (e *InvalidTableNameError) Unwrap() error {
	return ErrInvalidTableName
}
