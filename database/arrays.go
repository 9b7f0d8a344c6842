package database

import (
	"database/sql/driver"
	"fmt"
	"reflect"

	"github.com/tomyedwab/sqlite3helpers/database/adapters"
	"github.com/tomyedwab/sqlite3helpers/npy"
)

// ArrayTypeName is the declared column type that holds arrays.
const ArrayTypeName = "array"

// AdaptArray encodes a for storage in a blob column.
func AdaptArray(a *npy.Array) ([]byte, error) {
	return npy.Marshal(a)
}

// ConvertArray decodes a blob written by AdaptArray.
func ConvertArray(b []byte) (*npy.Array, error) {
	return npy.Unmarshal(b)
}

// RegisterArrayType installs the array adapter for *npy.Array and npy.Array
// values and the array converter for columns declared as "array". The hooks
// live in the process-wide registry and apply to every connection; calling
// this again replaces them with identical ones.
func RegisterArrayType() {
	registerArrayType(adapters.Default())
}

func registerArrayType(r *adapters.Registry) {
	r.RegisterAdapter(reflect.TypeOf((*npy.Array)(nil)), adaptArrayValue)
	r.RegisterAdapter(reflect.TypeOf(npy.Array{}), adaptArrayValue)
	r.RegisterConverter(ArrayTypeName, func(b []byte) (any, error) {
		return ConvertArray(b)
	})
	logf("[DEBUG] registered %s adapter and converter", ArrayTypeName)
}

func adaptArrayValue(v any) (driver.Value, error) {
	switch a := v.(type) {
	case *npy.Array:
		if a == nil {
			return nil, nil
		}
		return AdaptArray(a)
	case npy.Array:
		return AdaptArray(&a)
	}
	return nil, fmt.Errorf("cannot adapt %T as %s", v, ArrayTypeName)
}
