// Package adapters holds the process-wide hooks that translate between Go
// values and SQLite storage.
//
// An adapter turns a Go value of a given type into a driver.Value when it is
// bound as a query parameter. A converter turns stored bytes back into a Go
// value when a column's declared type (or a "name [type]" column alias)
// carries a registered label. Labels are case-insensitive.
//
// The Default registry lives for the whole process and has no teardown;
// registering a hook twice overwrites the earlier one.
package adapters

import (
	"database/sql/driver"
	"reflect"
	"strings"
	"sync"
)

// AdapterFunc converts a bound parameter to a storable value.
type AdapterFunc func(v any) (driver.Value, error)

// ConverterFunc converts stored bytes back into a Go value.
type ConverterFunc func(b []byte) (any, error)

// Registry maps Go types to adapters and type labels to converters.
type Registry struct {
	mu         sync.RWMutex
	adapters   map[reflect.Type]AdapterFunc
	converters map[string]ConverterFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters:   make(map[reflect.Type]AdapterFunc),
		converters: make(map[string]ConverterFunc),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// RegisterAdapter installs fn for values whose dynamic type is exactly typ.
func (r *Registry) RegisterAdapter(typ reflect.Type, fn AdapterFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[typ] = fn
}

// RegisterConverter installs fn for the type label name.
func (r *Registry) RegisterConverter(name string, fn ConverterFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[strings.ToUpper(name)] = fn
}

// Adapt runs the adapter registered for v's type. The boolean is false when
// no adapter applies, in which case v should be bound as is.
func (r *Registry) Adapt(v any) (driver.Value, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	r.mu.RLock()
	fn, ok := r.adapters[reflect.TypeOf(v)]
	r.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	out, err := fn(v)
	return out, true, err
}

// Converter returns the converter registered for the type label name.
func (r *Registry) Converter(name string) (ConverterFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.converters[strings.ToUpper(name)]
	return fn, ok
}

// RegisterAdapter installs fn on the Default registry.
func RegisterAdapter(typ reflect.Type, fn AdapterFunc) {
	defaultRegistry.RegisterAdapter(typ, fn)
}

// RegisterConverter installs fn on the Default registry.
func RegisterConverter(name string, fn ConverterFunc) {
	defaultRegistry.RegisterConverter(name, fn)
}
