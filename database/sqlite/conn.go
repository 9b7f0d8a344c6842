package sqlite

import (
	"context"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/tomyedwab/sqlite3helpers/database/adapters"
)

// --- Connection ---

type conn struct {
	inner    driver.Conn
	detect   DetectTypes
	registry *adapters.Registry
}

var (
	_ driver.Conn               = (*conn)(nil)
	_ driver.ConnBeginTx        = (*conn)(nil)
	_ driver.ConnPrepareContext = (*conn)(nil)
	_ driver.ExecerContext      = (*conn)(nil)
	_ driver.QueryerContext     = (*conn)(nil)
	_ driver.Pinger             = (*conn)(nil)
	_ driver.NamedValueChecker  = (*conn)(nil)
)

func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var (
		st  driver.Stmt
		err error
	)
	if pc, ok := c.inner.(driver.ConnPrepareContext); ok {
		st, err = pc.PrepareContext(ctx, query)
	} else {
		st, err = c.inner.Prepare(query)
	}
	if err != nil {
		return nil, err
	}
	return &stmt{inner: st, conn: c}, nil
}

func (c *conn) Close() error {
	return c.inner.Close()
}

func (c *conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if bt, ok := c.inner.(driver.ConnBeginTx); ok {
		return bt.BeginTx(ctx, opts)
	}
	return c.inner.Begin() //nolint:staticcheck // fallback for drivers without BeginTx
}

func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	ec, ok := c.inner.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	return ec.ExecContext(ctx, query, args)
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	qc, ok := c.inner.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	r, err := qc.QueryContext(ctx, query, args)
	if err != nil {
		return nil, err
	}
	return c.wrapRows(r), nil
}

func (c *conn) Ping(ctx context.Context) error {
	if p, ok := c.inner.(driver.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// CheckNamedValue binds values through a registered adapter. Values without
// one fall through to the default conversion.
func (c *conn) CheckNamedValue(nv *driver.NamedValue) error {
	v, ok, err := c.registry.Adapt(nv.Value)
	if err != nil {
		return err
	}
	if !ok {
		return driver.ErrSkip
	}
	nv.Value, err = driver.DefaultParameterConverter.ConvertValue(v)
	return err
}

// --- Statement ---

type stmt struct {
	inner driver.Stmt
	conn  *conn
}

func (s *stmt) Close() error {
	return s.inner.Close()
}

func (s *stmt) NumInput() int {
	return s.inner.NumInput()
}

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.inner.Exec(args) //nolint:staticcheck // required by driver.Stmt
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	r, err := s.inner.Query(args) //nolint:staticcheck // required by driver.Stmt
	if err != nil {
		return nil, err
	}
	return s.conn.wrapRows(r), nil
}

func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	if sc, ok := s.inner.(driver.StmtExecContext); ok {
		return sc.ExecContext(ctx, args)
	}
	return s.Exec(namedValues(args))
}

func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	sc, ok := s.inner.(driver.StmtQueryContext)
	if !ok {
		return s.Query(namedValues(args))
	}
	r, err := sc.QueryContext(ctx, args)
	if err != nil {
		return nil, err
	}
	return s.conn.wrapRows(r), nil
}

func namedValues(args []driver.NamedValue) []driver.Value {
	values := make([]driver.Value, len(args))
	for i, arg := range args {
		values[i] = arg.Value
	}
	return values
}

// --- Rows ---

type rows struct {
	driver.Rows
	columns    []string
	converters []adapters.ConverterFunc
}

var (
	_ driver.RowsColumnTypeDatabaseTypeName = (*rows)(nil)
	_ driver.RowsColumnTypeScanType         = (*rows)(nil)
	_ driver.RowsColumnTypeNullable         = (*rows)(nil)
	_ driver.RowsColumnTypeLength           = (*rows)(nil)
	_ driver.RowsColumnTypePrecisionScale   = (*rows)(nil)
)

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// wrapRows resolves a converter for every column once, before the first row
// is read.
func (c *conn) wrapRows(inner driver.Rows) driver.Rows {
	if c.detect == 0 {
		return inner
	}

	names := inner.Columns()
	r := &rows{
		Rows:       inner,
		columns:    make([]string, len(names)),
		converters: make([]adapters.ConverterFunc, len(names)),
	}
	decl, _ := inner.(driver.RowsColumnTypeDatabaseTypeName)

	for i, name := range names {
		r.columns[i] = name
		if c.detect&ParseColNames != 0 {
			base, label, hasLabel := splitColumnName(name)
			r.columns[i] = base
			if hasLabel {
				if fn, ok := c.registry.Converter(label); ok {
					r.converters[i] = fn
					continue
				}
			}
		}
		if c.detect&ParseDeclTypes != 0 && decl != nil {
			if fn, ok := c.registry.Converter(declaredLabel(decl.ColumnTypeDatabaseTypeName(i))); ok {
				r.converters[i] = fn
			}
		}
	}
	return r
}

func (r *rows) Columns() []string {
	return r.columns
}

func (r *rows) ColumnTypeDatabaseTypeName(i int) string {
	if decl, ok := r.Rows.(driver.RowsColumnTypeDatabaseTypeName); ok {
		return decl.ColumnTypeDatabaseTypeName(i)
	}
	return ""
}

// ColumnTypeScanType reports the inner driver's scan type, except for
// converted columns whose Go type depends on the converter.
func (r *rows) ColumnTypeScanType(i int) reflect.Type {
	if r.converters[i] != nil {
		return anyType
	}
	if st, ok := r.Rows.(driver.RowsColumnTypeScanType); ok {
		return st.ColumnTypeScanType(i)
	}
	return anyType
}

func (r *rows) ColumnTypeNullable(i int) (nullable, ok bool) {
	if n, ok := r.Rows.(driver.RowsColumnTypeNullable); ok {
		return n.ColumnTypeNullable(i)
	}
	return false, false
}

func (r *rows) ColumnTypeLength(i int) (length int64, ok bool) {
	if l, ok := r.Rows.(driver.RowsColumnTypeLength); ok {
		return l.ColumnTypeLength(i)
	}
	return 0, false
}

func (r *rows) ColumnTypePrecisionScale(i int) (precision, scale int64, ok bool) {
	if ps, ok := r.Rows.(driver.RowsColumnTypePrecisionScale); ok {
		return ps.ColumnTypePrecisionScale(i)
	}
	return 0, 0, false
}

// Next reads the next row and runs the column converters. NULLs are left
// alone; converter errors are returned as is.
func (r *rows) Next(dest []driver.Value) error {
	if err := r.Rows.Next(dest); err != nil {
		return err
	}
	for i, fn := range r.converters {
		if fn == nil || dest[i] == nil {
			continue
		}
		v, err := fn(valueBytes(dest[i]))
		if err != nil {
			return err
		}
		dest[i] = v
	}
	return nil
}

// splitColumnName splits "name [label]" into "name" and "label". The name is
// cut at the first '[' whether or not a closing ']' follows.
func splitColumnName(name string) (base, label string, ok bool) {
	open := strings.IndexByte(name, '[')
	if open < 0 {
		return name, "", false
	}
	base = name[:open]
	if open > 0 && name[open-1] == ' ' {
		base = name[:open-1]
	}
	end := strings.IndexByte(name[open+1:], ']')
	if end < 0 {
		return base, "", false
	}
	return base, name[open+1 : open+1+end], true
}

// declaredLabel returns the first word of a declared type, so "ARRAY(3)" and
// "array not null" both yield the array label.
func declaredLabel(decl string) string {
	if i := strings.IndexAny(decl, " ("); i >= 0 {
		return decl[:i]
	}
	return decl
}

// valueBytes gives converters the stored bytes, or the textual form of
// values SQLite returned as numbers.
func valueBytes(v driver.Value) []byte {
	switch x := v.(type) {
	case []byte:
		return x
	case string:
		return []byte(x)
	case int64:
		return strconv.AppendInt(nil, x, 10)
	case float64:
		return strconv.AppendFloat(nil, x, 'g', -1, 64)
	case bool:
		return strconv.AppendBool(nil, x)
	default:
		return []byte(fmt.Sprint(x))
	}
}
