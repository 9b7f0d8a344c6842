package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/url"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/tomyedwab/sqlite3helpers/database/adapters"
)

// DriverName is the name the driver is registered under.
const DriverName = "sqlite3helpers"

const detectTypesParam = "_detect_types"

func init() {
	sql.Register(DriverName, &Driver{})
}

// Driver opens go-sqlite3 connections that use adapters.Default().
type Driver struct{}

// Open returns a new connection to the database named by dsn.
func (d *Driver) Open(dsn string) (driver.Conn, error) {
	c, err := d.OpenConnector(dsn)
	if err != nil {
		return nil, err
	}
	return c.Connect(context.Background())
}

// OpenConnector parses dsn once so that database/sql can reuse the result for
// every pooled connection.
func (d *Driver) OpenConnector(dsn string) (driver.Connector, error) {
	base, detect, err := splitDSN(dsn)
	if err != nil {
		return nil, err
	}
	return &Connector{DSN: base, DetectTypes: detect}, nil
}

// Connector opens connections with a fixed DSN, detect mode and registry.
type Connector struct {
	// DSN is handed to go-sqlite3 as is.
	DSN         string
	DetectTypes DetectTypes
	// Registry defaults to adapters.Default().
	Registry *adapters.Registry
}

// Connect opens one go-sqlite3 connection and wraps it.
func (c *Connector) Connect(_ context.Context) (driver.Conn, error) {
	inner, err := (&sqlite3.SQLiteDriver{}).Open(c.DSN)
	if err != nil {
		return nil, err
	}
	return &conn{inner: inner, detect: c.DetectTypes, registry: c.registry()}, nil
}

// Driver returns the underlying driver.
func (c *Connector) Driver() driver.Driver {
	return &Driver{}
}

func (c *Connector) registry() *adapters.Registry {
	if c.Registry != nil {
		return c.Registry
	}
	return adapters.Default()
}

// splitDSN removes the _detect_types parameter from dsn and parses it.
func splitDSN(dsn string) (string, DetectTypes, error) {
	pos := strings.IndexRune(dsn, '?')
	if pos < 0 {
		return dsn, 0, nil
	}
	params, err := url.ParseQuery(dsn[pos+1:])
	if err != nil {
		return "", 0, fmt.Errorf("sqlite: parsing DSN parameters: %w", err)
	}
	if _, ok := params[detectTypesParam]; !ok {
		return dsn, 0, nil
	}
	detect, err := ParseDetectTypes(params.Get(detectTypesParam))
	if err != nil {
		return "", 0, err
	}
	params.Del(detectTypesParam)

	base := dsn[:pos]
	if len(params) > 0 {
		base += "?" + params.Encode()
	}
	return base, detect, nil
}
