package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tomyedwab/sqlite3helpers/database/sqlite"
)

// DetectTypes selects how result columns are matched to converters.
type DetectTypes = sqlite.DetectTypes

const (
	ParseDeclTypes = sqlite.ParseDeclTypes
	ParseColNames  = sqlite.ParseColNames
)

// Connect opens the SQLite database at path. Unless disabled with
// WithRegisterArrayType(false), the array type is registered first. Declared
// type decoding is enabled unless WithDetectTypes says otherwise, so array
// columns come back as *npy.Array.
//
// The returned handle is open and pinged; closing it is up to the caller.
func Connect(path string, opts ...Option) (*sqlx.DB, error) {
	cfg := config{registerArrayType: true, detectTypes: ParseDeclTypes}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.err != nil {
		return nil, cfg.err
	}

	if cfg.registerArrayType {
		RegisterArrayType()
	}

	dsn := buildDSN(path, cfg.params)
	db := sqlx.NewDb(sql.OpenDB(&sqlite.Connector{DSN: dsn, DetectTypes: cfg.detectTypes}), "sqlite3")
	if isMemory(dsn) {
		// Every pooled connection to a private in-memory database would see
		// a different database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	logf("[DEBUG] opened database %s, detect types %s", dsn, cfg.detectTypes)
	return db, nil
}

// MemoryDSN returns the path of a new, uniquely named in-memory database that
// every connection opened with it shares.
func MemoryDSN() string {
	return "file:" + uuid.NewString() + "?mode=memory&cache=shared"
}

// isMemory reports whether dsn names an in-memory database, either through
// the :memory: filename or a mode=memory URI parameter.
func isMemory(dsn string) bool {
	name, query, _ := strings.Cut(dsn, "?")
	name = strings.TrimPrefix(name, "file:")
	if name == "" || name == ":memory:" {
		return true
	}
	params, err := url.ParseQuery(query)
	if err != nil {
		return false
	}
	return params.Get("mode") == "memory"
}

// buildDSN appends go-sqlite3 parameters to path, keeping any query string
// already present.
func buildDSN(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params.Encode()
}

type config struct {
	registerArrayType bool
	detectTypes       DetectTypes
	params            url.Values
	err               error
}

func (c *config) setParam(key, value string) {
	if c.params == nil {
		c.params = url.Values{}
	}
	c.params.Set(key, value)
}

// Option configures Connect.
type Option func(*config)

// WithRegisterArrayType controls whether Connect calls RegisterArrayType.
// The default is true.
func WithRegisterArrayType(register bool) Option {
	return func(c *config) {
		c.registerArrayType = register
	}
}

// WithDetectTypes overrides the default ParseDeclTypes. Passing 0 disables
// converters, so array columns are returned as raw bytes.
func WithDetectTypes(d DetectTypes) Option {
	return func(c *config) {
		c.detectTypes = d
	}
}

// WithTimeout sets how long a connection waits on a locked database before
// failing.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.setParam("_busy_timeout", strconv.FormatInt(d.Milliseconds(), 10))
	}
}

// WithIsolationLevel sets the locking mode of transactions: DEFERRED,
// IMMEDIATE or EXCLUSIVE.
func WithIsolationLevel(level string) Option {
	return func(c *config) {
		switch l := strings.ToLower(level); l {
		case "deferred", "immediate", "exclusive":
			c.setParam("_txlock", l)
		default:
			c.err = fmt.Errorf("%w: isolation level %q", ErrInvalidValue, level)
		}
	}
}

// WithParam passes an arbitrary go-sqlite3 DSN parameter, such as
// _foreign_keys=1 or mode=ro.
func WithParam(key, value string) Option {
	return func(c *config) {
		c.setParam(key, value)
	}
}
