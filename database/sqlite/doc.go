// Package sqlite implements a database/sql driver that wraps go-sqlite3 and
// applies the hooks held in an adapters.Registry.
//
// Importing the package registers the driver under the name "sqlite3helpers".
// The DSN is passed to go-sqlite3 unchanged except for one extra parameter,
// _detect_types, which controls converter lookup on fetch:
//
//	db, err := sql.Open("sqlite3helpers", "file:data.db?_detect_types=decltypes")
//
// Accepted values are "decltypes", "colnames", both joined with "|" or ",",
// "none", or the integer form of DetectTypes.
//
// With ParseDeclTypes, the first word of a column's declared type selects a
// converter, so a column declared "data array" is decoded by the converter
// registered for "array". With ParseColNames, a result column named
// "data [array]" selects the converter from the bracketed label and is
// reported as "data". Column names take precedence over declared types.
//
// Parameters are checked against the registry's adapters regardless of the
// detect flags.
//
// A Connector can be used instead of the registered name to pick a registry
// other than adapters.Default().
package sqlite
