// Package database provides convenience helpers on top of SQLite: table name
// validation, table existence checks, storage of NumPy-format arrays in blob
// columns, and a Connect wrapper that wires the array adapter and converter
// into every connection it opens.
//
// Arrays are bound as query parameters directly and come back as *npy.Array
// from columns declared with the type "array":
//
//	db, err := database.Connect("data.db")
//	...
//	db.Exec("CREATE TABLE samples (id INTEGER PRIMARY KEY, data array)")
//	db.Exec("INSERT INTO samples (data) VALUES (?)", arr)
//	var got *npy.Array
//	db.QueryRow("SELECT data FROM samples").Scan(&got)
package database
