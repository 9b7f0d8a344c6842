package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

const tableExistsSql = `
SELECT name FROM sqlite_master WHERE type='table' AND name=?;
`

// ScrubTableName returns name unchanged if it is non-empty and consists only
// of ASCII letters, digits and underscores, so that it can be spliced into SQL
// as an identifier.
func ScrubTableName(name string) (string, error) {
	if tableNamePattern.MatchString(name) {
		return name, nil
	}
	return "", &InvalidTableNameError{Name: name}
}

// TxBeginner is satisfied by *sqlx.DB.
type TxBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// TableExists reports whether a table called name exists.
func TableExists(db TxBeginner, name string) (bool, error) {
	return TableExistsContext(context.Background(), db, name)
}

// TableExistsContext reports whether a table called name exists, looking it
// up in sqlite_master inside a read-only transaction.
func TableExistsContext(ctx context.Context, db TxBeginner, name string) (bool, error) {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var found string
	err = tx.GetContext(ctx, &found, tableExistsSql, name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, tx.Commit()
	} else if err != nil {
		return false, fmt.Errorf("failed to look up table %s: %w", name, err)
	}

	return true, tx.Commit()
}
