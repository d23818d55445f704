package store

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrDuplicateEntity is returned when a name collides with an existing row.
	ErrDuplicateEntity = errors.New("duplicate entity")
	// ErrEntityInUse is returned when a delete would orphan referencing rows.
	ErrEntityInUse = errors.New("entity in use")
	// ErrAccountNotFound is returned when a referenced account id does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrCategoryNotFound is returned when a referenced category id does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrTransactionNotFound is returned when a transaction id does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")
)

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
