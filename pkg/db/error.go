package db

import (
	"errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
)

const mysqlErrDupKeyName = 1061

// IsDuplicateIndexErr reports whether a CREATE INDEX failed because the index
// already exists.
func IsDuplicateIndexErr(err error) bool {
	if err == nil {
		return false
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrDupKeyName
	}

	// MySQL (error code 1061) surfaced as text
	if strings.Contains(err.Error(), "Error 1061") {
		return true
	}

	// SQLite
	if strings.Contains(err.Error(), "already exists") && strings.Contains(strings.ToLower(err.Error()), "index") {
		return true
	}

	return false
}
