package dbutil

import (
	"github.com/jmoiron/sqlx"
)

// Rebind converts gendry/sqlx "?" placeholders to the $N form lib/pq expects.
func Rebind(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}

// In expands an IN clause and rebinds the result for Postgres.
func In(query string, args ...interface{}) (string, []interface{}, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return Rebind(q), a, nil
}
