package dbutil

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var mysqlLimitRe = regexp.MustCompile(`(?i)LIMIT\s+\?\s*,\s*\?`)

// Finalize rewrites gendry's MySQL-flavored output for postgres. The
// `LIMIT off, n` form becomes `LIMIT ? OFFSET ?` with both args swapped to
// match, then every ? placeholder is rebound to $N.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	if loc := mysqlLimitRe.FindStringIndex(query); loc != nil {
		priorPlaceholders := strings.Count(query[:loc[0]], "?")
		if priorPlaceholders+1 < len(args) {
			args[priorPlaceholders], args[priorPlaceholders+1] = args[priorPlaceholders+1], args[priorPlaceholders]
			query = mysqlLimitRe.ReplaceAllString(query, "LIMIT ? OFFSET ?")
		}
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}

// IsConflict reports whether err is a postgres unique-constraint violation.
func IsConflict(err error) bool {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
