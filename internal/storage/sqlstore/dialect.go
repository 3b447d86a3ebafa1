package sqlstore

import (
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures the few places where Postgres and SQLite disagree.
// Queries are written with "?" placeholders and rebound per dialect.
type Dialect struct {
	Name       string
	Driver     string
	numbered   bool
	lockSuffix string
	uniqueErr  func(error) bool
	// textDecimals marks a backend without an exact numeric type; decimal
	// arithmetic and aggregation then happen in Go.
	textDecimals bool
}

var Postgres = Dialect{
	Name:       "postgres",
	Driver:     "postgres",
	numbered:   true,
	lockSuffix: " FOR UPDATE",
	uniqueErr: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == "23505"
	},
}

// SQLite serializes writers on its single connection, so row locks are not
// needed and a read-modify-write inside a transaction cannot interleave.
var SQLite = Dialect{
	Name:         "sqlite",
	Driver:       "sqlite",
	textDecimals: true,
	uniqueErr: func(err error) bool {
		var sqliteErr *sqlite.Error
		if !errors.As(err, &sqliteErr) {
			return false
		}
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
	},
}

func DialectByName(name string) (Dialect, error) {
	switch name {
	case Postgres.Name:
		return Postgres, nil
	case SQLite.Name:
		return SQLite, nil
	default:
		return Dialect{}, errors.New("unknown sql dialect: " + name)
	}
}

func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) forUpdate(query string) string {
	return query + d.lockSuffix
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
