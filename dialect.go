package composite

import (
	"strconv"
	"strings"
)

// Dialect describes how a database driver expects SQL to be written.
type Dialect struct {
	Name                      string
	DriverName                string
	IncludeIndexInPlaceholder bool
	PlaceholderChar           string
}

var Dialects = &struct {
	MySQL      *Dialect
	PostgreSQL *Dialect
	SQLite3    *Dialect
}{
	MySQL: &Dialect{
		Name:            "mysql",
		DriverName:      "mysql",
		PlaceholderChar: "?",
	},

	PostgreSQL: &Dialect{
		Name:                      "postgres",
		DriverName:                "pgx",
		PlaceholderChar:           "$",
		IncludeIndexInPlaceholder: true,
	},

	SQLite3: &Dialect{
		Name:            "sqlite3",
		DriverName:      "sqlite3",
		PlaceholderChar: "?",
	},
}

// DialectFor returns the dialect registered under name ("postgres",
// "postgresql", "pgx", "mysql", "sqlite3", "sqlite"), or nil.
func DialectFor(name string) *Dialect {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return Dialects.PostgreSQL
	case "mysql":
		return Dialects.MySQL
	case "sqlite3", "sqlite":
		return Dialects.SQLite3
	}
	return nil
}

// Rebind rewrites the "?" placeholders of query into the dialect's form.
// Question marks inside single-quoted literals are left alone.
func (d *Dialect) Rebind(query string) string {
	if d == nil || !d.IncludeIndexInPlaceholder {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)

	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			sb.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			sb.WriteString(d.PlaceholderChar)
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteByte(c)
		}
	}

	return sb.String()
}
