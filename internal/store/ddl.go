package store

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema_postgres.sql
var postgresDDL string

//go:embed schema_sqlite.sql
var sqliteDDL string

// DDLStatements returns the CREATE TABLE / INDEX statements for driver,
// split on semicolons with blank statements and comment-only chunks removed.
func DDLStatements(driver string) ([]string, error) {
	var file string
	switch driver {
	case "postgres":
		file = postgresDDL
	case "sqlite":
		file = sqliteDDL
	default:
		return nil, fmt.Errorf("no schema for driver %q", driver)
	}
	var out []string
	for _, p := range strings.Split(file, ";") {
		var lines []string
		for _, l := range strings.Split(p, "\n") {
			if strings.HasPrefix(strings.TrimSpace(l), "--") {
				continue
			}
			lines = append(lines, l)
		}
		stmt := strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out, nil
}
