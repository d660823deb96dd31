package storage

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed migrations
var migrationsFS embed.FS

// migrationStatements returns the driver's schema statements in file order.
func migrationStatements(driver string) ([]string, error) {
	dir := "migrations/" + driver
	files, err := fs.Glob(migrationsFS, dir+"/*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no migrations for driver %s", driver)
	}
	sort.Strings(files)

	var stmts []string
	for _, f := range files {
		data, err := migrationsFS.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for _, stmt := range strings.Split(string(data), ";") {
			if s := strings.TrimSpace(stmt); s != "" {
				stmts = append(stmts, s)
			}
		}
	}
	return stmts, nil
}
