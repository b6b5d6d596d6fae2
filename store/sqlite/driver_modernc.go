//go:build !cgo_sqlite

package sqlite

import (
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// dsn formats each pragma as _pragma=key(value), the modernc.org/sqlite
// query syntax.
func dsn(path string, pragmas [][2]string) string {
	s := path
	for i, p := range pragmas {
		sep := "&"
		if i == 0 {
			sep = "?"
		}
		s += sep + "_pragma=" + p[0] + "(" + p[1] + ")"
	}
	return s
}
