//go:build cgo_sqlite

package sqlitedriver

import _ "github.com/mattn/go-sqlite3"

const (
	driverName    = "sqlite3"
	driverType    = "cgo"
	driverPackage = "github.com/mattn/go-sqlite3"

	busyTimeoutParam = "_busy_timeout=5000"
)
