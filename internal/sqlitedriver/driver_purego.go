//go:build !cgo_sqlite

package sqlitedriver

import _ "modernc.org/sqlite"

const (
	driverName    = "sqlite"
	driverType    = "purego"
	driverPackage = "modernc.org/sqlite"

	busyTimeoutParam = "_pragma=busy_timeout(5000)"
)
