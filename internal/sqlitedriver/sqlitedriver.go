// Package sqlitedriver opens the history database with the SQLite driver
// selected at build time: modernc.org/sqlite by default, mattn/go-sqlite3
// with -tags cgo_sqlite.
package sqlitedriver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// BusyTimeout is how long a connection waits for a lock held by another
// run writing to the same database.
const BusyTimeout = 5000 // milliseconds

// OpenContext opens the database file at path and checks that it answers.
func OpenContext(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn(path))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", path, err)
	}
	return db, nil
}

func dsn(path string) string {
	if strings.ContainsRune(path, '?') {
		return path + "&" + busyTimeoutParam
	}
	return path + "?" + busyTimeoutParam
}

// Info names the driver compiled into the binary.
type Info struct {
	DriverName string
	DriverType string // "purego" or "cgo"
	Package    string
}

// GetInfo returns the driver compiled into the binary.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		Package:    driverPackage,
	}
}
