//go:build !sqlite_cgo

package sqlite

// Pure Go driver, no C toolchain needed. This is the default build.
import _ "modernc.org/sqlite"

const DriverName = "sqlite"
