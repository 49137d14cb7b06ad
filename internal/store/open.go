package store

import "fmt"

// Supported backend names.
const (
	BackendBolt   = "bbolt"
	BackendSQLite = "sqlite"
)

// Open opens the commit store at dbPath using the named backend.
func Open(backend, dbPath string) (Store, error) {
	switch backend {
	case BackendBolt, "":
		return OpenBolt(dbPath)
	case BackendSQLite:
		return OpenSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unknown store backend %q (want %s or %s)", backend, BackendBolt, BackendSQLite)
	}
}
