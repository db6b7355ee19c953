// v1
// internal/storage/factory.go
package storage

import "fmt"

// NewStore builds the backend named by kind. An empty kind selects the
// in-memory store.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(0), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}
