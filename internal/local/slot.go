// Package local implements the on-device session store. The whole
// collection lives as one JSON document in a key-value Slot; every
// mutation reads the document, changes it, and writes it back.
package local

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when local persistence cannot be used, either
// because the store was built without a slot or because the slot is closed.
var ErrUnavailable = errors.New("local persistence unavailable")

// MemoryPath is the data path that selects an in-process MemorySlot.
const MemoryPath = ":memory:"

// Slot is a durable key-value cell that is read and written whole.
type Slot interface {
	// Get returns the value stored under key. ok is false when the key has
	// never been written.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Close releases the slot. Later calls return ErrUnavailable.
	Close() error
}

// OpenSlot opens the slot for a data path: MemoryPath yields a MemorySlot,
// anything else a SQLite file.
func OpenSlot(path string) (Slot, error) {
	if path == MemoryPath {
		return NewMemorySlot(), nil
	}
	return OpenSQLite(path)
}
