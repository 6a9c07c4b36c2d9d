// Package storage provides the durable key/value store backing the chat
// client's persisted transcript.
//
// The session controller depends only on the Store interface, so tests
// inject the in-memory implementation and the CLI injects the SQLite one.
package storage

import "errors"

// ErrNotFound indicates the key has no stored value.
var ErrNotFound = errors.New("key not found")

// Store is a minimal key/value contract: opaque blobs under string keys.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error
}
