// Package storage provides key/value persistence for serialized datasets.
// The analytic pipeline treats every backend the same way: load bytes by
// key, store bytes by key. A failed write surfaces to the caller and the
// in-memory state stays authoritative.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrNotFound is returned by Get and Delete for missing keys
var ErrNotFound = errors.New("key not found")

// Store is the persistence boundary. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the value for key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value under key, overwriting any existing value
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key, returning ErrNotFound if absent
	Delete(ctx context.Context, key string) error

	// Keys lists all stored keys in lexical order
	Keys(ctx context.Context) ([]string, error)

	// Close releases backend resources
	Close() error
}

// keyPattern restricts keys to path- and document-safe characters
var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateKey rejects keys that cannot be used across all backends
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("key %q contains invalid characters", key)
	}
	return nil
}
