// Package storage holds the byte-level persistence backends for user records.
//
// A backend maps a key (see Key) to one JSON document. Read returns (nil, nil)
// when the document does not exist; callers treat that the same as an empty
// record. Every other failure is reported as an error wrapping ErrUnavailable.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Backend reads and fully overwrites per-user documents.
type Backend interface {
	// Read returns the stored bytes for key, or (nil, nil) when absent.
	Read(ctx context.Context, key string) ([]byte, error)
	// Write replaces the document at key.
	Write(ctx context.Context, key string, data []byte) error
	// EnsureRoot prepares the storage location. It is idempotent.
	EnsureRoot(ctx context.Context) error
	// String names the backend and its location for logs.
	String() string
}

// ErrUnavailable classifies every backend failure: I/O errors, timeouts,
// non-zero remote exits and client errors.
var ErrUnavailable = errors.New("storage backend unavailable")

// Key returns the document key for a user.
func Key(userID int64) string {
	return fmt.Sprintf("user_%d.json", userID)
}

func unavailable(op, key string, err error) error {
	if key == "" {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, op, key, err)
}
