package storage

import (
	"context"
	"errors"
)

// Backend is a raw key-value store. Implementations must be safe for
// concurrent use.
type Backend interface {
	// Get retrieves the payload for a key.
	// Returns (nil, nil) if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a payload under a key, overwriting any existing one.
	Set(ctx context.Context, key string, data []byte) error

	// Delete removes a key. Not an error if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// Keys lists every key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Name identifies the backend kind for diagnostics ("memory",
	// "bolt", "s3").
	Name() string

	// Close releases any resources held by the backend.
	Close() error
}

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("storage: backend is closed")

// ErrCapacity is returned by Set when the backend cannot hold the payload.
var ErrCapacity = errors.New("storage: backend capacity exceeded")
