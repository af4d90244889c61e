// Package storage holds the durable key-value primitive the market store
// persists favorites into.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

type Storage interface {
	// Get returns ErrNotFound when the key was never set.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
