// Package store provides the persistent key-value store that holds session,
// pending-authorization and settings state across process restarts.
// Backends exist for DynamoDB (managed deployments), Redis (self-hosted)
// and an in-memory map (tests and dev mode).
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value exists for the key.
var ErrNotFound = errors.New("key not found")

// Store is a string key-value store. Delete is idempotent: removing a
// missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
