// Package kv is the persistent string-to-string mapping the account store is built on.
// Backends are interchangeable; callers only see Store.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("kv: key not found")

// Store is an opaque persistent mapping from string keys to string values.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Backend names accepted by configuration.
const (
	BackendMemory    = "memory"
	BackendFile      = "file"
	BackendFirestore = "firestore"
	BackendRedis     = "redis"
)
