// Package kv provides a small typed key/value store abstraction used for
// durable engine flags: provider sync tokens, the pipeline cancellation
// flag, the test-mode flag, and the yesterday-cache marker. The engine
// depends on this interface, not on a specific storage technology.
package kv

import (
	"context"
	"time"
)

// Store is a durable string key/value store with optional expiry.
type Store interface {
	// Get returns the value for key. The second result is false when the
	// key is absent or expired; absence is not an error.
	Get(ctx context.Context, key string) (string, bool, error)
	// Put stores a value without expiry.
	Put(ctx context.Context, key, value string) error
	// PutTTL stores a value that expires after ttl.
	PutTTL(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Well-known keys. Sync tokens are per medium; see TokenKey.
const (
	KeyCancelRequested = "pipeline:cancel"
	KeyTestMode        = "pipeline:test_mode"
	KeyYesterdayCache  = "logs:yesterday_date"
)

// TokenKey returns the storage key for a medium's sync continuation token.
func TokenKey(medium string) string {
	return "sync:token:" + medium
}

// TokenStoredAtKey returns the storage key recording when a medium's sync
// token was minted.
func TokenStoredAtKey(medium string) string {
	return "sync:token_at:" + medium
}
