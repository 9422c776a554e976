// Package store provides the key-value backends behind the consent storage
// tiers: the secondary client store, the client cookie jar and the server
// device mirror.
package store

import (
	"context"
)

// Error Contract:
// - Get returns sentinel.ErrNotFound when the key does not exist
// - Remove on a missing key is not an error
// - Other failures are wrapped with context

// KeyValue is a string-valued persistent map.
type KeyValue interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
