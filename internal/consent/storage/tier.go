// Package storage persists one consent record per browser profile across an
// ordered chain of tiers and degrades to a default record when none of them
// holds a usable value.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cookiegate/internal/consent/models"
	"cookiegate/internal/consent/store"
	"cookiegate/pkg/platform/sentinel"
)

// Tier names, used in logs and metrics.
const (
	TierMemory    = "memory"
	TierCookie    = "cookie"
	TierSecondary = "secondary"
)

// Error Contract:
// - Read returns sentinel.ErrNotFound when the tier holds nothing
// - Read returns a decode error for malformed values; the caller falls through
// - Write returns sentinel.ErrPayloadTooLarge when the tier cannot hold the record
// - Delete on an empty tier is not an error

// Tier is one persistence layer. Tiers do not check expiry; the Adapter does.
type Tier interface {
	Name() string
	Read(ctx context.Context) (models.Record, error)
	Write(ctx context.Context, record models.Record) error
	Delete(ctx context.Context) error
}

// MemoryTier caches the record for the lifetime of one adapter.
type MemoryTier struct {
	mu     sync.RWMutex
	record *models.Record
}

// NewMemoryTier returns an empty cache.
func NewMemoryTier() *MemoryTier {
	return &MemoryTier{}
}

func (t *MemoryTier) Name() string { return TierMemory }

func (t *MemoryTier) Read(_ context.Context) (models.Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.record == nil {
		return models.Record{}, sentinel.ErrNotFound
	}
	return t.record.Clone(), nil
}

func (t *MemoryTier) Write(_ context.Context, record models.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := record.Clone()
	t.record = &r
	return nil
}

func (t *MemoryTier) Delete(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record = nil
	return nil
}

// SecondaryTier keeps the full record, base64 JSON encoded, in a key-value
// store. It is the recovery source when the cookie is evicted.
type SecondaryTier struct {
	kv  store.KeyValue
	key string
}

// NewSecondaryTier stores the record under models.StorageKey.
func NewSecondaryTier(kv store.KeyValue) *SecondaryTier {
	return &SecondaryTier{kv: kv, key: models.StorageKey}
}

func (t *SecondaryTier) Name() string { return TierSecondary }

func (t *SecondaryTier) Read(ctx context.Context) (models.Record, error) {
	raw, err := t.kv.Get(ctx, t.key)
	if err != nil {
		return models.Record{}, err
	}
	return models.DecodeFull(raw)
}

func (t *SecondaryTier) Write(ctx context.Context, record models.Record) error {
	encoded, err := models.EncodeFull(record)
	if err != nil {
		return err
	}
	if err := t.kv.Set(ctx, t.key, encoded); err != nil {
		return fmt.Errorf("write secondary store: %w", err)
	}
	return nil
}

func (t *SecondaryTier) Delete(ctx context.Context) error {
	if err := t.kv.Remove(ctx, t.key); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("remove secondary store: %w", err)
	}
	return nil
}
