// Package hook exposes consent state to UI code and gates script loaders on it.
package hook

import (
	"context"
	"sync"

	"cookiegate/internal/consent/manager"
	"cookiegate/internal/consent/models"
)

// Snapshot is the state a UI renders from.
type Snapshot struct {
	Categories models.Categories
	Loading    bool
	ShowBanner bool
	SaveFailed bool
}

// Hook mirrors the manager's state for one mounted consumer.
type Hook struct {
	manager *manager.Manager

	mu          sync.RWMutex
	snap        Snapshot
	applied     uint64
	unsubscribe func()
	watchers    map[uint64]func(Snapshot)
	nextID      uint64
}

// New returns an unmounted hook. It reports Loading until Mount completes.
func New(m *manager.Manager) *Hook {
	return &Hook{
		manager:  m,
		snap:     Snapshot{Loading: true, Categories: models.EssentialOnly()},
		watchers: make(map[uint64]func(Snapshot)),
	}
}

// Mount creates a hook and mounts it.
func Mount(ctx context.Context, m *manager.Manager) *Hook {
	h := New(m)
	h.Mount(ctx)
	return h
}

// Mount subscribes to changes, initializes the manager and loads the current
// state. A change broadcast while initializing wins over the state read by
// Initialize. Mounting an already mounted hook only refreshes the state.
func (h *Hook) Mount(ctx context.Context) {
	h.mu.Lock()
	if h.unsubscribe == nil {
		h.unsubscribe = h.manager.Subscribe(h.apply)
	}
	seen := h.applied
	h.mu.Unlock()

	state := h.manager.Initialize(ctx)
	h.store(state, func(applied uint64) bool { return applied == seen })
}

// Unmount releases the manager subscription. Safe to call more than once.
func (h *Hook) Unmount() {
	h.mu.Lock()
	unsubscribe := h.unsubscribe
	h.unsubscribe = nil
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Snapshot returns the current state.
func (h *Hook) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}

// HasConsent reports whether category is granted. False while loading,
// except for essential.
func (h *Hook) HasConsent(category models.Category) bool {
	snap := h.Snapshot()
	if category.IsEssential() {
		return true
	}
	return !snap.Loading && snap.Categories.Get(category)
}

// AcceptAll grants every category.
func (h *Hook) AcceptAll(ctx context.Context) error {
	_, err := h.manager.AcceptAll(ctx)
	return err
}

// RejectAll keeps only essential.
func (h *Hook) RejectAll(ctx context.Context) error {
	_, err := h.manager.RejectAll(ctx)
	return err
}

// UpdateCategory flips a single category.
func (h *Hook) UpdateCategory(ctx context.Context, category models.Category, granted bool) error {
	_, err := h.manager.UpdateConsent(ctx, models.CategoryUpdate{category: granted}, models.SourceBannerPreferences)
	return err
}

// UpdateAllCategories applies a full or partial category map.
func (h *Hook) UpdateAllCategories(ctx context.Context, categories models.CategoryUpdate) error {
	_, err := h.manager.UpdateConsent(ctx, categories, models.SourceBannerPreferences)
	return err
}

// RevokeConsent withdraws non-essential consent.
func (h *Hook) RevokeConsent(ctx context.Context, reason string) error {
	_, err := h.manager.RevokeConsent(ctx, reason)
	return err
}

// Watch calls fn after every state change until the returned stop function
// runs.
func (h *Hook) Watch(fn func(Snapshot)) (stop func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.watchers[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.watchers, id)
		h.mu.Unlock()
	}
}

func (h *Hook) apply(state manager.State) {
	h.store(state, nil)
}

// store replaces the snapshot and notifies watchers. A non-nil accept sees the
// number of states applied so far and can refuse the update.
func (h *Hook) store(state manager.State, accept func(applied uint64) bool) {
	h.mu.Lock()
	if accept != nil && !accept(h.applied) {
		h.mu.Unlock()
		return
	}
	h.applied++
	h.snap = Snapshot{
		Categories: state.Categories,
		ShowBanner: state.ShowBanner,
		SaveFailed: state.SaveFailed,
	}
	snap := h.snap
	watchers := make([]func(Snapshot), 0, len(h.watchers))
	for _, fn := range h.watchers {
		watchers = append(watchers, fn)
	}
	h.mu.Unlock()

	for _, fn := range watchers {
		fn(snap)
	}
}
