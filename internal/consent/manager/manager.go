// Package manager orchestrates consent changes: it writes through the storage
// adapter, injects newly allowed scripts and notifies subscribers.
package manager

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"cookiegate/internal/consent/catalog"
	"cookiegate/internal/consent/models"
	"cookiegate/internal/consent/storage"
	dErrors "cookiegate/pkg/domain-errors"
	"cookiegate/pkg/requestcontext"
)

// Storage is the consent record store the manager writes through.
type Storage interface {
	Lookup(ctx context.Context) (models.Record, bool)
	AcceptAll(ctx context.Context, source models.Source) (models.Record, error)
	RejectAll(ctx context.Context, source models.Source) (models.Record, error)
	Update(ctx context.Context, update models.CategoryUpdate, source models.Source) (models.Record, error)
	Revoke(ctx context.Context, reason string) (models.Record, error)
}

// Injector loads the scripts of one category into the page.
type Injector interface {
	Inject(ctx context.Context, category models.Category) error
}

// Purger expires a cookie by name, and by domain when one is given.
type Purger interface {
	Purge(ctx context.Context, name, domain string) error
}

// State is what subscribers and UIs observe.
type State struct {
	Categories models.Categories
	Source     models.Source
	ShowBanner bool
	// SaveFailed is set when the last change could not be persisted. The
	// in-memory state still reflects it.
	SaveFailed bool
}

// Listener receives the state after every change, in mutation order. A
// listener may call mutating Manager methods; the nested change is broadcast
// once the current broadcast has finished.
type Listener func(State)

// Manager is created once per page lifetime (or request) and passed to its
// consumers.
type Manager struct {
	storage  Storage
	injector Injector
	purger   Purger
	catalog  *catalog.Catalog
	logger   *slog.Logger

	mu         sync.Mutex
	saveFailed atomic.Bool

	deliverMu  sync.Mutex
	pending    []State
	delivering bool

	injectMu sync.Mutex
	injected map[models.Category]struct{}

	listenerMu sync.RWMutex
	listeners  map[uint64]Listener
	nextID     uint64
}

// New wires a manager. purger and cat may be nil, in which case revocation
// skips cookie purging.
func New(storage Storage, injector Injector, purger Purger, cat *catalog.Catalog, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		storage:   storage,
		injector:  injector,
		purger:    purger,
		catalog:   cat,
		logger:    logger,
		injected:  make(map[models.Category]struct{}),
		listeners: make(map[uint64]Listener),
	}
}

// Initialize injects essential scripts, then the scripts of every granted
// category. Safe to call repeatedly.
func (m *Manager) Initialize(ctx context.Context) State {
	m.inject(ctx, models.CategoryEssential)

	rec, stored := m.storage.Lookup(ctx)
	m.injectGranted(ctx, rec)
	return m.stateOf(rec, stored)
}

// AcceptAll grants every category.
func (m *Manager) AcceptAll(ctx context.Context) (State, error) {
	return m.mutate(ctx, "accept_all", func() (models.Record, error) {
		return m.storage.AcceptAll(ctx, models.SourceBannerAcceptAll)
	})
}

// RejectAll keeps only essential.
func (m *Manager) RejectAll(ctx context.Context) (State, error) {
	return m.mutate(ctx, "reject_all", func() (models.Record, error) {
		return m.storage.RejectAll(ctx, models.SourceBannerRejectAll)
	})
}

// UpdateConsent merges a partial change. source defaults to the preferences
// page.
func (m *Manager) UpdateConsent(ctx context.Context, update models.CategoryUpdate, source models.Source) (State, error) {
	return m.mutate(ctx, "update", func() (models.Record, error) {
		return m.storage.Update(ctx, update, source)
	})
}

// RevokeConsent withdraws non-essential consent and purges the cookies the
// catalog attributes to those categories. Purging is best-effort: cookies
// set HttpOnly or on foreign domains by third-party scripts survive.
func (m *Manager) RevokeConsent(ctx context.Context, reason string) (State, error) {
	return m.mutate(ctx, "revoke", func() (models.Record, error) {
		rec, err := m.storage.Revoke(ctx, reason)
		m.purgeNonEssential(ctx)
		return rec, err
	})
}

// mutate runs write and injection under the mutation lock, then broadcasts.
// Validation failures abort before anything changes; storage failures still
// update the session state and are reported via SaveFailed.
func (m *Manager) mutate(ctx context.Context, op string, write func() (models.Record, error)) (State, error) {
	m.mu.Lock()
	rec, err := write()
	if err != nil && isInputError(err) {
		m.mu.Unlock()
		return State{}, err
	}
	m.saveFailed.Store(err != nil)
	if err != nil {
		m.logger.WarnContext(ctx, "consent change not persisted",
			"operation", op,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	m.injectGranted(ctx, rec)

	state := m.stateOf(rec, rec.Source.IsExplicit())
	m.enqueue(state)
	m.mu.Unlock()

	m.deliver()
	return state, err
}

// HasConsent reports whether category is currently granted.
func (m *Manager) HasConsent(ctx context.Context, category models.Category) bool {
	rec, _ := m.storage.Lookup(ctx)
	return rec.HasConsent(category, requestcontext.Now(ctx))
}

// ShouldShowBanner is true until an explicit decision is stored.
func (m *Manager) ShouldShowBanner(ctx context.Context) bool {
	_, stored := m.storage.Lookup(ctx)
	return !stored
}

// State reads the current consent state.
func (m *Manager) State(ctx context.Context) State {
	rec, stored := m.storage.Lookup(ctx)
	return m.stateOf(rec, stored)
}

// Subscribe registers fn and returns the function that removes it.
func (m *Manager) Subscribe(fn Listener) (unsubscribe func()) {
	m.listenerMu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenerMu.Lock()
			delete(m.listeners, id)
			m.listenerMu.Unlock()
		})
	}
}

// Subscribers reports the number of registered listeners.
func (m *Manager) Subscribers() int {
	m.listenerMu.RLock()
	defer m.listenerMu.RUnlock()
	return len(m.listeners)
}

// Injected reports whether the scripts of category were injected.
func (m *Manager) Injected(category models.Category) bool {
	m.injectMu.Lock()
	defer m.injectMu.Unlock()
	_, ok := m.injected[category]
	return ok
}

// enqueue must be called with m.mu held so queue order is mutation order.
func (m *Manager) enqueue(state State) {
	m.deliverMu.Lock()
	m.pending = append(m.pending, state)
	m.deliverMu.Unlock()
}

// deliver drains the queue unless another call is already draining it, which
// is the case for a listener that mutates from inside a broadcast.
func (m *Manager) deliver() {
	m.deliverMu.Lock()
	if m.delivering {
		m.deliverMu.Unlock()
		return
	}
	m.delivering = true
	for len(m.pending) > 0 {
		state := m.pending[0]
		m.pending = m.pending[1:]
		m.deliverMu.Unlock()
		m.broadcast(state)
		m.deliverMu.Lock()
	}
	m.delivering = false
	m.deliverMu.Unlock()
}

func (m *Manager) broadcast(state State) {
	m.listenerMu.RLock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func (m *Manager) injectGranted(ctx context.Context, rec models.Record) {
	now := requestcontext.Now(ctx)
	for _, c := range models.AllCategories {
		if rec.HasConsent(c, now) {
			m.inject(ctx, c)
		}
	}
}

// inject runs the injector at most once per category. A failed injection is
// not retried.
func (m *Manager) inject(ctx context.Context, category models.Category) {
	m.injectMu.Lock()
	if _, done := m.injected[category]; done {
		m.injectMu.Unlock()
		return
	}
	m.injected[category] = struct{}{}
	m.injectMu.Unlock()

	if err := m.injector.Inject(ctx, category); err != nil {
		m.logger.WarnContext(ctx, "script injection failed",
			"category", category,
			"error", err,
		)
	}
}

func (m *Manager) purgeNonEssential(ctx context.Context) {
	if m.purger == nil || m.catalog == nil {
		return
	}
	for _, def := range m.catalog.NonEssential() {
		if err := m.purger.Purge(ctx, def.Name, ""); err != nil {
			m.logger.WarnContext(ctx, "cookie purge failed", "cookie", def.Name, "error", err)
		}
		if def.Domain != "" {
			if err := m.purger.Purge(ctx, def.Name, def.Domain); err != nil {
				m.logger.WarnContext(ctx, "cookie purge failed", "cookie", def.Name, "domain", def.Domain, "error", err)
			}
		}
	}
}

// stateOf reports only what rec grants: without an explicit decision that is
// essential alone, whatever the record carries.
func (m *Manager) stateOf(rec models.Record, stored bool) State {
	categories := rec.Categories
	if !stored {
		categories = models.EssentialOnly()
	}
	return State{
		Categories: categories,
		Source:     rec.Source,
		ShowBanner: !stored,
		SaveFailed: m.saveFailed.Load(),
	}
}

func isInputError(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeValidation) ||
		dErrors.HasCode(err, dErrors.CodeBadRequest) ||
		dErrors.HasCode(err, dErrors.CodeInvalidInput)
}

// JarPurger expires cookies through a cookie jar.
type JarPurger struct {
	jar storage.Jar
}

// NewJarPurger purges through jar.
func NewJarPurger(jar storage.Jar) *JarPurger {
	return &JarPurger{jar: jar}
}

func (p *JarPurger) Purge(ctx context.Context, name, domain string) error {
	if name == "" {
		return errors.New("cookie name is required")
	}
	return p.jar.SetCookie(ctx, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   "/",
		Domain: domain,
		MaxAge: -1,
	})
}
