package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cookiegate/internal/compliance"
	"cookiegate/internal/consent/metrics"
	"cookiegate/internal/consent/models"
	"cookiegate/internal/consent/store"
	dErrors "cookiegate/pkg/domain-errors"
	"cookiegate/pkg/platform/sentinel"
	"cookiegate/pkg/requestcontext"
)

// Adapter is the sole reader and writer of the consent record. Tiers are
// consulted in priority order; the first valid, unexpired record wins.
//
// Time is taken from requestcontext.Now and the visitor country from
// requestcontext.Country, so both can be pinned in tests.
type Adapter struct {
	tiers     []Tier
	memory    *MemoryTier
	logger    *slog.Logger
	metrics   *metrics.Metrics
	retention time.Duration
	secure    bool
	maxBytes  int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// WithMetrics records tier outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// WithRetention overrides the regional retention for new records.
// Zero keeps the regional default.
func WithRetention(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.retention = d
		}
	}
}

// WithSecureCookies marks the consent cookie Secure.
func WithSecureCookies(secure bool) Option {
	return func(a *Adapter) {
		a.secure = secure
	}
}

// WithMaxCookieBytes lowers the cookie size ceiling.
func WithMaxCookieBytes(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxBytes = n
		}
	}
}

func newAdapter(opts []Option) *Adapter {
	a := &Adapter{logger: slog.Default(), maxBytes: MaxCookieBytes}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewClient builds the client chain: memory cache, cookie, secondary store.
func NewClient(jar Jar, kv store.KeyValue, opts ...Option) *Adapter {
	a := newAdapter(opts)
	cookie := NewCookieTier(jar, a.secure)
	cookie.maxBytes = a.maxBytes
	a.memory = NewMemoryTier()
	a.tiers = []Tier{a.memory, cookie, NewSecondaryTier(kv)}
	return a
}

// NewServer builds the server chain: only the request cookie.
func NewServer(jar Jar, opts ...Option) *Adapter {
	a := newAdapter(opts)
	cookie := NewCookieTier(jar, a.secure)
	cookie.maxBytes = a.maxBytes
	a.tiers = []Tier{cookie}
	return a
}

// NewWithTiers builds an adapter over an explicit chain. The first
// *MemoryTier, if any, receives default records.
func NewWithTiers(tiers []Tier, opts ...Option) *Adapter {
	a := newAdapter(opts)
	a.tiers = tiers
	for _, t := range tiers {
		if m, ok := t.(*MemoryTier); ok {
			a.memory = m
			break
		}
	}
	return a
}

// Read returns the current record. It never fails: malformed or expired
// entries fall through to the next tier, and a default implicit_accept record
// (cached in memory only) is returned when nothing usable is stored. A hit
// rewrites every higher-priority tier.
func (a *Adapter) Read(ctx context.Context) models.Record {
	rec, _ := a.Lookup(ctx)
	return rec
}

// Lookup is Read that also reports whether an explicit decision is stored.
func (a *Adapter) Lookup(ctx context.Context) (models.Record, bool) {
	now := requestcontext.Now(ctx)
	for i, tier := range a.tiers {
		rec, err := tier.Read(ctx)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			a.metrics.IncrementTierRead(tier.Name(), "miss")
			continue
		case err != nil:
			a.metrics.IncrementTierRead(tier.Name(), "invalid")
			a.logger.WarnContext(ctx, "unreadable consent record, trying next tier",
				"tier", tier.Name(),
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			continue
		}
		if rec.IsExpired(now) {
			a.metrics.IncrementTierRead(tier.Name(), "expired")
			if err := tier.Delete(ctx); err != nil {
				a.logger.WarnContext(ctx, "failed to delete expired consent record",
					"tier", tier.Name(),
					"error", err,
				)
			}
			continue
		}
		a.metrics.IncrementTierRead(tier.Name(), "hit")
		a.heal(ctx, a.tiers[:i], rec)
		return rec, rec.Source.IsExplicit()
	}

	def := models.DefaultRecord(models.SourceImplicitAccept, requestcontext.UserAgent(ctx), now)
	a.stampRegion(ctx, &def)
	if a.memory != nil {
		_ = a.memory.Write(ctx, def)
	}
	return def, false
}

func (a *Adapter) heal(ctx context.Context, tiers []Tier, rec models.Record) {
	for _, tier := range tiers {
		if err := tier.Write(ctx, rec); err != nil {
			a.logger.WarnContext(ctx, "failed to restore consent record into tier",
				"tier", tier.Name(),
				"error", err,
			)
		}
	}
}

// Write validates record (degrading invalid input to defaults) and writes it
// to every tier. A tier that cannot hold the record is skipped with a warning;
// when another persistent tier took the write, the skipped tier is cleared so
// a stale value cannot shadow the new one. Failures are returned, never
// panicked; the memory cache is updated regardless.
func (a *Adapter) Write(ctx context.Context, record models.Record) (models.Record, error) {
	start := time.Now()
	defer func() { a.metrics.ObserveWriteLatency(time.Since(start).Seconds()) }()

	fixed := models.ValidateAndFix(&record, requestcontext.Now(ctx), a.logger)

	var (
		errs      []error
		skipped   []Tier
		persisted bool
	)
	for _, tier := range a.tiers {
		err := tier.Write(ctx, fixed)
		switch {
		case err == nil:
			if tier != Tier(a.memory) {
				persisted = true
			}
		case errors.Is(err, sentinel.ErrPayloadTooLarge):
			a.metrics.IncrementTierWriteFailure(tier.Name(), "too_large")
			a.logger.WarnContext(ctx, "consent record too large for tier, skipping",
				"tier", tier.Name(),
				"error", err,
			)
			skipped = append(skipped, tier)
		default:
			a.metrics.IncrementTierWriteFailure(tier.Name(), "error")
			a.logger.ErrorContext(ctx, "failed to write consent record",
				"tier", tier.Name(),
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			errs = append(errs, err)
		}
	}

	if persisted {
		for _, tier := range skipped {
			if err := tier.Delete(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	} else if len(skipped) > 0 {
		errs = append(errs, sentinel.ErrPayloadTooLarge)
	}

	if len(errs) > 0 {
		return fixed, dErrors.Wrap(errors.Join(errs...), dErrors.CodeUnavailable, "consent preferences could not be saved")
	}
	return fixed, nil
}

// Save persists a fresh decision: new consent date, regional expiry.
func (a *Adapter) Save(ctx context.Context, categories models.Categories, source models.Source) (models.Record, error) {
	return a.Write(ctx, a.newRecord(ctx, categories, source))
}

// AcceptAll grants every category.
func (a *Adapter) AcceptAll(ctx context.Context, source models.Source) (models.Record, error) {
	if source == "" {
		source = models.SourceBannerAcceptAll
	}
	return a.Save(ctx, models.AllGranted(), source)
}

// RejectAll denies every non-essential category.
func (a *Adapter) RejectAll(ctx context.Context, source models.Source) (models.Record, error) {
	if source == "" {
		source = models.SourceBannerRejectAll
	}
	return a.Save(ctx, models.EssentialOnly(), source)
}

// Update merges a partial category change into the current record, keeping
// its consent date. The first explicit decision on top of the default is an
// initial save and is stamped like one.
func (a *Adapter) Update(ctx context.Context, update models.CategoryUpdate, source models.Source) (models.Record, error) {
	if err := update.Validate(); err != nil {
		return models.Record{}, err
	}
	if source == "" {
		source = models.SourcePreferencesPage
	}
	current, stored := a.Lookup(ctx)

	var next models.Record
	if stored {
		next = current.Clone()
		next.Categories = next.Categories.Merge(update)
		next.Source = source
	} else {
		next = a.newRecord(ctx, models.EssentialOnly().Merge(update), source)
	}
	if len(next.Categories.Granted()) > 1 {
		next.RevokedAt = nil
		next.RevokeReason = nil
	}
	return a.Write(ctx, next)
}

// Revoke withdraws all non-essential consent and records why.
func (a *Adapter) Revoke(ctx context.Context, reason string) (models.Record, error) {
	rec := a.newRecord(ctx, models.EssentialOnly(), models.SourcePreferencesPage)
	rec.Revoke(requestcontext.Now(ctx), reason)
	return a.Write(ctx, rec)
}

// Refresh extends the current record without changing categories. It returns
// sentinel.ErrNotFound when no explicit decision is stored.
func (a *Adapter) Refresh(ctx context.Context) (models.Record, error) {
	current, stored := a.Lookup(ctx)
	if !stored {
		return current, sentinel.ErrNotFound
	}
	next := current.Clone()
	next.Renew(requestcontext.Now(ctx), a.retentionFor(ctx))
	return a.Write(ctx, next)
}

// Delete clears every tier.
func (a *Adapter) Delete(ctx context.Context) error {
	var errs []error
	for _, tier := range a.tiers {
		if err := tier.Delete(ctx); err != nil {
			a.logger.ErrorContext(ctx, "failed to delete consent record",
				"tier", tier.Name(),
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return dErrors.Wrap(errors.Join(errs...), dErrors.CodeUnavailable, "consent could not be cleared")
	}
	return nil
}

// HasConsent reports whether category is currently granted.
func (a *Adapter) HasConsent(ctx context.Context, category models.Category) bool {
	return a.Read(ctx).HasConsent(category, requestcontext.Now(ctx))
}

// HasAllConsents reports whether every listed category is granted.
func (a *Adapter) HasAllConsents(ctx context.Context, categories ...models.Category) bool {
	rec := a.Read(ctx)
	now := requestcontext.Now(ctx)
	for _, c := range categories {
		if !rec.HasConsent(c, now) {
			return false
		}
	}
	return true
}

// HasAnyConsent reports whether at least one listed category is granted.
func (a *Adapter) HasAnyConsent(ctx context.Context, categories ...models.Category) bool {
	rec := a.Read(ctx)
	now := requestcontext.Now(ctx)
	for _, c := range categories {
		if rec.HasConsent(c, now) {
			return true
		}
	}
	return false
}

// IsExpiringSoon reports whether an explicit decision has less than
// models.ExpiringSoonWindow left.
func (a *Adapter) IsExpiringSoon(ctx context.Context) bool {
	rec, stored := a.Lookup(ctx)
	if !stored {
		return false
	}
	return rec.ExpiryDate.Sub(requestcontext.Now(ctx)) < models.ExpiringSoonWindow
}

// ShouldShowBanner is true until the visitor makes an explicit decision.
func (a *Adapter) ShouldShowBanner(ctx context.Context) bool {
	_, stored := a.Lookup(ctx)
	return !stored
}

func (a *Adapter) newRecord(ctx context.Context, categories models.Categories, source models.Source) models.Record {
	now := requestcontext.Now(ctx)
	rec := models.DefaultRecord(source, requestcontext.UserAgent(ctx), now)
	rec.Categories = categories
	rec.Renew(now, a.retentionFor(ctx))
	a.stampRegion(ctx, &rec)
	return rec
}

func (a *Adapter) retentionFor(ctx context.Context) time.Duration {
	if a.retention > 0 {
		return a.retention
	}
	region := compliance.ResolveRegion(requestcontext.Country(ctx))
	return time.Duration(compliance.RetentionDays(region)) * 24 * time.Hour
}

func (a *Adapter) stampRegion(ctx context.Context, rec *models.Record) {
	country := requestcontext.Country(ctx)
	region := compliance.ResolveRegion(country)
	rec.Country = country
	rec.GDPRApplicable = compliance.GDPRApplicable(region)
	rec.CCPAApplicable = compliance.CCPAApplicable(region)
}
