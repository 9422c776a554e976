package models

import (
	"log/slog"
	"time"

	dErrors "cookiegate/pkg/domain-errors"
	"cookiegate/pkg/validation"
)

// Persistence keys shared by every tier.
const (
	CookieName       = "cookie_consent"
	LegacyCookieName = "cookie_consent_v1"
	StorageKey       = "cookie_consent_v1"

	SchemaVersion = "1.0.0"
	PolicyVersion = "2025-01-01"
)

const (
	// DefaultRetention is the validity of a new record absent a regional override.
	DefaultRetention = 365 * 24 * time.Hour
	// ExpiringSoonWindow is the remaining lifetime below which renewal is suggested.
	ExpiringSoonWindow = 30 * 24 * time.Hour
)

// Categories holds one decision per category. Essential is always true once a
// record passes through Fix or ValidateAndFix.
type Categories struct {
	Essential       bool `json:"essential"`
	Functional      bool `json:"functional"`
	Analytics       bool `json:"analytics"`
	Performance     bool `json:"performance"`
	Marketing       bool `json:"marketing"`
	Affiliate       bool `json:"affiliate"`
	Personalization bool `json:"personalization"`
	ThirdParty      bool `json:"third_party"`
}

// AllGranted returns a map granting every category.
func AllGranted() Categories {
	return Categories{true, true, true, true, true, true, true, true}
}

// EssentialOnly returns a map denying every non-essential category.
func EssentialOnly() Categories {
	return Categories{Essential: true}
}

// Get reports the decision for c. Unknown categories are never granted.
func (c Categories) Get(category Category) bool {
	if p := c.field(category); p != nil {
		return *p
	}
	return false
}

// Set records a decision. Essential cannot be switched off and unknown
// categories are ignored.
func (c *Categories) Set(category Category, granted bool) {
	p := c.field(category)
	if p == nil {
		return
	}
	if category.IsEssential() {
		granted = true
	}
	*p = granted
}

// Granted lists granted categories in display order.
func (c Categories) Granted() []Category {
	var out []Category
	for _, cat := range AllCategories {
		if c.Get(cat) {
			out = append(out, cat)
		}
	}
	return out
}

// Map returns the decisions keyed by category name.
func (c Categories) Map() map[string]bool {
	out := make(map[string]bool, len(AllCategories))
	for _, cat := range AllCategories {
		out[string(cat)] = c.Get(cat)
	}
	return out
}

// Merge applies a partial update and returns the result.
func (c Categories) Merge(update CategoryUpdate) Categories {
	for cat, granted := range update {
		c.Set(cat, granted)
	}
	return c
}

func (c *Categories) field(category Category) *bool {
	switch category {
	case CategoryEssential:
		return &c.Essential
	case CategoryFunctional:
		return &c.Functional
	case CategoryAnalytics:
		return &c.Analytics
	case CategoryPerformance:
		return &c.Performance
	case CategoryMarketing:
		return &c.Marketing
	case CategoryAffiliate:
		return &c.Affiliate
	case CategoryPersonalization:
		return &c.Personalization
	case CategoryThirdParty:
		return &c.ThirdParty
	default:
		return nil
	}
}

// CategoryUpdate is a partial set of decisions keyed by category.
type CategoryUpdate map[Category]bool

// Validate rejects unknown categories with one field error per key.
func (u CategoryUpdate) Validate() error {
	fields := map[string]string{}
	for cat := range u {
		if !cat.IsValid() {
			fields["categories."+string(cat)] = "must be a known category"
		}
	}
	if len(fields) > 0 {
		return dErrors.NewWithFields(dErrors.CodeValidation, "unknown consent category", fields)
	}
	return nil
}

// Record is the persisted consent decision of one browser profile.
//
// UserAgent, Country and the applicability flags are audit metadata only and
// never change consent behavior.
type Record struct {
	Categories     Categories
	ConsentDate    time.Time
	ExpiryDate     time.Time
	Source         Source
	Version        string
	PolicyVersion  string
	UserAgent      string
	Country        string
	GDPRApplicable bool
	CCPAApplicable bool
	RevokedAt      *time.Time
	RevokeReason   *string
}

// DefaultRecord builds a record denying every non-essential category.
func DefaultRecord(source Source, userAgent string, now time.Time) Record {
	return Record{
		Categories:    EssentialOnly(),
		ConsentDate:   now,
		ExpiryDate:    now.Add(DefaultRetention),
		Source:        source,
		Version:       SchemaVersion,
		PolicyVersion: PolicyVersion,
		UserAgent:     validation.Truncate(userAgent, validation.MaxUserAgentLength),
	}
}

// IsExpired reports whether expiry lies strictly before now.
func IsExpired(expiry, now time.Time) bool {
	return expiry.Before(now)
}

// IsExpired reports whether the record is logically absent at now.
func (r Record) IsExpired(now time.Time) bool {
	return IsExpired(r.ExpiryDate, now)
}

// IsRevoked reports whether the visitor withdrew consent.
func (r Record) IsRevoked() bool {
	return r.RevokedAt != nil
}

// Effective returns the categories r grants at now. Expired records and
// records without an explicit decision grant essential only.
func (r Record) Effective(now time.Time) Categories {
	if r.IsExpired(now) || !r.Source.IsExplicit() {
		return EssentialOnly()
	}
	return r.Categories
}

// HasConsent reports whether category is granted and the record is live.
func (r Record) HasConsent(category Category, now time.Time) bool {
	return r.Effective(now).Get(category)
}

// Renew stamps a new consent moment and expiry. Partial category updates
// must not call it.
func (r *Record) Renew(now time.Time, retention time.Duration) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	r.ConsentDate = now
	r.ExpiryDate = now.Add(retention)
}

// Revoke withdraws every non-essential category.
func (r *Record) Revoke(now time.Time, reason string) {
	r.Categories = EssentialOnly()
	at := now
	r.RevokedAt = &at
	reason = validation.Truncate(reason, validation.MaxRevokeReasonLength)
	r.RevokeReason = &reason
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	out := r
	if r.RevokedAt != nil {
		at := *r.RevokedAt
		out.RevokedAt = &at
	}
	if r.RevokeReason != nil {
		reason := *r.RevokeReason
		out.RevokeReason = &reason
	}
	return out
}

// Fix applies the silent coercions: essential forced on and audit metadata
// trimmed to size.
func (r *Record) Fix() {
	r.Categories.Essential = true
	r.UserAgent = validation.Truncate(r.UserAgent, validation.MaxUserAgentLength)
}

// Validate checks the schema and the cross-field invariants.
func (r Record) Validate() error {
	if err := validation.Validate(r.wire()); err != nil {
		return err
	}
	if !r.Categories.Essential {
		return dErrors.NewWithFields(dErrors.CodeInvariantViolation, "essential consent cannot be withdrawn",
			map[string]string{"categories.essential": "must be true"})
	}
	if !r.ExpiryDate.After(r.ConsentDate) {
		return dErrors.NewWithFields(dErrors.CodeInvariantViolation, "expiry must be after consent date",
			map[string]string{"expiryDate": "must be after consentDate"})
	}
	return nil
}

// ValidateAndFix coerces candidate and validates it. Any failure is logged and
// degrades to a default implicit_accept record; it never returns an error.
func ValidateAndFix(candidate *Record, now time.Time, logger *slog.Logger) Record {
	if candidate == nil {
		return DefaultRecord(SourceImplicitAccept, "", now)
	}
	fixed := candidate.Clone()
	fixed.Fix()
	if err := fixed.Validate(); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("invalid consent record, falling back to defaults",
			"error", err,
			"fields", dErrors.FieldsOf(err),
		)
		return DefaultRecord(SourceImplicitAccept, candidate.UserAgent, now)
	}
	return fixed
}
