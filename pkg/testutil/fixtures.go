// Package testutil holds builders and helpers shared by package tests.
package testutil

import (
	"time"

	"cookiegate/internal/consent/models"
)

// FixedNow is the reference instant used by deterministic tests.
var FixedNow = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

// RecordBuilder provides a fluent interface for building consent records.
type RecordBuilder struct {
	record models.Record
}

// NewRecordBuilder starts from a valid explicit record consented at FixedNow.
func NewRecordBuilder() *RecordBuilder {
	return &RecordBuilder{record: models.DefaultRecord(models.SourceBannerPreferences, "Mozilla/5.0 (test)", FixedNow)}
}

func (b *RecordBuilder) WithSource(source models.Source) *RecordBuilder {
	b.record.Source = source
	return b
}

func (b *RecordBuilder) Granting(categories ...models.Category) *RecordBuilder {
	for _, c := range categories {
		b.record.Categories.Set(c, true)
	}
	return b
}

func (b *RecordBuilder) AllGranted() *RecordBuilder {
	b.record.Categories = models.AllGranted()
	return b
}

func (b *RecordBuilder) ConsentedAt(t time.Time) *RecordBuilder {
	b.record.ExpiryDate = t.Add(b.record.ExpiryDate.Sub(b.record.ConsentDate))
	b.record.ConsentDate = t
	return b
}

func (b *RecordBuilder) ExpiresAt(t time.Time) *RecordBuilder {
	b.record.ExpiryDate = t
	return b
}

// Expired moves the expiry one millisecond before FixedNow.
func (b *RecordBuilder) Expired() *RecordBuilder {
	b.record.ConsentDate = FixedNow.Add(-400 * 24 * time.Hour)
	b.record.ExpiryDate = FixedNow.Add(-time.Millisecond)
	return b
}

func (b *RecordBuilder) WithVersion(version string) *RecordBuilder {
	b.record.Version = version
	return b
}

func (b *RecordBuilder) WithCountry(country string) *RecordBuilder {
	b.record.Country = country
	return b
}

func (b *RecordBuilder) Build() models.Record {
	return b.record.Clone()
}
