// Package tracer provides a small tracing abstraction used by the consent
// service. Callers depend on Tracer and Span rather than OpenTelemetry types.
//
// Implementations:
//   - NoopTracer: for tests and when tracing is disabled
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes.
	//
	//	ctx, span := t.Start(ctx, tracer.SpanConsentSave,
	//	    tracer.String(tracer.AttrSource, "banner_accept_all"),
	//	)
	//	defer func() { span.End(err) }()
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Strings creates a string slice attribute.
func Strings(key string, values []string) Attribute {
	return Attribute{Key: key, Value: values}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names used by the consent service.
const (
	SpanConsentGet     = "consent.get"
	SpanConsentSave    = "consent.save"
	SpanConsentUpdate  = "consent.update"
	SpanConsentRevoke  = "consent.revoke"
	SpanConsentDelete  = "consent.delete"
	SpanConsentVerify  = "consent.verify"
	SpanConsentScripts = "consent.scripts"
	SpanDeviceLookup   = "consent.device"
	SpanMirrorWrite    = "consent.mirror.write"
)

// Attribute keys used by the consent service.
const (
	AttrSource     = "consent.source"
	AttrRegion     = "consent.region"
	AttrCategories = "consent.categories"
	AttrExplicit   = "consent.explicit"
	AttrExpired    = "consent.expired"
	AttrTier       = "storage.tier"
	AttrScripts    = "scripts.count"
	AttrMirrorHit  = "mirror.hit"
)
