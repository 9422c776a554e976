package tracer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "cookiegate/pkg/domain-errors"
	"cookiegate/pkg/requestcontext"
)

// InstrumentationName identifies spans emitted by this module.
const InstrumentationName = "cookiegate/consent"

// Attributes stamped on every span from the request context.
const (
	AttrRequestID = "request.id"
	AttrCountry   = "visitor.country"
	AttrErrorCode = "error.code"
)

// OTelTracer starts OpenTelemetry spans. Request id and visitor country are
// copied from the context onto every span.
type OTelTracer struct {
	tracer trace.Tracer
}

// OTelOption configures the OTelTracer.
type OTelOption func(*OTelTracer)

// WithOTelTracer injects a pre-configured OpenTelemetry tracer.
func WithOTelTracer(t trace.Tracer) OTelOption {
	return func(o *OTelTracer) {
		o.tracer = t
	}
}

// NewOTel uses the global tracer provider unless a tracer is injected.
func NewOTel(opts ...OTelOption) *OTelTracer {
	t := &OTelTracer{}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer(InstrumentationName)
	}
	return t
}

func (t *OTelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	kvs := toOTelAttributes(append(requestAttributes(ctx), attrs...))
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(kvs...))
	return ctx, &otelSpan{span: span}
}

func requestAttributes(ctx context.Context) []Attribute {
	var attrs []Attribute
	if id := requestcontext.RequestID(ctx); id != "" {
		attrs = append(attrs, String(AttrRequestID, id))
	}
	if c := requestcontext.Country(ctx); c != "" {
		attrs = append(attrs, String(AttrCountry, c))
	}
	return attrs
}

type otelSpan struct {
	span trace.Span
}

// End marks the span failed when err is set. Domain errors also record their code.
func (s *otelSpan) End(err error) {
	if err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) {
			s.span.SetAttributes(attribute.String(AttrErrorCode, string(de.Code)))
		}
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

func (s *otelSpan) SetAttributes(attrs ...Attribute) {
	s.span.SetAttributes(toOTelAttributes(attrs)...)
}

func (s *otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(toOTelAttributes(attrs)...))
}

// Values of unsupported types are dropped.
func toOTelAttributes(attrs []Attribute) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		var kv attribute.KeyValue
		switch v := a.Value.(type) {
		case string:
			kv = attribute.String(a.Key, v)
		case []string:
			kv = attribute.StringSlice(a.Key, v)
		case bool:
			kv = attribute.Bool(a.Key, v)
		case int:
			kv = attribute.Int(a.Key, v)
		case int64:
			kv = attribute.Int64(a.Key, v)
		case float64:
			kv = attribute.Float64(a.Key, v)
		default:
			continue
		}
		kvs = append(kvs, kv)
	}
	return kvs
}

var (
	_ Tracer = (*OTelTracer)(nil)
	_ Span   = (*otelSpan)(nil)
)
