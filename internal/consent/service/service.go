package service

import (
	"context"
	"errors"
	"log/slog"

	"cookiegate/internal/audit"
	"cookiegate/internal/compliance"
	"cookiegate/internal/consent/catalog"
	"cookiegate/internal/consent/metrics"
	"cookiegate/internal/consent/models"
	"cookiegate/internal/consent/scripts"
	"cookiegate/internal/consent/storage"
	"cookiegate/internal/consent/store"
	"cookiegate/internal/platform/tracer"
	dErrors "cookiegate/pkg/domain-errors"
	"cookiegate/pkg/platform/sentinel"
	psync "cookiegate/pkg/platform/sync"
	"cookiegate/pkg/requestcontext"
)

// mirrorKeyPrefix namespaces device entries in the mirror store.
const mirrorKeyPrefix = "device:"

// Service answers the consent API for one request at a time. Consent lives in
// the request cookie; every mutation is mirrored by device id and audited.
type Service struct {
	catalog     *catalog.Catalog
	scripts     *scripts.Registry
	mirror      store.KeyValue
	devices     *psync.ShardedMutex
	auditor     *audit.Publisher
	enricher    *audit.Enricher
	metrics     *metrics.Metrics
	tracer      tracer.Tracer
	logger      *slog.Logger
	storageOpts []storage.Option
}

type Option func(*Service)

// WithMetrics records decisions, verifications and tier outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithMirror keeps the latest record per device id in kv.
func WithMirror(kv store.KeyValue) Option {
	return func(s *Service) {
		s.mirror = kv
	}
}

// WithAuditor publishes one event per mutation. A nil enricher produces
// events without IP digests.
func WithAuditor(p *audit.Publisher, e *audit.Enricher) Option {
	return func(s *Service) {
		s.auditor = p
		if e != nil {
			s.enricher = e
		}
	}
}

func WithScripts(r *scripts.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.scripts = r
		}
	}
}

func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithStorageOptions configures the per-request storage adapter.
func WithStorageOptions(opts ...storage.Option) Option {
	return func(s *Service) {
		s.storageOpts = append(s.storageOpts, opts...)
	}
}

func New(opts ...Option) *Service {
	s := &Service{
		catalog:  catalog.Default(),
		scripts:  scripts.NewRegistry(scripts.Providers{}),
		devices:  psync.NewShardedMutex(),
		enricher: audit.NewEnricher(nil),
		tracer:   tracer.NewNoop(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) adapter(jar storage.Jar) *storage.Adapter {
	opts := make([]storage.Option, 0, len(s.storageOpts)+2)
	opts = append(opts, storage.WithLogger(s.logger), storage.WithMetrics(s.metrics))
	opts = append(opts, s.storageOpts...)
	return storage.NewServer(jar, opts...)
}

// Get returns the stored decision, if any.
func (s *Service) Get(ctx context.Context, jar storage.Jar) *models.GetConsentResponse {
	_, span := s.tracer.Start(ctx, tracer.SpanConsentGet)
	defer span.End(nil)

	rec, stored := s.adapter(jar).Lookup(ctx)
	span.SetAttributes(tracer.Bool(tracer.AttrExplicit, stored))
	if !stored {
		return &models.GetConsentResponse{HasConsent: false}
	}
	return &models.GetConsentResponse{HasConsent: true, Consent: &rec}
}

// Save persists a full decision. req must already be validated.
func (s *Service) Save(ctx context.Context, jar storage.Jar, req *models.SaveConsentRequest) (resp *models.SaveConsentResponse, err error) {
	source := req.ConsentSource()
	if !req.IsExplicit() {
		source = models.SourceImplicitAccept
	}
	ctx, span := s.tracer.Start(ctx, tracer.SpanConsentSave, tracer.String(tracer.AttrSource, string(source)))
	defer func() { span.End(err) }()

	rec, err := s.adapter(jar).Save(ctx, req.CategoryMap(), source)
	if err != nil {
		return nil, err
	}
	s.recordDecision(rec)
	s.mirrorWrite(ctx, rec)

	event := s.newEvent(ctx, audit.ActionConsentSaved, rec)
	if event.IPHash == "" {
		event.IPHash = req.IPHash
	}
	s.emit(ctx, event)

	return &models.SaveConsentResponse{Success: true, Timestamp: rec.ConsentDate.UnixMilli()}, nil
}

// Update merges a partial change into the cookie record.
func (s *Service) Update(ctx context.Context, jar storage.Jar, req *models.UpdateConsentRequest) (resp *models.UpdateConsentResponse, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanConsentUpdate)
	defer func() { span.End(err) }()

	rec, err := s.adapter(jar).Update(ctx, req.Update(), req.ConsentSource())
	if err != nil {
		return nil, err
	}
	s.recordDecision(rec)
	s.mirrorWrite(ctx, rec)
	s.emit(ctx, s.newEvent(ctx, audit.ActionConsentUpdated, rec))

	return &models.UpdateConsentResponse{Success: true, Consent: rec}, nil
}

// Delete clears the consent cookie and the device mirror.
func (s *Service) Delete(ctx context.Context, jar storage.Jar) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanConsentDelete)
	defer func() { span.End(err) }()

	if err := s.adapter(jar).Delete(ctx); err != nil {
		return err
	}
	s.metrics.IncrementDeletions()
	s.mirrorRemove(ctx)

	event := s.enricher.NewEvent(ctx, audit.ActionConsentDeleted)
	event.Region = string(compliance.ResolveRegion(event.Country))
	event.Categories = []string{}
	s.emit(ctx, event)
	return nil
}

// Revoke deletes the consent cookie. The device mirror keeps a revoked
// essential-only record so cookie-less lookups stop granting.
func (s *Service) Revoke(ctx context.Context, jar storage.Jar, reason string) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanConsentRevoke)
	defer func() { span.End(err) }()

	if reason == "" {
		reason = "user_request"
	}
	now := requestcontext.Now(ctx)
	rec := models.DefaultRecord(models.SourcePreferencesPage, requestcontext.UserAgent(ctx), now)
	rec.Country = requestcontext.Country(ctx)
	rec.Revoke(now, reason)

	if err := s.adapter(jar).Delete(ctx); err != nil {
		return err
	}
	s.metrics.IncrementRevocations()
	s.mirrorWrite(ctx, rec)

	event := s.newEvent(ctx, audit.ActionConsentRevoked, rec)
	event.Reason = reason
	s.emit(ctx, event)
	return nil
}

// Verify answers whether the request cookie grants category.
func (s *Service) Verify(ctx context.Context, jar storage.Jar, req *models.VerifyRequest) *models.VerifyResponse {
	region := compliance.ResolveRegion(requestcontext.Country(ctx))
	ctx, span := s.tracer.Start(ctx, tracer.SpanConsentVerify, tracer.String(tracer.AttrRegion, string(region)))
	defer span.End(nil)

	category := models.Category(req.Category)
	allowed := s.adapter(jar).HasConsent(ctx, category)
	s.metrics.IncrementVerification(req.Category, allowed)

	return &models.VerifyResponse{Allowed: allowed, Category: req.Category, Region: string(region)}
}

// Definitions returns the cookie catalog grouped by category.
func (s *Service) Definitions() map[models.Category][]catalog.CookieDefinition {
	return s.catalog.GroupedByCategory()
}

// Policy describes the rules for the caller's region and the toggle state a
// banner should start with.
func (s *Service) Policy(ctx context.Context) *models.PolicyResponse {
	region := compliance.ResolveRegion(requestcontext.Country(ctx))
	return &models.PolicyResponse{
		Region:         region,
		Rules:          compliance.RulesFor(region),
		DefaultToggles: compliance.DefaultToggles(region, models.CategoryNames(models.NonEssentialCategories())),
		PolicyVersion:  models.PolicyVersion,
	}
}

// Scripts renders the gated integrations the request cookie allows. Nothing
// beyond essential is rendered without an explicit decision.
func (s *Service) Scripts(ctx context.Context, jar storage.Jar) (resp *models.ScriptsResponse, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanConsentScripts)
	defer func() { span.End(err) }()

	rec, stored := s.adapter(jar).Lookup(ctx)
	granted := []models.Category{models.CategoryEssential}
	if stored {
		granted = rec.Categories.Granted()
	}

	doc := scripts.NewHeadDocument()
	injector := scripts.NewDocumentInjector(doc, s.scripts, s.metrics)
	var errs []error
	for _, category := range granted {
		if err := injector.Inject(ctx, category); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.WarnContext(ctx, "some consent-gated scripts could not be rendered",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	html, err := doc.HTML()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render scripts")
	}

	resp = &models.ScriptsResponse{
		Categories: granted,
		Scripts:    make([]models.ScriptTag, 0, len(doc.Scripts())),
		Init:       make([]string, 0, len(doc.Commands())),
		HTML:       html,
	}
	for _, sc := range doc.Scripts() {
		resp.Scripts = append(resp.Scripts, models.ScriptTag{ID: sc.ID, Category: sc.Category, Src: sc.Src, Async: sc.Async})
	}
	for _, cmd := range doc.Commands() {
		js, err := cmd.JS()
		if err != nil {
			continue
		}
		resp.Init = append(resp.Init, string(js))
	}
	span.SetAttributes(tracer.Int64(tracer.AttrScripts, int64(len(resp.Scripts))))
	return resp, nil
}

// Device returns the mirrored categories for deviceID.
func (s *Service) Device(ctx context.Context, deviceID string) (resp *models.DeviceConsentResponse, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanDeviceLookup)
	defer func() { span.End(err) }()

	if s.mirror == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "device consent lookup is not configured")
	}
	value, err := s.mirror.Get(ctx, mirrorKeyPrefix+deviceID)
	if errors.Is(err, sentinel.ErrNotFound) {
		span.SetAttributes(tracer.Bool(tracer.AttrMirrorHit, false))
		return nil, dErrors.New(dErrors.CodeNotFound, "no consent recorded for device")
	}
	if err != nil {
		s.metrics.IncrementMirrorFailure("get")
		return nil, dErrors.Translate(err, dErrors.CodeUnavailable, "device consent lookup failed")
	}
	rec, err := models.DecodeFull(value)
	if err != nil || rec.IsExpired(requestcontext.Now(ctx)) {
		span.SetAttributes(tracer.Bool(tracer.AttrExpired, err == nil))
		return nil, dErrors.New(dErrors.CodeNotFound, "no consent recorded for device")
	}
	span.SetAttributes(tracer.Bool(tracer.AttrMirrorHit, true))

	return &models.DeviceConsentResponse{
		DeviceID:   deviceID,
		Categories: rec.Categories.Map(),
		Source:     rec.Source,
		ExpiryDate: rec.ExpiryDate.UnixMilli(),
	}, nil
}

func (s *Service) recordDecision(rec models.Record) {
	s.metrics.IncrementConsentDecision(string(rec.Source))
	s.metrics.ObserveCategories(rec.Categories.Map())
}

// mirrorWrite stores rec for the request's device unless the mirror already
// holds a decision with a later consent date.
func (s *Service) mirrorWrite(ctx context.Context, rec models.Record) {
	deviceID := requestcontext.DeviceID(ctx)
	if s.mirror == nil || deviceID == "" {
		return
	}
	ctx, span := s.tracer.Start(ctx, tracer.SpanMirrorWrite)
	key := mirrorKeyPrefix + deviceID
	err := s.devices.Do(key, func() error {
		if current, err := s.mirror.Get(ctx, key); err == nil {
			if prev, err := models.DecodeFull(current); err == nil && prev.ConsentDate.After(rec.ConsentDate) {
				span.AddEvent("mirror_newer")
				return nil
			}
		}
		value, err := models.EncodeFull(rec)
		if err != nil {
			return err
		}
		return s.mirror.Set(ctx, key, value)
	})
	span.End(err)
	if err != nil {
		s.metrics.IncrementMirrorFailure("set")
		s.logger.WarnContext(ctx, "failed to mirror consent record",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) mirrorRemove(ctx context.Context) {
	deviceID := requestcontext.DeviceID(ctx)
	if s.mirror == nil || deviceID == "" {
		return
	}
	key := mirrorKeyPrefix + deviceID
	err := s.devices.Do(key, func() error {
		return s.mirror.Remove(ctx, key)
	})
	if err != nil {
		s.metrics.IncrementMirrorFailure("remove")
		s.logger.WarnContext(ctx, "failed to remove mirrored consent record",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) newEvent(ctx context.Context, action audit.Action, rec models.Record) audit.Event {
	event := s.enricher.NewEvent(ctx, action)
	event.Categories = models.CategoryNames(rec.Categories.Granted())
	event.Source = string(rec.Source)
	event.Region = string(compliance.ResolveRegion(rec.Country))
	event.PolicyVersion = rec.PolicyVersion
	return event
}

// emit never fails the request: the cookie is already written.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish consent audit event",
			"action", event.Action,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
