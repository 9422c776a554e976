package audit

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"cookiegate/pkg/platform/privacy"
	"cookiegate/pkg/requestcontext"
)

// Enricher fills request metadata into events.
type Enricher struct {
	hasher *privacy.IPHasher
}

// NewEnricher hashes client IPs with hasher. A nil hasher leaves IPHash empty;
// the anonymized prefix is recorded either way.
func NewEnricher(hasher *privacy.IPHasher) *Enricher {
	return &Enricher{hasher: hasher}
}

// NewEvent builds an event stamped with the request id, time, device id and
// privacy-reduced client metadata from ctx.
func (e *Enricher) NewEvent(ctx context.Context, action Action) Event {
	ip := requestcontext.ClientIP(ctx)
	return Event{
		ID:        uuid.New(),
		Timestamp: requestcontext.Now(ctx).UTC(),
		Action:    action,
		DeviceID:  requestcontext.DeviceID(ctx),
		Country:   requestcontext.Country(ctx),
		IPHash:    e.hasher.Hash(ip),
		IPPrefix:  privacy.AnonymizeIP(ip),
		Device:    DeviceSummary(requestcontext.UserAgent(ctx)),
		RequestID: requestcontext.RequestID(ctx),
	}
}

// DeviceSummary reduces a User-Agent to "Browser on OS".
func DeviceSummary(userAgent string) string {
	if userAgent == "" {
		return "Unknown Device"
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "Bot"
	}
	browser, _ := ua.Browser()
	os := ua.OS()
	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			os = platform
		}
	}
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}
