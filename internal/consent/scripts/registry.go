package scripts

import (
	"fmt"
	"html/template"
	"net/url"
	"sync"

	"cookiegate/internal/consent/models"
)

// Providers carries the per-integration identifiers. An empty identifier
// disables that integration.
type Providers struct {
	GAMeasurementID string
	MetaPixelID     string
	HotjarSiteID    string
	AffiliateTagURL string
}

// Script IDs of the built-in integrations.
const (
	GoogleAnalyticsID = "ga4-gtag"
	MetaPixelID       = "meta-pixel"
	HotjarID          = "hotjar"
	AffiliateID       = "affiliate-tag"
)

// Registry maps categories to the scripts they unlock.
type Registry struct {
	mu         sync.RWMutex
	byCategory map[models.Category][]Script
}

// NewRegistry builds a registry holding the configured integrations.
func NewRegistry(p Providers) *Registry {
	r := &Registry{byCategory: make(map[models.Category][]Script)}
	if p.GAMeasurementID != "" {
		r.mustRegister(GoogleAnalytics(p.GAMeasurementID))
	}
	if p.MetaPixelID != "" {
		r.mustRegister(MetaPixel(p.MetaPixelID))
	}
	if p.HotjarSiteID != "" {
		r.mustRegister(Hotjar(p.HotjarSiteID))
	}
	if p.AffiliateTagURL != "" {
		r.mustRegister(Script{ID: AffiliateID, Category: models.CategoryAffiliate, Src: p.AffiliateTagURL, Async: true})
	}
	return r
}

// Register adds s. IDs must be unique and categories known.
func (r *Registry) Register(s Script) error {
	if s.ID == "" {
		return fmt.Errorf("script without id")
	}
	if !s.Category.IsValid() {
		return fmt.Errorf("script %q: unknown category %q", s.ID, s.Category)
	}
	if s.Src != "" {
		u, err := url.Parse(s.Src)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
			return fmt.Errorf("script %q: src must be an http(s) url", s.ID)
		}
	}
	for _, c := range s.Init {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("script %q: %w", s.ID, err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, list := range r.byCategory {
		for _, existing := range list {
			if existing.ID == s.ID {
				return fmt.Errorf("script %q already registered", s.ID)
			}
		}
	}
	r.byCategory[s.Category] = append(r.byCategory[s.Category], s)
	return nil
}

func (r *Registry) mustRegister(s Script) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// For returns the scripts unlocked by category.
func (r *Registry) For(category models.Category) []Script {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Script(nil), r.byCategory[category]...)
}

// Lookup finds a script by ID.
func (r *Registry) Lookup(id string) (Script, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, list := range r.byCategory {
		for _, s := range list {
			if s.ID == id {
				return s, true
			}
		}
	}
	return Script{}, false
}

// GoogleAnalytics is the GA4 gtag integration.
func GoogleAnalytics(measurementID string) Script {
	return Script{
		ID:       GoogleAnalyticsID,
		Category: models.CategoryAnalytics,
		Src:      "https://www.googletagmanager.com/gtag/js?id=" + url.QueryEscape(measurementID),
		Async:    true,
		Inline:   template.JS("window.dataLayer=window.dataLayer||[];function gtag(){dataLayer.push(arguments);}"),
		Init: []Command{
			{Fn: "gtag", Args: []any{"js", "now"}},
			{Fn: "gtag", Args: []any{"config", measurementID, map[string]any{"anonymize_ip": true}}},
		},
	}
}

// MetaPixel is the Meta (Facebook) pixel integration.
func MetaPixel(pixelID string) Script {
	return Script{
		ID:       MetaPixelID,
		Category: models.CategoryMarketing,
		Src:      "https://connect.facebook.net/en_US/fbevents.js",
		Async:    true,
		Inline:   template.JS("window.fbq=window.fbq||function(){(window.fbq.q=window.fbq.q||[]).push(arguments)};"),
		Init: []Command{
			{Fn: "fbq", Args: []any{"init", pixelID}},
			{Fn: "fbq", Args: []any{"track", "PageView"}},
		},
	}
}

// Hotjar is the Hotjar heatmap integration.
func Hotjar(siteID string) Script {
	return Script{
		ID:       HotjarID,
		Category: models.CategoryPerformance,
		Src:      "https://static.hotjar.com/c/hotjar-" + url.PathEscape(siteID) + ".js?sv=6",
		Async:    true,
		Inline:   template.JS("window.hj=window.hj||function(){(window.hj.q=window.hj.q||[]).push(arguments)};"),
	}
}
