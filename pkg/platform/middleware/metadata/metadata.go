// Package metadata extracts visitor metadata (client IP, User-Agent and the
// edge-reported country) into the request context.
package metadata

import (
	"net/http"
	"net/netip"
	"strings"

	"cookiegate/pkg/requestcontext"
	s "cookiegate/pkg/string"
)

// MaxXFFHeaderLength bounds the X-Forwarded-For header we are willing to parse.
const MaxXFFHeaderLength = 500

// Config holds configuration for the metadata middleware.
type Config struct {
	// TrustedProxies lists prefixes allowed to set X-Forwarded-For / X-Real-IP.
	// If empty, forwarding headers are never trusted.
	TrustedProxies []netip.Prefix

	// CountryHeader names the header carrying the visitor's ISO country code
	// (e.g. "CF-IPCountry"). Only honoured from trusted proxies unless
	// TrustCountryHeader is set, which is meant for direct edge deployments.
	CountryHeader      string
	TrustCountryHeader bool
}

// DefaultConfig returns a Config with no trusted proxies.
func DefaultConfig() *Config {
	return &Config{CountryHeader: "CF-IPCountry"}
}

// Middleware handles client metadata extraction.
type Middleware struct {
	config *Config
}

// NewMiddleware creates a new metadata middleware with the given config.
func NewMiddleware(cfg *Config) *Middleware {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Middleware{config: cfg}
}

// Handler stores client IP, User-Agent and country in the request context.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remoteIP := parseRemoteAddr(r.RemoteAddr)
		trusted := m.isTrustedProxy(remoteIP)

		ctx := requestcontext.WithClientMetadata(r.Context(), m.clientIP(r, remoteIP, trusted), r.Header.Get("User-Agent"))
		if country := m.country(r, trusted); country != "" {
			ctx = requestcontext.WithCountry(ctx, country)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) country(r *http.Request, trusted bool) string {
	if m.config.CountryHeader == "" || (!trusted && !m.config.TrustCountryHeader) {
		return ""
	}
	c := strings.ToUpper(strings.TrimSpace(r.Header.Get(m.config.CountryHeader)))
	// Edges use "XX"/"T1" for unknown or Tor; anything not two letters is dropped.
	if len(c) != 2 || c == "XX" || c == "T1" {
		return ""
	}
	return c
}

func (m *Middleware) clientIP(r *http.Request, remoteIP string, trusted bool) string {
	if remoteIP == "" {
		return "unknown"
	}
	if !trusted {
		return remoteIP
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && len(xri) <= MaxXFFHeaderLength {
			if _, err := netip.ParseAddr(xri); err == nil {
				return xri
			}
		}
		return remoteIP
	}
	if len(xff) > MaxXFFHeaderLength {
		return remoteIP
	}

	first, _, _ := strings.Cut(xff, ",")
	first = strings.TrimSpace(first)
	if _, err := netip.ParseAddr(first); err != nil {
		return remoteIP
	}
	return first
}

func (m *Middleware) isTrustedProxy(ip string) bool {
	if len(m.config.TrustedProxies) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	for _, prefix := range m.config.TrustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// parseRemoteAddr strips the port from RemoteAddr.
func parseRemoteAddr(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	if ap, err := netip.ParseAddrPort(remoteAddr); err == nil {
		return ap.Addr().String()
	}
	if addr, err := netip.ParseAddr(remoteAddr); err == nil {
		return addr.String()
	}
	if idx := strings.LastIndex(remoteAddr, ":"); idx != -1 {
		return strings.Trim(remoteAddr[:idx], "[]")
	}
	return remoteAddr
}

// ParsePrefixes parses a comma separated CIDR list, skipping invalid entries.
func ParsePrefixes(list string) []netip.Prefix {
	var out []netip.Prefix
	for _, raw := range s.SplitList(list) {
		if p, err := netip.ParsePrefix(raw); err == nil {
			out = append(out, p)
		}
	}
	return out
}
