// Package device assigns every browser a stable, random consent device id.
// The id keys the server-side mirror of the consent record so server logic
// can answer consent questions for requests that arrive without the consent
// cookie (e.g. beacons sent from a different path).
package device

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"cookiegate/pkg/requestcontext"
)

// DefaultCookieName is the essential cookie holding the device id.
const DefaultCookieName = "consent_device_id"

var validDeviceID = regexp.MustCompile(`^[a-f0-9-]{36}$`)

// Config holds configuration for the Device middleware.
type Config struct {
	CookieName string
	Secure     bool
	MaxAge     int
}

// Device reads the device cookie, issuing a fresh one when it is missing or
// malformed, and stores the id in the request context.
func Device(cfg Config) func(http.Handler) http.Handler {
	name := cfg.CookieName
	if name == "" {
		name = DefaultCookieName
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 365 * 24 * 60 * 60
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(name); err == nil && validDeviceID.MatchString(c.Value) {
				id = c.Value
			} else {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    id,
					Path:     "/",
					MaxAge:   maxAge,
					Secure:   cfg.Secure,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithDeviceID(r.Context(), id)))
		})
	}
}
