package request

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig controls cross-origin access to consent endpoints that are called
// from other first-party origins (e.g. revoking from an account subdomain).
type CORSConfig struct {
	AllowedOrigin string
	Methods       []string
	MaxAge        int
}

// CORS sets CORS headers and answers preflight requests with 204.
// An empty AllowedOrigin allows any origin without credentials.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	methods := strings.Join(cfg.Methods, ", ")
	if methods == "" {
		methods = "GET, POST, DELETE, OPTIONS"
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 86400
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if cfg.AllowedOrigin == "" {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", cfg.AllowedOrigin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
			h.Set("Access-Control-Max-Age", strconv.Itoa(maxAge))

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
