package request

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "cookiegate/pkg/domain-errors"
	"cookiegate/pkg/platform/httputil"
	"cookiegate/pkg/requestcontext"
)

// HeaderInternalToken carries the shared secret of service-to-service calls.
const HeaderInternalToken = "X-Internal-Token"

// RequireToken admits requests whose X-Internal-Token equals expected. An
// empty expected token admits nothing.
func RequireToken(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(HeaderInternalToken)
			if expected == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "internal token rejected",
					"route", r.Method+" "+r.URL.Path,
					"token_present", got != "",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "internal token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
