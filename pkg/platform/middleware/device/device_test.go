package device

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookiegate/pkg/requestcontext"
)

func TestDeviceMiddleware(t *testing.T) {
	capture := func(dst *string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*dst = requestcontext.DeviceID(r.Context())
		})
	}

	t.Run("reuses an existing device cookie", func(t *testing.T) {
		var got string
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "0b7f8a5e-3c1d-4e2f-9a6b-5c4d3e2f1a0b"})
		w := httptest.NewRecorder()

		Device(Config{})(capture(&got)).ServeHTTP(w, req)

		assert.Equal(t, "0b7f8a5e-3c1d-4e2f-9a6b-5c4d3e2f1a0b", got)
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("issues a cookie when missing", func(t *testing.T) {
		var got string
		w := httptest.NewRecorder()

		Device(Config{Secure: true})(capture(&got)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Len(t, w.Result().Cookies(), 1)
		c := w.Result().Cookies()[0]
		assert.Equal(t, DefaultCookieName, c.Name)
		assert.Equal(t, got, c.Value)
		assert.True(t, c.Secure)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	})

	t.Run("replaces malformed ids", func(t *testing.T) {
		var got string
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "../../etc"})
		w := httptest.NewRecorder()

		Device(Config{})(capture(&got)).ServeHTTP(w, req)

		assert.NotEqual(t, "../../etc", got)
		assert.Len(t, got, 36)
	})
}
