package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookiegate/internal/consent/models"
	"cookiegate/pkg/platform/sentinel"
	"cookiegate/pkg/requestcontext"
	"cookiegate/pkg/testutil"
)

func TestRequestJar(t *testing.T) {
	ctx := context.Background()

	t.Run("reads inbound cookies", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "a", Value: "1"})
		jar := NewRequestJar(httptest.NewRecorder(), r)

		v, err := jar.Cookie(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "1", v)
		_, err = jar.Cookie(ctx, "b")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("pending writes are visible and replace earlier headers", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "a", Value: "old"})
		w := httptest.NewRecorder()
		jar := NewRequestJar(w, r)

		require.NoError(t, jar.SetCookie(ctx, &http.Cookie{Name: "a", Value: "first"}))
		require.NoError(t, jar.SetCookie(ctx, &http.Cookie{Name: "other", Value: "x"}))
		require.NoError(t, jar.SetCookie(ctx, &http.Cookie{Name: "a", Value: "second"}))

		v, err := jar.Cookie(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "second", v)

		headers := w.Header().Values("Set-Cookie")
		assert.Len(t, headers, 2)
		assert.Contains(t, headers, "a=second")
	})

	t.Run("deleted cookie reads as missing", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "a", Value: "old"})
		jar := NewRequestJar(httptest.NewRecorder(), r)

		require.NoError(t, jar.SetCookie(ctx, &http.Cookie{Name: "a", MaxAge: -1}))
		_, err := jar.Cookie(ctx, "a")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("invalid cookie name is rejected", func(t *testing.T) {
		jar := NewRequestJar(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Error(t, jar.SetCookie(ctx, &http.Cookie{Name: "bad name", Value: "x"}))
	})
}

func TestCookieAttributes(t *testing.T) {
	ctx := requestcontext.WithTime(context.Background(), testutil.FixedNow)
	w := httptest.NewRecorder()
	jar := NewRequestJar(w, httptest.NewRequest(http.MethodGet, "/", nil))

	_, err := NewServer(jar, WithSecureCookies(true)).AcceptAll(ctx, "")
	require.NoError(t, err)

	resp := w.Result()
	defer resp.Body.Close()
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, models.CookieName, c.Name)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, CookieMaxAge, c.MaxAge)
	assert.True(t, c.Secure)
	assert.False(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.LessOrEqual(t, len(w.Header().Get("Set-Cookie")), MaxCookieBytes)
}

func TestServerRoundTripThroughHeaders(t *testing.T) {
	ctx := requestcontext.WithTime(context.Background(), testutil.FixedNow)

	w := httptest.NewRecorder()
	_, err := NewServer(NewRequestJar(w, httptest.NewRequest(http.MethodPost, "/", nil))).RejectAll(ctx, "")
	require.NoError(t, err)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.Header.Set("Cookie", strings.Split(w.Header().Get("Set-Cookie"), ";")[0])
	adapter := NewServer(NewRequestJar(httptest.NewRecorder(), next))

	assert.False(t, adapter.ShouldShowBanner(ctx))
	assert.True(t, adapter.HasConsent(ctx, models.CategoryEssential))
	assert.False(t, adapter.HasConsent(ctx, models.CategoryAnalytics))
}

func TestMemoryTier(t *testing.T) {
	ctx := context.Background()
	tier := NewMemoryTier()
	_, err := tier.Read(ctx)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	rec := testutil.NewRecordBuilder().Build()
	require.NoError(t, tier.Write(ctx, rec))
	rec.Categories.Analytics = true

	got, err := tier.Read(ctx)
	require.NoError(t, err)
	assert.False(t, got.Categories.Analytics, "tier keeps its own copy")

	require.NoError(t, tier.Delete(ctx))
	_, err = tier.Read(ctx)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
