package handler_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookiegate/internal/audit"
	"cookiegate/internal/consent/handler"
	"cookiegate/internal/consent/models"
	"cookiegate/internal/consent/scripts"
	"cookiegate/internal/consent/service"
	"cookiegate/internal/consent/store"
	"cookiegate/internal/platform/health"
	httptransport "cookiegate/internal/transport/http"
	"cookiegate/pkg/platform/middleware/metadata"
	"cookiegate/pkg/platform/middleware/request"
)

const flowInternalToken = "flow-internal-token"

type browser struct {
	t       *testing.T
	base    string
	client  *http.Client
	headers map[string]string
}

func newBrowser(t *testing.T, server *httptest.Server) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: server.URL, client: &http.Client{Jar: jar}}
}

func (b *browser) call(method, path string, body any, out any) *http.Response {
	b.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, b.base+path, reader)
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("CF-IPCountry", "FR")
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(b.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (b *browser) cookie(name string) *http.Cookie {
	u, _ := url.Parse(b.base)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func newServer(t *testing.T) (*httptest.Server, *audit.InMemoryStore) {
	events := audit.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(
		service.WithLogger(logger),
		service.WithMirror(store.NewInMemory()),
		service.WithAuditor(audit.NewPublisher(audit.WithSink(events)), nil),
		service.WithScripts(scripts.NewRegistry(scripts.Providers{GAMeasurementID: "G-FLOW"})),
	)
	router := httptransport.NewRouter(httptransport.Config{
		Logger:   logger,
		Health:   health.New("test"),
		Metadata: &metadata.Config{CountryHeader: "CF-IPCountry", TrustCountryHeader: true},
	}, handler.New(svc, logger, "", handler.WithInternalToken(flowInternalToken)))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, events
}

func TestConsentLifecycleOverHTTP(t *testing.T) {
	server, events := newServer(t)
	b := newBrowser(t, server)

	var got models.GetConsentResponse
	b.call(http.MethodGet, "/api/cookies/consent", nil, &got)
	assert.False(t, got.HasConsent)
	require.NotNil(t, b.cookie("consent_device_id"), "device id cookie is issued on first contact")

	var saved models.SaveConsentResponse
	resp := b.call(http.MethodPost, "/api/cookies/consent", map[string]any{
		"categories": map[string]bool{"analytics": true},
		"source":     "banner_preferences",
	}, &saved)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, saved.Success)

	consent := b.cookie(models.CookieName)
	require.NotNil(t, consent)
	raw, err := base64.StdEncoding.DecodeString(consent.Value)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"s":"bp"`)

	var verify models.VerifyResponse
	b.call(http.MethodPost, "/api/cookies/verify", map[string]string{"category": "analytics"}, &verify)
	assert.True(t, verify.Allowed)
	assert.Equal(t, "eu", verify.Region)

	var scriptsResp models.ScriptsResponse
	b.call(http.MethodGet, "/api/cookies/scripts", nil, &scriptsResp)
	require.Len(t, scriptsResp.Scripts, 1)
	assert.Equal(t, scripts.GoogleAnalyticsID, scriptsResp.Scripts[0].ID)

	var device models.DeviceConsentResponse
	b.headers = map[string]string{request.HeaderInternalToken: flowInternalToken}
	resp = b.call(http.MethodGet, "/api/cookies/devices/"+b.cookie("consent_device_id").Value, nil, &device)
	b.headers = nil
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, device.Categories["analytics"])

	resp = b.call(http.MethodDelete, "/api/cookies/revoke?reason=settings", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, b.cookie(models.CookieName), "revoke clears the consent cookie")

	b.call(http.MethodPost, "/api/cookies/verify", map[string]string{"category": "analytics"}, &verify)
	assert.False(t, verify.Allowed)

	actions := make([]audit.Action, 0, 2)
	for _, e := range events.All() {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []audit.Action{audit.ActionConsentSaved, audit.ActionConsentRevoked}, actions)
}

func TestRejectAllOverHTTP(t *testing.T) {
	server, _ := newServer(t)
	b := newBrowser(t, server)

	b.call(http.MethodPost, "/api/cookies/consent", map[string]any{
		"categories": map[string]bool{},
		"source":     "banner_reject_all",
	}, nil)

	var got models.GetConsentResponse
	b.call(http.MethodGet, "/api/cookies/consent", nil, &got)
	require.True(t, got.HasConsent)
	assert.Equal(t, []models.Category{models.CategoryEssential}, got.Consent.Categories.Granted())

	var scriptsResp models.ScriptsResponse
	b.call(http.MethodGet, "/api/cookies/scripts", nil, &scriptsResp)
	assert.Empty(t, scriptsResp.Scripts)
}

func TestPlatformEndpoints(t *testing.T) {
	server, _ := newServer(t)
	b := newBrowser(t, server)

	resp := b.call(http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = b.call(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/cookies/consent", bytes.NewBufferString("categories=1"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, raw.StatusCode)
}
