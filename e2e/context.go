package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"time"

	"cookiegate/internal/audit"
	"cookiegate/internal/consent/handler"
	"cookiegate/internal/consent/scripts"
	"cookiegate/internal/consent/service"
	"cookiegate/internal/consent/store"
	"cookiegate/internal/platform/health"
	httptransport "cookiegate/internal/transport/http"
	"cookiegate/pkg/platform/middleware/metadata"
)

// MeasurementID is the GA id the in-process server renders when enabled.
const MeasurementID = "G-E2E"

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	Country          string
	LastResponse     *http.Response
	LastResponseBody []byte

	server *httptest.Server
	events *audit.InMemoryStore
}

// NewTestContext creates a new test context. Without BASE_URL the suite runs
// against an in-process server.
func NewTestContext() (*TestContext, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	tc := &TestContext{
		BaseURL:    os.Getenv("BASE_URL"),
		HTTPClient: &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}
	if tc.BaseURL == "" {
		tc.startServer()
	}
	return tc, nil
}

func (tc *TestContext) startServer() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tc.events = audit.NewInMemoryStore()
	svc := service.New(
		service.WithLogger(logger),
		service.WithMirror(store.NewInMemory()),
		service.WithAuditor(audit.NewPublisher(audit.WithSink(tc.events)), nil),
		service.WithScripts(scripts.NewRegistry(scripts.Providers{GAMeasurementID: MeasurementID})),
	)
	router := httptransport.NewRouter(httptransport.Config{
		Logger:   logger,
		Health:   health.New("e2e"),
		Metadata: &metadata.Config{CountryHeader: "CF-IPCountry", TrustCountryHeader: true},
	}, handler.New(svc, logger, ""))
	tc.server = httptest.NewServer(router)
	tc.BaseURL = tc.server.URL
}

// Close stops the in-process server, if any.
func (tc *TestContext) Close() {
	if tc.server != nil {
		tc.server.Close()
	}
}

// Do sends a JSON request and stores the response.
func (tc *TestContext) Do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tc.Country != "" {
		req.Header.Set("CF-IPCountry", tc.Country)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// Field walks a dotted path ("consent.categories.analytics") through the last
// JSON response.
func (tc *TestContext) Field(path string) (any, error) {
	var data any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	for _, key := range strings.Split(path, ".") {
		obj, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s not found in response", path)
		}
		if data, ok = obj[key]; !ok {
			return nil, fmt.Errorf("field %s not found in response", path)
		}
	}
	return data, nil
}

// Cookie returns the named cookie the client currently holds.
func (tc *TestContext) Cookie(name string) *http.Cookie {
	u, err := url.Parse(tc.BaseURL)
	if err != nil {
		return nil
	}
	for _, c := range tc.HTTPClient.Jar.Cookies(u) {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Status of the last response, zero before any request.
func (tc *TestContext) Status() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}
