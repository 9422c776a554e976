package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookiegate/pkg/platform/privacy"
	"cookiegate/pkg/requestcontext"
)

func TestEnricherNewEvent(t *testing.T) {
	hasher, err := privacy.NewIPHasher("test-key")
	require.NoError(t, err)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithDeviceID(ctx, "dev-1")
	ctx = requestcontext.WithCountry(ctx, "FR")
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.77",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	e := NewEnricher(hasher).NewEvent(ctx, ActionConsentSaved)

	assert.NotEqual(t, [16]byte{}, [16]byte(e.ID))
	assert.Equal(t, now.UTC(), e.Timestamp)
	assert.Equal(t, ActionConsentSaved, e.Action)
	assert.Equal(t, "dev-1", e.DeviceID)
	assert.Equal(t, "FR", e.Country)
	assert.Equal(t, "req-42", e.RequestID)
	assert.Equal(t, "203.0.113.0", e.IPPrefix)
	assert.Equal(t, hasher.Hash("203.0.113.77"), e.IPHash)
	assert.NotContains(t, e.IPHash, "203.0.113.77")
	assert.Contains(t, e.Device, "Chrome on Linux")
}

func TestEnricherWithoutKey(t *testing.T) {
	ctx := requestcontext.WithClientMetadata(context.Background(), "198.51.100.23", "")

	e := NewEnricher(nil).NewEvent(ctx, ActionConsentSaved)

	assert.Empty(t, e.IPHash)
	assert.Equal(t, "198.51.100.0", e.IPPrefix)
}

func TestDeviceSummary(t *testing.T) {
	tests := []struct {
		name     string
		ua       string
		contains []string
	}{
		{"empty", "", []string{"Unknown Device"}},
		{"firefox on windows", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0", []string{"Firefox", " on ", "Windows"}},
		{"safari on iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", []string{"Safari", "iPhone"}},
		{"crawler", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", []string{"Bot"}},
		{"unknown agent", "Unknown/1.0", []string{" on "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeviceSummary(tt.ua)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}
}
