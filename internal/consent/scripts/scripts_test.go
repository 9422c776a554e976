package scripts

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookiegate/internal/consent/metrics"
	"cookiegate/internal/consent/models"
)

func TestRegistry(t *testing.T) {
	t.Run("unset providers register nothing", func(t *testing.T) {
		r := NewRegistry(Providers{})
		for _, c := range models.AllCategories {
			assert.Empty(t, r.For(c))
		}
	})

	t.Run("configured providers land in their categories", func(t *testing.T) {
		r := NewRegistry(Providers{
			GAMeasurementID: "G-TEST123",
			MetaPixelID:     "998877",
			HotjarSiteID:    "4242",
			AffiliateTagURL: "https://partners.example.com/tag.js",
		})
		require.Len(t, r.For(models.CategoryAnalytics), 1)
		assert.Equal(t, GoogleAnalyticsID, r.For(models.CategoryAnalytics)[0].ID)
		assert.Contains(t, r.For(models.CategoryAnalytics)[0].Src, "id=G-TEST123")
		assert.Equal(t, MetaPixelID, r.For(models.CategoryMarketing)[0].ID)
		assert.Equal(t, HotjarID, r.For(models.CategoryPerformance)[0].ID)
		assert.Equal(t, AffiliateID, r.For(models.CategoryAffiliate)[0].ID)

		s, ok := r.Lookup(HotjarID)
		require.True(t, ok)
		assert.Equal(t, "https://static.hotjar.com/c/hotjar-4242.js?sv=6", s.Src)
	})

	t.Run("rejects bad registrations", func(t *testing.T) {
		r := NewRegistry(Providers{GAMeasurementID: "G-1"})
		assert.Error(t, r.Register(Script{Category: models.CategoryAnalytics}))
		assert.Error(t, r.Register(Script{ID: "x", Category: "tracking"}))
		assert.Error(t, r.Register(Script{ID: "x", Category: models.CategoryThirdParty, Src: "javascript:alert(1)"}))
		assert.Error(t, r.Register(Script{ID: GoogleAnalyticsID, Category: models.CategoryThirdParty}))
		assert.Error(t, r.Register(Script{ID: "y", Category: models.CategoryThirdParty, Init: []Command{{Fn: "alert(1);x"}}}))
	})
}

func TestCommandJS(t *testing.T) {
	js, err := Command{Fn: "gtag", Args: []any{"config", "G-1"}}.JS()
	require.NoError(t, err)
	assert.Equal(t, `gtag.apply(window,["config","G-1"])`, string(js))

	js, err = Command{Fn: "fbq", Args: []any{"track", "</script><script>alert(1)"}}.JS()
	require.NoError(t, err)
	assert.NotContains(t, string(js), "</script>")

	_, err = Command{Fn: "window['x']"}.JS()
	assert.Error(t, err)
}

func TestHeadDocument(t *testing.T) {
	t.Run("append is keyed by id", func(t *testing.T) {
		doc := NewHeadDocument()
		ga := GoogleAnalytics("G-1")
		require.NoError(t, doc.AppendScript(ga))
		require.NoError(t, doc.AppendScript(ga))
		assert.True(t, doc.HasScript(GoogleAnalyticsID))
		assert.Len(t, doc.Scripts(), 1)
		assert.Error(t, doc.AppendScript(Script{}))
	})

	t.Run("renders tags then init commands", func(t *testing.T) {
		doc := NewHeadDocument()
		ga := GoogleAnalytics("G-1")
		require.NoError(t, doc.AppendScript(ga))
		for _, c := range ga.Init {
			require.NoError(t, doc.Exec(c))
		}

		html, err := doc.HTML()
		require.NoError(t, err)
		assert.Contains(t, html, `<script id="ga4-gtag" src="https://www.googletagmanager.com/gtag/js?id=G-1" data-category="analytics" async></script>`)
		assert.Contains(t, html, "function gtag(){dataLayer.push(arguments);}")
		assert.Contains(t, html, `gtag.apply(window,["config","G-1",{"anonymize_ip":true}]);`)
		assert.Less(t, strings.Index(html, `id="ga4-gtag"`), strings.Index(html, `data-consent-id="init"`))
	})

	t.Run("empty document renders nothing", func(t *testing.T) {
		html, err := NewHeadDocument().HTML()
		require.NoError(t, err)
		assert.Empty(t, html)
	})

	t.Run("exec rejects invalid function names", func(t *testing.T) {
		assert.Error(t, NewHeadDocument().Exec(Command{Fn: "1bad"}))
	})
}

func TestDocumentInjector(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(Providers{GAMeasurementID: "G-1", MetaPixelID: "55"})
	doc := NewHeadDocument()
	inj := NewDocumentInjector(doc, registry, metrics.NewWithRegistry(prometheus.NewRegistry()))

	require.NoError(t, inj.Inject(ctx, models.CategoryEssential))
	assert.Empty(t, doc.Scripts())

	require.NoError(t, inj.Inject(ctx, models.CategoryAnalytics))
	require.NoError(t, inj.Inject(ctx, models.CategoryAnalytics))
	assert.Len(t, doc.Scripts(), 1)
	assert.Len(t, doc.Commands(), 2, "init runs once per injected tag")

	require.NoError(t, inj.Inject(ctx, models.CategoryMarketing))
	assert.Len(t, doc.Scripts(), 2)
	assert.Equal(t, "fbq", doc.Commands()[2].Fn)
}
