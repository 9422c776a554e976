package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cookiegate/internal/audit"
	"cookiegate/internal/compliance"
	"cookiegate/internal/consent/models"
	"cookiegate/internal/consent/scripts"
	"cookiegate/internal/consent/storage"
	"cookiegate/internal/consent/store"
	dErrors "cookiegate/pkg/domain-errors"
	"cookiegate/pkg/requestcontext"
	"cookiegate/pkg/testutil"
)

const testDeviceID = "3f1c2a9e-6b7d-4e8f-9a0b-1c2d3e4f5a6b"

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	cookies *store.InMemoryStore
	jar     *storage.StoreJar
	mirror  *store.InMemoryStore
	events  *audit.InMemoryStore
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	ctx := requestcontext.WithTime(context.Background(), testutil.FixedNow)
	ctx = requestcontext.WithCountry(ctx, "DE")
	ctx = requestcontext.WithDeviceID(ctx, testDeviceID)
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.7", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	s.ctx = requestcontext.WithRequestID(ctx, "req-1")

	s.cookies = store.NewInMemory()
	s.jar = storage.NewStoreJar(s.cookies)
	s.mirror = store.NewInMemory()
	s.events = audit.NewInMemoryStore()
	s.service = New(
		WithMirror(s.mirror),
		WithAuditor(audit.NewPublisher(audit.WithSink(s.events)), nil),
		WithScripts(scripts.NewRegistry(scripts.Providers{GAMeasurementID: "G-TEST", MetaPixelID: "1234"})),
	)
}

func (s *ServiceSuite) save(categories map[string]bool, source string) {
	req := &models.SaveConsentRequest{Categories: categories, Source: source}
	req.Normalize()
	s.Require().NoError(req.Validate())
	_, err := s.service.Save(s.ctx, s.jar, req)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestGet() {
	s.Run("no cookie means no consent", func() {
		resp := s.service.Get(s.ctx, s.jar)
		s.False(resp.HasConsent)
		s.Nil(resp.Consent)
	})

	s.Run("returns the stored record", func() {
		s.save(map[string]bool{"analytics": true}, "banner_preferences")

		resp := s.service.Get(s.ctx, s.jar)
		s.True(resp.HasConsent)
		s.Require().NotNil(resp.Consent)
		s.True(resp.Consent.Categories.Get(models.CategoryAnalytics))
		s.False(resp.Consent.Categories.Get(models.CategoryMarketing))
		s.Equal(models.SourceBannerPreferences, resp.Consent.Source)
	})
}

func (s *ServiceSuite) TestSave() {
	s.Run("persists, mirrors and audits", func() {
		req := &models.SaveConsentRequest{Categories: map[string]bool{"analytics": true, "marketing": true}}
		resp, err := s.service.Save(s.ctx, s.jar, req)
		s.Require().NoError(err)
		s.True(resp.Success)
		s.Equal(testutil.FixedNow.UnixMilli(), resp.Timestamp)

		device, err := s.service.Device(s.ctx, testDeviceID)
		s.Require().NoError(err)
		s.True(device.Categories["marketing"])
		s.Equal(models.SourceAPICall, device.Source)

		events := s.events.All()
		s.Require().Len(events, 1)
		s.Equal(audit.ActionConsentSaved, events[0].Action)
		s.Equal([]string{"essential", "analytics", "marketing"}, events[0].Categories)
		s.Equal(string(compliance.RegionEU), events[0].Region)
		s.Equal(testDeviceID, events[0].DeviceID)
		s.Equal("203.0.113.0", events[0].IPPrefix)
	})

	s.Run("explicit=false is stored as implicit acceptance", func() {
		explicit := false
		req := &models.SaveConsentRequest{Categories: map[string]bool{"analytics": true}, Explicit: &explicit}
		_, err := s.service.Save(s.ctx, s.jar, req)
		s.Require().NoError(err)

		s.False(s.service.Get(s.ctx, s.jar).HasConsent, "implicit records do not count as a decision")

		verdict := s.service.Verify(s.ctx, s.jar, &models.VerifyRequest{Category: "analytics"})
		s.False(verdict.Allowed, "an implicit record grants essential only")
		s.True(s.service.Verify(s.ctx, s.jar, &models.VerifyRequest{Category: "essential"}).Allowed)

		rendered, err := s.service.Scripts(s.ctx, s.jar)
		s.Require().NoError(err)
		s.Equal([]models.Category{models.CategoryEssential}, rendered.Categories)
		s.NotContains(rendered.HTML, "G-TEST")
	})

	s.Run("client supplied ip hash is kept when the server has no key", func() {
		s.events.Clear()
		req := &models.SaveConsentRequest{Categories: map[string]bool{}, IPHash: "abc123"}
		_, err := s.service.Save(s.ctx, s.jar, req)
		s.Require().NoError(err)
		s.Equal("abc123", s.events.All()[0].IPHash)
	})

	s.Run("cookie write failure is returned and not audited", func() {
		s.events.Clear()
		s.cookies.FailWrites(errors.New("disk full"))
		defer s.cookies.FailWrites(nil)

		_, err := s.service.Save(s.ctx, s.jar, &models.SaveConsentRequest{Categories: map[string]bool{"analytics": true}})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.Empty(s.events.All())
	})
}

func (s *ServiceSuite) TestUpdate() {
	s.save(map[string]bool{"analytics": true}, "banner_preferences")
	s.events.Clear()

	req := &models.UpdateConsentRequest{Categories: map[string]bool{"marketing": true}}
	resp, err := s.service.Update(s.ctx, s.jar, req)
	s.Require().NoError(err)

	s.True(resp.Consent.Categories.Get(models.CategoryAnalytics), "untouched categories survive")
	s.True(resp.Consent.Categories.Get(models.CategoryMarketing))
	s.True(resp.Consent.Categories.Get(models.CategoryEssential))
	s.Equal(models.SourcePreferencesPage, resp.Consent.Source)
	s.Equal(audit.ActionConsentUpdated, s.events.All()[0].Action)

	s.Run("essential is coerced back on", func() {
		resp, err := s.service.Update(s.ctx, s.jar, &models.UpdateConsentRequest{Categories: map[string]bool{"essential": false}})
		s.Require().NoError(err)
		s.True(resp.Consent.Categories.Get(models.CategoryEssential))
	})

	s.Run("unknown categories are rejected", func() {
		_, err := s.service.Update(s.ctx, s.jar, &models.UpdateConsentRequest{Categories: map[string]bool{"tracking": true}})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestDelete() {
	s.save(map[string]bool{"analytics": true}, "")
	s.Require().Equal(1, s.mirror.Len())

	s.Require().NoError(s.service.Delete(s.ctx, s.jar))

	s.False(s.service.Get(s.ctx, s.jar).HasConsent)
	s.Zero(s.mirror.Len())
	_, err := s.service.Device(s.ctx, testDeviceID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	events := s.events.All()
	s.Equal(audit.ActionConsentDeleted, events[len(events)-1].Action)
}

func (s *ServiceSuite) TestRevoke() {
	s.save(map[string]bool{"analytics": true, "marketing": true}, "")

	s.Require().NoError(s.service.Revoke(s.ctx, s.jar, ""))

	s.False(s.service.Get(s.ctx, s.jar).HasConsent, "cookie is cleared")

	device, err := s.service.Device(s.ctx, testDeviceID)
	s.Require().NoError(err)
	s.False(device.Categories["analytics"], "mirror no longer grants")
	s.True(device.Categories["essential"])

	events := s.events.All()
	last := events[len(events)-1]
	s.Equal(audit.ActionConsentRevoked, last.Action)
	s.Equal("user_request", last.Reason)
	s.Equal([]string{"essential"}, last.Categories)
}

func (s *ServiceSuite) TestVerify() {
	tests := []struct {
		name     string
		stored   map[string]bool
		category string
		country  string
		allowed  bool
		region   string
	}{
		{name: "essential is always allowed", category: "essential", country: "DE", allowed: true, region: "eu"},
		{name: "no decision denies", category: "analytics", country: "DE", allowed: false, region: "eu"},
		{name: "granted category", stored: map[string]bool{"analytics": true}, category: "analytics", country: "GB", allowed: true, region: "uk"},
		{name: "denied category", stored: map[string]bool{"analytics": true}, category: "marketing", country: "BR", allowed: false, region: "global"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			jar := storage.NewStoreJar(store.NewInMemory())
			if tt.stored != nil {
				_, err := s.service.Save(s.ctx, jar, &models.SaveConsentRequest{Categories: tt.stored})
				s.Require().NoError(err)
			}
			ctx := requestcontext.WithCountry(s.ctx, tt.country)

			resp := s.service.Verify(ctx, jar, &models.VerifyRequest{Category: tt.category})
			s.Equal(tt.allowed, resp.Allowed)
			s.Equal(tt.category, resp.Category)
			s.Equal(tt.region, resp.Region)
		})
	}
}

func (s *ServiceSuite) TestExpiredRecordGrantsNothing() {
	s.save(map[string]bool{"analytics": true}, "")

	later := requestcontext.WithTime(s.ctx, testutil.FixedNow.Add(400*24*time.Hour))
	resp := s.service.Verify(later, s.jar, &models.VerifyRequest{Category: "analytics"})
	s.False(resp.Allowed)

	_, err := s.service.Device(later, testDeviceID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestScripts() {
	s.Run("nothing but essential before a decision", func() {
		resp, err := s.service.Scripts(s.ctx, s.jar)
		s.Require().NoError(err)
		s.Equal([]models.Category{models.CategoryEssential}, resp.Categories)
		s.Empty(resp.Scripts)
		s.Empty(resp.Init)
	})

	s.Run("analytics consent renders only the analytics tag", func() {
		s.save(map[string]bool{"analytics": true}, "banner_preferences")

		resp, err := s.service.Scripts(s.ctx, s.jar)
		s.Require().NoError(err)
		s.Require().Len(resp.Scripts, 1)
		s.Equal(scripts.GoogleAnalyticsID, resp.Scripts[0].ID)
		s.NotEmpty(resp.Init)
		s.Contains(resp.HTML, "G-TEST")
		s.NotContains(resp.HTML, "fbevents")
	})

	s.Run("accept all renders every configured integration", func() {
		s.save(map[string]bool{"analytics": true, "marketing": true}, "banner_accept_all")

		resp, err := s.service.Scripts(s.ctx, s.jar)
		s.Require().NoError(err)
		ids := make([]string, 0, len(resp.Scripts))
		for _, tag := range resp.Scripts {
			ids = append(ids, tag.ID)
		}
		s.ElementsMatch([]string{scripts.GoogleAnalyticsID, scripts.MetaPixelID}, ids)
	})
}

func (s *ServiceSuite) TestDevice() {
	s.Run("unknown device", func() {
		_, err := s.service.Device(s.ctx, "00000000-0000-0000-0000-000000000000")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("corrupt mirror entry reads as missing", func() {
		s.Require().NoError(s.mirror.Set(s.ctx, mirrorKeyPrefix+"bad", "!!!"))
		_, err := s.service.Device(s.ctx, "bad")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("no mirror configured", func() {
		_, err := New().Device(s.ctx, testDeviceID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("mirror failure does not fail the save", func() {
		s.mirror.FailWrites(errors.New("redis down"))
		defer s.mirror.FailWrites(nil)

		_, err := s.service.Save(s.ctx, s.jar, &models.SaveConsentRequest{Categories: map[string]bool{"analytics": true}})
		s.Require().NoError(err)
		s.True(s.service.Get(s.ctx, s.jar).HasConsent)
	})
}

func (s *ServiceSuite) TestMirrorKeepsNewestDecision() {
	s.save(map[string]bool{"analytics": true}, "banner_preferences")

	// A request stamped earlier that finishes later must not roll the mirror back.
	earlier := requestcontext.WithTime(s.ctx, testutil.FixedNow.Add(-time.Minute))
	_, err := s.service.Save(earlier, storage.NewStoreJar(store.NewInMemory()), &models.SaveConsentRequest{
		Categories: map[string]bool{"marketing": true},
	})
	s.Require().NoError(err)

	device, err := s.service.Device(s.ctx, testDeviceID)
	s.Require().NoError(err)
	s.True(device.Categories["analytics"])
	s.False(device.Categories["marketing"])

	later := requestcontext.WithTime(s.ctx, testutil.FixedNow.Add(time.Minute))
	_, err = s.service.Save(later, storage.NewStoreJar(store.NewInMemory()), &models.SaveConsentRequest{
		Categories: map[string]bool{"marketing": true},
	})
	s.Require().NoError(err)

	device, err = s.service.Device(s.ctx, testDeviceID)
	s.Require().NoError(err)
	s.True(device.Categories["marketing"])
}

func (s *ServiceSuite) TestPolicy() {
	eu := s.service.Policy(s.ctx)
	s.Equal(compliance.RegionEU, eu.Region)
	s.True(eu.Rules.MustNotPreTickBoxes)
	s.False(eu.DefaultToggles["analytics"])
	s.NotContains(eu.DefaultToggles, "essential")

	global := s.service.Policy(requestcontext.WithCountry(s.ctx, "BR"))
	s.Equal(compliance.RegionGlobal, global.Region)
	s.True(global.DefaultToggles["analytics"])
}

func (s *ServiceSuite) TestDefinitions() {
	grouped := s.service.Definitions()
	s.NotEmpty(grouped[models.CategoryEssential])
	s.NotEmpty(grouped[models.CategoryAnalytics])
}
