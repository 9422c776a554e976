package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cucumber/godog"

	"cookiegate/internal/consent/models"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background steps
	ctx.Step(`^the consent service is running$`, tc.serviceIsRunning)
	ctx.Step(`^I am browsing from "([^"]*)"$`, tc.browsingFrom)

	// Request steps
	ctx.Step(`^I GET "([^"]*)"$`, tc.get)
	ctx.Step(`^I accept all cookies$`, tc.acceptAll)
	ctx.Step(`^I reject all cookies$`, tc.rejectAll)
	ctx.Step(`^I save consent granting "([^"]*)"$`, tc.saveGranting)
	ctx.Step(`^I update consent with "([^"]*)" set to (true|false)$`, tc.updateCategory)
	ctx.Step(`^I revoke consent because "([^"]*)"$`, tc.revoke)
	ctx.Step(`^I verify consent for "([^"]*)"$`, tc.verify)

	// Assertion steps
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response should not contain "([^"]*)"$`, tc.responseShouldNotContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^I should hold a "([^"]*)" cookie$`, tc.shouldHoldCookie)
	ctx.Step(`^I should not hold a consent cookie$`, tc.shouldNotHoldConsentCookie)
	ctx.Step(`^only essential cookies should be granted$`, tc.onlyEssentialGranted)
	ctx.Step(`^(\d+) audit events? should have been recorded$`, tc.auditEventsRecorded)
}

func (tc *TestContext) serviceIsRunning(ctx context.Context) error {
	if err := tc.Do(http.MethodGet, "/health/live", nil); err != nil {
		return err
	}
	return tc.responseStatusShouldBe(ctx, http.StatusOK)
}

func (tc *TestContext) browsingFrom(_ context.Context, country string) error {
	tc.Country = country
	return nil
}

func (tc *TestContext) get(_ context.Context, path string) error {
	return tc.Do(http.MethodGet, path, nil)
}

func (tc *TestContext) acceptAll(_ context.Context) error {
	all := map[string]bool{}
	for _, c := range models.AllCategories {
		all[string(c)] = true
	}
	return tc.save(all, models.SourceBannerAcceptAll)
}

func (tc *TestContext) rejectAll(_ context.Context) error {
	return tc.save(map[string]bool{}, models.SourceBannerRejectAll)
}

func (tc *TestContext) saveGranting(_ context.Context, list string) error {
	granted := map[string]bool{}
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			granted[name] = true
		}
	}
	return tc.save(granted, models.SourceBannerPreferences)
}

func (tc *TestContext) save(categories map[string]bool, source models.Source) error {
	return tc.Do(http.MethodPost, "/api/cookies/consent", map[string]any{
		"categories": categories,
		"source":     source,
	})
}

func (tc *TestContext) updateCategory(_ context.Context, category, granted string) error {
	return tc.Do(http.MethodPost, "/api/cookies/update", map[string]any{
		"categories": map[string]bool{category: granted == "true"},
	})
}

func (tc *TestContext) revoke(_ context.Context, reason string) error {
	return tc.Do(http.MethodDelete, "/api/cookies/revoke?reason="+url.QueryEscape(reason), nil)
}

func (tc *TestContext) verify(_ context.Context, category string) error {
	return tc.Do(http.MethodPost, "/api/cookies/verify", map[string]any{"category": category})
}

func (tc *TestContext) responseStatusShouldBe(_ context.Context, expected int) error {
	if tc.Status() != expected {
		return fmt.Errorf("expected status %d but got %d", expected, tc.Status())
	}
	return nil
}

func (tc *TestContext) responseShouldContain(_ context.Context, text string) error {
	if !strings.Contains(string(tc.LastResponseBody), text) {
		return fmt.Errorf("response does not contain %q\nResponse: %s", text, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseShouldNotContain(_ context.Context, text string) error {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return fmt.Errorf("response unexpectedly contains %q\nResponse: %s", text, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(_ context.Context, field, expected string) error {
	actual, err := tc.Field(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(actual) != expected {
		return fmt.Errorf("field %s: expected %s but got %v", field, expected, actual)
	}
	return nil
}

func (tc *TestContext) shouldHoldCookie(_ context.Context, name string) error {
	if c := tc.Cookie(name); c == nil || c.Value == "" {
		return fmt.Errorf("cookie %s not set", name)
	}
	return nil
}

func (tc *TestContext) shouldNotHoldConsentCookie(_ context.Context) error {
	if c := tc.Cookie(models.CookieName); c != nil && c.Value != "" {
		return fmt.Errorf("consent cookie still present: %s", c.Value)
	}
	return nil
}

func (tc *TestContext) onlyEssentialGranted(_ context.Context) error {
	if err := tc.Do(http.MethodGet, "/api/cookies/consent", nil); err != nil {
		return err
	}
	for _, c := range models.AllCategories {
		want := c == models.CategoryEssential
		got, err := tc.Field("consent.categories." + string(c))
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("category %s: expected %v but got %v", c, want, got)
		}
	}
	return nil
}

func (tc *TestContext) auditEventsRecorded(_ context.Context, n int) error {
	if tc.events == nil {
		return godog.ErrSkip
	}
	events := tc.events.All()
	if len(events) != n {
		return fmt.Errorf("expected %d audit events but got %d", n, len(events))
	}
	return nil
}
