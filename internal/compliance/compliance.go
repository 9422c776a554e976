// Package compliance maps visitor countries onto privacy regimes and exposes
// the rule set each regime imposes on consent collection.
//
// The engine is a pure lookup: it holds no state and performs no I/O. The
// consent storage layer consults it when stamping new records and banners
// consult it when choosing default toggle states.
package compliance

import (
	"strings"
)

// Region is a jurisdiction bucket driving consent defaults and retention.
type Region string

const (
	RegionEU     Region = "eu"
	RegionUK     Region = "uk"
	RegionUSCA   Region = "us_ca"
	RegionIndia  Region = "india"
	RegionGlobal Region = "global"
)

// OptOut describes how a visitor withdraws from processing in a region.
type OptOut string

const (
	OptOutWithdraw  OptOut = "withdraw_consent"
	OptOutDoNotSell OptOut = "do_not_sell"
	OptOutBanner    OptOut = "banner_settings"
)

// DefaultRetentionDays applies when a region sets no stricter retention norm.
const DefaultRetentionDays = 365

// Rules is the rule tuple attached to a region.
type Rules struct {
	Region                  Region `json:"region"`
	RequiresExplicitConsent bool   `json:"requiresExplicitConsent"`
	RequiresGranularControl bool   `json:"requiresGranularControl"`
	CookieExpiryDays        int    `json:"cookieExpiryDays"`
	RightToDelete           bool   `json:"rightToDelete"`
	RightToAccess           bool   `json:"rightToAccess"`
	OptOutMechanism         OptOut `json:"optOutMechanism"`
	MustNotPreTickBoxes     bool   `json:"mustNotPreTickBoxes"`
}

var rules = map[Region]Rules{
	RegionEU: {
		Region:                  RegionEU,
		RequiresExplicitConsent: true,
		RequiresGranularControl: true,
		CookieExpiryDays:        365,
		RightToDelete:           true,
		RightToAccess:           true,
		OptOutMechanism:         OptOutWithdraw,
		MustNotPreTickBoxes:     true,
	},
	RegionUK: {
		Region:                  RegionUK,
		RequiresExplicitConsent: true,
		RequiresGranularControl: true,
		CookieExpiryDays:        365,
		RightToDelete:           true,
		RightToAccess:           true,
		OptOutMechanism:         OptOutWithdraw,
		MustNotPreTickBoxes:     true,
	},
	RegionUSCA: {
		Region:                  RegionUSCA,
		RequiresExplicitConsent: false,
		RequiresGranularControl: true,
		CookieExpiryDays:        90,
		RightToDelete:           true,
		RightToAccess:           true,
		OptOutMechanism:         OptOutDoNotSell,
		MustNotPreTickBoxes:     false,
	},
	RegionIndia: {
		Region:                  RegionIndia,
		RequiresExplicitConsent: true,
		RequiresGranularControl: true,
		CookieExpiryDays:        180,
		RightToDelete:           true,
		RightToAccess:           true,
		OptOutMechanism:         OptOutWithdraw,
		MustNotPreTickBoxes:     true,
	},
	RegionGlobal: {
		Region:                  RegionGlobal,
		RequiresExplicitConsent: false,
		RequiresGranularControl: false,
		CookieExpiryDays:        DefaultRetentionDays,
		RightToDelete:           false,
		RightToAccess:           false,
		OptOutMechanism:         OptOutBanner,
		MustNotPreTickBoxes:     false,
	},
}

// membership lists, upper-case country codes.
var members = map[Region][]string{
	RegionEU: {
		"AT", "BE", "BG", "HR", "CY", "CZ", "DK", "EE", "FI", "FR", "DE", "GR", "HU", "IE",
		"IT", "LV", "LT", "LU", "MT", "NL", "PL", "PT", "RO", "SK", "SI", "ES", "SE",
		"IS", "LI", "NO",
	},
	RegionUK:    {"GB", "UK"},
	RegionUSCA:  {"US", "US-CA"},
	RegionIndia: {"IN"},
}

var countryToRegion = func() map[string]Region {
	out := make(map[string]Region)
	for region, codes := range members {
		for _, code := range codes {
			out[code] = region
		}
	}
	return out
}()

// Regions returns every known region in a stable order.
func Regions() []Region {
	return []Region{RegionEU, RegionUK, RegionUSCA, RegionIndia, RegionGlobal}
}

// IsValid reports whether r is a known region.
func (r Region) IsValid() bool {
	_, ok := rules[r]
	return ok
}

func (r Region) String() string {
	return string(r)
}

// ResolveRegion maps a country code onto a region. Matching is
// case-insensitive; empty or unknown codes resolve to RegionGlobal.
func ResolveRegion(country string) Region {
	code := strings.ToUpper(strings.TrimSpace(country))
	if code == "" {
		return RegionGlobal
	}
	if region, ok := countryToRegion[code]; ok {
		return region
	}
	return RegionGlobal
}

// RulesFor returns the rule tuple for region, falling back to the global rules.
func RulesFor(region Region) Rules {
	if r, ok := rules[region]; ok {
		return r
	}
	return rules[RegionGlobal]
}

// MustNotPreTickBoxes reports whether banners in region must render every
// non-essential toggle off.
func MustNotPreTickBoxes(region Region) bool {
	return RulesFor(region).MustNotPreTickBoxes
}

// RetentionDays is the number of days a new consent record stays valid.
func RetentionDays(region Region) int {
	return RulesFor(region).CookieExpiryDays
}

// GDPRApplicable reports whether GDPR (or UK GDPR) governs region.
func GDPRApplicable(region Region) bool {
	return region == RegionEU || region == RegionUK
}

// CCPAApplicable reports whether CCPA/CPRA governs region.
func CCPAApplicable(region Region) bool {
	return region == RegionUSCA
}

// DefaultToggles returns the initial state a banner should show for each
// non-essential category. Regions that forbid pre-ticked boxes get all false;
// elsewhere toggles start on, which still requires a user action to persist.
func DefaultToggles(region Region, categories []string) map[string]bool {
	on := !MustNotPreTickBoxes(region)
	out := make(map[string]bool, len(categories))
	for _, c := range categories {
		out[c] = on
	}
	return out
}
