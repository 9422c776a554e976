package models

// Category is one of the closed set of cookie categories a visitor can consent to.
type Category string

const (
	CategoryEssential       Category = "essential"
	CategoryFunctional      Category = "functional"
	CategoryAnalytics       Category = "analytics"
	CategoryPerformance     Category = "performance"
	CategoryMarketing       Category = "marketing"
	CategoryAffiliate       Category = "affiliate"
	CategoryPersonalization Category = "personalization"
	CategoryThirdParty      Category = "third_party"
)

// AllCategories lists every category in display order, essential first.
var AllCategories = []Category{
	CategoryEssential,
	CategoryFunctional,
	CategoryAnalytics,
	CategoryPerformance,
	CategoryMarketing,
	CategoryAffiliate,
	CategoryPersonalization,
	CategoryThirdParty,
}

// ValidCategories is the single source of truth for category membership.
var ValidCategories = func() map[Category]bool {
	out := make(map[Category]bool, len(AllCategories))
	for _, c := range AllCategories {
		out[c] = true
	}
	return out
}()

// IsValid checks if the category is one of the supported enum values.
func (c Category) IsValid() bool {
	return ValidCategories[c]
}

// IsEssential reports whether c is the always-granted category.
func (c Category) IsEssential() bool {
	return c == CategoryEssential
}

func (c Category) String() string {
	return string(c)
}

// NonEssentialCategories returns every category except essential.
func NonEssentialCategories() []Category {
	return AllCategories[1:]
}

// CategoryNames returns the string form of cs.
func CategoryNames(cs []Category) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

// Source records how consent was obtained.
type Source string

const (
	SourceBannerAcceptAll   Source = "banner_accept_all"
	SourceBannerRejectAll   Source = "banner_reject_all"
	SourceBannerPreferences Source = "banner_preferences"
	SourcePreferencesPage   Source = "preferences_page"
	SourceAPICall           Source = "api_call"
	SourceImplicitAccept    Source = "implicit_accept"
)

// sourceCodes abbreviates sources for the compact cookie encoding.
var sourceCodes = map[Source]string{
	SourceBannerAcceptAll:   "aa",
	SourceBannerRejectAll:   "ra",
	SourceBannerPreferences: "bp",
	SourcePreferencesPage:   "pp",
	SourceAPICall:           "api",
	SourceImplicitAccept:    "ia",
}

var codeSources = func() map[string]Source {
	out := make(map[string]Source, len(sourceCodes))
	for s, c := range sourceCodes {
		out[c] = s
	}
	return out
}()

// IsValid checks if the source is one of the supported enum values.
func (s Source) IsValid() bool {
	_, ok := sourceCodes[s]
	return ok
}

// IsExplicit reports whether the source reflects a deliberate user action.
// Only implicit_accept records keep the banner visible.
func (s Source) IsExplicit() bool {
	return s.IsValid() && s != SourceImplicitAccept
}

// Code returns the abbreviated compact-encoding code for s.
func (s Source) Code() string {
	return sourceCodes[s]
}

// SourceFromCode resolves an abbreviated code back into a Source.
func SourceFromCode(code string) (Source, bool) {
	s, ok := codeSources[code]
	return s, ok
}

func (s Source) String() string {
	return string(s)
}
