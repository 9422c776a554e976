package models

import (
	"strings"

	dErrors "cookiegate/pkg/domain-errors"
	s "cookiegate/pkg/string"
	"cookiegate/pkg/validation"
)

// SaveConsentRequest is the body of POST /api/cookies/consent.
type SaveConsentRequest struct {
	Categories map[string]bool `json:"categories" validate:"required"`
	Individual map[string]bool `json:"individual,omitempty"`
	Source     string          `json:"source,omitempty" validate:"omitempty,oneof=banner_accept_all banner_reject_all banner_preferences preferences_page api_call"`
	Explicit   *bool           `json:"explicit,omitempty"`
	IPHash     string          `json:"ipHash,omitempty" validate:"omitempty,max=128"`
	RevokeURL  string          `json:"revokeUrl,omitempty" validate:"omitempty,url,max=2048"`
}

// Sanitize trims free-text inputs.
func (r *SaveConsentRequest) Sanitize() {
	if r == nil {
		return
	}
	r.Source = strings.TrimSpace(r.Source)
	r.IPHash = strings.TrimSpace(r.IPHash)
	r.RevokeURL = strings.TrimSpace(r.RevokeURL)
}

// Normalize lower-cases category keys and the source.
func (r *SaveConsentRequest) Normalize() {
	if r == nil {
		return
	}
	r.Categories = normalizeKeys(r.Categories)
	r.Source = s.LowerTrim(r.Source)
}

// Validate checks the schema and rejects unknown categories.
func (r *SaveConsentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	return categoryKeys(r.Categories).Validate()
}

// CategoryMap converts the request into a full category map: missing keys
// are false and essential is forced on.
func (r *SaveConsentRequest) CategoryMap() Categories {
	return EssentialOnly().Merge(categoryKeys(r.Categories))
}

// ConsentSource resolves the source, defaulting to api_call.
func (r *SaveConsentRequest) ConsentSource() Source {
	if r.Source == "" {
		return SourceAPICall
	}
	return Source(r.Source)
}

// IsExplicit defaults to true: a POST is a deliberate action.
func (r *SaveConsentRequest) IsExplicit() bool {
	return r.Explicit == nil || *r.Explicit
}

// UpdateConsentRequest is the body of POST /api/cookies/update.
type UpdateConsentRequest struct {
	Categories map[string]bool `json:"categories" validate:"required,min=1"`
	Source     string          `json:"source,omitempty" validate:"omitempty,oneof=banner_preferences preferences_page api_call"`
}

// Normalize lower-cases category keys and the source.
func (r *UpdateConsentRequest) Normalize() {
	if r == nil {
		return
	}
	r.Categories = normalizeKeys(r.Categories)
	r.Source = s.LowerTrim(r.Source)
}

// Validate checks the schema and rejects unknown categories.
func (r *UpdateConsentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	return categoryKeys(r.Categories).Validate()
}

// Update returns the partial update carried by the request.
func (r *UpdateConsentRequest) Update() CategoryUpdate {
	return categoryKeys(r.Categories)
}

// ConsentSource resolves the source, defaulting to preferences_page.
func (r *UpdateConsentRequest) ConsentSource() Source {
	if r.Source == "" {
		return SourcePreferencesPage
	}
	return Source(r.Source)
}

// VerifyRequest is the body of POST /api/cookies/verify.
type VerifyRequest struct {
	Category string `json:"category" validate:"required"`
}

// Normalize lower-cases the category.
func (r *VerifyRequest) Normalize() {
	if r == nil {
		return
	}
	r.Category = s.LowerTrim(r.Category)
}

// Validate checks that the category is known.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	if !Category(r.Category).IsValid() {
		return dErrors.NewWithFields(dErrors.CodeValidation, "unknown consent category",
			map[string]string{"category": "must be a known category"})
	}
	return nil
}

func normalizeKeys(in map[string]bool) map[string]bool {
	if in == nil {
		return nil
	}
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[s.LowerTrim(k)] = v
	}
	return out
}

func categoryKeys(in map[string]bool) CategoryUpdate {
	out := make(CategoryUpdate, len(in))
	for k, v := range in {
		out[Category(k)] = v
	}
	return out
}
