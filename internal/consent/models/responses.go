package models

import "cookiegate/internal/compliance"

// GetConsentResponse is returned by GET /api/cookies/consent.
type GetConsentResponse struct {
	HasConsent bool    `json:"hasConsent"`
	Consent    *Record `json:"consent,omitempty"`
}

// SaveConsentResponse is returned by POST /api/cookies/consent.
type SaveConsentResponse struct {
	Success   bool  `json:"success"`
	Timestamp int64 `json:"timestamp"`
}

// SuccessResponse acknowledges deletes and revocations.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// VerifyResponse is returned by POST /api/cookies/verify.
type VerifyResponse struct {
	Allowed  bool   `json:"allowed"`
	Category string `json:"category"`
	Region   string `json:"region"`
}

// DeviceConsentResponse is the mirrored record for a device id.
type DeviceConsentResponse struct {
	DeviceID   string          `json:"deviceId"`
	Categories map[string]bool `json:"categories"`
	Source     Source          `json:"consentSource"`
	ExpiryDate int64           `json:"expiryDate"`
}

// UpdateConsentResponse returns the merged record after a partial update.
type UpdateConsentResponse struct {
	Success bool   `json:"success"`
	Consent Record `json:"consent"`
}

// ScriptTag is one gated tag the page may render.
type ScriptTag struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Src      string   `json:"src,omitempty"`
	Async    bool     `json:"async,omitempty"`
}

// ScriptsResponse lists the integrations allowed for the caller's consent.
type ScriptsResponse struct {
	Categories []Category  `json:"categories"`
	Scripts    []ScriptTag `json:"scripts"`
	Init       []string    `json:"init"`
	HTML       string      `json:"html"`
}

// PolicyResponse describes the rules that apply to the caller's region.
type PolicyResponse struct {
	Region         compliance.Region `json:"region"`
	Rules          compliance.Rules  `json:"rules"`
	DefaultToggles map[string]bool   `json:"defaultToggles"`
	PolicyVersion  string            `json:"policyVersion"`
}
