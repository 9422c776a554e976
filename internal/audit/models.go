package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event records one server-side consent change. It never carries a raw IP
// address or User-Agent.
type Event struct {
	ID            uuid.UUID `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Action        Action    `json:"action"`
	DeviceID      string    `json:"deviceId,omitempty"`
	Categories    []string  `json:"categories"`
	Source        string    `json:"source,omitempty"`
	Region        string    `json:"region,omitempty"`
	Country       string    `json:"country,omitempty"`
	PolicyVersion string    `json:"policyVersion,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	IPHash        string    `json:"ipHash,omitempty"`
	IPPrefix      string    `json:"ipPrefix,omitempty"`
	Device        string    `json:"device,omitempty"`
	RequestID     string    `json:"requestId,omitempty"`
}

// Action names what happened to the consent record.
type Action string

const (
	ActionConsentSaved   Action = "consent_saved"
	ActionConsentUpdated Action = "consent_updated"
	ActionConsentRevoked Action = "consent_revoked"
	ActionConsentDeleted Action = "consent_deleted"
)
