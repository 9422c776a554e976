package validation

import (
	"fmt"

	dErrors "cookiegate/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize is the maximum allowed request body size (16 KB).
	// A full consent record with metadata is well under 1 KB.
	MaxBodySize = 16 * 1024
)

// String element length limits
const (
	MaxUserAgentLength    = 512
	MaxRevokeURLLength    = 2048
	MaxIPHashLength       = 128
	MaxRevokeReasonLength = 256
	MaxDeviceIDLength     = 64
)

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.NewWithFields(dErrors.CodeValidation,
			fmt.Sprintf("%s exceeds max length of %d", fieldName, max),
			map[string]string{fieldName: fmt.Sprintf("must be at most %d characters", max)})
	}
	return nil
}

// Truncate cuts value to at most max bytes. Used for audit-only metadata that
// must never fail a request.
func Truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
