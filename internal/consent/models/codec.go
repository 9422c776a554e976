package models

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	dErrors "cookiegate/pkg/domain-errors"
)

// recordWire is the JSON form of Record: timestamps in epoch milliseconds.
type recordWire struct {
	Categories     Categories `json:"categories"`
	ConsentDate    int64      `json:"consentDate" validate:"gt=0"`
	ExpiryDate     int64      `json:"expiryDate" validate:"gt=0"`
	ConsentSource  Source     `json:"consentSource" validate:"required,oneof=banner_accept_all banner_reject_all banner_preferences preferences_page api_call implicit_accept"`
	Version        string     `json:"version" validate:"notblank"`
	PolicyVersion  string     `json:"policyVersion" validate:"notblank"`
	UserAgent      string     `json:"userAgent,omitempty" validate:"max=512"`
	Country        string     `json:"country,omitempty" validate:"omitempty,max=8"`
	GDPRApplicable bool       `json:"gdprApplicable"`
	CCPAApplicable bool       `json:"ccpaApplicable"`
	RevokedAt      *int64     `json:"revokedAt"`
	RevokeReason   *string    `json:"revokeReason" validate:"omitempty,max=256"`
}

func (r Record) wire() recordWire {
	w := recordWire{
		Categories:     r.Categories,
		ConsentDate:    r.ConsentDate.UnixMilli(),
		ExpiryDate:     r.ExpiryDate.UnixMilli(),
		ConsentSource:  r.Source,
		Version:        r.Version,
		PolicyVersion:  r.PolicyVersion,
		UserAgent:      r.UserAgent,
		Country:        r.Country,
		GDPRApplicable: r.GDPRApplicable,
		CCPAApplicable: r.CCPAApplicable,
		RevokeReason:   r.RevokeReason,
	}
	if r.RevokedAt != nil {
		ms := r.RevokedAt.UnixMilli()
		w.RevokedAt = &ms
	}
	return w
}

func (w recordWire) record() Record {
	r := Record{
		Categories:     w.Categories,
		ConsentDate:    time.UnixMilli(w.ConsentDate),
		ExpiryDate:     time.UnixMilli(w.ExpiryDate),
		Source:         w.ConsentSource,
		Version:        w.Version,
		PolicyVersion:  w.PolicyVersion,
		UserAgent:      w.UserAgent,
		Country:        w.Country,
		GDPRApplicable: w.GDPRApplicable,
		CCPAApplicable: w.CCPAApplicable,
		RevokeReason:   w.RevokeReason,
	}
	if w.RevokedAt != nil {
		at := time.UnixMilli(*w.RevokedAt)
		r.RevokedAt = &at
	}
	return r
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.wire())
}

// UnmarshalJSON implements json.Unmarshaler. It performs no validation; use
// DecodeRecord for untrusted input.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w recordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = w.record()
	return nil
}

// DecodeRecord strictly decodes a JSON record: unknown fields (including
// unknown category keys) are rejected, missing categories default to false,
// essential is coerced on and the result is validated.
func DecodeRecord(data []byte) (Record, error) {
	var w recordWire
	if err := decodeStrict(data, &w); err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed consent record")
	}
	r := w.record()
	r.Fix()
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// compactRecord is the cookie-sized encoding: abbreviated keys, whole
// seconds and abbreviated source codes. Audit metadata is not carried.
type compactRecord struct {
	C  Categories `json:"c"`
	D  int64      `json:"d"`
	E  int64      `json:"e"`
	S  string     `json:"s"`
	V  string     `json:"v"`
	PV string     `json:"pv"`
}

// EncodeCompact renders r as base64 (standard alphabet) over compact JSON.
func EncodeCompact(r Record) (string, error) {
	code := r.Source.Code()
	if code == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown consent source %q", r.Source))
	}
	payload, err := json.Marshal(compactRecord{
		C:  r.Categories,
		D:  r.ConsentDate.Unix(),
		E:  r.ExpiryDate.Unix(),
		S:  code,
		V:  r.Version,
		PV: r.PolicyVersion,
	})
	if err != nil {
		return "", fmt.Errorf("encode compact consent: %w", err)
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecodeCompact parses a value produced by EncodeCompact.
func DecodeCompact(value string) (Record, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "consent cookie is not base64")
	}
	var c compactRecord
	if err := decodeStrict(raw, &c); err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed consent cookie")
	}
	source, ok := SourceFromCode(c.S)
	if !ok {
		return Record{}, dErrors.NewWithFields(dErrors.CodeValidation, "unknown consent source code",
			map[string]string{"s": "must be a known source code"})
	}
	r := Record{
		Categories:    c.C,
		ConsentDate:   time.Unix(c.D, 0),
		ExpiryDate:    time.Unix(c.E, 0),
		Source:        source,
		Version:       c.V,
		PolicyVersion: c.PV,
	}
	r.Fix()
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// EncodeFull renders the whole record as base64 JSON for the secondary store.
func EncodeFull(r Record) (string, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode consent record: %w", err)
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecodeFull parses a value produced by EncodeFull.
func DecodeFull(value string) (Record, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "stored consent is not base64")
	}
	return DecodeRecord(raw)
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after consent record")
	}
	return nil
}
