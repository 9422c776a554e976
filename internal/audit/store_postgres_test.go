package audit

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)
	event := Event{
		ID:         uuid.MustParse("5f0c4a3e-6d8b-4c1a-9f59-2b8f0f8d9a11"),
		Timestamp:  time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
		Action:     ActionConsentSaved,
		DeviceID:   "dev-1",
		Categories: []string{"essential", "analytics"},
		Source:     "banner_preferences",
		Region:     "eu",
		Country:    "DE",
		IPPrefix:   "203.0.113.0",
	}

	mock.ExpectExec("INSERT INTO consent_audit_events").
		WithArgs(event.ID, event.Timestamp, "consent_saved", "dev-1", `{"essential","analytics"}`,
			"banner_preferences", "eu", "DE", "", "", "", "203.0.113.0", "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Append(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreAppendError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO consent_audit_events").WillReturnError(errors.New("connection reset"))

	err = NewPostgresStore(db).Append(context.Background(), Event{ID: uuid.New(), Action: ActionConsentDeleted})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert consent audit event")
}

func TestPostgresStoreListByDevice(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	at := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "occurred_at", "action", "device_id", "categories", "source",
		"region", "country", "policy_version", "reason",
		"ip_hash", "ip_prefix", "device", "request_id",
	}).AddRow([]driver.Value{
		id.String(), at, "consent_revoked", "dev-1", "{essential}", "preferences_page",
		"uk", "GB", "2025-01-01", "user request",
		"abc", "198.51.100.0", "Firefox on Linux", "req-1",
	}...)

	mock.ExpectQuery("SELECT (.+) FROM consent_audit_events WHERE device_id").
		WithArgs("dev-1").
		WillReturnRows(rows)

	events, err := NewPostgresStore(db).ListByDevice(context.Background(), "dev-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)
	assert.Equal(t, ActionConsentRevoked, events[0].Action)
	assert.Equal(t, []string{"essential"}, events[0].Categories)
	assert.Equal(t, "user request", events[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}
