package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookiegate/internal/platform/kafka/producer"
)

type recordingProducer struct {
	messages []*producer.Message
}

func (p *recordingProducer) Produce(_ context.Context, msg *producer.Message) error {
	p.messages = append(p.messages, msg)
	return nil
}

func TestKafkaSink(t *testing.T) {
	p := &recordingProducer{}
	sink := NewKafkaSink(p, "consent.audit")
	event := Event{ID: uuid.New(), Action: ActionConsentUpdated, DeviceID: "dev-9", Categories: []string{"essential"}}

	require.NoError(t, sink.Append(context.Background(), event))

	require.Len(t, p.messages, 1)
	msg := p.messages[0]
	assert.Equal(t, "consent.audit", msg.Topic)
	assert.Equal(t, []byte("dev-9"), msg.Key)
	assert.Equal(t, "consent_updated", msg.Headers["event_type"])
	assert.Equal(t, event.ID.String(), msg.Headers["event_id"])

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, []string{"essential"}, decoded.Categories)
}
