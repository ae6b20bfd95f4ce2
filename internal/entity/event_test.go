package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewEngagementEvent(t *testing.T) {
	ts := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	event, err := NewEngagementEvent("lead-123", EventEmailClick, ChannelEmail, ts, EventMetadata{HighValueAction: true})

	assert.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, ts, event.Timestamp)
	assert.True(t, event.Metadata.HighValueAction)
	assert.Equal(t, 0, event.ScoreImpact) // Atribuído depois, pelas regras vigentes
}

func TestNewEngagementEventDefaultsTimestampToNow(t *testing.T) {
	before := time.Now()
	event, err := NewEngagementEvent("lead-123", EventLogin, ChannelProduct, time.Time{}, EventMetadata{})

	assert.NoError(t, err)
	assert.False(t, event.Timestamp.Before(before))
}

func TestNewEngagementEventRejectsUnknownTypeAndChannel(t *testing.T) {
	_, err := NewEngagementEvent("lead-123", "page_view", ChannelProduct, time.Time{}, EventMetadata{})
	assert.Error(t, err)

	_, err = NewEngagementEvent("lead-123", EventLogin, "sms", time.Time{}, EventMetadata{})
	assert.Error(t, err)

	_, err = NewEngagementEvent("", EventLogin, ChannelProduct, time.Time{}, EventMetadata{})
	assert.Error(t, err)
}

func TestEventMetadataPreservesUnknownKeys(t *testing.T) {
	payload := []byte(`{"high_value_action":true,"engagement_count":3,"utm_source":"newsletter","campaign":{"id":42}}`)

	var metadata EventMetadata
	err := json.Unmarshal(payload, &metadata)

	assert.NoError(t, err)
	assert.True(t, metadata.HighValueAction)
	assert.Equal(t, 3, metadata.EngagementCount)
	// Chaves desconhecidas ficam opacas, sem interpretação
	assert.Contains(t, metadata.Extra, "utm_source")
	assert.Contains(t, metadata.Extra, "campaign")

	out, err := json.Marshal(metadata)
	assert.NoError(t, err)

	var roundTrip map[string]json.RawMessage
	assert.NoError(t, json.Unmarshal(out, &roundTrip))
	assert.JSONEq(t, `"newsletter"`, string(roundTrip["utm_source"]))
	assert.JSONEq(t, `{"id":42}`, string(roundTrip["campaign"]))
	assert.JSONEq(t, `true`, string(roundTrip["high_value_action"]))
}

func TestEventMetadataRejectsWrongTypes(t *testing.T) {
	var metadata EventMetadata
	err := json.Unmarshal([]byte(`{"engagement_count":"muitos"}`), &metadata)
	assert.Error(t, err)
}
