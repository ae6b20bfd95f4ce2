package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrEventNotFound = errors.New("evento não encontrado")

// EventType: interações rastreadas pelo funil.
type EventType string

const (
	EventLogin              EventType = "login"
	EventEmailOpen          EventType = "email_open"
	EventEmailClick         EventType = "email_click"
	EventWhatsAppReply      EventType = "whatsapp_reply"
	EventChatbotInteraction EventType = "chatbot_interaction"
)

var KnownEventTypes = []EventType{
	EventLogin,
	EventEmailOpen,
	EventEmailClick,
	EventWhatsAppReply,
	EventChatbotInteraction,
}

func (t EventType) IsKnown() bool {
	for _, k := range KnownEventTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Channel: origem da interação.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelChatbot  Channel = "chatbot"
	ChannelProduct  Channel = "product"
)

var KnownChannels = []Channel{ChannelEmail, ChannelWhatsApp, ChannelChatbot, ChannelProduct}

func (c Channel) IsKnown() bool {
	for _, k := range KnownChannels {
		if c == k {
			return true
		}
	}
	return false
}

// EventMetadata modela as chaves reconhecidas do payload do evento.
// Chaves desconhecidas ficam preservadas em Extra, mas nunca são interpretadas.
type EventMetadata struct {
	HighValueAction  bool `json:"high_value_action,omitempty"`
	RepeatEngagement bool `json:"repeat_engagement,omitempty"`
	EngagementCount  int  `json:"engagement_count,omitempty"`
	Conversion       bool `json:"conversion,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (m EventMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Extra)+4)
	for k, v := range m.Extra {
		out[k] = v
	}
	// Campos reconhecidos sempre ganham das chaves opacas
	if m.HighValueAction {
		out["high_value_action"] = json.RawMessage("true")
	}
	if m.RepeatEngagement {
		out["repeat_engagement"] = json.RawMessage("true")
	}
	if m.EngagementCount != 0 {
		raw, _ := json.Marshal(m.EngagementCount)
		out["engagement_count"] = raw
	}
	if m.Conversion {
		out["conversion"] = json.RawMessage("true")
	}
	return json.Marshal(out)
}

func (m *EventMetadata) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = EventMetadata{}
	for key, val := range raw {
		switch key {
		case "high_value_action":
			if err := json.Unmarshal(val, &m.HighValueAction); err != nil {
				return fmt.Errorf("metadata high_value_action: %w", err)
			}
		case "repeat_engagement":
			if err := json.Unmarshal(val, &m.RepeatEngagement); err != nil {
				return fmt.Errorf("metadata repeat_engagement: %w", err)
			}
		case "engagement_count":
			if err := json.Unmarshal(val, &m.EngagementCount); err != nil {
				return fmt.Errorf("metadata engagement_count: %w", err)
			}
		case "conversion":
			if err := json.Unmarshal(val, &m.Conversion); err != nil {
				return fmt.Errorf("metadata conversion: %w", err)
			}
		default:
			if m.Extra == nil {
				m.Extra = map[string]json.RawMessage{}
			}
			m.Extra[key] = val
		}
	}
	return nil
}

// Entidade: EngagementEvent
// Imutável depois de criado. ScoreImpact é calculado uma única vez na criação
// e nunca recalculado, mesmo que as regras mudem depois.
type EngagementEvent struct {
	ID          string        `json:"id"`
	LeadID      string        `json:"lead_id"`
	EventType   EventType     `json:"event_type"`
	Channel     Channel       `json:"channel"`
	Timestamp   time.Time     `json:"timestamp"`
	Metadata    EventMetadata `json:"metadata"`
	ScoreImpact int           `json:"score_impact"`
	CreatedAt   time.Time     `json:"created_at"`
}

func NewEngagementEvent(leadID string, eventType EventType, channel Channel, ts time.Time, metadata EventMetadata) (*EngagementEvent, error) {
	if leadID == "" {
		return nil, errors.New("lead_id is required")
	}
	if !eventType.IsKnown() {
		return nil, fmt.Errorf("event_type inválido: %q", eventType)
	}
	if !channel.IsKnown() {
		return nil, fmt.Errorf("channel inválido: %q", channel)
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	return &EngagementEvent{
		ID:        uuid.New().String(),
		LeadID:    leadID,
		EventType: eventType,
		Channel:   channel,
		Timestamp: ts,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}, nil
}
