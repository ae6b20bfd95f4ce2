package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/xavierca1/ligue-engagement/internal/entity"
)

type EventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{DB: db}
}

// ListByLead retorna os eventos em ordem ascendente de timestamp. since zero
// desliga o filtro de janela.
func (r *EventRepository) ListByLead(ctx context.Context, leadID string, since time.Time) ([]*entity.EngagementEvent, error) {
	query := `
		SELECT id, lead_id, event_type, channel, timestamp, metadata, score_impact, created_at
		FROM engagement_events
		WHERE lead_id = $1 AND ($2::timestamptz IS NULL OR timestamp >= $2)
		ORDER BY timestamp ASC
	`

	var sinceArg any
	if !since.IsZero() {
		sinceArg = since
	}

	rows, err := executorFrom(ctx, r.DB).QueryContext(ctx, query, leadID, sinceArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*entity.EngagementEvent
	for rows.Next() {
		event := &entity.EngagementEvent{}
		var eventType, channel string
		var metadata []byte

		if err := rows.Scan(
			&event.ID,
			&event.LeadID,
			&eventType,
			&channel,
			&event.Timestamp,
			&metadata,
			&event.ScoreImpact,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}

		event.EventType = entity.EventType(eventType)
		event.Channel = entity.Channel(channel)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, err
			}
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// Append grava o evento imutável. score_impact nunca é atualizado depois.
func (r *EventRepository) Append(ctx context.Context, event *entity.EngagementEvent) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO engagement_events (id, lead_id, event_type, channel, timestamp, metadata, score_impact, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = executorFrom(ctx, r.DB).ExecContext(ctx, query,
		event.ID,
		event.LeadID,
		string(event.EventType),
		string(event.Channel),
		event.Timestamp,
		metadata,
		event.ScoreImpact,
		event.CreatedAt,
	)
	return err
}
