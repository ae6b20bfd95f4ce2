package entity

import (
	"time"

	"github.com/google/uuid"
)

// Entidade: ScoreHistory
// Append-only: uma linha por recalculo que mudou o score do lead.
type ScoreHistory struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	OldScore  int       `json:"old_score"`
	NewScore  int       `json:"new_score"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func NewScoreHistory(leadID string, oldScore, newScore int, reason string) *ScoreHistory {
	return &ScoreHistory{
		ID:        uuid.New().String(),
		LeadID:    leadID,
		OldScore:  oldScore,
		NewScore:  newScore,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
}
