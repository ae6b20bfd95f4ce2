package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	// IMPORTANTE: NÃO adicione imports de usecase ou infra aqui!
)

var ErrLeadNotFound = errors.New("lead não encontrado")

// Stage representa a etapa do lead no funil de conversão.
type Stage string

const (
	StageUser          Stage = "User"
	StageEngagedLead   Stage = "Engaged_Lead"
	StageQualifiedLead Stage = "Qualified_Lead"
	StageCustomer      Stage = "Customer" // Terminal: nunca regride
)

// AllStages na ordem do funil.
var AllStages = []Stage{StageUser, StageEngagedLead, StageQualifiedLead, StageCustomer}

func ParseStage(s string) (Stage, error) {
	for _, stage := range AllStages {
		if string(stage) == s {
			return stage, nil
		}
	}
	return "", fmt.Errorf("estágio inválido: %q", s)
}

func (s Stage) IsValid() bool {
	_, err := ParseStage(string(s))
	return err == nil
}

// Entidade: Lead
type Lead struct {
	ID              string    `json:"id"`
	CRMRef          string    `json:"crm_ref"` // Referência no CRM (read-only, fonte da verdade)
	OrganizationID  string    `json:"organization_id"`
	ProductID       string    `json:"product_id"`
	Stage           Stage     `json:"stage"`
	EngagementScore int       `json:"engagement_score"` // Sempre >= 0
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Factory: todo lead nasce em User com score zero.
func NewLead(crmRef, organizationID, productID string) (*Lead, error) {
	lead := &Lead{
		ID:              uuid.New().String(),
		CRMRef:          crmRef,
		OrganizationID:  organizationID,
		ProductID:       productID,
		Stage:           StageUser,
		EngagementScore: 0,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := lead.Validate(); err != nil {
		return nil, err
	}

	return lead, nil
}

func (l *Lead) Validate() error {
	if l.CRMRef == "" {
		return errors.New("crm_ref is required")
	}
	if l.OrganizationID == "" {
		return errors.New("organization_id is required")
	}
	if !l.Stage.IsValid() {
		return fmt.Errorf("estágio inválido: %q", l.Stage)
	}
	if l.EngagementScore < 0 {
		return errors.New("engagement_score must not be negative")
	}
	return nil
}
