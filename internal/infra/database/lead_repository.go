package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/xavierca1/ligue-engagement/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	query := `
		SELECT id, crm_ref, organization_id, product_id, stage, engagement_score, created_at, updated_at
		FROM leads
		WHERE id = $1
	`

	lead := &entity.Lead{}
	var stage string

	err := executorFrom(ctx, r.DB).QueryRowContext(ctx, query, id).Scan(
		&lead.ID,
		&lead.CRMRef,
		&lead.OrganizationID,
		&lead.ProductID,
		&stage,
		&lead.EngagementScore,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, err
	}

	lead.Stage = entity.Stage(stage)
	return lead, nil
}

// Save faz upsert atômico do lead. O estágio e o score só são mutados pelos
// engines, então o upsert sobrescreve esses campos com o valor do agregado.
func (r *LeadRepository) Save(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads (id, crm_ref, organization_id, product_id, stage, engagement_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			stage = EXCLUDED.stage,
			engagement_score = EXCLUDED.engagement_score,
			updated_at = EXCLUDED.updated_at
	`

	_, err := executorFrom(ctx, r.DB).ExecContext(ctx, query,
		lead.ID,
		lead.CRMRef,
		lead.OrganizationID,
		lead.ProductID,
		string(lead.Stage),
		lead.EngagementScore,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	return err
}
