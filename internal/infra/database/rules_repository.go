package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/xavierca1/ligue-engagement/internal/entity"
)

// RulesRepository lê a configuração de pontuação por produto. A coluna config
// é JSONB com o shape de entity.ScoringRules; produto sem linha própria cai
// para o default.
type RulesRepository struct {
	DB *sql.DB
}

func NewRulesRepository(db *sql.DB) *RulesRepository {
	return &RulesRepository{DB: db}
}

func (r *RulesRepository) Get(ctx context.Context, productID string) (entity.ScoringRules, error) {
	if productID == "" {
		return entity.DefaultScoringRules(), nil
	}

	query := `SELECT config FROM scoring_rules WHERE product_id = $1`

	var config []byte
	err := executorFrom(ctx, r.DB).QueryRowContext(ctx, query, productID).Scan(&config)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.DefaultScoringRules(), nil
	}
	if err != nil {
		return entity.ScoringRules{}, err
	}

	// Começa do default e deixa o JSONB sobrescrever só o que configurou
	rules := entity.DefaultScoringRules()
	if err := json.Unmarshal(config, &rules); err != nil {
		return entity.ScoringRules{}, err
	}
	rules.ProductID = productID

	if err := rules.Validate(); err != nil {
		return entity.ScoringRules{}, err
	}
	return rules, nil
}

// Invalidate não faz nada aqui: o cache fica na camada de cima (Redis).
func (r *RulesRepository) Invalidate(ctx context.Context, productID string) error {
	return nil
}
