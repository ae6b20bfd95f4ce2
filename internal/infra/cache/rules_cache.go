package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xavierca1/ligue-engagement/internal/entity"
	"github.com/xavierca1/ligue-engagement/internal/usecase"
)

const defaultRulesTTL = 10 * time.Minute

// RulesCache decora o repositório de regras com cache no Redis, chaveado por
// product_id, com invalidação explícita. Injetado na construção dos engines —
// nada de singleton global.
type RulesCache struct {
	client *redis.Client
	inner  usecase.RulesProviderInterface
	prefix string
	ttl    time.Duration
}

type Option func(*RulesCache)

// WithTTL muda a validade das entradas do cache.
func WithTTL(ttl time.Duration) Option {
	return func(c *RulesCache) {
		c.ttl = ttl
	}
}

// WithPrefix muda o prefixo das chaves.
func WithPrefix(prefix string) Option {
	return func(c *RulesCache) {
		c.prefix = prefix
	}
}

func NewRulesCache(client *redis.Client, inner usecase.RulesProviderInterface, opts ...Option) *RulesCache {
	cache := &RulesCache{
		client: client,
		inner:  inner,
		prefix: "engagement:rules:",
		ttl:    defaultRulesTTL,
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

func (c *RulesCache) key(productID string) string {
	if productID == "" {
		productID = "_default"
	}
	return c.prefix + productID
}

func (c *RulesCache) Get(ctx context.Context, productID string) (entity.ScoringRules, error) {
	data, err := c.client.Get(ctx, c.key(productID)).Bytes()
	if err == nil {
		var rules entity.ScoringRules
		if jsonErr := json.Unmarshal(data, &rules); jsonErr == nil {
			return rules, nil
		}
		// Entrada corrompida: descarta e busca na origem
		_ = c.client.Del(ctx, c.key(productID)).Err()
	} else if !errors.Is(err, redis.Nil) {
		// Redis fora do ar não derruba a avaliação: vai direto na origem
		log.Printf("⚠️ RulesCache: Redis indisponível, consultando origem direto: %v", err)
	}

	rules, err := c.inner.Get(ctx, productID)
	if err != nil {
		return entity.ScoringRules{}, err
	}

	if payload, jsonErr := json.Marshal(rules); jsonErr == nil {
		if setErr := c.client.Set(ctx, c.key(productID), payload, c.ttl).Err(); setErr != nil {
			log.Printf("⚠️ RulesCache: falha ao gravar cache de %s: %v", productID, setErr)
		}
	}

	return rules, nil
}

// Invalidate remove a entrada do produto; productID vazio limpa todas as
// entradas do prefixo.
func (c *RulesCache) Invalidate(ctx context.Context, productID string) error {
	if productID != "" {
		if err := c.client.Del(ctx, c.key(productID)).Err(); err != nil {
			return err
		}
		return c.inner.Invalidate(ctx, productID)
	}

	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.inner.Invalidate(ctx, productID)
}
