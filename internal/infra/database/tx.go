package database

import (
	"context"
	"database/sql"
	"fmt"
)

type txKey struct{}

// executor abstrai *sql.DB e *sql.Tx: os repositórios usam o que estiver no
// contexto.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func executorFrom(ctx context.Context, db *sql.DB) executor {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// TxManager executa um bloco dentro de uma transação do Postgres. Qualquer
// erro desfaz todas as escritas feitas dentro do bloco: ou tudo commita, ou
// nada commita.
type TxManager struct {
	DB *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{DB: db}
}

func (m *TxManager) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	// Transação já aberta no contexto? Reaproveita (escopo aninhado)
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("falha ao abrir transação: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback também falhou: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("falha no commit: %w", err)
	}
	return nil
}
