package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TxManager runs schedule writes inside a transaction serialised per technician.
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager constructs a TxManager.
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// WithTechnicianLock opens a transaction, takes a transaction-scoped advisory lock keyed on
// technicianID and runs fn. The lock is released on commit or rollback, so a conflict check
// and the insert that follows it cannot interleave with another writer for the same technician.
// Errors returned by fn are passed through untouched.
func (m *TxManager) WithTechnicianLock(ctx context.Context, technicianID string, fn func(ctx context.Context, tx *sqlx.Tx) error) (err error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin technician tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, technicianID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("lock technician schedule: %w", err)
	}

	if err = fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit technician tx: %w", err)
	}
	return nil
}
