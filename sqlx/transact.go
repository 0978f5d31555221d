package sqlx

import (
	"context"
	"database/sql"
	"fmt"
)

type TransactionStarter interface {
	Begin() (*sql.Tx, error)
}

type ContextTransactionStarter interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Transact encapsulates the call to fn into a transaction
func Transact(db TransactionStarter, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin-tx: %w", err)
	}
	return finish(tx, fn(tx))
}

// TransactContext is Transact with a context bound to the transaction.
func TransactContext(ctx context.Context, db ContextTransactionStarter, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin-tx: %w", err)
	}
	return finish(tx, fn(tx))
}

func finish(tx *sql.Tx, err error) error {
	if err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit-tx: %w", err)
	}
	return nil
}
