package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Sentinel errors surfaced by transactional workflow methods. Services map
// these to their HTTP-aware equivalents.
var (
	// ErrAlreadyProcessed signals that a registration left the Pending state
	// before the lock was acquired.
	ErrAlreadyProcessed = errors.New("registration already processed")
	// ErrNoOutstandingBalance signals a payment against a settled enrollment.
	ErrNoOutstandingBalance = errors.New("enrollment has no outstanding balance")
)

// inTx runs fn inside a transaction, rolling back on error or panic.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
