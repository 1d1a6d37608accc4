// Package store provides abstractions and implementations for run persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/phrazzld/dagrun/internal/platform/logger"
)

// TxFn is a function that executes within a database transaction. The
// transaction is committed if the function returns nil and rolled back
// otherwise.
type TxFn func(ctx context.Context, tx *sql.Tx) error

// RunInTransaction executes fn within a transaction on db, rolling back on
// error or panic. A run report and its per-task rows are written through this
// so a report is either fully persisted or not at all.
func RunInTransaction(ctx context.Context, db *sql.DB, fn TxFn) error {
	log := logger.FromContext(ctx)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrTransactionFailed, err)
	}

	defer func() {
		if p := recover(); p != nil {
			if txErr := tx.Rollback(); txErr != nil {
				log.Error("failed to roll back transaction after panic",
					"error", txErr, "panic", p)
			}
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			log.Error("failed to roll back transaction",
				"rollback_error", rollbackErr, "original_error", err)
			return fmt.Errorf("rollback failed: %v (original error: %w)", rollbackErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrTransactionFailed, err)
	}
	return nil
}
