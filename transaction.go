package composite

import (
	"context"
	"database/sql"
)

// Transaction runs fn inside a transaction on db. It commits when fn returns
// nil and rolls back on an error or panic. Tables built WithTx(tx) inside fn
// load and save through the transaction.
func Transaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	if db == nil {
		return sql.ErrConnDone
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
