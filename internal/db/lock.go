package db

import (
	"context"

	"github.com/rotisserie/eris"
)

// AdvisoryXactLock takes a transaction-scoped advisory lock on key. The lock
// is released when the surrounding transaction commits or rolls back, so
// concurrent writers for the same key are serialised across processes.
func AdvisoryXactLock(ctx context.Context, tx Execer, key string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return eris.Wrapf(err, "db: advisory lock %s", key)
	}
	return nil
}
