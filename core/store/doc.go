// Package store implements the reference store the reconcilers write through.
//
// Store wraps a *gorm.DB and exposes the four operations a reconciliation needs:
//
//   - Find / FindIn: query current rows
//   - DeleteIn: delete rows whose key is in a set (chunked IN clauses)
//   - Insert / Update: write rows in batches
//   - Atomic: run a unit of work in one transaction, rolling back on error
//
// Writes are counted per table into the run's reconcile.UnitOfWork, which is passed in
// explicitly when the store is created.
//
// # Usage
//
//	uow := reconcile.NewUnitOfWork()
//	st := store.New(db, uow, cfg.Store)
//	err := st.Atomic(ctx, func(tx *store.Store) error {
//	    if _, err := tx.DeleteIn(ctx, &models.Concept{}, "vocabulary_id", ids); err != nil {
//	        return err
//	    }
//	    _, err := tx.Insert(ctx, concepts)
//	    return err
//	})
package store
