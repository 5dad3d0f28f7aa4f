package store

import (
	"context"
	"fmt"

	"vocab-loader/core/reconcile"

	"gorm.io/gorm"
)

const defaultBatchSize = 500

// Predicate is an extra WHERE condition applied to queries and deletes.
type Predicate struct {
	Query string
	Args  []any
}

// Eq matches rows where column equals value.
func Eq(column string, value any) Predicate {
	return Predicate{Query: column + " = ?", Args: []any{value}}
}

// Store is the persistence boundary of the reconcilers: query rows, delete rows by key
// set, insert rows, and run a unit of work atomically. Every write is recorded in the
// run's UnitOfWork.
type Store struct {
	db        *gorm.DB
	uow       *reconcile.UnitOfWork
	batchSize int
}

// New wraps db. uow may be nil when counts are not needed.
func New(db *gorm.DB, uow *reconcile.UnitOfWork, cfg Config) *Store {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Store{db: db, uow: uow, batchSize: batchSize}
}

// UnitOfWork returns the unit of work writes are recorded into.
func (s *Store) UnitOfWork() *reconcile.UnitOfWork {
	return s.uow
}

// HasTable reports whether table exists.
func (s *Store) HasTable(table string) bool {
	return s.db.Migrator().HasTable(table)
}

// Find loads every row of dest's table matching all predicates into dest (a pointer to
// a slice of models).
func (s *Store) Find(ctx context.Context, dest any, preds ...Predicate) error {
	q := s.db.WithContext(ctx)
	for _, p := range preds {
		q = q.Where(p.Query, p.Args...)
	}
	if err := q.Find(dest).Error; err != nil {
		return fmt.Errorf("failed to query %s: %w", s.tableOf(dest), err)
	}
	return nil
}

// FindIn loads rows whose column is one of keys, in chunks of the batch size.
func (s *Store) FindIn(ctx context.Context, dest any, column string, keys []string, preds ...Predicate) error {
	if len(keys) == 0 {
		return nil
	}
	for _, chunk := range chunks(keys, s.batchSize) {
		q := s.db.WithContext(ctx).Where(column+" IN ?", chunk)
		for _, p := range preds {
			q = q.Where(p.Query, p.Args...)
		}
		// Find into a fresh page and append, since Find replaces the slice contents
		page, appendPage, err := newPage(dest)
		if err != nil {
			return err
		}
		if err := q.Find(page).Error; err != nil {
			return fmt.Errorf("failed to query %s: %w", s.tableOf(dest), err)
		}
		appendPage()
	}
	return nil
}

// DeleteIn deletes rows of model's table whose column is one of keys and that match all
// predicates. An empty key set deletes nothing. It returns the number of rows deleted.
func (s *Store) DeleteIn(ctx context.Context, model any, column string, keys []string, preds ...Predicate) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	table := s.tableOf(model)
	var total int64
	for _, chunk := range chunks(keys, s.batchSize) {
		q := s.db.WithContext(ctx).Where(column+" IN ?", chunk)
		for _, p := range preds {
			q = q.Where(p.Query, p.Args...)
		}
		result := q.Delete(model)
		if result.Error != nil {
			return total, fmt.Errorf("failed to delete from %s: %w", table, result.Error)
		}
		total += result.RowsAffected
	}

	s.uow.RecordDelete(table, total)
	return total, nil
}

// Insert inserts records (a slice of models) in batches.
func (s *Store) Insert(ctx context.Context, records any) (int64, error) {
	if isEmpty(records) {
		return 0, nil
	}
	table := s.tableOf(records)
	result := s.db.WithContext(ctx).CreateInBatches(records, s.batchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", table, result.Error)
	}
	s.uow.RecordInsert(table, result.RowsAffected)
	return result.RowsAffected, nil
}

// Update sets columns on the rows of model's table matching all predicates.
func (s *Store) Update(ctx context.Context, model any, updates map[string]any, preds ...Predicate) (int64, error) {
	if len(preds) == 0 {
		return 0, fmt.Errorf("refusing to update %s without a predicate", s.tableOf(model))
	}
	q := s.db.WithContext(ctx).Model(model)
	for _, p := range preds {
		q = q.Where(p.Query, p.Args...)
	}
	result := q.Updates(updates)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update %s: %w", s.tableOf(model), result.Error)
	}
	s.uow.RecordUpdate(s.tableOf(model), result.RowsAffected)
	return result.RowsAffected, nil
}

// Atomic runs fn inside one transaction. fn receives a Store bound to the transaction.
// Any error rolls every write back; counts are merged into the run's unit of work only
// when the transaction commits.
func (s *Store) Atomic(ctx context.Context, fn func(tx *Store) error) error {
	child := s.uow.Child()
	err := s.db.WithContext(ctx).Transaction(func(txDB *gorm.DB) error {
		return fn(&Store{db: txDB, uow: child, batchSize: s.batchSize})
	})
	if err != nil {
		return err
	}
	s.uow.Merge(child)
	return nil
}

// tableOf resolves the table name of a model, a pointer to one, or a slice of them.
func (s *Store) tableOf(model any) string {
	stmt := &gorm.Statement{DB: s.db}
	if err := stmt.Parse(model); err != nil || stmt.Schema == nil {
		return fmt.Sprintf("%T", model)
	}
	return stmt.Schema.Table
}

func chunks(keys []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(keys); start += size {
		end := start + size
		if end > len(keys) {
			end = len(keys)
		}
		out = append(out, keys[start:end])
	}
	return out
}
