package reconcile

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// TableCounts holds row counts written to one table during a run.
type TableCounts struct {
	Deleted  int64 `json:"deleted"`
	Inserted int64 `json:"inserted"`
	Updated  int64 `json:"updated"`
}

// UnitOfWork is created once per reconciliation run and passed explicitly to the store,
// which records every write into it. It is not safe for concurrent use; runs are
// single-threaded.
type UnitOfWork struct {
	// RunID identifies the run in logs.
	RunID string
	// Started is when the run began.
	Started time.Time

	counts map[string]*TableCounts
}

// NewUnitOfWork starts a unit of work with a fresh run ID.
func NewUnitOfWork() *UnitOfWork {
	return &UnitOfWork{
		RunID:   uuid.NewString(),
		Started: time.Now(),
		counts:  make(map[string]*TableCounts),
	}
}

// Child returns an empty unit sharing this run's identity. Writes made inside a
// transaction are recorded in a child and merged only when the transaction commits.
func (u *UnitOfWork) Child() *UnitOfWork {
	if u == nil {
		return nil
	}
	return &UnitOfWork{RunID: u.RunID, Started: u.Started, counts: make(map[string]*TableCounts)}
}

// Merge adds the counts of other into u.
func (u *UnitOfWork) Merge(other *UnitOfWork) {
	if u == nil || other == nil {
		return
	}
	for table, c := range other.counts {
		t := u.table(table)
		t.Deleted += c.Deleted
		t.Inserted += c.Inserted
		t.Updated += c.Updated
	}
}

// RecordDelete adds n deleted rows for table.
func (u *UnitOfWork) RecordDelete(table string, n int64) {
	if u == nil {
		return
	}
	u.table(table).Deleted += n
}

// RecordInsert adds n inserted rows for table.
func (u *UnitOfWork) RecordInsert(table string, n int64) {
	if u == nil {
		return
	}
	u.table(table).Inserted += n
}

// RecordUpdate adds n updated rows for table.
func (u *UnitOfWork) RecordUpdate(table string, n int64) {
	if u == nil {
		return
	}
	u.table(table).Updated += n
}

// Counts returns the counts recorded for table.
func (u *UnitOfWork) Counts(table string) TableCounts {
	if u == nil {
		return TableCounts{}
	}
	if c, ok := u.counts[table]; ok {
		return *c
	}
	return TableCounts{}
}

// Tables returns the tables written so far, sorted.
func (u *UnitOfWork) Tables() []string {
	if u == nil {
		return nil
	}
	tables := make([]string, 0, len(u.counts))
	for t := range u.counts {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}

// Total sums the counts over every table.
func (u *UnitOfWork) Total() TableCounts {
	var total TableCounts
	if u == nil {
		return total
	}
	for _, c := range u.counts {
		total.Deleted += c.Deleted
		total.Inserted += c.Inserted
		total.Updated += c.Updated
	}
	return total
}

func (u *UnitOfWork) table(name string) *TableCounts {
	c, ok := u.counts[name]
	if !ok {
		c = &TableCounts{}
		u.counts[name] = c
	}
	return c
}
