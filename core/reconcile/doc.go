// Package reconcile provides the building blocks shared by the vocabulary and STCM
// reconcilers: the version diff, identifier sets, the error taxonomy, and the per-run
// unit of work.
//
// # Diff
//
// ComputeDiff compares an identifier->version map read from the store with the one
// declared on disk and sorts every identifier into ToCreate, ToUpdate, Unchanged or
// Unused. From it:
//
//   - LoadSet  = ToCreate ∪ ToUpdate  (rows to insert)
//   - DropSet  = ToUpdate ∪ Unused    (rows to delete first)
//
// A second run over unchanged files yields an empty LoadSet and DropSet, which is what
// makes reconciliation idempotent.
//
// # Errors
//
// Two fatal classes are distinguished with errors.Is:
//
//   - ErrConfiguration (*ConfigurationError): a missing directory, file or table, or a
//     violated precondition such as an unknown vocabulary. Returned immediately.
//   - ErrDataQuality (*DataQualityError): structural violations in input files. The
//     Violations collector and DuplicateTracker accumulate every problem of a batch so it
//     can be reported in one error, naming each offending file and line.
//
// Advisory problems are not errors; reconcilers log them as warnings.
//
// # Unit of Work
//
// A UnitOfWork is created per run and handed to the store explicitly. It carries the run
// ID and accumulates deleted/inserted/updated row counts per table.
//
// # Usage Example
//
//	diff := reconcile.ComputeDiff(stored, declared)
//	for id := range diff.DropSet() {
//	    // delete rows of id
//	}
//	for id := range diff.LoadSet() {
//	    // insert rows of id
//	}
package reconcile
