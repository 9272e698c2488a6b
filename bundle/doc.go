// Package bundle stages atomic multi-document writes for DynamoDB.
//
// DynamoDB's transactional primitive caps the number of items per
// transaction and offers no application-level cross-row locking. Sheaf
// emulates an atomic, versioned bundle of create/update/delete/read
// operations on top of it: every new document version is first written
// with a provisional PENDING status plus a lock record, and only promoted
// to canonical once the whole bundle succeeds. If anything fails, the
// staged versions can be precisely undone.
//
// The package is a pure request/response transformation layer. It
// performs no I/O and holds no state; it turns a batch of logical
// operations into the physical DynamoDB requests an external committer
// executes, and computes the compensating requests that roll a failed
// attempt back.
//
// # Staging
//
// [Stager.GenerateStagingRequests] consumes an ordered batch of
// [Request] values together with the latest known version per resource
// id and produces:
//
//   - conditional Put items for creates and updates (new version rows,
//     status PENDING)
//   - conditional status-transition updates for deletes
//     (LOCKED → PENDING_DELETE on the existing row)
//   - point reads for read operations
//   - one [LockDescriptor] per create/update, to be promoted on commit
//   - one [EntryResponse] per input operation, in input order
//
// Writes are emitted as DynamoDB TransactWriteItem values so the caller
// can submit them in a single TransactWriteItems call.
//
// # Reconciliation
//
// Read responses are placeholders at staging time.
// [Stager.PopulateReadResults] fills them in from the raw items the
// caller fetched, consuming results in placeholder order. A missing
// result is fatal ([ErrMissingReadResult]): the staged lock existed but
// the row vanished.
//
// # Rollback
//
// [Stager.GenerateRollbackRequests] derives, from the response list
// alone, the compensating deletes and lock releases that undo whatever
// was staged. It is a pure function of already-produced data, so
// rollback is always well defined no matter how far staging progressed.
//
// # Concurrency control
//
// Every create/update targets a specific next version number computed
// from the caller's version snapshot, with an attribute_not_exists
// condition on the staged row. A concurrent bundle that already advanced
// the version makes the conditional write fail; the caller treats that
// as a bundle failure and rolls back.
package bundle
