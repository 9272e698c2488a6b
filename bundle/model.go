package bundle

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Operation identifies the logical action a bundle entry performs.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpRead   Operation = "read"
)

// DocumentStatus is the lifecycle status carried on every document
// version row.
type DocumentStatus string

const (
	// StatusPending marks a freshly staged version, not yet canonical.
	StatusPending DocumentStatus = "PENDING"

	// StatusLocked marks the canonical version, claimed for safe
	// reading or modification.
	StatusLocked DocumentStatus = "LOCKED"

	// StatusPendingDelete marks a row as scheduled for deletion while
	// the canonical row is still present.
	StatusPendingDelete DocumentStatus = "PENDING_DELETE"

	// StatusDeleted is terminal; rows in this state are outside the
	// staging layer's control.
	StatusDeleted DocumentStatus = "DELETED"
)

// Request is one logical operation in a bundle.
type Request struct {
	// Operation is one of create, update, delete, read.
	Operation Operation

	// ResourceType names the kind of resource being operated on.
	ResourceType string

	// ID is the resource identifier. Required for update, delete and
	// read; optional for create (a fresh id is generated when empty).
	ID string

	// Resource is the document payload for create and update.
	Resource map[string]interface{}
}

// LockDescriptor is a pending claim on a staged document version. The
// external lock table promotes it on commit or purges it on rollback.
// Exactly one descriptor is produced per create/update entry.
type LockDescriptor struct {
	ID           string
	VID          int64
	ResourceType string
	Operation    Operation

	// RowID is the tenant-scoped partition key of the staged row. Lock
	// rows are keyed by it (plus vid), so stream-driven cleanup and the
	// committer address the same physical key. Equal to ID when no
	// tenant scope is in play.
	RowID string

	// ReplacesOriginal is set when the staged row supersedes an
	// existing locked original (updates) rather than being the first
	// version of a new resource (creates).
	ReplacesOriginal bool
}

// EntryResponse is the per-entry outcome returned to the caller, in the
// same order as the input operations. Read entries start as empty
// placeholders and are filled by PopulateReadResults.
type EntryResponse struct {
	ID           string
	VID          string
	Operation    Operation
	LastModified string
	ResourceType string
	Resource     map[string]interface{}
}

// LockRelease identifies a staged lock to purge after a failed bundle.
type LockRelease struct {
	ID           string
	VID          string
	ResourceType string

	// RowID is the tenant-scoped lock-row key, matching the RowID of
	// the LockDescriptor staged for the same entry.
	RowID string
}

// StagingOutput is everything GenerateStagingRequests produces for one
// bundle attempt. The write buckets are partitioned by operation kind so
// the caller can route them; only Responses carries an ordering
// guarantee (same order and length as the input batch).
type StagingOutput struct {
	// CreateRequests are conditional puts for brand-new resources.
	CreateRequests []types.TransactWriteItem

	// UpdateRequests are conditional puts for new versions of existing
	// resources.
	UpdateRequests []types.TransactWriteItem

	// DeleteRequests are conditional status transitions
	// (LOCKED → PENDING_DELETE) on existing rows; no new row is written.
	DeleteRequests []types.TransactWriteItem

	// ReadRequests are point reads keyed by scoped id and version.
	ReadRequests []dynamodb.GetItemInput

	// Locks holds one descriptor per create/update entry.
	Locks []LockDescriptor

	// Responses holds one entry per input operation, in input order.
	Responses []EntryResponse
}

// RollbackOutput is the compensation set that undoes a staged bundle.
// Order is not meaningful; each compensation targets a disjoint row.
type RollbackOutput struct {
	// DeleteRequests remove the version rows staged by create/update
	// entries.
	DeleteRequests []types.TransactWriteItem

	// LockReleases identify the staged locks to purge.
	LockReleases []LockRelease
}
