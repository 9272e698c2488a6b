package bundle

import (
	"strconv"

	"github.com/jacentio/sheaf/internal/scopedkey"
)

// GenerateRollbackRequests computes the compensations that undo a staged
// bundle attempt: one row delete and one lock release per create/update
// entry in responses. Delete entries only transitioned an existing row's
// status (the external committer reverses that) and reads staged
// nothing, so both yield no compensation.
//
// The result is a pure function of the response list, so rollback is
// well defined regardless of how far staging or execution progressed.
// Compensation order is not meaningful; each targets a disjoint row.
func (s *Stager) GenerateRollbackRequests(responses []EntryResponse, tenantID string) *RollbackOutput {
	out := &RollbackOutput{}
	for _, resp := range responses {
		if resp.Operation != OpCreate && resp.Operation != OpUpdate {
			continue
		}
		vid, err := strconv.ParseInt(resp.VID, 10, 64)
		if err != nil {
			// A response staging produced always carries a numeric vid;
			// anything else cannot map to a staged row, so emitting a
			// compensation for it would delete the wrong key.
			continue
		}
		out.DeleteRequests = append(out.DeleteRequests,
			compensatingDeleteRequest(s.config.ResourceTable, resp.ID, vid, tenantID))
		out.LockReleases = append(out.LockReleases, LockRelease{
			ID:           resp.ID,
			VID:          resp.VID,
			ResourceType: resp.ResourceType,
			RowID:        scopedkey.ScopedID(resp.ID, tenantID),
		})
	}
	return out
}
