// Package scopedkey derives physical row identifiers from logical
// resource ids and an optional tenant scope.
package scopedkey

// ScopedID combines a resource id with a tenant scope into the partition
// key value for the resource table. Without a tenant scope the id is
// used as is. Centralized here so the physical key format has exactly
// one definition.
func ScopedID(id, tenantID string) string {
	if tenantID == "" {
		return id
	}
	return tenantID + "|" + id
}
