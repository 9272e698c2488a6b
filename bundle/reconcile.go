package bundle

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PopulateReadResults fills the read placeholders in responses from the
// raw items the caller fetched, consuming rawItems strictly in the order
// read placeholders appear. Non-read entries are left untouched.
//
// The two sequences are aligned positionally: the Nth read placeholder
// corresponds to the Nth raw item. A missing or nil item is fatal and
// returns ErrMissingReadResult; no partial result is produced.
//
// The slice is mutated in place and returned fully populated, preserving
// original order and length.
func (s *Stager) PopulateReadResults(responses []EntryResponse, rawItems []map[string]types.AttributeValue) ([]EntryResponse, error) {
	next := 0
	for i := range responses {
		if responses[i].Operation != OpRead {
			continue
		}
		if next >= len(rawItems) || rawItems[next] == nil {
			return nil, fmt.Errorf("read %q (vid %s): %w", responses[i].ID, responses[i].VID, ErrMissingReadResult)
		}
		raw := rawItems[next]
		next++

		var resource map[string]interface{}
		if err := attributevalue.UnmarshalMap(raw, &resource); err != nil {
			return nil, fmt.Errorf("decode read %q: %w", responses[i].ID, err)
		}
		if ts, ok := raw[attrLastModified].(*types.AttributeValueMemberS); ok {
			responses[i].LastModified = ts.Value
		}

		stripBookkeeping(resource)
		// The row key carries the tenant-scoped id; restore the logical one.
		resource[attrID] = responses[i].ID
		responses[i].Resource = resource
	}
	return responses, nil
}

// stripBookkeeping removes the staging-managed attributes from a decoded
// resource before it is handed back to the caller, leaving only the
// payload. The timestamp is surfaced through EntryResponse.LastModified
// instead.
func stripBookkeeping(resource map[string]interface{}) {
	delete(resource, attrVID)
	delete(resource, attrStatus)
	delete(resource, attrLastModified)
	delete(resource, attrResourceType)
	delete(resource, attrTenantID)
}
