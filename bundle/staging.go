package bundle

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/sheaf/internal/scopedkey"
)

// Clock supplies the wall-clock time stamped on staged rows.
type Clock func() time.Time

// IDGenerator produces a unique identifier for creates that supply none.
type IDGenerator func() string

// Stager turns bundle operations into staged DynamoDB requests. It is
// stateless apart from configuration and safe for concurrent use across
// independent bundles.
type Stager struct {
	config Config
	now    Clock
	newID  IDGenerator
}

// New creates a Stager using the real clock and uuid-based identifiers.
func New(config Config) *Stager {
	return NewWithGenerators(config, nil, nil)
}

// NewWithGenerators creates a Stager with an injected clock and id
// generator. Pass nil for either to use the defaults; tests inject both
// for deterministic output.
func NewWithGenerators(config Config, now Clock, newID IDGenerator) *Stager {
	config.validate()
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Stager{
		config: config,
		now:    now,
		newID:  newID,
	}
}

// GenerateStagingRequests translates an ordered batch of logical
// operations into the staged physical requests, lock descriptors and
// ordered responses for one bundle attempt.
//
// versions maps resource id to its latest known version; update, delete
// and read entries must be present in it. tenantID namespaces row keys
// and may be empty.
//
// Responses come back in exactly the input order, one per operation.
// Any validation failure aborts the whole batch before anything is
// emitted: no partial output is ever returned.
func (s *Stager) GenerateStagingRequests(ops []Request, versions map[string]int64, tenantID string) (*StagingOutput, error) {
	out := &StagingOutput{}
	timestamp := s.now().UTC().Format(time.RFC3339)

	for i, op := range ops {
		switch op.Operation {
		case OpCreate:
			id := op.ID
			if id == "" {
				id = s.newID()
			}
			const vid = int64(1)
			put, err := s.stagedPut(op, id, vid, tenantID, timestamp)
			if err != nil {
				return nil, fmt.Errorf("entry %d: stage create: %w", i, err)
			}
			out.CreateRequests = append(out.CreateRequests, put)
			out.Locks = append(out.Locks, LockDescriptor{
				ID:           id,
				VID:          vid,
				ResourceType: op.ResourceType,
				Operation:    OpCreate,
				RowID:        scopedkey.ScopedID(id, tenantID),
			})
			out.Responses = append(out.Responses, EntryResponse{
				ID:           id,
				VID:          strconv.FormatInt(vid, 10),
				Operation:    OpCreate,
				LastModified: timestamp,
				ResourceType: op.ResourceType,
				Resource:     resourceWithID(op.Resource, id),
			})

		case OpUpdate:
			if op.ID == "" {
				return nil, fmt.Errorf("entry %d: update: %w", i, ErrMissingIdentifier)
			}
			current, ok := versions[op.ID]
			if !ok {
				return nil, fmt.Errorf("entry %d: update %q: %w", i, op.ID, ErrUnknownVersion)
			}
			vid := current + 1
			put, err := s.stagedPut(op, op.ID, vid, tenantID, timestamp)
			if err != nil {
				return nil, fmt.Errorf("entry %d: stage update: %w", i, err)
			}
			out.UpdateRequests = append(out.UpdateRequests, put)
			out.Locks = append(out.Locks, LockDescriptor{
				ID:               op.ID,
				VID:              vid,
				ResourceType:     op.ResourceType,
				Operation:        OpUpdate,
				ReplacesOriginal: true,
				RowID:            scopedkey.ScopedID(op.ID, tenantID),
			})
			out.Responses = append(out.Responses, EntryResponse{
				ID:           op.ID,
				VID:          strconv.FormatInt(vid, 10),
				Operation:    OpUpdate,
				LastModified: timestamp,
				ResourceType: op.ResourceType,
				Resource:     resourceWithID(op.Resource, op.ID),
			})

		case OpDelete:
			vid, err := requireVersion(op, versions)
			if err != nil {
				return nil, fmt.Errorf("entry %d: delete: %w", i, err)
			}
			out.DeleteRequests = append(out.DeleteRequests,
				statusTransitionRequest(s.config.ResourceTable, op.ID, vid, tenantID, StatusLocked, StatusPendingDelete, timestamp))
			out.Responses = append(out.Responses, EntryResponse{
				ID:           op.ID,
				VID:          strconv.FormatInt(vid, 10),
				Operation:    OpDelete,
				LastModified: timestamp,
				ResourceType: op.ResourceType,
				Resource:     map[string]interface{}{},
			})

		case OpRead:
			vid, err := requireVersion(op, versions)
			if err != nil {
				return nil, fmt.Errorf("entry %d: read: %w", i, err)
			}
			out.ReadRequests = append(out.ReadRequests,
				readRequest(s.config.ResourceTable, op.ID, vid, tenantID))
			out.Responses = append(out.Responses, EntryResponse{
				ID:           op.ID,
				VID:          strconv.FormatInt(vid, 10),
				Operation:    OpRead,
				ResourceType: op.ResourceType,
				Resource:     map[string]interface{}{},
			})

		default:
			return nil, fmt.Errorf("entry %d: operation %q: %w", i, op.Operation, ErrUnknownOperation)
		}
	}

	return out, nil
}

// stagedPut builds the conditional put for a new PENDING version row.
// The condition rejects the write if a concurrent bundle already staged
// the same id+vid row.
func (s *Stager) stagedPut(op Request, id string, vid int64, tenantID, timestamp string) (types.TransactWriteItem, error) {
	item, err := attributevalue.MarshalMap(op.Resource)
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("marshal resource: %w", err)
	}
	if item == nil {
		item = map[string]types.AttributeValue{}
	}

	item[attrID] = &types.AttributeValueMemberS{Value: scopedkey.ScopedID(id, tenantID)}
	item[attrVID] = &types.AttributeValueMemberN{Value: strconv.FormatInt(vid, 10)}
	item[attrStatus] = &types.AttributeValueMemberS{Value: string(StatusPending)}
	item[attrLastModified] = &types.AttributeValueMemberS{Value: timestamp}
	item[attrResourceType] = &types.AttributeValueMemberS{Value: op.ResourceType}
	if tenantID != "" {
		item[attrTenantID] = &types.AttributeValueMemberS{Value: tenantID}
	}

	return types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(s.config.ResourceTable),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		},
	}, nil
}

// requireVersion resolves the current version for a delete/read entry,
// failing fast instead of letting an invalid version flow into the
// generated request.
func requireVersion(op Request, versions map[string]int64) (int64, error) {
	if op.ID == "" {
		return 0, ErrMissingIdentifier
	}
	vid, ok := versions[op.ID]
	if !ok {
		return 0, fmt.Errorf("%q: %w", op.ID, ErrUnknownVersion)
	}
	return vid, nil
}

// resourceWithID returns a shallow copy of the payload carrying the
// final identifier, so responses reflect generated ids.
func resourceWithID(resource map[string]interface{}, id string) map[string]interface{} {
	copied := make(map[string]interface{}, len(resource)+1)
	for k, v := range resource {
		copied[k] = v
	}
	copied["id"] = id
	return copied
}
