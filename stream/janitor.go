// Package stream provides DynamoDB Streams handlers for lock cleanup.
package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/sheaf/bundle"
)

// LockDeleter is the subset of the DynamoDB client the janitor needs.
type LockDeleter interface {
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Handler purges stale lock rows as document rows reach terminal state.
// A lock row that outlives its document (the document hit DELETED, or a
// claimed row was physically removed) can never be promoted or released
// through the normal commit path.
//
// Lock rows share the resource table's key shape: the tenant-scoped row
// id plus vid, as carried on bundle.LockDescriptor.RowID. The stream
// image's id attribute is that same scoped key, so the janitor and the
// committer always address the same lock row.
type Handler struct {
	client    LockDeleter
	lockTable string
	logger    *slog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(client LockDeleter, lockTable string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		client:    client,
		lockTable: lockTable,
		logger:    logger,
	}
}

// HandleLockCleanup processes resource-table stream events and deletes
// the lock rows left behind by documents that reached DELETED or were
// removed. This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleLockCleanup(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord processes a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	var image map[string]events.DynamoDBAttributeValue

	switch record.EventName {
	case "MODIFY":
		// Only act when the status newly transitioned to DELETED.
		oldStatus := getStringAttr(record.Change.OldImage, "documentStatus")
		newStatus := getStringAttr(record.Change.NewImage, "documentStatus")
		if newStatus != string(bundle.StatusDeleted) || oldStatus == newStatus {
			return nil
		}
		image = record.Change.NewImage
	case "REMOVE":
		// A claimed row vanished; its lock is unreachable by the committer.
		oldStatus := getStringAttr(record.Change.OldImage, "documentStatus")
		if oldStatus != string(bundle.StatusLocked) && oldStatus != string(bundle.StatusPendingDelete) {
			return nil
		}
		image = record.Change.OldImage
	default:
		return nil
	}

	id := getStringAttr(image, "id")
	vid := getNumberAttr(image, "vid")
	if id == "" || vid == "" {
		return nil
	}

	h.logger.Info("purging stale lock",
		"id", id,
		"vid", vid,
		"event", record.EventName,
	)

	_, err := h.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(h.lockTable),
		Key: map[string]types.AttributeValue{
			"id":  &types.AttributeValueMemberS{Value: id},
			"vid": &types.AttributeValueMemberN{Value: vid},
		},
	})
	if err != nil {
		return fmt.Errorf("delete lock %s (vid %s): %w", id, vid, err)
	}
	return nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeString {
			return v.String()
		}
	}
	return ""
}

// getNumberAttr extracts a number attribute from a DynamoDB stream image,
// keeping DynamoDB's string representation.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeNumber {
			return v.Number()
		}
	}
	return ""
}
