package bundle

import (
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/sheaf/internal/scopedkey"
)

// Bookkeeping attributes managed by the staging layer. Everything else
// on a row belongs to the resource payload.
const (
	attrID           = "id"
	attrVID          = "vid"
	attrStatus       = "documentStatus"
	attrLastModified = "lastModified"
	attrResourceType = "resourceType"
	attrTenantID     = "tenantId"
)

// rowKey is the physical primary key for a document version row.
func rowKey(id string, vid int64, tenantID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrID:  &types.AttributeValueMemberS{Value: scopedkey.ScopedID(id, tenantID)},
		attrVID: &types.AttributeValueMemberN{Value: strconv.FormatInt(vid, 10)},
	}
}

// statusTransitionRequest builds the conditional update that moves an
// existing row from one document status to another without writing a
// new row. The condition rejects the transition if the row is not in
// the expected source status.
func statusTransitionRequest(table, id string, vid int64, tenantID string, from, to DocumentStatus, timestamp string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName:           aws.String(table),
			Key:                 rowKey(id, vid, tenantID),
			UpdateExpression:    aws.String("SET #status = :to, #lastModified = :now"),
			ConditionExpression: aws.String("#status = :from"),
			ExpressionAttributeNames: map[string]string{
				"#status":       attrStatus,
				"#lastModified": attrLastModified,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":to":   &types.AttributeValueMemberS{Value: string(to)},
				":from": &types.AttributeValueMemberS{Value: string(from)},
				":now":  &types.AttributeValueMemberS{Value: timestamp},
			},
		},
	}
}

// compensatingDeleteRequest removes a staged version row outright. Used
// only during rollback, where the row is known to have been written by
// this bundle attempt.
func compensatingDeleteRequest(table, id string, vid int64, tenantID string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(table),
			Key:       rowKey(id, vid, tenantID),
		},
	}
}

// readRequest builds the point read for a specific document version.
func readRequest(table, id string, vid int64, tenantID string) dynamodb.GetItemInput {
	return dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       rowKey(id, vid, tenantID),
	}
}
