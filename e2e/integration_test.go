//go:build e2e

// Package e2e contains end-to-end integration tests using real DynamoDB tables.
// Run with: go test -tags=e2e -v ./e2e/...
//
// An AWS profile may be selected with SHEAF_E2E_PROFILE; otherwise the
// default credential chain is used.
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/sheaf/bundle"
)

const tablePrefix = "sheaf-e2e-test"

var (
	testID        string
	resourceTable string

	ddbClient *dynamodb.Client
	stager    *bundle.Stager
)

func TestMain(m *testing.M) {
	testID = uuid.New().String()[:8]
	resourceTable = fmt.Sprintf("%s-%s-resources", tablePrefix, testID)

	fmt.Printf("Test ID: %s\n", testID)
	fmt.Printf("Resource table: %s\n", resourceTable)

	ctx := context.Background()
	var opts []func(*config.LoadOptions) error
	if profile := os.Getenv("SHEAF_E2E_PROFILE"); profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		fmt.Printf("Failed to load AWS config: %v\n", err)
		os.Exit(1)
	}

	ddbClient = dynamodb.NewFromConfig(cfg)

	if err := createTable(ctx); err != nil {
		fmt.Printf("Failed to create table: %v\n", err)
		os.Exit(1)
	}

	stager = bundle.New(bundle.Config{ResourceTable: resourceTable})

	code := m.Run()

	if err := deleteTable(ctx); err != nil {
		fmt.Printf("Failed to delete table: %v\n", err)
	}

	os.Exit(code)
}

func createTable(ctx context.Context) error {
	fmt.Println("Creating test table...")

	_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(resourceTable),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("vid"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("vid"), AttributeType: types.ScalarAttributeTypeN},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", resourceTable, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(ddbClient)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(resourceTable),
	}, 2*time.Minute); err != nil {
		return fmt.Errorf("wait for table %s: %w", resourceTable, err)
	}

	fmt.Println("Table created and active")
	return nil
}

func deleteTable(ctx context.Context) error {
	fmt.Println("Deleting test table...")
	_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(resourceTable),
	})
	if err != nil {
		fmt.Printf("Warning: failed to delete table %s: %v\n", resourceTable, err)
	}
	return nil
}

// execute applies staged write items in a single transaction, playing the
// external committer role.
func execute(ctx context.Context, items ...[]types.TransactWriteItem) error {
	var all []types.TransactWriteItem
	for _, batch := range items {
		all = append(all, batch...)
	}
	if len(all) == 0 {
		return nil
	}
	_, err := ddbClient.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: all,
	})
	return err
}

// promote flips a staged row to LOCKED, simulating lock promotion.
func promote(ctx context.Context, t *testing.T, id string, vid int64) {
	t.Helper()
	_, err := ddbClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(resourceTable),
		Key: map[string]types.AttributeValue{
			"id":  &types.AttributeValueMemberS{Value: id},
			"vid": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", vid)},
		},
		UpdateExpression: aws.String("SET #status = :locked"),
		ExpressionAttributeNames: map[string]string{
			"#status": "documentStatus",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":locked": &types.AttributeValueMemberS{Value: "LOCKED"},
		},
	})
	if err != nil {
		t.Fatalf("promote %s vid %d: %v", id, vid, err)
	}
}

func getStatus(ctx context.Context, t *testing.T, id string, vid int64) (string, bool) {
	t.Helper()
	result, err := ddbClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(resourceTable),
		Key: map[string]types.AttributeValue{
			"id":  &types.AttributeValueMemberS{Value: id},
			"vid": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", vid)},
		},
	})
	if err != nil {
		t.Fatalf("get %s vid %d: %v", id, vid, err)
	}
	if result.Item == nil {
		return "", false
	}
	if v, ok := result.Item["documentStatus"].(*types.AttributeValueMemberS); ok {
		return v.Value, true
	}
	return "", true
}

func TestBundle_StageCommitReadDelete(t *testing.T) {
	ctx := context.Background()

	// Stage and execute a create.
	created, err := stager.GenerateStagingRequests([]bundle.Request{
		{Operation: bundle.OpCreate, ResourceType: "Patient", Resource: map[string]interface{}{"name": "Ada"}},
	}, nil, "")
	if err != nil {
		t.Fatalf("stage create: %v", err)
	}
	if err := execute(ctx, created.CreateRequests); err != nil {
		t.Fatalf("execute create: %v", err)
	}

	id := created.Responses[0].ID
	if status, ok := getStatus(ctx, t, id, 1); !ok || status != "PENDING" {
		t.Fatalf("expected staged row with status PENDING, got %q (found=%v)", status, ok)
	}

	// Promote to LOCKED, as the external committer would.
	promote(ctx, t, id, 1)

	// Stage a second bundle: read the row, then update it.
	versions := map[string]int64{id: 1}
	second, err := stager.GenerateStagingRequests([]bundle.Request{
		{Operation: bundle.OpRead, ResourceType: "Patient", ID: id},
		{Operation: bundle.OpUpdate, ResourceType: "Patient", ID: id, Resource: map[string]interface{}{"name": "Ada Lovelace"}},
	}, versions, "")
	if err != nil {
		t.Fatalf("stage second bundle: %v", err)
	}

	if err := execute(ctx, second.UpdateRequests); err != nil {
		t.Fatalf("execute update: %v", err)
	}

	// Fulfil the staged reads.
	var raws []map[string]types.AttributeValue
	for _, get := range second.ReadRequests {
		result, err := ddbClient.GetItem(ctx, &get)
		if err != nil {
			t.Fatalf("execute read: %v", err)
		}
		raws = append(raws, result.Item)
	}
	responses, err := stager.PopulateReadResults(second.Responses, raws)
	if err != nil {
		t.Fatalf("reconcile reads: %v", err)
	}
	if responses[0].Resource["name"] != "Ada" {
		t.Errorf("expected read payload 'Ada', got %v", responses[0].Resource["name"])
	}
	if responses[1].VID != "2" {
		t.Errorf("expected update staged at vid 2, got %q", responses[1].VID)
	}

	// Stage and execute a delete of the original version.
	deleted, err := stager.GenerateStagingRequests([]bundle.Request{
		{Operation: bundle.OpDelete, ResourceType: "Patient", ID: id},
	}, versions, "")
	if err != nil {
		t.Fatalf("stage delete: %v", err)
	}
	if err := execute(ctx, deleted.DeleteRequests); err != nil {
		t.Fatalf("execute delete transition: %v", err)
	}
	if status, _ := getStatus(ctx, t, id, 1); status != "PENDING_DELETE" {
		t.Errorf("expected PENDING_DELETE after transition, got %q", status)
	}
}

func TestBundle_ConditionalWriteRejectsConcurrentStaging(t *testing.T) {
	ctx := context.Background()

	id := uuid.New().String()
	ops := []bundle.Request{
		{Operation: bundle.OpCreate, ResourceType: "Patient", ID: id, Resource: map[string]interface{}{"name": "Ada"}},
	}

	first, err := stager.GenerateStagingRequests(ops, nil, "")
	if err != nil {
		t.Fatalf("stage first: %v", err)
	}
	if err := execute(ctx, first.CreateRequests); err != nil {
		t.Fatalf("execute first: %v", err)
	}

	// A second bundle staging the same id+vid must be rejected.
	secondAttempt, err := stager.GenerateStagingRequests(ops, nil, "")
	if err != nil {
		t.Fatalf("stage second: %v", err)
	}
	if err := execute(ctx, secondAttempt.CreateRequests); err == nil {
		t.Error("expected conditional write rejection for concurrent staging")
	}
}

func TestBundle_RollbackRemovesStagedRows(t *testing.T) {
	ctx := context.Background()

	staged, err := stager.GenerateStagingRequests([]bundle.Request{
		{Operation: bundle.OpCreate, ResourceType: "Patient", Resource: map[string]interface{}{"name": "Ada"}},
		{Operation: bundle.OpCreate, ResourceType: "Observation", Resource: map[string]interface{}{"code": "8867-4"}},
	}, nil, "")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := execute(ctx, staged.CreateRequests); err != nil {
		t.Fatalf("execute: %v", err)
	}

	rollback := stager.GenerateRollbackRequests(staged.Responses, "")
	if len(rollback.DeleteRequests) != 2 || len(rollback.LockReleases) != 2 {
		t.Fatalf("expected 2 compensations, got %d deletes / %d releases",
			len(rollback.DeleteRequests), len(rollback.LockReleases))
	}
	if err := execute(ctx, rollback.DeleteRequests); err != nil {
		t.Fatalf("execute rollback: %v", err)
	}

	for _, resp := range staged.Responses {
		if _, found := getStatus(ctx, t, resp.ID, 1); found {
			t.Errorf("expected staged row %s to be removed by rollback", resp.ID)
		}
	}
}
