package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/go-qris-payflow/internal/aws"
)

// DynamoStore keeps transactions in a DynamoDB table with partition key
// reference_id (S).
type DynamoStore struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewDynamoStore creates a new DynamoDB-backed Store.
func NewDynamoStore(client aws.DynamoDBAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Upsert merges the patch in a single UpdateItem. created_at, a default
// status and paid_at are guarded with if_not_exists so a merge never
// overwrites them.
func (s *DynamoStore) Upsert(ctx context.Context, referenceID string, patch Patch) (*Transaction, error) {
	u := newUpdateBuilder()

	if err := u.setIfMissing("created_at", s.nowFunc().UTC()); err != nil {
		return nil, err
	}
	var err error
	if patch.Status != nil {
		err = u.set("status", *patch.Status)
	} else {
		err = u.setIfMissing("status", StatusPending)
	}
	if err != nil {
		return nil, err
	}
	if patch.Amount != nil {
		if err := u.set("amount", *patch.Amount); err != nil {
			return nil, err
		}
	}
	if patch.Method != nil {
		if err := u.set("method", *patch.Method); err != nil {
			return nil, err
		}
	}
	if patch.QRID != nil {
		if err := u.set("qr_id", *patch.QRID); err != nil {
			return nil, err
		}
	}
	if patch.PaidAt != nil {
		if err := u.setIfMissing("paid_at", patch.PaidAt.UTC()); err != nil {
			return nil, err
		}
	}
	if patch.WebhookURL != nil {
		if err := u.set("webhook_url", *patch.WebhookURL); err != nil {
			return nil, err
		}
	}
	if patch.RawWebhook != nil {
		if err := u.set("raw_webhook", patch.RawWebhook); err != nil {
			return nil, err
		}
	}

	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"reference_id": &types.AttributeValueMemberS{Value: referenceID},
		},
		UpdateExpression:          awsString(u.expression()),
		ExpressionAttributeNames:  u.names,
		ExpressionAttributeValues: u.values,
		ReturnValues:              types.ReturnValueAllNew,
	}

	out, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		return nil, classifyDynamoErr("update item", s.tableName, err)
	}

	var tx Transaction
	if err := attributevalue.UnmarshalMap(out.Attributes, &tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	return &tx, nil
}

// Get fetches a transaction by reference_id.
func (s *DynamoStore) Get(ctx context.Context, referenceID string) (*Transaction, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"reference_id": &types.AttributeValueMemberS{Value: referenceID},
		},
	})
	if err != nil {
		return nil, classifyDynamoErr("get item", s.tableName, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var tx Transaction
	if err := attributevalue.UnmarshalMap(out.Item, &tx); err != nil {
		return nil, fmt.Errorf("unmarshal transaction: %w", err)
	}
	return &tx, nil
}

// List scans the whole table and sorts in memory. Fine for a demo-sized
// table; a created_at GSI is the way out if it grows.
func (s *DynamoStore) List(ctx context.Context, limit int) ([]Transaction, error) {
	var (
		all      []Transaction
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:         &s.tableName,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, classifyDynamoErr("scan", s.tableName, err)
		}
		var page []Transaction
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal transactions: %w", err)
		}
		all = append(all, page...)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return newestFirst(all, limit), nil
}

// updateBuilder accumulates SET clauses with placeholder names and values.
type updateBuilder struct {
	clauses []string
	names   map[string]string
	values  map[string]types.AttributeValue
}

func newUpdateBuilder() *updateBuilder {
	return &updateBuilder{
		names:  map[string]string{},
		values: map[string]types.AttributeValue{},
	}
}

func (u *updateBuilder) placeholders(attr string, v any) (string, string, error) {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("marshal %s: %w", attr, err)
	}
	name := "#" + attr
	value := ":" + attr
	u.names[name] = attr
	u.values[value] = av
	return name, value, nil
}

func (u *updateBuilder) set(attr string, v any) error {
	name, value, err := u.placeholders(attr, v)
	if err != nil {
		return err
	}
	u.clauses = append(u.clauses, fmt.Sprintf("%s = %s", name, value))
	return nil
}

func (u *updateBuilder) setIfMissing(attr string, v any) error {
	name, value, err := u.placeholders(attr, v)
	if err != nil {
		return err
	}
	u.clauses = append(u.clauses, fmt.Sprintf("%s = if_not_exists(%s, %s)", name, name, value))
	return nil
}

func (u *updateBuilder) expression() string {
	return "SET " + strings.Join(u.clauses, ", ")
}

func classifyDynamoErr(op, table string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
		return fmt.Errorf("%s: table %q does not exist: %w", op, table, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func awsString(s string) *string { return &s }
