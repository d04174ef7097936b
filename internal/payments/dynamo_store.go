package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/aws"
)

// Secondary index names on the payments table.
const (
	IndexSlug          = "slug-index"
	IndexTransaction   = "transaction-index"
	IndexMerchantOrder = "merchant-order-index"
)

// DynamoStore encapsulates operations on the payments table.
type DynamoStore struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewDynamoStore creates a new payments store.
func NewDynamoStore(client aws.DynamoDBAPI, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Get fetches a payment by payment_id. Returns (nil, nil) if not found.
func (s *DynamoStore) Get(ctx context.Context, paymentID string) (*Payment, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"payment_id": &types.AttributeValueMemberS{Value: paymentID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var p Payment
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal payment: %w", err)
	}
	return &p, nil
}

// FindBySlug looks a payment up through the slug index. Not found is (nil, nil).
func (s *DynamoStore) FindBySlug(ctx context.Context, slug string) (*Payment, error) {
	return s.queryOne(ctx, IndexSlug, "slug", slug)
}

// FindByTransactionID looks a payment up by processor transaction id.
func (s *DynamoStore) FindByTransactionID(ctx context.Context, transactionID string) (*Payment, error) {
	return s.queryOne(ctx, IndexTransaction, "transaction_id", transactionID)
}

// FindByMerchantOrderID looks a payment up by the merchant order id sent at checkout.
func (s *DynamoStore) FindByMerchantOrderID(ctx context.Context, merchantOrderID string) (*Payment, error) {
	return s.queryOne(ctx, IndexMerchantOrder, "merchant_order_id", merchantOrderID)
}

// queryOne returns the first item of a GSI query on attr = value.
func (s *DynamoStore) queryOne(ctx context.Context, index, attr, value string) (*Payment, error) {
	if value == "" {
		return nil, nil
	}
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:                &s.tableName,
		IndexName:                &index,
		KeyConditionExpression:   awsString("#k = :v"),
		ExpressionAttributeNames: map[string]string{"#k": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
		Limit: awsInt32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", index, err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var p Payment
	if err := attributevalue.UnmarshalMap(out.Items[0], &p); err != nil {
		return nil, fmt.Errorf("unmarshal payment: %w", err)
	}
	return &p, nil
}

// Save writes the full payment record, stamping created_at/updated_at.
func (s *DynamoStore) Save(ctx context.Context, p *Payment) error {
	now := s.nowFunc()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal payment: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }

func awsInt32(v int32) *int32 { return &v }
