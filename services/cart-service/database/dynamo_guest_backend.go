package database

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client the guest backend uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoGuestBackend stores guest carts in a table keyed by `guest_id`
// (string). `expires_at` should be configured as the table's TTL attribute;
// items past it are treated as absent even before DynamoDB reaps them.
type DynamoGuestBackend struct {
	client DynamoAPI
	table  string
	ttl    time.Duration
	now    func() time.Time
}

func NewDynamoGuestBackend(client DynamoAPI, table string, ttl time.Duration) *DynamoGuestBackend {
	return &DynamoGuestBackend{client: client, table: table, ttl: ttl, now: time.Now}
}

type ddbGuestCart struct {
	GuestID   string `dynamodbav:"guest_id"`
	Payload   string `dynamodbav:"payload"`
	ExpiresAt int64  `dynamodbav:"expires_at,omitempty"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func (d *DynamoGuestBackend) key(guestID string) (map[string]types.AttributeValue, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"guest_id": guestID})
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	return key, nil
}

func (d *DynamoGuestBackend) Get(ctx context.Context, guestID string) ([]byte, error) {
	key, err := d.key(guestID)
	if err != nil {
		return nil, err
	}
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrGuestCartNotFound
	}

	var row ddbGuestCart
	if err := attributevalue.UnmarshalMap(out.Item, &row); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	if row.ExpiresAt > 0 && d.now().Unix() >= row.ExpiresAt {
		return nil, ErrGuestCartNotFound
	}
	return []byte(row.Payload), nil
}

func (d *DynamoGuestBackend) Set(ctx context.Context, guestID string, data []byte) error {
	now := d.now().UTC()
	row := ddbGuestCart{
		GuestID:   guestID,
		Payload:   string(data),
		UpdatedAt: now.Format(time.RFC3339),
	}
	if d.ttl > 0 {
		row.ExpiresAt = now.Add(d.ttl).Unix()
	}

	item, err := attributevalue.MarshalMap(row)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(d.table), Item: item}); err != nil {
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

func (d *DynamoGuestBackend) Delete(ctx context.Context, guestID string) error {
	key, err := d.key(guestID)
	if err != nil {
		return err
	}
	if _, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: aws.String(d.table), Key: key}); err != nil {
		return fmt.Errorf("dynamodb DeleteItem failed: %w", err)
	}
	return nil
}
