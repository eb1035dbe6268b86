package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used here.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoBlobStore stores blobs as items keyed by blob_key.
type DynamoBlobStore struct {
	client    DynamoAPI
	tableName string
	prefix    string
}

// dynamoBlob represents the DynamoDB item structure
type dynamoBlob struct {
	Key       string `dynamodbav:"blob_key"`
	Data      string `dynamodbav:"data"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

func NewDynamoBlobStore(client DynamoAPI, tableName, prefix string) *DynamoBlobStore {
	return &DynamoBlobStore{
		client:    client,
		tableName: tableName,
		prefix:    prefix,
	}
}

func (s *DynamoBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"blob_key": &types.AttributeValueMemberS{Value: joinKey(s.prefix, key)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	if result.Item == nil {
		return nil, ErrBlobNotFound
	}

	var item dynamoBlob
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal blob: %w", err)
	}
	return []byte(item.Data), nil
}

// Put overwrites the item; there is no condition expression.
func (s *DynamoBlobStore) Put(ctx context.Context, key string, data []byte) error {
	item := dynamoBlob{
		Key:       joinKey(s.prefix, key),
		Data:      string(data),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal blob: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put blob: %w", err)
	}
	return nil
}
