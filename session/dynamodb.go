package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/heavenlydemon269/vibelist/codec"
)

// DDBClient is the subset of the DynamoDB API used by DynamoStore.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoStore persists sessions in a DynamoDB table.
//
// Table schema:
//   - Partition key: session_id (string)
//   - expires_at (number, epoch seconds) may be enabled as the TTL attribute
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name vibelist-sessions \
//	  --attribute-definitions AttributeName=session_id,AttributeType=S \
//	  --key-schema AttributeName=session_id,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
type DynamoStore struct {
	client DDBClient
	table  string
	ttl    time.Duration
	codec  codec.Codec
	now    func() time.Time
}

// NewDynamoStore creates a store over table.
func NewDynamoStore(client DDBClient, table string, ttl time.Duration) *DynamoStore {
	return &DynamoStore{
		client: client,
		table:  table,
		ttl:    ttl,
		codec:  codec.Default,
		now:    time.Now,
	}
}

func (s *DynamoStore) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"session_id": &types.AttributeValueMemberS{Value: id},
	}
}

func (s *DynamoStore) Get(ctx context.Context, id string) (*Session, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get session from DynamoDB: %w", err)
	}
	if len(resp.Item) == 0 {
		return nil, ErrNotFound
	}

	// DynamoDB deletes expired items lazily.
	if exp, ok := resp.Item["expires_at"].(*types.AttributeValueMemberN); ok {
		sec, err := strconv.ParseInt(exp.Value, 10, 64)
		if err == nil && s.now().Unix() >= sec {
			return nil, ErrNotFound
		}
	}

	c := s.codec
	if name, ok := resp.Item["codec"].(*types.AttributeValueMemberS); ok {
		if c, err = codec.Lookup(name.Value); err != nil {
			return nil, err
		}
	}
	data, ok := resp.Item["data"].(*types.AttributeValueMemberB)
	if !ok {
		return nil, fmt.Errorf("invalid data attribute for session %s", id)
	}

	var sess Session
	if err := c.Unmarshal(data.Value, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *DynamoStore) Put(ctx context.Context, sess *Session) error {
	data, err := s.codec.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	item := s.key(sess.ID)
	item["codec"] = &types.AttributeValueMemberS{Value: s.codec.Name()}
	item["data"] = &types.AttributeValueMemberB{Value: data}
	if s.ttl > 0 {
		exp := s.now().Add(s.ttl).Unix()
		item["expires_at"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(exp, 10)}
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put session to DynamoDB: %w", err)
	}
	return nil
}

func (s *DynamoStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete session from DynamoDB: %w", err)
	}
	return nil
}
