package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// frameItem is one key-value row. The table uses frame_id as partition key
// and item_key as sort key, so one table serves any number of frames.
type frameItem struct {
	FrameID string `dynamodbav:"frame_id"`
	ItemKey string `dynamodbav:"item_key"`
	Value   string `dynamodbav:"value"`
}

// Dynamo is a Store backed by a DynamoDB table.
type Dynamo struct {
	client    *dynamodb.Client
	tableName string
	frameID   string
}

// NewDynamo creates a DynamoDB-backed store for the given frame.
func NewDynamo(client *dynamodb.Client, tableName, frameID string) *Dynamo {
	return &Dynamo{client: client, tableName: tableName, frameID: frameID}
}

func (d *Dynamo) key(itemKey string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"frame_id": &types.AttributeValueMemberS{Value: d.frameID},
		"item_key": &types.AttributeValueMemberS{Value: itemKey},
	}
}

func (d *Dynamo) Get(ctx context.Context, key string) (string, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key:       d.key(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get item from DynamoDB: %w", err)
	}
	if out.Item == nil {
		return "", ErrNotFound
	}

	var item frameItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return "", fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return item.Value, nil
}

func (d *Dynamo) Set(ctx context.Context, key, value string) error {
	item, err := attributevalue.MarshalMap(frameItem{
		FrameID: d.frameID,
		ItemKey: key,
		Value:   value,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save item to DynamoDB: %w", err)
	}
	return nil
}

func (d *Dynamo) Delete(ctx context.Context, key string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName),
		Key:       d.key(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete item from DynamoDB: %w", err)
	}
	return nil
}
