package address

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/watch-storefront/internal/aws"
)

// Store encapsulates operations on the addresses table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewStore creates a new address Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// Create writes a new address. It fails if the id is already taken.
func (s *Store) Create(ctx context.Context, a Address) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal address: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(address_id)"),
	})
	if err != nil {
		return fmt.Errorf("put address: %w", err)
	}
	return nil
}

// Get fetches an address by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, id string) (*Address, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"address_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var a Address
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, fmt.Errorf("unmarshal address: %w", err)
	}
	return &a, nil
}

// ListByUser returns the user's addresses, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]Address, error) {
	forward := false
	paginator := dyn.NewQueryPaginator(s.client, &dyn.QueryInput{
		TableName:                 &s.tableName,
		IndexName:                 awsString(aws.IndexAddressByUser),
		KeyConditionExpression:    awsString("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": &types.AttributeValueMemberS{Value: userID}},
		ScanIndexForward:          &forward,
	})

	var out []Address
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query addresses: %w", err)
		}
		var batch []Address
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal addresses: %w", err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

func awsString(s string) *string { return &s }
