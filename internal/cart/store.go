package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/multierr"

	"github.com/imrishuroy/watch-storefront/internal/aws"
)

// ErrLineNotFound is returned by updates that target a deleted cart line.
var ErrLineNotFound = errors.New("cart line not found")

// Store encapsulates operations on the cart table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new cart Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

func (s *Store) key(lineID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"cart_id": &types.AttributeValueMemberS{Value: lineID},
	}
}

// Get fetches a line by id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, lineID string) (*Line, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       s.key(lineID),
	})
	if err != nil {
		return nil, fmt.Errorf("get cart line: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var l Line
	if err := attributevalue.UnmarshalMap(out.Item, &l); err != nil {
		return nil, fmt.Errorf("unmarshal cart line: %w", err)
	}
	return &l, nil
}

// Put writes a line, replacing any previous version.
func (s *Store) Put(ctx context.Context, l Line) error {
	item, err := attributevalue.MarshalMap(l)
	if err != nil {
		return fmt.Errorf("marshal cart line: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{TableName: &s.tableName, Item: item}); err != nil {
		return fmt.Errorf("put cart line: %w", err)
	}
	return nil
}

// ListByUser returns the user's lines, most recently added first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]Line, error) {
	return s.query(ctx, aws.IndexCartByUser, "user_id", userID, false)
}

// ListByProduct returns every line, across all users, that references productID.
func (s *Store) ListByProduct(ctx context.Context, productID string) ([]Line, error) {
	return s.query(ctx, aws.IndexCartByWatch, "watch_id", productID, true)
}

func (s *Store) query(ctx context.Context, index, attr, value string, forward bool) ([]Line, error) {
	input := &dyn.QueryInput{
		TableName:                 &s.tableName,
		IndexName:                 awsString(index),
		KeyConditionExpression:    awsString("#k = :v"),
		ExpressionAttributeNames:  map[string]string{"#k": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		ScanIndexForward:          &forward,
	}

	var lines []Line
	paginator := dyn.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query cart by %s: %w", attr, err)
		}
		var batch []Line
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal cart lines: %w", err)
		}
		lines = append(lines, batch...)
	}
	return lines, nil
}

// State is the stored quantity and flags of a line. OriginalQuantity 0
// removes the attribute.
type State struct {
	Quantity         int
	OutOfStock       bool
	Hidden           bool
	OriginalQuantity int
}

// SetState overwrites the quantity and flags of an existing line.
func (s *Store) SetState(ctx context.Context, lineID string, st State) error {
	expr := "SET quantity = :q, out_of_stock = :oos, #hidden = :h, updated_at = :ua"
	values := map[string]types.AttributeValue{
		":q":   numberAttr(st.Quantity),
		":oos": &types.AttributeValueMemberBOOL{Value: st.OutOfStock},
		":h":   &types.AttributeValueMemberBOOL{Value: st.Hidden},
		":ua":  numberAttr(int(s.nowFunc().Unix())),
	}
	if st.OriginalQuantity > 0 {
		expr += ", original_quantity = :oq"
		values[":oq"] = numberAttr(st.OriginalQuantity)
	} else {
		expr += " REMOVE original_quantity"
	}

	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       s.key(lineID),
		UpdateExpression:          &expr,
		ConditionExpression:       awsString("attribute_exists(cart_id)"),
		ExpressionAttributeNames:  map[string]string{"#hidden": "hidden"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if aws.IsConditionFailed(err) {
			return ErrLineNotFound
		}
		return fmt.Errorf("update cart line: %w", err)
	}
	return nil
}

// Delete removes a line. Deleting a missing line is not an error.
func (s *Store) Delete(ctx context.Context, lineID string) error {
	if _, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{TableName: &s.tableName, Key: s.key(lineID)}); err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return nil
}

// DeleteByUser removes every line of a user. It attempts all deletes and
// returns how many succeeded along with the joined failures.
func (s *Store) DeleteByUser(ctx context.Context, userID string) (int, error) {
	lines, err := s.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	var errs error
	for _, l := range lines {
		if err := s.Delete(ctx, l.ID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("line %s: %w", l.ID, err))
			continue
		}
		deleted++
	}
	return deleted, errs
}

func numberAttr(n int) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}
}

func awsString(s string) *string { return &s }
